package events

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/Tesseract-Nexus/go-shared/events"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"tax-engine/internal/models"
)

// Event subjects under the tax stream
const (
	eventTDSDeductionRecorded  = "tax.tds.deduction_recorded"
	eventTCSCollectionRecorded = "tax.tcs.collection_recorded"
	eventITCRecorded           = "tax.itc.recorded"
	eventGSTRFiled             = "tax.gstr.filed"
	eventWithholdingRateSaved  = "tax.withholding_rate.updated"
)

var (
	publisher     *Publisher
	publisherOnce sync.Once
	publisherMu   sync.RWMutex
)

// Publisher wraps the shared events publisher for tax-specific events
type Publisher struct {
	publisher *events.Publisher
	logger    *logrus.Entry
}

// InitPublisher initializes the singleton NATS publisher
func InitPublisher(logger *logrus.Logger) error {
	var initErr error
	publisherOnce.Do(func() {
		natsURL := os.Getenv("NATS_URL")
		if natsURL == "" {
			logger.Warn("NATS_URL not set, event publishing disabled")
			return
		}

		config := events.DefaultPublisherConfig(natsURL)
		config.Name = "tax-engine"

		pub, err := events.NewPublisher(config, logger)
		if err != nil {
			initErr = err
			return
		}

		ctx := context.Background()
		if err := pub.EnsureStream(ctx, events.StreamTax, []string{"tax.>"}); err != nil {
			logger.WithError(err).Warn("Failed to ensure TAX_EVENTS stream")
		}

		publisherMu.Lock()
		publisher = &Publisher{
			publisher: pub,
			logger:    logger.WithField("component", "events.publisher"),
		}
		publisherMu.Unlock()

		logger.Info("NATS events publisher initialized for tax-engine")
	})
	return initErr
}

// GetPublisher returns the singleton publisher instance
func GetPublisher() *Publisher {
	publisherMu.RLock()
	defer publisherMu.RUnlock()
	return publisher
}

// PublishTaxCalculated publishes a tax calculated event
func (p *Publisher) PublishTaxCalculated(ctx context.Context, req models.CalculateTaxRequest, result *models.TaxCalculationResponse, tenantID string) error {
	event := events.NewTaxEvent(events.TaxCalculated, tenantID)
	event.CalculationID = uuid.New().String()
	if req.CustomerID != nil {
		event.CustomerID = req.CustomerID.String()
	}
	event.TaxableAmount = result.Subtotal.InexactFloat64()
	event.TaxAmount = result.TaxAmount.InexactFloat64()
	event.Currency = "INR"

	return p.publish(ctx, event)
}

// PublishDeductionRecorded publishes a TDS deduction recorded event
func (p *Publisher) PublishDeductionRecorded(ctx context.Context, deduction *models.TDSDeduction, tenantID string) error {
	event := events.NewTaxEvent(eventTDSDeductionRecorded, tenantID)
	event.CalculationID = deduction.ID.String()
	event.CustomerID = deduction.DeducteeID.String()
	event.TaxableAmount = deduction.GrossAmount.InexactFloat64()
	event.TaxAmount = deduction.TDSAmount.InexactFloat64()
	event.Currency = "INR"

	return p.publish(ctx, event)
}

// PublishCollectionRecorded publishes a TCS collection recorded event
func (p *Publisher) PublishCollectionRecorded(ctx context.Context, collection *models.TCSCollection, tenantID string) error {
	event := events.NewTaxEvent(eventTCSCollectionRecorded, tenantID)
	event.CalculationID = collection.ID.String()
	event.CustomerID = collection.CustomerID.String()
	event.TaxableAmount = collection.TaxableAmount.InexactFloat64()
	event.TaxAmount = collection.TCSAmount.InexactFloat64()
	event.Currency = "INR"

	return p.publish(ctx, event)
}

// PublishITCRecorded publishes an input tax credit recorded event
func (p *Publisher) PublishITCRecorded(ctx context.Context, itc *models.InputTaxCredit, tenantID string) error {
	event := events.NewTaxEvent(eventITCRecorded, tenantID)
	event.CalculationID = itc.ID.String()
	if itc.SupplierID != nil {
		event.CustomerID = itc.SupplierID.String()
	}
	event.TaxableAmount = itc.TaxableAmount.InexactFloat64()
	event.TaxAmount = itc.TotalITC.InexactFloat64()
	event.Currency = "INR"

	return p.publish(ctx, event)
}

// PublishReturnFiled publishes a GST return filed event
func (p *Publisher) PublishReturnFiled(ctx context.Context, filing *models.GSTRFiling, tenantID string) error {
	event := events.NewTaxEvent(eventGSTRFiled, tenantID)
	event.CalculationID = filing.ID.String()
	event.TaxableAmount = filing.TotalTaxable.InexactFloat64()
	event.TaxAmount = filing.TotalTax.InexactFloat64()
	event.Currency = "INR"

	return p.publish(ctx, event)
}

// PublishWithholdingRateSaved publishes a TDS/TCS rate change event
func (p *Publisher) PublishWithholdingRateSaved(ctx context.Context, tenantID, rateID string, rate float64) error {
	event := events.NewTaxEvent(eventWithholdingRateSaved, tenantID)
	event.TaxRateID = rateID
	event.TaxRate = rate

	return p.publish(ctx, event)
}

// PublishJurisdictionCreated publishes a jurisdiction created event
func (p *Publisher) PublishJurisdictionCreated(ctx context.Context, tenantID, jurisdictionID, name, jurisdictionType string) error {
	event := events.NewTaxEvent(events.TaxJurisdictionCreated, tenantID)
	event.JurisdictionID = jurisdictionID
	event.JurisdictionName = name
	event.JurisdictionType = jurisdictionType

	return p.publish(ctx, event)
}

// PublishJurisdictionUpdated publishes a jurisdiction updated event
func (p *Publisher) PublishJurisdictionUpdated(ctx context.Context, tenantID, jurisdictionID, name string) error {
	event := events.NewTaxEvent(events.TaxJurisdictionUpdated, tenantID)
	event.JurisdictionID = jurisdictionID
	event.JurisdictionName = name

	return p.publish(ctx, event)
}

// PublishJurisdictionDeleted publishes a jurisdiction deleted event
func (p *Publisher) PublishJurisdictionDeleted(ctx context.Context, tenantID, jurisdictionID string) error {
	event := events.NewTaxEvent(events.TaxJurisdictionDeleted, tenantID)
	event.JurisdictionID = jurisdictionID

	return p.publish(ctx, event)
}

// publish is a helper that logs and publishes events asynchronously
func (p *Publisher) publish(ctx context.Context, event *events.TaxEvent) error {
	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := p.publisher.Publish(pubCtx, event); err != nil {
			p.logger.WithFields(logrus.Fields{
				"eventType": event.EventType,
				"tenantID":  event.TenantID,
			}).WithError(err).Error("Failed to publish tax event")
		} else {
			p.logger.WithFields(logrus.Fields{
				"eventType": event.EventType,
				"tenantID":  event.TenantID,
			}).Info("Tax event published successfully")
		}
	}()

	return nil
}

// IsConnected returns true if connected to NATS
func (p *Publisher) IsConnected() bool {
	return p.publisher != nil && p.publisher.IsConnected()
}

// Close closes the publisher connection
func (p *Publisher) Close() {
	if p.publisher != nil {
		p.publisher.Close()
	}
}
