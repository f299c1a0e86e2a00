package events

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"tax-engine/internal/models"
	"tax-engine/internal/repository"
)

// TenantCreatedEvent represents the event published when a tenant is created
type TenantCreatedEvent struct {
	EventType     string    `json:"event_type"`
	TenantID      string    `json:"tenant_id"`
	SessionID     string    `json:"session_id"`
	Product       string    `json:"product"`
	BusinessName  string    `json:"business_name"`
	Slug          string    `json:"slug"`
	Email         string    `json:"email"`
	Country       string    `json:"country,omitempty"`
	StateProvince string    `json:"state_province,omitempty"`
	City          string    `json:"city,omitempty"`
	PostalCode    string    `json:"postal_code,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Subscriber handles NATS event subscriptions for the tax engine
type Subscriber struct {
	conn   *nats.Conn
	repo   *repository.TaxRepository
	logger *logrus.Entry
}

// NewSubscriber creates a new event subscriber
func NewSubscriber(repo *repository.TaxRepository, logger *logrus.Logger) (*Subscriber, error) {
	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		return nil, fmt.Errorf("NATS_URL not set")
	}

	conn, err := nats.Connect(natsURL,
		nats.Name("tax-engine-subscriber"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Subscriber{
		conn:   conn,
		repo:   repo,
		logger: logger.WithField("component", "events.subscriber"),
	}, nil
}

// Start begins listening for events
func (s *Subscriber) Start() error {
	// Subscribe to tenant.created events
	_, err := s.conn.Subscribe("tenant.created", func(msg *nats.Msg) {
		s.handleTenantCreated(msg)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to tenant.created: %w", err)
	}

	s.logger.Info("Subscribed to tenant.created events for GST registration provisioning")
	return nil
}

// handleTenantCreated provisions a GST registration shell for new Indian
// tenants so calculations can resolve an origin state immediately.
func (s *Subscriber) handleTenantCreated(msg *nats.Msg) {
	var event TenantCreatedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		s.logger.WithError(err).Error("Failed to unmarshal tenant.created event")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"tenant_id": event.TenantID,
		"country":   event.Country,
		"state":     event.StateProvince,
	}).Info("Received tenant.created event")

	if !isIndia(event.Country) {
		s.logger.WithField("tenant_id", event.TenantID).Debug("Tenant outside India, no GST registration to provision")
		return
	}

	stateCode := normalizeStateCode(event.StateProvince)
	if stateCode == "" {
		s.logger.WithFields(logrus.Fields{
			"tenant_id": event.TenantID,
			"state":     event.StateProvince,
		}).Warn("No recognizable state in tenant.created event, skipping GST registration shell")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.provisionRegistration(ctx, event, stateCode); err != nil {
		s.logger.WithError(err).Error("Failed to provision GST registration for tenant")
		return
	}

	s.logger.WithField("tenant_id", event.TenantID).Info("Successfully provisioned GST registration shell")
}

// provisionRegistration creates the tenant's principal registration in
// its home state. The GSTIN stays empty until the tenant submits it.
func (s *Subscriber) provisionRegistration(ctx context.Context, event TenantCreatedEvent, stateCode string) error {
	var jurisdictionID *uuid.UUID
	stateJurisdiction, err := s.repo.GetJurisdictionByStateCode(ctx, repository.GlobalTenantID, stateCode)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"state": stateCode,
			"error": err,
		}).Warn("State jurisdiction not found in global reference data")
	} else {
		jurisdictionID = &stateJurisdiction.ID
	}

	registration := &models.GSTRegistration{
		ID:             uuid.New(),
		TenantID:       event.TenantID,
		LegalName:      event.BusinessName,
		StateCode:      stateCode,
		JurisdictionID: jurisdictionID,
		IsPrimary:      true,
		EffectiveDate:  time.Now(),
		IsActive:       true,
	}

	if err := s.repo.CreateRegistration(ctx, registration); err != nil {
		// Unique on (tenant, state): the shell may already exist
		s.logger.WithError(err).Debug("Failed to create GST registration (may already exist)")
		return nil
	}

	s.logger.WithFields(logrus.Fields{
		"tenant_id": event.TenantID,
		"state":     stateCode,
	}).Info("Created GST registration shell")
	return nil
}

// isIndia reports whether the tenant's country is India
func isIndia(country string) bool {
	switch strings.ToLower(strings.TrimSpace(country)) {
	case "in", "india":
		return true
	}
	return false
}

// indiaStateCodes maps state and union territory names to GST state codes
var indiaStateCodes = map[string]string{
	"andhra pradesh":    "AP",
	"arunachal pradesh": "AR",
	"assam":             "AS",
	"bihar":             "BR",
	"chhattisgarh":      "CG",
	"goa":               "GA",
	"gujarat":           "GJ",
	"haryana":           "HR",
	"himachal pradesh":  "HP",
	"jharkhand":         "JH",
	"karnataka":         "KA",
	"kerala":            "KL",
	"madhya pradesh":    "MP",
	"maharashtra":       "MH",
	"manipur":           "MN",
	"meghalaya":         "ML",
	"mizoram":           "MZ",
	"nagaland":          "NL",
	"odisha":            "OD",
	"punjab":            "PB",
	"rajasthan":         "RJ",
	"sikkim":            "SK",
	"tamil nadu":        "TN",
	"telangana":         "TS",
	"tripura":           "TR",
	"uttar pradesh":     "UP",
	"uttarakhand":       "UK",
	"west bengal":       "WB",
	"andaman and nicobar islands":              "AN",
	"chandigarh":                               "CH",
	"dadra and nagar haveli and daman and diu": "DN",
	"delhi":             "DL",
	"jammu and kashmir": "JK",
	"ladakh":            "LA",
	"lakshadweep":       "LD",
	"puducherry":        "PY",
}

// normalizeStateCode resolves a state name or code to a GST state code
func normalizeStateCode(state string) string {
	trimmed := strings.TrimSpace(state)
	if len(trimmed) == 2 {
		return strings.ToUpper(trimmed)
	}
	if code, ok := indiaStateCodes[strings.ToLower(trimmed)]; ok {
		return code
	}
	return ""
}

// Close closes the subscriber connection
func (s *Subscriber) Close() {
	if s.conn != nil {
		s.conn.Close()
	}
}
