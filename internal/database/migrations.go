package database

import (
	"embed"
	"fmt"
	"log"
	"sort"
	"strings"

	"gorm.io/gorm"
	"tax-engine/internal/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationRecord tracks which migrations have been applied
type MigrationRecord struct {
	ID        uint   `gorm:"primaryKey"`
	Version   string `gorm:"uniqueIndex;size:255"`
	AppliedAt int64  `gorm:"autoCreateTime"`
}

// RunMigrations runs all pending database migrations
func RunMigrations(db *gorm.DB) error {
	log.Println("Starting database migrations...")

	// Step 1: Create migration tracking table
	if err := db.AutoMigrate(&MigrationRecord{}); err != nil {
		return fmt.Errorf("failed to create migration tracking table: %w", err)
	}

	// Step 2: Run GORM AutoMigrate for model schema (one by one for better error handling)
	log.Println("  → Running schema migrations...")
	modelsToMigrate := []struct {
		name  string
		model interface{}
	}{
		{"TaxJurisdiction", &models.TaxJurisdiction{}},
		{"ProductTaxCategory", &models.ProductTaxCategory{}},
		{"GSTRegistration", &models.GSTRegistration{}},
		{"TaxCalculationCache", &models.TaxCalculationCache{}},
		{"TDSRate", &models.TDSRate{}},
		{"TCSRate", &models.TCSRate{}},
		{"TDSDeduction", &models.TDSDeduction{}},
		{"TCSCollection", &models.TCSCollection{}},
		{"WithholdingThresholdTracker", &models.WithholdingThresholdTracker{}},
		{"InputTaxCredit", &models.InputTaxCredit{}},
		{"PostedInvoice", &models.PostedInvoice{}},
		{"PostedInvoiceItem", &models.PostedInvoiceItem{}},
		{"GSTRFiling", &models.GSTRFiling{}},
	}
	for _, m := range modelsToMigrate {
		log.Printf("    → Migrating %s...", m.name)
		if err := db.AutoMigrate(m.model); err != nil {
			return fmt.Errorf("failed to auto-migrate %s: %w", m.name, err)
		}
		log.Printf("    ✓ %s migrated", m.name)
	}
	log.Println("  ✓ Schema migrations complete")

	// Step 2.5: Ensure unique indexes exist for ON CONFLICT clauses
	// GORM AutoMigrate doesn't add indexes to existing tables, so we create them explicitly
	log.Println("  → Ensuring unique indexes exist...")
	if err := ensureUniqueIndexes(db); err != nil {
		return fmt.Errorf("failed to create unique indexes: %w", err)
	}
	log.Println("  ✓ Unique indexes verified")

	// Step 3: Run SQL seed migrations
	log.Println("  → Running seed migrations...")
	if err := runSQLMigrations(db); err != nil {
		return fmt.Errorf("failed to run SQL migrations: %w", err)
	}
	log.Println("  ✓ Seed migrations complete")

	log.Println("✓ All database migrations complete")
	return nil
}

// runSQLMigrations executes embedded SQL migration files in order
func runSQLMigrations(db *gorm.DB) error {
	// Read all SQL files from embedded filesystem
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	// Sort files by name (ensures order: 001_, 002_, etc.)
	// Skip 001_create_tax_tables.sql since GORM AutoMigrate handles schema
	var fileNames []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			// Skip schema migration - GORM AutoMigrate handles table creation
			if strings.HasPrefix(entry.Name(), "001_") {
				continue
			}
			fileNames = append(fileNames, entry.Name())
		}
	}
	sort.Strings(fileNames)

	// Run each migration
	for _, fileName := range fileNames {
		// Check if migration already applied
		var record MigrationRecord
		result := db.Where("version = ?", fileName).First(&record)
		if result.Error == nil {
			log.Printf("    → Skipping %s (already applied)", fileName)
			continue
		}

		// Read and execute SQL file
		content, err := migrationsFS.ReadFile("migrations/" + fileName)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", fileName, err)
		}

		log.Printf("    → Applying %s...", fileName)

		// Execute the SQL (split by semicolon for multiple statements)
		if err := executeSQLStatements(db, string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", fileName, err)
		}

		// Record migration as applied
		if err := db.Create(&MigrationRecord{Version: fileName}).Error; err != nil {
			return fmt.Errorf("failed to record migration %s: %w", fileName, err)
		}

		log.Printf("    ✓ Applied %s", fileName)
	}

	return nil
}

// executeSQLStatements executes a SQL script with multiple statements
func executeSQLStatements(db *gorm.DB, sql string) error {
	// Split by semicolon but be careful with strings containing semicolons
	statements := splitSQLStatements(sql)

	executed := 0
	for _, stmt := range statements {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}

		// Strip leading comment lines (comments can precede SQL statements in the same "statement")
		lines := strings.Split(stmt, "\n")
		var sqlLines []string
		for _, line := range lines {
			trimmedLine := strings.TrimSpace(line)
			if !strings.HasPrefix(trimmedLine, "--") && trimmedLine != "" {
				sqlLines = append(sqlLines, line)
			}
		}
		stmt = strings.TrimSpace(strings.Join(sqlLines, "\n"))
		if stmt == "" {
			continue
		}
		executed++

		result := db.Exec(stmt)
		if result.Error != nil {
			// Log the error but continue for non-critical errors like duplicate key
			if strings.Contains(result.Error.Error(), "duplicate key") ||
				strings.Contains(result.Error.Error(), "already exists") {
				log.Printf("      [%d/%d] SKIP (duplicate)", executed, len(statements))
				continue
			}
			log.Printf("      [%d/%d] FAIL: %v", executed, len(statements), result.Error)
			return result.Error
		}
	}

	return nil
}

// ensureUniqueIndexes creates unique indexes required for ON CONFLICT clauses
// These indexes may not exist if tables were created before the GORM model tags were added
// GORM uses plural table names (tax_jurisdictions, tds_rates, etc.)
func ensureUniqueIndexes(db *gorm.DB) error {
	indexes := []struct {
		name  string
		sql   string
		table string
	}{
		// TaxJurisdiction: unique on (tenant_id, type, code) for ON CONFLICT clauses
		{
			name:  "idx_jurisdiction_unique",
			sql:   `CREATE UNIQUE INDEX IF NOT EXISTS idx_jurisdiction_unique ON tax_jurisdictions (tenant_id, type, code)`,
			table: "tax_jurisdictions",
		},
		// ProductTaxCategory: unique on (tenant_id, name)
		{
			name:  "idx_category_unique",
			sql:   `CREATE UNIQUE INDEX IF NOT EXISTS idx_category_unique ON product_tax_categories (tenant_id, name)`,
			table: "product_tax_categories",
		},
		// GSTRegistration: unique on (tenant_id, state_code)
		{
			name:  "idx_registration_unique",
			sql:   `CREATE UNIQUE INDEX IF NOT EXISTS idx_registration_unique ON gst_registrations (tenant_id, state_code)`,
			table: "gst_registrations",
		},
		// TDSRate: unique on (tenant_id, section)
		{
			name:  "idx_tds_rate_unique",
			sql:   `CREATE UNIQUE INDEX IF NOT EXISTS idx_tds_rate_unique ON tds_rates (tenant_id, section)`,
			table: "tds_rates",
		},
		// TCSRate: unique on (tenant_id, section)
		{
			name:  "idx_tcs_rate_unique",
			sql:   `CREATE UNIQUE INDEX IF NOT EXISTS idx_tcs_rate_unique ON tcs_rates (tenant_id, section)`,
			table: "tcs_rates",
		},
		// WithholdingThresholdTracker: unique on (tenant_id, party_id, financial_year, tax_type)
		// for the ON CONFLICT DO NOTHING seed while posting
		{
			name:  "idx_threshold_tracker_unique",
			sql:   `CREATE UNIQUE INDEX IF NOT EXISTS idx_threshold_tracker_unique ON withholding_threshold_trackers (tenant_id, party_id, financial_year, tax_type)`,
			table: "withholding_threshold_trackers",
		},
		// GSTRFiling: unique on (tenant_id, return_type, period) for the draft upsert
		{
			name:  "idx_filing_unique",
			sql:   `CREATE UNIQUE INDEX IF NOT EXISTS idx_filing_unique ON gstr_filings (tenant_id, return_type, period)`,
			table: "gstr_filings",
		},
	}

	for _, idx := range indexes {
		// Check if table exists before trying to create index
		var exists bool
		checkSQL := fmt.Sprintf("SELECT EXISTS (SELECT FROM information_schema.tables WHERE table_name = '%s')", idx.table)
		if err := db.Raw(checkSQL).Scan(&exists).Error; err != nil {
			log.Printf("    (warning: could not check table %s: %v)", idx.table, err)
			continue
		}
		if !exists {
			log.Printf("    (skipping index %s: table %s does not exist)", idx.name, idx.table)
			continue
		}

		if err := db.Exec(idx.sql).Error; err != nil {
			// Log but don't fail if index already exists with different name
			if strings.Contains(err.Error(), "already exists") {
				log.Printf("    (index %s already exists, skipping)", idx.name)
				continue
			}
			return err
		}
		log.Printf("    ✓ Created/verified index %s", idx.name)
	}

	return nil
}

// splitSQLStatements splits SQL content into individual statements
func splitSQLStatements(sql string) []string {
	var statements []string
	var currentStmt strings.Builder
	inString := false
	stringChar := rune(0)

	for i, char := range sql {
		// Track string literals to avoid splitting on semicolons within strings
		if (char == '\'' || char == '"') && (i == 0 || sql[i-1] != '\\') {
			if !inString {
				inString = true
				stringChar = char
			} else if char == stringChar {
				inString = false
			}
		}

		if char == ';' && !inString {
			stmt := strings.TrimSpace(currentStmt.String())
			if stmt != "" {
				statements = append(statements, stmt)
			}
			currentStmt.Reset()
		} else {
			currentStmt.WriteRune(char)
		}
	}

	// Add final statement if any
	stmt := strings.TrimSpace(currentStmt.String())
	if stmt != "" {
		statements = append(statements, stmt)
	}

	return statements
}
