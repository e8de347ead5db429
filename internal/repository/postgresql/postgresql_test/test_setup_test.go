package postgresql_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/database"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/logger"
)

// TestDatabaseSetup holds a migrated test database connection
type TestDatabaseSetup struct {
	DB *database.DB
}

// NewTestDatabase connects to TEST_DATABASE_URL and applies migrations. The
// calling test is skipped when the variable is unset.
func NewTestDatabase(t *testing.T) *TestDatabaseSetup {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	if err := database.RunMigrations(dsn, logger.Discard()); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	db, err := database.NewPostgreSQLDB(dsn)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	setup := &TestDatabaseSetup{DB: db}
	if err := setup.TruncateAllTables(context.Background()); err != nil {
		t.Fatalf("failed to truncate test database: %v", err)
	}
	t.Cleanup(setup.Close)
	return setup
}

// TruncateAllTables removes every row from the schema
func (t *TestDatabaseSetup) TruncateAllTables(ctx context.Context) error {
	tx, err := t.DB.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tables := []string{
		"job_locks",
		"payslips",
		"external_order_stale_dates",
		"external_order_records",
		"product_mappings",
		"marketplace_credentials",
		"deduction_types",
		"late_penalty_rules",
		"cast_daily_items",
		"cast_daily_stats",
		"cast_status_history",
		"cast_status_progress",
		"compensation_settings",
		"wage_status_conditions",
		"wage_statuses",
		"attendances",
		"attendance_statuses",
		"order_items",
		"orders",
		"products",
		"casts",
		"special_day_bonuses",
		"costumes",
		"stores",
	}

	for _, table := range tables {
		_, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
		if err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return tx.Commit(ctx)
}

// SeedStore inserts a store with two casts
func (t *TestDatabaseSetup) SeedStore(ctx context.Context, storeID string) error {
	if _, err := t.DB.Exec(ctx, `INSERT INTO stores (id, name, cutoff_hour) VALUES ($1, $1, 6)`, storeID); err != nil {
		return err
	}
	_, err := t.DB.Exec(ctx, `
		INSERT INTO casts (id, store_id, name) VALUES
			($1 || '-a', $1, 'Aoi'),
			($1 || '-b', $1, 'Mika')
	`, storeID)
	return err
}

// Close closes the database connection
func (t *TestDatabaseSetup) Close() {
	t.DB.Close()
}
