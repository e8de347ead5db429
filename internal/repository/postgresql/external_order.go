package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/cast-backoffice/internal/domain/externalorder"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/database"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/marketplace"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type credentialRepository struct {
	db *database.DB
}

func NewCredentialRepository(db *database.DB) externalorder.CredentialRepository {
	return &credentialRepository{db: db}
}

// ListAll implements externalorder.CredentialRepository.
func (r *credentialRepository) ListAll(ctx context.Context) ([]externalorder.Credential, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT c.store_id, c.access_token, c.refresh_token, c.token_expires_at, c.updated_at
		FROM marketplace_credentials c
		JOIN stores s ON s.id = c.store_id
		WHERE s.is_active
		ORDER BY c.store_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list marketplace credentials: %w", err)
	}
	defer rows.Close()

	var out []externalorder.Credential
	for rows.Next() {
		var c externalorder.Credential
		if err := rows.Scan(&c.StoreID, &c.AccessToken, &c.RefreshToken, &c.TokenExpiresAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan marketplace credential: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Get implements externalorder.CredentialRepository.
func (r *credentialRepository) Get(ctx context.Context, storeID string) (externalorder.Credential, error) {
	q := GetQuerier(ctx, r.db)

	var c externalorder.Credential
	err := q.QueryRow(ctx, `
		SELECT store_id, access_token, refresh_token, token_expires_at, updated_at
		FROM marketplace_credentials
		WHERE store_id = $1
	`, storeID).Scan(&c.StoreID, &c.AccessToken, &c.RefreshToken, &c.TokenExpiresAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return externalorder.Credential{}, externalorder.ErrCredentialNotFound
		}
		return externalorder.Credential{}, fmt.Errorf("failed to get marketplace credential: %w", err)
	}
	return c, nil
}

// Save implements externalorder.CredentialRepository.
func (r *credentialRepository) Save(ctx context.Context, c externalorder.Credential) error {
	q := GetQuerier(ctx, r.db)

	_, err := q.Exec(ctx, `
		INSERT INTO marketplace_credentials (store_id, access_token, refresh_token, token_expires_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (store_id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			updated_at = NOW()
	`, c.StoreID, c.AccessToken, c.RefreshToken, c.TokenExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to save marketplace credential: %w", err)
	}
	return nil
}

// UpdateTokenIfUnchanged implements externalorder.CredentialRepository.
func (r *credentialRepository) UpdateTokenIfUnchanged(ctx context.Context, storeID string, expectedExpiry time.Time, tok marketplace.Token) (bool, error) {
	q := GetQuerier(ctx, r.db)

	n, err := database.CompareAndSwap(ctx, q, database.CASUpdate{
		Table:    "marketplace_credentials",
		Where:    []database.Assignment{{Column: "store_id", Value: storeID}},
		Expected: database.Assignment{Column: "token_expires_at", Value: expectedExpiry},
		Set: []database.Assignment{
			{Column: "access_token", Value: tok.AccessToken},
			{Column: "refresh_token", Value: tok.RefreshToken},
			{Column: "token_expires_at", Value: tok.ExpiresAt},
			{Column: "updated_at", Value: time.Now()},
		},
	})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type recordRepository struct {
	db *database.DB
}

func NewRecordRepository(db *database.DB) externalorder.RecordRepository {
	return &recordRepository{db: db}
}

// Upsert implements externalorder.RecordRepository. A record whose values
// changed is flagged unprocessed under a new revision so the scheduled run
// picks its date up again. When the business date itself changed, the date
// the record left is recorded as stale too.
func (r *recordRepository) Upsert(ctx context.Context, rec externalorder.Record) error {
	q := GetQuerier(ctx, r.db)

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := q.Exec(ctx, `
		WITH prev AS (
			SELECT business_date
			FROM external_order_records
			WHERE store_id = $2 AND external_order_id = $3 AND product_name = $4 AND variation_name = $5
		), up AS (
			INSERT INTO external_order_records (
				id, store_id, external_order_id, product_name, variation_name,
				cast_id, product_id, quantity, unit_price, ordered_at, business_date, is_processed, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, false, NOW())
			ON CONFLICT ON CONSTRAINT uk_external_order_record DO UPDATE SET
				cast_id = EXCLUDED.cast_id,
				product_id = EXCLUDED.product_id,
				quantity = EXCLUDED.quantity,
				unit_price = EXCLUDED.unit_price,
				ordered_at = EXCLUDED.ordered_at,
				business_date = EXCLUDED.business_date,
				is_processed = false,
				revision = nextval('external_order_revision_seq'),
				updated_at = NOW()
			WHERE (
				external_order_records.cast_id, external_order_records.product_id, external_order_records.quantity,
				external_order_records.unit_price, external_order_records.ordered_at, external_order_records.business_date
			) IS DISTINCT FROM (
				EXCLUDED.cast_id, EXCLUDED.product_id, EXCLUDED.quantity,
				EXCLUDED.unit_price, EXCLUDED.ordered_at, EXCLUDED.business_date
			)
			RETURNING business_date
		)
		INSERT INTO external_order_stale_dates (store_id, business_date)
		SELECT $2, prev.business_date
		FROM prev, up
		WHERE prev.business_date <> up.business_date
		ON CONFLICT (store_id, business_date) DO UPDATE
			SET revision = nextval('external_order_revision_seq')
	`, rec.ID, rec.StoreID, rec.ExternalOrderID, rec.ProductName, rec.VariationName,
		rec.CastID, rec.ProductID, rec.Quantity, rec.UnitPrice, rec.OrderedAt, rec.BusinessDate)
	if err != nil {
		return fmt.Errorf("failed to upsert external order record: %w", err)
	}
	return nil
}

// ListByBusinessDate implements externalorder.RecordRepository.
func (r *recordRepository) ListByBusinessDate(ctx context.Context, storeID, date string) ([]externalorder.Record, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT id, store_id, external_order_id, product_name, variation_name,
		       cast_id, product_id, quantity, unit_price, ordered_at, business_date::text, is_processed
		FROM external_order_records
		WHERE store_id = $1 AND business_date = $2
		ORDER BY external_order_id, product_name, variation_name
	`, storeID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list external order records: %w", err)
	}
	defer rows.Close()

	var out []externalorder.Record
	for rows.Next() {
		var rec externalorder.Record
		err := rows.Scan(
			&rec.ID, &rec.StoreID, &rec.ExternalOrderID, &rec.ProductName, &rec.VariationName,
			&rec.CastID, &rec.ProductID, &rec.Quantity, &rec.UnitPrice, &rec.OrderedAt, &rec.BusinessDate, &rec.IsProcessed,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan external order record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListUnprocessedDates implements externalorder.RecordRepository.
func (r *recordRepository) ListUnprocessedDates(ctx context.Context, storeID string) ([]externalorder.PendingDate, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT business_date::text, MAX(revision)
		FROM (
			SELECT business_date, revision
			FROM external_order_records
			WHERE store_id = $1 AND NOT is_processed
			UNION ALL
			SELECT business_date, revision
			FROM external_order_stale_dates
			WHERE store_id = $1
		) pending
		GROUP BY business_date
		ORDER BY 1
	`, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unprocessed dates: %w", err)
	}
	defer rows.Close()

	var out []externalorder.PendingDate
	for rows.Next() {
		var d externalorder.PendingDate
		if err := rows.Scan(&d.Date, &d.Revision); err != nil {
			return nil, fmt.Errorf("failed to scan unprocessed date: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// MarkProcessed implements externalorder.RecordRepository.
func (r *recordRepository) MarkProcessed(ctx context.Context, storeID, date string, throughRevision int64) (int64, error) {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `
		UPDATE external_order_records
		SET is_processed = true, updated_at = NOW()
		WHERE store_id = $1 AND business_date = $2 AND NOT is_processed AND revision <= $3
	`, storeID, date, throughRevision)
	if err != nil {
		return 0, fmt.Errorf("failed to mark external order records processed: %w", err)
	}

	stale, err := q.Exec(ctx, `
		DELETE FROM external_order_stale_dates
		WHERE store_id = $1 AND business_date = $2 AND revision <= $3
	`, storeID, date, throughRevision)
	if err != nil {
		return 0, fmt.Errorf("failed to clear stale external order date: %w", err)
	}
	return tag.RowsAffected() + stale.RowsAffected(), nil
}
