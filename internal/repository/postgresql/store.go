package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/cast-backoffice/internal/domain/cast"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/store"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

const storeColumns = `id, name, is_active, cutoff_hour, tax_rate, service_fee_rate,
	attribution_policy, exclude_tax, include_service_fee, created_at, updated_at`

type storeRepository struct {
	db *database.DB
}

func NewStoreRepository(db *database.DB) store.StoreRepository {
	return &storeRepository{db: db}
}

func scanStore(row pgx.Row) (store.Store, error) {
	var s store.Store
	err := row.Scan(
		&s.ID, &s.Name, &s.IsActive, &s.CutoffHour, &s.TaxRate, &s.ServiceFeeRate,
		&s.AttributionPolicy, &s.ExcludeTax, &s.IncludeServiceFee, &s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}

// GetByID implements store.StoreRepository.
func (r *storeRepository) GetByID(ctx context.Context, id string) (store.Store, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + storeColumns + ` FROM stores WHERE id = $1`
	s, err := scanStore(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Store{}, store.ErrStoreNotFound
		}
		return store.Store{}, fmt.Errorf("failed to get store: %w", err)
	}
	return s, nil
}

// ListActive implements store.StoreRepository.
func (r *storeRepository) ListActive(ctx context.Context) ([]store.Store, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + storeColumns + ` FROM stores WHERE is_active ORDER BY id`
	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}
	defer rows.Close()

	var out []store.Store
	for rows.Next() {
		s, err := scanStore(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan store: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListCostumes implements store.StoreRepository.
func (r *storeRepository) ListCostumes(ctx context.Context, storeID string) ([]store.Costume, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT id, store_id, name, wage_bonus FROM costumes WHERE store_id = $1 ORDER BY id`, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list costumes: %w", err)
	}
	defer rows.Close()

	var out []store.Costume
	for rows.Next() {
		var c store.Costume
		if err := rows.Scan(&c.ID, &c.StoreID, &c.Name, &c.WageBonus); err != nil {
			return nil, fmt.Errorf("failed to scan costume: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetSpecialDayBonus implements store.StoreRepository.
func (r *storeRepository) GetSpecialDayBonus(ctx context.Context, storeID string, date string) (int64, error) {
	q := GetQuerier(ctx, r.db)

	var bonus int64
	err := q.QueryRow(ctx, `SELECT bonus FROM special_day_bonuses WHERE store_id = $1 AND date = $2`, storeID, date).Scan(&bonus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get special day bonus: %w", err)
	}
	return bonus, nil
}

type castRepository struct {
	db *database.DB
}

func NewCastRepository(db *database.DB) cast.CastRepository {
	return &castRepository{db: db}
}

// GetByID implements cast.CastRepository.
func (r *castRepository) GetByID(ctx context.Context, id string, storeID string) (cast.Cast, error) {
	q := GetQuerier(ctx, r.db)

	var c cast.Cast
	err := q.QueryRow(ctx, `
		SELECT id, store_id, name, is_active, show_in_roster
		FROM casts
		WHERE id = $1 AND store_id = $2
	`, id, storeID).Scan(&c.ID, &c.StoreID, &c.Name, &c.IsActive, &c.ShowInRoster)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cast.Cast{}, cast.ErrCastNotFound
		}
		return cast.Cast{}, fmt.Errorf("failed to get cast: %w", err)
	}
	return c, nil
}

// ListByStore implements cast.CastRepository.
func (r *castRepository) ListByStore(ctx context.Context, storeID string, activeOnly bool) ([]cast.Cast, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT id, store_id, name, is_active, show_in_roster
		FROM casts
		WHERE store_id = $1 AND (NOT $2 OR is_active)
		ORDER BY id
	`, storeID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list casts: %w", err)
	}
	defer rows.Close()

	var out []cast.Cast
	for rows.Next() {
		var c cast.Cast
		if err := rows.Scan(&c.ID, &c.StoreID, &c.Name, &c.IsActive, &c.ShowInRoster); err != nil {
			return nil, fmt.Errorf("failed to scan cast: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
