package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/cast-backoffice/internal/domain/dailystat"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type dailyStatRepository struct {
	db *database.DB
}

func NewDailyStatRepository(db *database.DB) dailystat.DailyStatRepository {
	return &dailyStatRepository{db: db}
}

const dailyStatColumns = `cast_id, store_id, date::text,
	item_self_sales, item_help_sales, item_total_sales,
	receipt_self_sales, receipt_help_sales, receipt_total_sales,
	self_product_back, help_product_back, nomination_count,
	work_hours, base_hourly_wage, special_day_bonus, costume_bonus,
	total_hourly_wage, wage_amount, wage_status_id,
	is_finalized, finalized_at, updated_at`

func scanDailyStats(rows pgx.Rows) ([]dailystat.Stat, error) {
	defer rows.Close()

	var out []dailystat.Stat
	for rows.Next() {
		var s dailystat.Stat
		err := rows.Scan(
			&s.CastID, &s.StoreID, &s.Date,
			&s.ItemSelfSales, &s.ItemHelpSales, &s.ItemTotalSales,
			&s.ReceiptSelfSales, &s.ReceiptHelpSales, &s.ReceiptTotalSales,
			&s.SelfProductBack, &s.HelpProductBack, &s.NominationCount,
			&s.WorkHours, &s.BaseHourlyWage, &s.SpecialDayBonus, &s.CostumeBonus,
			&s.TotalHourlyWage, &s.WageAmount, &s.WageStatusID,
			&s.IsFinalized, &s.FinalizedAt, &s.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily stat: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListByDate implements dailystat.DailyStatRepository.
func (r *dailyStatRepository) ListByDate(ctx context.Context, storeID, date string) ([]dailystat.Stat, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + dailyStatColumns + ` FROM cast_daily_stats WHERE store_id = $1 AND date = $2 ORDER BY cast_id`
	rows, err := q.Query(ctx, query, storeID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list daily stats: %w", err)
	}
	return scanDailyStats(rows)
}

// ListByCastRange implements dailystat.DailyStatRepository.
func (r *dailyStatRepository) ListByCastRange(ctx context.Context, storeID, castID, from, to string) ([]dailystat.Stat, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + dailyStatColumns + `
		FROM cast_daily_stats
		WHERE store_id = $1
		  AND cast_id = $2
		  AND date BETWEEN $3 AND $4
		ORDER BY date
	`
	rows, err := q.Query(ctx, query, storeID, castID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list cast daily stats: %w", err)
	}
	return scanDailyStats(rows)
}

// upsertDailyStatQuery never touches a finalized row and skips the write
// when every value column already matches.
const upsertDailyStatQuery = `
	INSERT INTO cast_daily_stats (
		cast_id, store_id, date,
		item_self_sales, item_help_sales, item_total_sales,
		receipt_self_sales, receipt_help_sales, receipt_total_sales,
		self_product_back, help_product_back, nomination_count,
		work_hours, base_hourly_wage, special_day_bonus, costume_bonus,
		total_hourly_wage, wage_amount, wage_status_id, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	ON CONFLICT ON CONSTRAINT uk_cast_daily_stats DO UPDATE SET
		item_self_sales = EXCLUDED.item_self_sales,
		item_help_sales = EXCLUDED.item_help_sales,
		item_total_sales = EXCLUDED.item_total_sales,
		receipt_self_sales = EXCLUDED.receipt_self_sales,
		receipt_help_sales = EXCLUDED.receipt_help_sales,
		receipt_total_sales = EXCLUDED.receipt_total_sales,
		self_product_back = EXCLUDED.self_product_back,
		help_product_back = EXCLUDED.help_product_back,
		nomination_count = EXCLUDED.nomination_count,
		work_hours = EXCLUDED.work_hours,
		base_hourly_wage = EXCLUDED.base_hourly_wage,
		special_day_bonus = EXCLUDED.special_day_bonus,
		costume_bonus = EXCLUDED.costume_bonus,
		total_hourly_wage = EXCLUDED.total_hourly_wage,
		wage_amount = EXCLUDED.wage_amount,
		wage_status_id = EXCLUDED.wage_status_id,
		updated_at = EXCLUDED.updated_at
	WHERE cast_daily_stats.is_finalized = false
	  AND (
		cast_daily_stats.item_self_sales, cast_daily_stats.item_help_sales, cast_daily_stats.item_total_sales,
		cast_daily_stats.receipt_self_sales, cast_daily_stats.receipt_help_sales, cast_daily_stats.receipt_total_sales,
		cast_daily_stats.self_product_back, cast_daily_stats.help_product_back, cast_daily_stats.nomination_count,
		cast_daily_stats.work_hours, cast_daily_stats.base_hourly_wage, cast_daily_stats.special_day_bonus,
		cast_daily_stats.costume_bonus, cast_daily_stats.total_hourly_wage, cast_daily_stats.wage_amount,
		cast_daily_stats.wage_status_id
	  ) IS DISTINCT FROM (
		EXCLUDED.item_self_sales, EXCLUDED.item_help_sales, EXCLUDED.item_total_sales,
		EXCLUDED.receipt_self_sales, EXCLUDED.receipt_help_sales, EXCLUDED.receipt_total_sales,
		EXCLUDED.self_product_back, EXCLUDED.help_product_back, EXCLUDED.nomination_count,
		EXCLUDED.work_hours, EXCLUDED.base_hourly_wage, EXCLUDED.special_day_bonus,
		EXCLUDED.costume_bonus, EXCLUDED.total_hourly_wage, EXCLUDED.wage_amount,
		EXCLUDED.wage_status_id
	  )
`

// Upsert implements dailystat.DailyStatRepository.
func (r *dailyStatRepository) Upsert(ctx context.Context, stats []dailystat.Stat) (int64, error) {
	q := GetQuerier(ctx, r.db)

	var written int64
	for _, s := range stats {
		tag, err := q.Exec(ctx, upsertDailyStatQuery,
			s.CastID, s.StoreID, s.Date,
			s.ItemSelfSales, s.ItemHelpSales, s.ItemTotalSales,
			s.ReceiptSelfSales, s.ReceiptHelpSales, s.ReceiptTotalSales,
			s.SelfProductBack, s.HelpProductBack, s.NominationCount,
			s.WorkHours, s.BaseHourlyWage, s.SpecialDayBonus, s.CostumeBonus,
			s.TotalHourlyWage, s.WageAmount, s.WageStatusID, s.UpdatedAt,
		)
		if err != nil {
			return written, fmt.Errorf("failed to upsert daily stat for cast %s: %w", s.CastID, err)
		}
		written += tag.RowsAffected()
	}
	return written, nil
}

// ListItems implements dailystat.DailyStatRepository.
func (r *dailyStatRepository) ListItems(ctx context.Context, storeID, date string) ([]dailystat.Item, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT cast_id, store_id, date::text, product_name, attribution, category, quantity, subtotal, back_amount
		FROM cast_daily_items
		WHERE store_id = $1 AND date = $2
		ORDER BY cast_id, product_name, attribution
	`, storeID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list daily items: %w", err)
	}
	defer rows.Close()

	var out []dailystat.Item
	for rows.Next() {
		var it dailystat.Item
		if err := rows.Scan(&it.CastID, &it.StoreID, &it.Date, &it.ProductName, &it.Attribution, &it.Category, &it.Quantity, &it.Subtotal, &it.BackAmount); err != nil {
			return nil, fmt.Errorf("failed to scan daily item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// ReplaceItems implements dailystat.DailyStatRepository. Callers run it in
// the same transaction as Upsert. Casts finalized by the time the statements
// run are left alone even when listed in castIDs.
func (r *dailyStatRepository) ReplaceItems(ctx context.Context, storeID, date string, castIDs []string, items []dailystat.Item) error {
	if len(castIDs) == 0 {
		return nil
	}
	q := GetQuerier(ctx, r.db)

	_, err := q.Exec(ctx, `
		DELETE FROM cast_daily_items
		WHERE store_id = $1 AND date = $2 AND cast_id = ANY($3)
		  AND cast_id NOT IN (
			SELECT cast_id FROM cast_daily_stats
			WHERE store_id = $1 AND date = $2 AND is_finalized
		  )
	`, storeID, date, castIDs)
	if err != nil {
		return fmt.Errorf("failed to delete daily items: %w", err)
	}
	if len(items) == 0 {
		return nil
	}

	var (
		casts       = make([]string, len(items))
		names       = make([]string, len(items))
		attribution = make([]string, len(items))
		categories  = make([]string, len(items))
		quantities  = make([]int32, len(items))
		subtotals   = make([]int64, len(items))
		backs       = make([]int64, len(items))
	)
	for i, it := range items {
		casts[i] = it.CastID
		names[i] = it.ProductName
		attribution[i] = string(it.Attribution)
		categories[i] = it.Category
		quantities[i] = int32(it.Quantity)
		subtotals[i] = it.Subtotal
		backs[i] = it.BackAmount
	}

	_, err = q.Exec(ctx, `
		INSERT INTO cast_daily_items (cast_id, store_id, date, product_name, attribution, category, quantity, subtotal, back_amount)
		SELECT c, $1, $2::date, n, a, cat, qty, sub, back
		FROM unnest($3::text[], $4::text[], $5::text[], $6::text[], $7::int[], $8::bigint[], $9::bigint[])
			AS t(c, n, a, cat, qty, sub, back)
		WHERE c NOT IN (
			SELECT cast_id FROM cast_daily_stats
			WHERE store_id = $1 AND date = $2::date AND is_finalized
		)
	`, storeID, date, casts, names, attribution, categories, quantities, subtotals, backs)
	if err != nil {
		return fmt.Errorf("failed to insert daily items: %w", err)
	}
	return nil
}

// SetFinalized implements dailystat.DailyStatRepository. An empty castIDs
// targets every row of the day.
func (r *dailyStatRepository) SetFinalized(ctx context.Context, storeID, date string, castIDs []string, finalized bool, at time.Time) (int64, error) {
	q := GetQuerier(ctx, r.db)
	if castIDs == nil {
		castIDs = []string{}
	}

	tag, err := q.Exec(ctx, `
		UPDATE cast_daily_stats
		SET is_finalized = $4,
		    finalized_at = CASE WHEN $4 THEN $5::timestamptz ELSE NULL END,
		    updated_at = $5
		WHERE store_id = $1
		  AND date = $2
		  AND (cardinality($3::text[]) = 0 OR cast_id = ANY($3))
		  AND is_finalized <> $4
	`, storeID, date, castIDs, finalized, at)
	if err != nil {
		return 0, fmt.Errorf("failed to set finalized flag: %w", err)
	}
	return tag.RowsAffected(), nil
}
