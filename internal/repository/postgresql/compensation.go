package postgresql

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cmlabs-hris/cast-backoffice/internal/domain/compensation"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/deduction"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type settingRepository struct {
	db *database.DB
}

func NewSettingRepository(db *database.DB) compensation.SettingRepository {
	return &settingRepository{db: db}
}

const settingColumns = `id, cast_id, store_id, target_year, target_month, status_id,
	hourly_wage_override, compensation_types, enabled_deduction_ids,
	payment_selection, selected_compensation_type_id, is_active`

func scanSettings(rows pgx.Rows) ([]compensation.Setting, error) {
	defer rows.Close()

	var out []compensation.Setting
	for rows.Next() {
		var s compensation.Setting
		var types []byte
		err := rows.Scan(
			&s.ID, &s.CastID, &s.StoreID, &s.TargetYear, &s.TargetMonth, &s.StatusID,
			&s.HourlyWageOverride, &types, &s.EnabledDeductionIDs,
			&s.PaymentSelection, &s.SelectedCompensationTypeID, &s.IsActive,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan compensation setting: %w", err)
		}
		if len(types) > 0 {
			if err := json.Unmarshal(types, &s.CompensationTypes); err != nil {
				return nil, fmt.Errorf("failed to decode compensation types of setting %s: %w", s.ID, err)
			}
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListByCast implements compensation.SettingRepository.
func (r *settingRepository) ListByCast(ctx context.Context, castID, storeID string) ([]compensation.Setting, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + settingColumns + `
		FROM compensation_settings
		WHERE cast_id = $1
		  AND store_id = $2
		  AND is_active
		ORDER BY (target_year IS NOT NULL AND target_month IS NOT NULL) DESC, updated_at DESC, id
	`
	rows, err := q.Query(ctx, query, castID, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list compensation settings: %w", err)
	}
	return scanSettings(rows)
}

// ListActiveByStore implements compensation.SettingRepository.
func (r *settingRepository) ListActiveByStore(ctx context.Context, storeID string) ([]compensation.Setting, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + settingColumns + `
		FROM compensation_settings
		WHERE store_id = $1
		  AND is_active
		ORDER BY cast_id, (target_year IS NOT NULL AND target_month IS NOT NULL) DESC, updated_at DESC, id
	`
	rows, err := q.Query(ctx, query, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list store compensation settings: %w", err)
	}
	return scanSettings(rows)
}

// UpdateActiveStatus implements compensation.SettingRepository.
func (r *settingRepository) UpdateActiveStatus(ctx context.Context, castID, storeID, statusID string) error {
	q := GetQuerier(ctx, r.db)

	_, err := q.Exec(ctx, `
		UPDATE compensation_settings
		SET status_id = $3, updated_at = NOW()
		WHERE cast_id = $1 AND store_id = $2 AND is_active
	`, castID, storeID, statusID)
	if err != nil {
		return fmt.Errorf("failed to update compensation setting status: %w", err)
	}
	return nil
}

type deductionRepository struct {
	db *database.DB
}

func NewDeductionRepository(db *database.DB) deduction.DeductionRepository {
	return &deductionRepository{db: db}
}

// ListActive implements deduction.DeductionRepository.
func (r *deductionRepository) ListActive(ctx context.Context, storeID string) ([]deduction.DeductionType, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT id, store_id, name, kind, amount, percentage,
		       attendance_status_id, late_penalty_rule_id, is_active, display_order
		FROM deduction_types
		WHERE store_id = $1
		  AND is_active
		ORDER BY display_order, id
	`, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list deduction types: %w", err)
	}
	defer rows.Close()

	var out []deduction.DeductionType
	for rows.Next() {
		var d deduction.DeductionType
		err := rows.Scan(
			&d.ID, &d.StoreID, &d.Name, &d.Kind, &d.Amount, &d.Percentage,
			&d.AttendanceStatusID, &d.LatePenaltyRuleID, &d.IsActive, &d.DisplayOrder,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deduction type: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListLatePenaltyRules implements deduction.DeductionRepository.
func (r *deductionRepository) ListLatePenaltyRules(ctx context.Context, storeID string) ([]deduction.LatePenaltyRule, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT id, store_id, kind, fixed_amount, interval_minutes, amount_per_interval, max_amount
		FROM late_penalty_rules
		WHERE store_id = $1
		ORDER BY id
	`, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list late penalty rules: %w", err)
	}
	defer rows.Close()

	var out []deduction.LatePenaltyRule
	for rows.Next() {
		var lr deduction.LatePenaltyRule
		if err := rows.Scan(&lr.ID, &lr.StoreID, &lr.Kind, &lr.FixedAmount, &lr.IntervalMinutes, &lr.AmountPerInterval, &lr.MaxAmount); err != nil {
			return nil, fmt.Errorf("failed to scan late penalty rule: %w", err)
		}
		out = append(out, lr)
	}
	return out, rows.Err()
}
