package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/cast-backoffice/internal/domain/payslip"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type payslipRepository struct {
	db *database.DB
}

func NewPayslipRepository(db *database.DB) payslip.PayslipRepository {
	return &payslipRepository{db: db}
}

// payslipDetails is the JSONB snapshot next to the indexed totals.
type payslipDetails struct {
	Summary           payslip.Summary         `json:"summary"`
	Formulas          []payslip.FormulaResult `json:"formulas"`
	Deductions        []payslip.DeductionLine `json:"deductions"`
	DailyPaymentTotal int64                   `json:"daily_payment_total"`
	Withholding       int64                   `json:"withholding"`
}

const payslipColumns = `cast_id, store_id, year, month, selected_compensation_type_id,
	gross_total, total_deductions, net_pay, details, generated_at`

func scanPayslip(row pgx.Row) (payslip.Payslip, error) {
	var p payslip.Payslip
	var raw []byte
	err := row.Scan(
		&p.CastID, &p.StoreID, &p.Year, &p.Month, &p.SelectedCompensationTypeID,
		&p.GrossTotal, &p.TotalDeductions, &p.NetPay, &raw, &p.GeneratedAt,
	)
	if err != nil {
		return payslip.Payslip{}, err
	}

	var d payslipDetails
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &d); err != nil {
			return payslip.Payslip{}, fmt.Errorf("failed to decode payslip details: %w", err)
		}
	}
	p.Summary = d.Summary
	p.Formulas = d.Formulas
	p.Deductions = d.Deductions
	p.DailyPaymentTotal = d.DailyPaymentTotal
	p.Withholding = d.Withholding
	return p, nil
}

// Upsert implements payslip.PayslipRepository.
func (r *payslipRepository) Upsert(ctx context.Context, p payslip.Payslip) error {
	q := GetQuerier(ctx, r.db)

	details, err := json.Marshal(payslipDetails{
		Summary:           p.Summary,
		Formulas:          p.Formulas,
		Deductions:        p.Deductions,
		DailyPaymentTotal: p.DailyPaymentTotal,
		Withholding:       p.Withholding,
	})
	if err != nil {
		return fmt.Errorf("failed to encode payslip details: %w", err)
	}

	_, err = q.Exec(ctx, `
		INSERT INTO payslips (`+payslipColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (cast_id, store_id, year, month) DO UPDATE SET
			selected_compensation_type_id = EXCLUDED.selected_compensation_type_id,
			gross_total = EXCLUDED.gross_total,
			total_deductions = EXCLUDED.total_deductions,
			net_pay = EXCLUDED.net_pay,
			details = EXCLUDED.details,
			generated_at = EXCLUDED.generated_at
	`, p.CastID, p.StoreID, p.Year, p.Month, p.SelectedCompensationTypeID,
		p.GrossTotal, p.TotalDeductions, p.NetPay, details, p.GeneratedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert payslip: %w", err)
	}
	return nil
}

// Get implements payslip.PayslipRepository.
func (r *payslipRepository) Get(ctx context.Context, castID, storeID string, year, month int) (payslip.Payslip, error) {
	q := GetQuerier(ctx, r.db)

	row := q.QueryRow(ctx, `
		SELECT `+payslipColumns+`
		FROM payslips
		WHERE cast_id = $1 AND store_id = $2 AND year = $3 AND month = $4
	`, castID, storeID, year, month)
	p, err := scanPayslip(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payslip.Payslip{}, payslip.ErrPayslipNotFound
		}
		return payslip.Payslip{}, fmt.Errorf("failed to get payslip: %w", err)
	}
	return p, nil
}

// ListByPeriod implements payslip.PayslipRepository.
func (r *payslipRepository) ListByPeriod(ctx context.Context, storeID string, year, month int) ([]payslip.Payslip, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT `+payslipColumns+`
		FROM payslips
		WHERE store_id = $1 AND year = $2 AND month = $3
		ORDER BY cast_id
	`, storeID, year, month)
	if err != nil {
		return nil, fmt.Errorf("failed to list payslips: %w", err)
	}
	defer rows.Close()

	var out []payslip.Payslip
	for rows.Next() {
		p, err := scanPayslip(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payslip: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
