package payslip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/cast-backoffice/internal/domain/attendance"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/cast"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/compensation"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/dailystat"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/deduction"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/payslip"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/store"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/businessday"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/money"
	"github.com/cmlabs-hris/cast-backoffice/internal/service/sales"
)

type Repositories struct {
	Stores      store.StoreRepository
	Casts       cast.CastRepository
	Settings    compensation.SettingRepository
	DailyStats  dailystat.DailyStatRepository
	Attendances attendance.AttendanceRepository
	Deductions  deduction.DeductionRepository
	Payslips    payslip.PayslipRepository
}

type PayslipServiceImpl struct {
	repos  Repositories
	logger *slog.Logger
	now    func() time.Time
}

func NewPayslipService(repos Repositories, logger *slog.Logger) *PayslipServiceImpl {
	return &PayslipServiceImpl{
		repos:  repos,
		logger: logger,
		now:    time.Now,
	}
}

var _ payslip.PayslipService = (*PayslipServiceImpl)(nil)

func (s *PayslipServiceImpl) SetClock(now func() time.Time) {
	s.now = now
}

// Calculate settles one cast's month from its daily stats and attendance.
func (s *PayslipServiceImpl) Calculate(ctx context.Context, storeID, castID string, year, month int) (payslip.Payslip, error) {
	if month < 1 || month > 12 || year < 1 {
		return payslip.Payslip{}, payslip.ErrInvalidPeriod
	}

	st, err := s.repos.Stores.GetByID(ctx, storeID)
	if err != nil {
		return payslip.Payslip{}, err
	}
	if _, err := s.repos.Casts.GetByID(ctx, castID, storeID); err != nil {
		return payslip.Payslip{}, err
	}

	settings, err := s.repos.Settings.ListByCast(ctx, castID, storeID)
	if err != nil {
		return payslip.Payslip{}, fmt.Errorf("failed to load compensation settings: %w", err)
	}
	setting, ok := compensation.PickSetting(settings, year, month)
	if !ok {
		return payslip.Payslip{}, compensation.ErrSettingNotFound
	}
	enabled := setting.EnabledTypes()
	if len(enabled) == 0 {
		return payslip.Payslip{}, compensation.ErrNoEnabledFormula
	}

	from, to := businessday.PeriodRange(year, month)
	stats, err := s.repos.DailyStats.ListByCastRange(ctx, storeID, castID, from, to)
	if err != nil {
		return payslip.Payslip{}, fmt.Errorf("failed to load daily stats: %w", err)
	}
	attendances, err := s.repos.Attendances.ListByCastRange(ctx, storeID, castID, from, to)
	if err != nil {
		return payslip.Payslip{}, fmt.Errorf("failed to load attendances: %w", err)
	}
	statuses, err := s.repos.Attendances.ListStatuses(ctx, storeID)
	if err != nil {
		return payslip.Payslip{}, fmt.Errorf("failed to load attendance statuses: %w", err)
	}

	summary := summarize(stats, attendances, attendance.ActiveStatusSet(statuses))

	formulas := make([]payslip.FormulaResult, 0, len(enabled))
	for _, t := range enabled {
		formulas = append(formulas, evaluateFormula(t, summary, st.AttributionPolicy))
	}
	selected := selectFormula(formulas, setting)

	types, err := s.repos.Deductions.ListActive(ctx, storeID)
	if err != nil {
		return payslip.Payslip{}, fmt.Errorf("failed to load deduction types: %w", err)
	}
	rules, err := s.repos.Deductions.ListLatePenaltyRules(ctx, storeID)
	if err != nil {
		return payslip.Payslip{}, fmt.Errorf("failed to load late penalty rules: %w", err)
	}

	p := payslip.Payslip{
		CastID:                     castID,
		StoreID:                    storeID,
		Year:                       year,
		Month:                      month,
		Summary:                    summary,
		Formulas:                   formulas,
		SelectedCompensationTypeID: selected.CompensationTypeID,
		GrossTotal:                 selected.GrossTotal,
		GeneratedAt:                s.now(),
	}
	applyDeductions(&p, types, rules, attendances, setting)
	return p, nil
}

func (s *PayslipServiceImpl) CalculateStore(ctx context.Context, req payslip.PeriodRequest) (payslip.GenerateResponse, error) {
	if err := req.Validate(); err != nil {
		return payslip.GenerateResponse{}, err
	}
	if _, err := s.repos.Stores.GetByID(ctx, req.StoreID); err != nil {
		return payslip.GenerateResponse{}, err
	}
	casts, err := s.repos.Casts.ListByStore(ctx, req.StoreID, true)
	if err != nil {
		return payslip.GenerateResponse{}, fmt.Errorf("failed to list casts: %w", err)
	}

	resp := payslip.GenerateResponse{StoreID: req.StoreID, Year: req.Year, Month: req.Month, Payslips: []payslip.Payslip{}}
	for _, c := range casts {
		p, err := s.Calculate(ctx, req.StoreID, c.ID, req.Year, req.Month)
		if err != nil {
			if errors.Is(err, compensation.ErrSettingNotFound) {
				continue
			}
			s.logger.Warn("Payslip calculation failed", "store_id", req.StoreID, "cast_id", c.ID, "error", err)
			resp.Errors = append(resp.Errors, payslip.CastError{CastID: c.ID, Error: err.Error()})
			continue
		}
		resp.Payslips = append(resp.Payslips, p)
	}
	resp.Generated = len(resp.Payslips)
	return resp, nil
}

func (s *PayslipServiceImpl) Generate(ctx context.Context, req payslip.PeriodRequest) (payslip.GenerateResponse, error) {
	resp, err := s.CalculateStore(ctx, req)
	if err != nil {
		return resp, err
	}

	saved := resp.Payslips[:0]
	for _, p := range resp.Payslips {
		if err := s.repos.Payslips.Upsert(ctx, p); err != nil {
			s.logger.Error("Failed to save payslip", "store_id", req.StoreID, "cast_id", p.CastID, "error", err)
			resp.Errors = append(resp.Errors, payslip.CastError{CastID: p.CastID, Error: err.Error()})
			continue
		}
		saved = append(saved, p)
	}
	resp.Payslips = saved
	resp.Generated = len(saved)

	s.logger.Info("Payslips generated",
		"store_id", req.StoreID,
		"year", req.Year,
		"month", req.Month,
		"generated", resp.Generated,
		"errors", len(resp.Errors),
	)
	return resp, nil
}

func (s *PayslipServiceImpl) List(ctx context.Context, req payslip.PeriodRequest) ([]payslip.Payslip, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	list, err := s.repos.Payslips.ListByPeriod(ctx, req.StoreID, req.Year, req.Month)
	if err != nil {
		return nil, fmt.Errorf("failed to list payslips: %w", err)
	}
	return list, nil
}

func summarize(stats []dailystat.Stat, attendances []attendance.Attendance, active map[string]bool) payslip.Summary {
	var sum payslip.Summary
	for _, st := range stats {
		sum.ItemSelfSales += st.ItemSelfSales
		sum.ItemTotalSales += st.ItemTotalSales
		sum.ReceiptSelfSales += st.ReceiptSelfSales
		sum.ReceiptTotalSales += st.ReceiptTotalSales
		sum.SelfProductBack += st.SelfProductBack
		sum.HelpProductBack += st.HelpProductBack
		sum.NominationCount += st.NominationCount
		sum.WageAmount += st.WageAmount
	}
	for _, a := range attendances {
		if a.StatusID != nil && active[*a.StatusID] {
			sum.WorkDays++
		}
	}
	return sum
}

func salesSplit(sum payslip.Summary, policy store.AttributionPolicy) sales.Split {
	if policy == store.AttributionReceiptBased {
		return sales.Split{Self: sum.ReceiptSelfSales, Help: sum.ReceiptTotalSales - sum.ReceiptSelfSales, Total: sum.ReceiptTotalSales}
	}
	return sales.Split{Self: sum.ItemSelfSales, Help: sum.ItemTotalSales - sum.ItemSelfSales, Total: sum.ItemTotalSales}
}

func evaluateFormula(t compensation.CompensationType, sum payslip.Summary, storePolicy store.AttributionPolicy) payslip.FormulaResult {
	res := payslip.FormulaResult{CompensationTypeID: t.ID, Name: t.Name}

	policy := storePolicy
	if t.SalesBack != nil && t.SalesBack.Attribution.IsValid() {
		policy = t.SalesBack.Attribution
	}
	split := salesSplit(sum, policy)

	if t.SalesBack != nil {
		res.SalesBack = sales.Summarize(split, *t.SalesBack).TotalBack
	}
	if t.UseHourly {
		res.HourlyIncome = sum.WageAmount
	}
	for _, r := range t.Rewards {
		res.FixedAmount += rewardAmount(r, sum, split)
	}
	if t.UseSelfProductBack {
		res.ProductBack += sum.SelfProductBack
	}
	if t.UseHelpProductBack {
		res.ProductBack += sum.HelpProductBack
	}
	res.GrossTotal = res.SalesBack + res.HourlyIncome + res.FixedAmount + res.ProductBack
	return res
}

func rewardAmount(r compensation.Reward, sum payslip.Summary, split sales.Split) int64 {
	switch r := r.(type) {
	case compensation.FixedReward:
		return r.Amount
	case compensation.AttendanceTieredReward:
		return compensation.MatchAmount(r.Tiers, int64(sum.WorkDays))
	case compensation.SalesTieredReward:
		v := split.Total
		if r.SalesTarget == compensation.SalesTargetSelfOnly {
			v = split.Self
		}
		return compensation.MatchAmount(r.Tiers, v)
	case compensation.NominationTieredReward:
		return compensation.MatchAmount(r.Tiers, int64(sum.NominationCount))
	}
	return 0
}

// selectFormula honors a specific selection when it names an evaluated
// formula and otherwise takes the first formula with the highest gross.
func selectFormula(formulas []payslip.FormulaResult, setting compensation.Setting) payslip.FormulaResult {
	if setting.PaymentSelection == compensation.SelectionSpecific {
		if setting.SelectedCompensationTypeID != nil {
			for _, f := range formulas {
				if f.CompensationTypeID == *setting.SelectedCompensationTypeID {
					return f
				}
			}
		}
		return formulas[0]
	}

	best := formulas[0]
	for _, f := range formulas[1:] {
		if f.GrossTotal > best.GrossTotal {
			best = f
		}
	}
	return best
}

func applyDeductions(p *payslip.Payslip, types []deduction.DeductionType, rules []deduction.LatePenaltyRule, attendances []attendance.Attendance, setting compensation.Setting) {
	rulesByID := make(map[string]deduction.LatePenaltyRule, len(rules))
	for _, r := range rules {
		rulesByID[r.ID] = r
	}

	p.Deductions = []payslip.DeductionLine{}
	for _, dt := range types {
		if !setting.DeductionEnabled(dt.ID) {
			continue
		}

		var amount int64
		switch dt.Kind {
		case deduction.KindDailyPayment:
			for _, a := range attendances {
				amount += a.DailyPayment
			}
			p.DailyPaymentTotal += amount
		case deduction.KindLatePenalty:
			rule, hasRule := deduction.LatePenaltyRule{}, false
			if dt.LatePenaltyRuleID != nil {
				rule, hasRule = rulesByID[*dt.LatePenaltyRuleID]
			}
			for _, a := range attendances {
				if a.LateMinutes <= 0 {
					continue
				}
				if hasRule {
					amount += rule.Penalty(a.LateMinutes)
				} else {
					amount += dt.Amount
				}
			}
		case deduction.KindStatusPenalty:
			if dt.AttendanceStatusID == nil {
				break
			}
			for _, a := range attendances {
				if a.StatusID != nil && *a.StatusID == *dt.AttendanceStatusID {
					amount += dt.Amount
				}
			}
		case deduction.KindFixed:
			amount = dt.Amount
		case deduction.KindPerAttendance:
			amount = dt.Amount * int64(p.Summary.WorkDays)
		case deduction.KindPercentage:
			amount = money.ApplyRate(p.GrossTotal, dt.Percentage)
			p.Withholding += amount
		default:
			continue
		}

		p.Deductions = append(p.Deductions, payslip.DeductionLine{
			DeductionTypeID: dt.ID,
			Name:            dt.Name,
			Kind:            dt.Kind,
			Amount:          amount,
		})
		p.TotalDeductions += amount
	}
	p.NetPay = p.GrossTotal - p.TotalDeductions
}
