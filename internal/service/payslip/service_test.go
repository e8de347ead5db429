package payslip

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/cast-backoffice/internal/domain/attendance"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/cast"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/compensation"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/dailystat"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/deduction"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/payslip"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/store"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/logger"
	"github.com/cmlabs-hris/cast-backoffice/internal/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const storeID = "s1"

func strPtr(s string) *string { return &s }

func hourlyFormula() compensation.CompensationType {
	return compensation.CompensationType{
		ID: "hourly", Name: "Hourly + back", Enabled: true,
		SalesBack: &compensation.SalesBackRule{
			Attribution: store.AttributionItemBased,
			Target:      compensation.SalesTargetTotal,
			Mode:        compensation.CommissionFlat,
			Rate:        decimal.NewFromInt(10),
		},
		UseHourly:          true,
		UseSelfProductBack: true,
	}
}

func slidingFormula() compensation.CompensationType {
	return compensation.CompensationType{
		ID: "sliding", Name: "Sliding", Enabled: true,
		SalesBack: &compensation.SalesBackRule{
			Attribution: store.AttributionReceiptBased,
			Target:      compensation.SalesTargetSelfOnly,
			Mode:        compensation.CommissionSliding,
			Tiers: []compensation.RateTier{
				{Min: 0, Max: 300000, Rate: decimal.NewFromInt(10)},
				{Min: 300001, Max: 0, Rate: decimal.NewFromInt(15)},
			},
		},
		UseHelpProductBack: true,
		Rewards: []compensation.Reward{
			compensation.FixedReward{Amount: 10000},
			compensation.AttendanceTieredReward{Tiers: []compensation.AmountTier{{Min: 0, Max: 1, Amount: 0}, {Min: 2, Max: 0, Amount: 5000}}},
			compensation.NominationTieredReward{Tiers: []compensation.AmountTier{{Min: 1, Max: 0, Amount: 2000}}},
			compensation.SalesTieredReward{Tiers: []compensation.AmountTier{{Min: 500000, Max: 0, Amount: 7000}}, SalesTarget: compensation.SalesTargetSelfOnly},
		},
	}
}

type fixture struct {
	svc      *PayslipServiceImpl
	settings *memory.SettingRepository
	payslips *memory.PayslipRepository
}

func newFixture(t *testing.T, setting compensation.Setting) *fixture {
	t.Helper()

	stats := memory.NewDailyStatRepository()
	stats.Put(dailystat.Stat{
		CastID: "a", StoreID: storeID, Date: "2024-03-01",
		ItemSelfSales: 300000, ItemTotalSales: 350000, ReceiptSelfSales: 200000, ReceiptTotalSales: 400000,
		SelfProductBack: 3000, HelpProductBack: 1000, NominationCount: 2, WageAmount: 9000,
	})
	stats.Put(dailystat.Stat{
		CastID: "a", StoreID: storeID, Date: "2024-03-02",
		ItemSelfSales: 200000, ItemTotalSales: 200000, ReceiptSelfSales: 100000, ReceiptTotalSales: 100000,
		WageAmount: 9000,
	})
	// outside the period
	stats.Put(dailystat.Stat{CastID: "a", StoreID: storeID, Date: "2024-04-01", ItemSelfSales: 999999, WageAmount: 999})

	attend := memory.NewAttendanceRepository(
		attendance.Attendance{ID: "1", StoreID: storeID, CastID: "a", Date: "2024-03-01", StatusID: strPtr("present"), LateMinutes: 20, DailyPayment: 5000},
		attendance.Attendance{ID: "2", StoreID: storeID, CastID: "a", Date: "2024-03-02", StatusID: strPtr("present")},
		attendance.Attendance{ID: "3", StoreID: storeID, CastID: "a", Date: "2024-03-03", StatusID: strPtr("absent")},
	)
	attend.AddStatus(attendance.Status{ID: "present", StoreID: storeID, IsActive: true})
	attend.AddStatus(attendance.Status{ID: "absent", StoreID: storeID, IsActive: false})

	capAmount := int64(5000)
	deductions := memory.NewDeductionRepository(
		deduction.DeductionType{ID: "d1", StoreID: storeID, Name: "Daily payments", Kind: deduction.KindDailyPayment, IsActive: true, DisplayOrder: 1},
		deduction.DeductionType{ID: "d2", StoreID: storeID, Name: "Late", Kind: deduction.KindLatePenalty, LatePenaltyRuleID: strPtr("r1"), IsActive: true, DisplayOrder: 2},
		deduction.DeductionType{ID: "d3", StoreID: storeID, Name: "Absence", Kind: deduction.KindStatusPenalty, Amount: 3000, AttendanceStatusID: strPtr("absent"), IsActive: true, DisplayOrder: 3},
		deduction.DeductionType{ID: "d4", StoreID: storeID, Name: "Locker", Kind: deduction.KindFixed, Amount: 1000, IsActive: true, DisplayOrder: 4},
		deduction.DeductionType{ID: "d5", StoreID: storeID, Name: "Cleaning", Kind: deduction.KindPerAttendance, Amount: 500, IsActive: true, DisplayOrder: 5},
		deduction.DeductionType{ID: "d6", StoreID: storeID, Name: "Withholding", Kind: deduction.KindPercentage, Percentage: decimal.RequireFromString("10.21"), IsActive: true, DisplayOrder: 6},
		deduction.DeductionType{ID: "d7", StoreID: storeID, Name: "Retired", Kind: deduction.KindFixed, Amount: 99999, IsActive: false},
	)
	deductions.AddRule(deduction.LatePenaltyRule{
		ID: "r1", StoreID: storeID, Kind: deduction.LatePenaltyCumulative,
		IntervalMinutes: 15, AmountPerInterval: 1000, MaxAmount: &capAmount,
	})

	f := &fixture{
		settings: memory.NewSettingRepository(setting),
		payslips: memory.NewPayslipRepository(),
	}
	f.svc = NewPayslipService(Repositories{
		Stores: memory.NewStoreRepository(store.Store{ID: storeID, IsActive: true, AttributionPolicy: store.AttributionItemBased}),
		Casts: memory.NewCastRepository(
			cast.Cast{ID: "a", StoreID: storeID, Name: "Aoi", IsActive: true},
			cast.Cast{ID: "b", StoreID: storeID, Name: "Mika", IsActive: true},
		),
		Settings:    f.settings,
		DailyStats:  stats,
		Attendances: attend,
		Deductions:  deductions,
		Payslips:    f.payslips,
	}, logger.Discard())
	f.svc.SetClock(func() time.Time { return time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC) })
	return f
}

func baseSetting() compensation.Setting {
	return compensation.Setting{
		ID: "set1", CastID: "a", StoreID: storeID, IsActive: true,
		CompensationTypes: []compensation.CompensationType{hourlyFormula(), slidingFormula()},
		PaymentSelection:  compensation.SelectionAutoMax,
	}
}

func TestCalculate_AutoMaxWithAllDeductions(t *testing.T) {
	f := newFixture(t, baseSetting())

	p, err := f.svc.Calculate(context.Background(), storeID, "a", 2024, 3)
	require.NoError(t, err)

	assert.Equal(t, payslip.Summary{
		ItemSelfSales: 500000, ItemTotalSales: 550000, ReceiptSelfSales: 300000, ReceiptTotalSales: 500000,
		SelfProductBack: 3000, HelpProductBack: 1000, NominationCount: 2, WageAmount: 18000, WorkDays: 2,
	}, p.Summary)

	require.Len(t, p.Formulas, 2)
	assert.Equal(t, payslip.FormulaResult{
		CompensationTypeID: "hourly", Name: "Hourly + back",
		SalesBack: 55000, HourlyIncome: 18000, ProductBack: 3000, GrossTotal: 76000,
	}, p.Formulas[0])
	assert.Equal(t, payslip.FormulaResult{
		CompensationTypeID: "sliding", Name: "Sliding",
		SalesBack: 30000, FixedAmount: 17000, ProductBack: 1000, GrossTotal: 48000,
	}, p.Formulas[1])

	assert.Equal(t, "hourly", p.SelectedCompensationTypeID)
	assert.Equal(t, int64(76000), p.GrossTotal)

	amounts := make(map[string]int64)
	for _, d := range p.Deductions {
		amounts[d.DeductionTypeID] = d.Amount
	}
	assert.Equal(t, map[string]int64{
		"d1": 5000,
		"d2": 2000,
		"d3": 3000,
		"d4": 1000,
		"d5": 1000,
		"d6": 7760,
	}, amounts)
	assert.Equal(t, int64(5000), p.DailyPaymentTotal)
	assert.Equal(t, int64(7760), p.Withholding)
	assert.Equal(t, int64(19760), p.TotalDeductions)
	assert.Equal(t, int64(56240), p.NetPay)
}

func TestCalculate_SpecificSelection(t *testing.T) {
	setting := baseSetting()
	setting.PaymentSelection = compensation.SelectionSpecific
	setting.SelectedCompensationTypeID = strPtr("sliding")
	f := newFixture(t, setting)

	p, err := f.svc.Calculate(context.Background(), storeID, "a", 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, "sliding", p.SelectedCompensationTypeID)
	assert.Equal(t, int64(48000), p.GrossTotal)
}

func TestCalculate_SpecificFallsBackToFirstEnabled(t *testing.T) {
	setting := baseSetting()
	setting.PaymentSelection = compensation.SelectionSpecific
	setting.SelectedCompensationTypeID = strPtr("deleted-formula")
	disabled := hourlyFormula()
	disabled.ID = "disabled"
	disabled.Enabled = false
	setting.CompensationTypes = append([]compensation.CompensationType{disabled}, slidingFormula(), hourlyFormula())
	f := newFixture(t, setting)

	p, err := f.svc.Calculate(context.Background(), storeID, "a", 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, "sliding", p.SelectedCompensationTypeID)
	assert.Len(t, p.Formulas, 2)
}

func TestCalculate_AutoMaxTieKeepsFirst(t *testing.T) {
	first := hourlyFormula()
	second := hourlyFormula()
	second.ID = "hourly-copy"
	setting := baseSetting()
	setting.CompensationTypes = []compensation.CompensationType{first, second}
	f := newFixture(t, setting)

	p, err := f.svc.Calculate(context.Background(), storeID, "a", 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, "hourly", p.SelectedCompensationTypeID)
}

func TestCalculate_EnabledDeductionsOnly(t *testing.T) {
	setting := baseSetting()
	setting.EnabledDeductionIDs = []string{"d4"}
	f := newFixture(t, setting)

	p, err := f.svc.Calculate(context.Background(), storeID, "a", 2024, 3)
	require.NoError(t, err)
	require.Len(t, p.Deductions, 1)
	assert.Equal(t, "d4", p.Deductions[0].DeductionTypeID)
	assert.Equal(t, int64(0), p.DailyPaymentTotal)
	assert.Equal(t, int64(75000), p.NetPay)
}

func TestCalculate_Errors(t *testing.T) {
	f := newFixture(t, baseSetting())
	ctx := context.Background()

	_, err := f.svc.Calculate(ctx, storeID, "a", 2024, 13)
	assert.ErrorIs(t, err, payslip.ErrInvalidPeriod)

	_, err = f.svc.Calculate(ctx, storeID, "b", 2024, 3)
	assert.ErrorIs(t, err, compensation.ErrSettingNotFound)

	_, err = f.svc.Calculate(ctx, storeID, "ghost", 2024, 3)
	assert.ErrorIs(t, err, cast.ErrCastNotFound)

	f.settings.Add(compensation.Setting{ID: "set2", CastID: "b", StoreID: storeID, IsActive: true})
	_, err = f.svc.Calculate(ctx, storeID, "b", 2024, 3)
	assert.ErrorIs(t, err, compensation.ErrNoEnabledFormula)
}

func TestGenerate_PersistsAndSkipsCastsWithoutSettings(t *testing.T) {
	f := newFixture(t, baseSetting())
	ctx := context.Background()
	req := payslip.PeriodRequest{StoreID: storeID, Year: 2024, Month: 3}

	resp, err := f.svc.Generate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Generated)
	assert.Empty(t, resp.Errors)

	saved, err := f.payslips.Get(ctx, "a", storeID, 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(56240), saved.NetPay)

	list, err := f.svc.List(ctx, req)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a", list[0].CastID)
}

func TestCalculateStore_CollectsCastErrors(t *testing.T) {
	f := newFixture(t, baseSetting())
	f.settings.Add(compensation.Setting{ID: "set2", CastID: "b", StoreID: storeID, IsActive: true})

	resp, err := f.svc.CalculateStore(context.Background(), payslip.PeriodRequest{StoreID: storeID, Year: 2024, Month: 3})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Generated)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "b", resp.Errors[0].CastID)

	_, err = f.svc.CalculateStore(context.Background(), payslip.PeriodRequest{StoreID: storeID, Year: 2024, Month: 0})
	assert.Error(t, err)
}
