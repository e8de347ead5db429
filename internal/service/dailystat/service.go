package dailystat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/cmlabs-hris/cast-backoffice/internal/domain/attendance"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/cast"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/compensation"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/dailystat"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/externalorder"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/order"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/product"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/store"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/wagestatus"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/businessday"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/database"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/validator"
	"github.com/cmlabs-hris/cast-backoffice/internal/service/sales"
	"github.com/cmlabs-hris/cast-backoffice/internal/service/wage"
)

// Repositories groups the stores Recalculate reads from and writes to.
type Repositories struct {
	Stores      store.StoreRepository
	Casts       cast.CastRepository
	Orders      order.OrderRepository
	Products    product.ProductRepository
	Attendances attendance.AttendanceRepository
	External    externalorder.RecordRepository
	WageStatus  wagestatus.WageStatusRepository
	Settings    compensation.SettingRepository
	DailyStats  dailystat.DailyStatRepository
}

type DailyStatServiceImpl struct {
	tx     database.Transactor
	repos  Repositories
	calc   businessday.Calculator
	logger *slog.Logger
	now    func() time.Time
}

func NewDailyStatService(
	tx database.Transactor,
	repos Repositories,
	calc businessday.Calculator,
	logger *slog.Logger,
) *DailyStatServiceImpl {
	return &DailyStatServiceImpl{
		tx:     tx,
		repos:  repos,
		calc:   calc,
		logger: logger,
		now:    time.Now,
	}
}

var _ dailystat.DailyStatService = (*DailyStatServiceImpl)(nil)

// SetClock replaces the clock used for updated_at and finalized_at.
func (s *DailyStatServiceImpl) SetClock(now func() time.Time) {
	s.now = now
}

// Recalculate rebuilds every non-finalized cast row of (storeID, date) from source data.
func (s *DailyStatServiceImpl) Recalculate(ctx context.Context, storeID, date string) (dailystat.RecalculateResult, error) {
	result := dailystat.RecalculateResult{StoreID: storeID, Date: date}

	day, ok := validator.IsValidDate(date)
	if !ok {
		return result, validator.ValidationErrors{{Field: "date", Message: "must be YYYY-MM-DD"}}
	}

	st, err := s.repos.Stores.GetByID(ctx, storeID)
	if err != nil {
		return result, err
	}

	existing, err := s.repos.DailyStats.ListByDate(ctx, storeID, date)
	if err != nil {
		return result, fmt.Errorf("failed to load daily stats: %w", err)
	}
	finalized := make(map[string]bool)
	for _, e := range existing {
		if e.IsFinalized {
			finalized[e.CastID] = true
			result.FinalizedCastIDs = append(result.FinalizedCastIDs, e.CastID)
		}
	}
	sort.Strings(result.FinalizedCastIDs)

	start, end, err := s.calc.Range(date, st.CutoffHour)
	if err != nil {
		return result, err
	}
	orders, err := s.repos.Orders.ListByCheckoutRange(ctx, storeID, start, end)
	if err != nil {
		return result, fmt.Errorf("failed to load orders: %w", err)
	}
	casts, err := s.repos.Casts.ListByStore(ctx, storeID, false)
	if err != nil {
		return result, fmt.Errorf("failed to load casts: %w", err)
	}
	products, err := s.repos.Products.ListByStore(ctx, storeID)
	if err != nil {
		return result, fmt.Errorf("failed to load products: %w", err)
	}
	external, err := s.repos.External.ListByBusinessDate(ctx, storeID, date)
	if err != nil {
		return result, fmt.Errorf("failed to load external orders: %w", err)
	}

	agg := sales.Aggregate(sales.Input{
		Orders:   orders,
		External: external,
		Roster:   cast.NewRoster(casts),
		Products: products,
		Config:   sales.ConfigFromStore(st),
	})

	wages, err := s.computeWages(ctx, st, date, day)
	if err != nil {
		return result, err
	}

	// Casts touched today, plus previously written rows that may need zeroing.
	touched := make(map[string]bool)
	for _, c := range agg.Casts {
		touched[c.CastID] = true
	}
	for id := range wages {
		touched[id] = true
	}
	for _, e := range existing {
		touched[e.CastID] = true
	}

	salesByCast := make(map[string]sales.CastResult, len(agg.Casts))
	for _, c := range agg.Casts {
		salesByCast[c.CastID] = c
	}

	now := s.now()
	var processed []string
	for id := range touched {
		if !finalized[id] {
			processed = append(processed, id)
		}
	}
	sort.Strings(processed)

	stats := make([]dailystat.Stat, 0, len(processed))
	for _, id := range processed {
		stats = append(stats, buildStat(storeID, date, id, salesByCast[id], wages[id], now))
	}

	processedSet := make(map[string]bool, len(processed))
	for _, id := range processed {
		processedSet[id] = true
	}
	var rows []sales.ItemRow
	for _, r := range agg.Items {
		if processedSet[r.CastID] {
			rows = append(rows, r)
		}
	}
	items := sales.ToDailyItems(rows, storeID, date)

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if len(stats) > 0 {
			if _, err := s.repos.DailyStats.Upsert(ctx, stats); err != nil {
				return err
			}
		}
		if len(processed) > 0 {
			if err := s.repos.DailyStats.ReplaceItems(ctx, storeID, date, processed, items); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("failed to write daily stats: %w", err)
	}

	result.CastsProcessed = len(processed)
	result.ItemsProcessed = len(items)

	s.logger.Debug("Daily stats recalculated",
		"store_id", storeID,
		"date", date,
		"casts_processed", result.CastsProcessed,
		"items_processed", result.ItemsProcessed,
		"finalized_skipped", len(result.FinalizedCastIDs),
	)
	return result, nil
}

func (s *DailyStatServiceImpl) computeWages(ctx context.Context, st store.Store, date string, day time.Time) (map[string]wage.Result, error) {
	rows, err := s.repos.Attendances.ListByDate(ctx, st.ID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load attendances: %w", err)
	}
	if len(rows) == 0 {
		return map[string]wage.Result{}, nil
	}

	bonus, err := s.repos.Stores.GetSpecialDayBonus(ctx, st.ID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load special day bonus: %w", err)
	}
	costumes, err := s.repos.Stores.ListCostumes(ctx, st.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load costumes: %w", err)
	}
	costumeBonuses := make(map[string]int64, len(costumes))
	for _, c := range costumes {
		costumeBonuses[c.ID] = c.WageBonus
	}

	statuses, err := s.repos.WageStatus.ListStatuses(ctx, st.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load wage statuses: %w", err)
	}
	settings, err := s.repos.Settings.ListActiveByStore(ctx, st.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load compensation settings: %w", err)
	}
	settingsByCast := make(map[string][]compensation.Setting)
	for _, set := range settings {
		settingsByCast[set.CastID] = append(settingsByCast[set.CastID], set)
	}

	out := make(map[string]wage.Result, len(rows))
	for _, a := range rows {
		setting, hasSetting := compensation.PickSetting(settingsByCast[a.CastID], day.Year(), int(day.Month()))

		in := wage.Input{
			Attendance:      a,
			SpecialDayBonus: bonus,
			CostumeBonuses:  costumeBonuses,
		}
		var statusID *string
		if hasSetting {
			in.HourlyWageOverride = setting.HourlyWageOverride
			statusID = setting.StatusID
		}
		tier, err := s.resolveTier(ctx, st.ID, a.CastID, statusID, statuses)
		if err != nil {
			return nil, err
		}
		in.Tier = tier

		out[a.CastID] = wage.Calculate(in)
	}
	return out, nil
}

// resolveTier prefers the setting's status, then the cast's progress row,
// then the store default.
func (s *DailyStatServiceImpl) resolveTier(ctx context.Context, storeID, castID string, statusID *string, statuses []wagestatus.Status) (*wagestatus.Status, error) {
	byID := func(id string) *wagestatus.Status {
		for i := range statuses {
			if statuses[i].ID == id {
				return &statuses[i]
			}
		}
		return nil
	}

	if statusID != nil {
		if t := byID(*statusID); t != nil {
			return t, nil
		}
	}

	progress, err := s.repos.WageStatus.GetProgress(ctx, castID, storeID)
	switch {
	case err == nil:
		if t := byID(progress.StatusID); t != nil {
			return t, nil
		}
	case !errors.Is(err, wagestatus.ErrProgressNotFound):
		return nil, fmt.Errorf("failed to load wage progress: %w", err)
	}

	return wagestatus.DefaultTier(statuses), nil
}

func buildStat(storeID, date, castID string, c sales.CastResult, w wage.Result, now time.Time) dailystat.Stat {
	return dailystat.Stat{
		CastID:            castID,
		StoreID:           storeID,
		Date:              date,
		ItemSelfSales:     c.ItemBased.Self,
		ItemHelpSales:     c.ItemBased.Help,
		ItemTotalSales:    c.ItemBased.Total,
		ReceiptSelfSales:  c.ReceiptBased.Self,
		ReceiptHelpSales:  c.ReceiptBased.Help,
		ReceiptTotalSales: c.ReceiptBased.Total,
		SelfProductBack:   c.SelfProductBack,
		HelpProductBack:   c.HelpProductBack,
		NominationCount:   c.NominationCount,
		WorkHours:         w.WorkHours,
		BaseHourlyWage:    w.BaseHourlyWage,
		SpecialDayBonus:   w.SpecialDayBonus,
		CostumeBonus:      w.CostumeBonus,
		TotalHourlyWage:   w.TotalHourlyWage,
		WageAmount:        w.WageAmount,
		WageStatusID:      w.WageStatusID,
		UpdatedAt:         now,
	}
}

func (s *DailyStatServiceImpl) Finalize(ctx context.Context, req dailystat.FinalizeRequest) (dailystat.FinalizeResponse, error) {
	return s.setFinalized(ctx, req, true)
}

func (s *DailyStatServiceImpl) Unfinalize(ctx context.Context, req dailystat.FinalizeRequest) (dailystat.FinalizeResponse, error) {
	return s.setFinalized(ctx, req, false)
}

func (s *DailyStatServiceImpl) setFinalized(ctx context.Context, req dailystat.FinalizeRequest, finalized bool) (dailystat.FinalizeResponse, error) {
	if err := req.Validate(); err != nil {
		return dailystat.FinalizeResponse{}, err
	}
	if _, err := s.repos.Stores.GetByID(ctx, req.StoreID); err != nil {
		return dailystat.FinalizeResponse{}, err
	}

	affected, err := s.repos.DailyStats.SetFinalized(ctx, req.StoreID, req.Date, req.CastIDs, finalized, s.now())
	if err != nil {
		return dailystat.FinalizeResponse{}, fmt.Errorf("failed to update finalize flag: %w", err)
	}

	s.logger.Info("Daily stats finalize flag changed",
		"store_id", req.StoreID,
		"date", req.Date,
		"finalized", finalized,
		"affected", affected,
	)
	return dailystat.FinalizeResponse{StoreID: req.StoreID, Date: req.Date, Affected: affected}, nil
}

func (s *DailyStatServiceImpl) List(ctx context.Context, storeID, date string) (dailystat.ListResponse, error) {
	if _, ok := validator.IsValidDate(date); !ok {
		return dailystat.ListResponse{}, validator.ValidationErrors{{Field: "date", Message: "must be YYYY-MM-DD"}}
	}
	stats, err := s.repos.DailyStats.ListByDate(ctx, storeID, date)
	if err != nil {
		return dailystat.ListResponse{}, fmt.Errorf("failed to list daily stats: %w", err)
	}
	items, err := s.repos.DailyStats.ListItems(ctx, storeID, date)
	if err != nil {
		return dailystat.ListResponse{}, fmt.Errorf("failed to list daily items: %w", err)
	}
	return dailystat.ListResponse{Stats: stats, Items: items}, nil
}
