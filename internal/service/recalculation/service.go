package recalculation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/cmlabs-hris/cast-backoffice/internal/domain/dailystat"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/externalorder"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/order"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/recalculation"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/store"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/businessday"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/validator"
)

type RecalculationServiceImpl struct {
	dailyStats dailystat.DailyStatService
	storeRepo  store.StoreRepository
	orderRepo  order.OrderRepository
	recordRepo externalorder.RecordRepository
	calc       businessday.Calculator
	logger     *slog.Logger
	now        func() time.Time
}

func NewRecalculationService(
	dailyStats dailystat.DailyStatService,
	storeRepo store.StoreRepository,
	orderRepo order.OrderRepository,
	recordRepo externalorder.RecordRepository,
	calc businessday.Calculator,
	logger *slog.Logger,
) *RecalculationServiceImpl {
	return &RecalculationServiceImpl{
		dailyStats: dailyStats,
		storeRepo:  storeRepo,
		orderRepo:  orderRepo,
		recordRepo: recordRepo,
		calc:       calc,
		logger:     logger,
		now:        time.Now,
	}
}

var _ recalculation.RecalculationService = (*RecalculationServiceImpl)(nil)

func (s *RecalculationServiceImpl) SetClock(now func() time.Time) {
	s.now = now
}

type target struct {
	storeID string
	date    string
}

// HandleEvent recomputes the business days touched by a row change. Both the
// new and the old record are resolved so moving a ticket across days
// refreshes both.
func (s *RecalculationServiceImpl) HandleEvent(ctx context.Context, payload recalculation.EventPayload) (recalculation.EventResult, error) {
	if err := payload.Validate(); err != nil {
		return recalculation.EventResult{}, err
	}

	switch payload.Table {
	case recalculation.TableOrders, recalculation.TableOrderItems, recalculation.TableAttendances:
	default:
		s.logger.Debug("Ignoring event for unsupported table", "table", payload.Table)
		return recalculation.EventResult{
			Skipped: true,
			Reason:  "unsupported table " + payload.Table,
			Results: []recalculation.DateResult{},
		}, nil
	}

	var targets []target
	seen := make(map[target]bool)
	var lastErr error
	for _, raw := range []json.RawMessage{payload.Record, payload.OldRecord} {
		rec, err := recalculation.DecodeRecord(raw)
		if err != nil {
			return recalculation.EventResult{}, validator.ValidationErrors{{Field: "record", Message: "must be a JSON object"}}
		}
		if rec == nil {
			continue
		}
		t, err := s.resolveTarget(ctx, payload.Table, rec)
		if err != nil {
			lastErr = err
			continue
		}
		if !seen[t] {
			seen[t] = true
			targets = append(targets, t)
		}
	}

	if len(targets) == 0 {
		if lastErr == nil {
			lastErr = recalculation.ErrMissingBusinessDate
		}
		s.logger.Warn("Event skipped", "table", payload.Table, "type", payload.Type, "error", lastErr)
		return recalculation.EventResult{
			Skipped: true,
			Reason:  lastErr.Error(),
			Results: []recalculation.DateResult{},
		}, nil
	}

	result := recalculation.EventResult{Results: make([]recalculation.DateResult, 0, len(targets))}
	for _, t := range targets {
		result.Results = append(result.Results, s.recalculate(ctx, t.storeID, t.date))
	}

	s.logger.Info("Event recalculated", "table", payload.Table, "type", payload.Type, "targets", len(targets))
	return result, nil
}

func (s *RecalculationServiceImpl) resolveTarget(ctx context.Context, table string, rec *recalculation.EventRecord) (target, error) {
	if rec.Date != nil && len(*rec.Date) >= 10 && table != recalculation.TableOrders {
		date := (*rec.Date)[:10]
		if _, ok := validator.IsValidDate(date); ok && rec.StoreID != "" {
			return target{storeID: rec.StoreID, date: date}, nil
		}
	}

	switch table {
	case recalculation.TableOrders:
		if rec.StoreID == "" || rec.CheckoutAt == nil {
			return target{}, recalculation.ErrMissingBusinessDate
		}
		ts, ok := validator.IsValidDateTime(*rec.CheckoutAt)
		if !ok {
			return target{}, fmt.Errorf("%w: bad checkout_at %q", recalculation.ErrMissingBusinessDate, *rec.CheckoutAt)
		}
		return s.targetFor(ctx, rec.StoreID, ts)

	case recalculation.TableOrderItems:
		if rec.OrderID == nil || *rec.OrderID == "" {
			return target{}, recalculation.ErrMissingBusinessDate
		}
		o, err := s.orderRepo.GetByID(ctx, *rec.OrderID)
		if err != nil {
			return target{}, fmt.Errorf("failed to load parent order %s: %w", *rec.OrderID, err)
		}
		return s.targetFor(ctx, o.StoreID, o.CheckoutAt)
	}

	return target{}, recalculation.ErrMissingBusinessDate
}

func (s *RecalculationServiceImpl) targetFor(ctx context.Context, storeID string, ts time.Time) (target, error) {
	st, err := s.storeRepo.GetByID(ctx, storeID)
	if err != nil {
		return target{}, err
	}
	return target{storeID: storeID, date: s.calc.Date(ts, st.CutoffHour)}, nil
}

// RunScheduled recomputes today plus every date with unprocessed marketplace
// records for each active store. Stores and dates are isolated from each other.
func (s *RecalculationServiceImpl) RunScheduled(ctx context.Context) (recalculation.ScheduledResult, error) {
	stores, err := s.storeRepo.ListActive(ctx)
	if err != nil {
		return recalculation.ScheduledResult{}, fmt.Errorf("failed to list stores: %w", err)
	}

	result := recalculation.ScheduledResult{Stores: make([]recalculation.StoreRunResult, 0, len(stores))}
	for _, st := range stores {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		result.Stores = append(result.Stores, s.runStore(ctx, st))
	}

	var failed int
	for _, sr := range result.Stores {
		for _, d := range sr.Dates {
			if !d.Success {
				failed++
			}
		}
	}
	s.logger.Info("Scheduled recalculation completed", "stores", len(result.Stores), "failed_dates", failed)
	return result, nil
}

func (s *RecalculationServiceImpl) runStore(ctx context.Context, st store.Store) recalculation.StoreRunResult {
	res := recalculation.StoreRunResult{StoreID: st.ID, Dates: []recalculation.DateResult{}}

	today := s.calc.Today(s.now(), st.CutoffHour)
	pending, err := s.recordRepo.ListUnprocessedDates(ctx, st.ID)
	if err != nil {
		s.logger.Warn("Failed to list unprocessed marketplace dates", "store_id", st.ID, "error", err)
		res.Error = err.Error()
		pending = nil
	}

	// Revisions are read before recomputing. Changes landing mid-run carry a
	// higher revision and stay pending for the next run.
	pendingRevision := make(map[string]int64, len(pending))
	dates := []string{today}
	for _, d := range pending {
		pendingRevision[d.Date] = d.Revision
		if d.Date != today {
			dates = append(dates, d.Date)
		}
	}
	sort.Strings(dates)

	for _, date := range dates {
		dr := s.recalculate(ctx, st.ID, date)
		res.Dates = append(res.Dates, dr)
		revision, isPending := pendingRevision[date]
		if !dr.Success || !isPending {
			continue
		}
		n, err := s.recordRepo.MarkProcessed(ctx, st.ID, date, revision)
		if err != nil {
			s.logger.Warn("Failed to mark marketplace records processed", "store_id", st.ID, "date", date, "error", err)
			continue
		}
		res.ExternalProcessed += n
	}
	return res
}

// RunManual recomputes a single date or an inclusive range for one store.
func (s *RecalculationServiceImpl) RunManual(ctx context.Context, req recalculation.ManualRequest) (recalculation.ManualResult, error) {
	if err := req.Validate(); err != nil {
		return recalculation.ManualResult{}, err
	}
	if _, err := s.storeRepo.GetByID(ctx, req.StoreID); err != nil {
		return recalculation.ManualResult{}, err
	}
	dates, err := req.Dates()
	if err != nil {
		return recalculation.ManualResult{}, err
	}

	result := recalculation.ManualResult{StoreID: req.StoreID, Results: make([]recalculation.DateResult, 0, len(dates))}
	for _, date := range dates {
		dr := s.recalculate(ctx, req.StoreID, date)
		if dr.Success {
			result.Succeeded++
		} else {
			result.Failed++
		}
		result.Results = append(result.Results, dr)
	}

	s.logger.Info("Manual recalculation completed",
		"store_id", req.StoreID,
		"dates", len(dates),
		"succeeded", result.Succeeded,
		"failed", result.Failed,
	)
	return result, nil
}

// recalculate runs one unit and folds its error into the result.
func (s *RecalculationServiceImpl) recalculate(ctx context.Context, storeID, date string) (dr recalculation.DateResult) {
	dr = recalculation.DateResult{StoreID: storeID, Date: date}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Recalculation panicked", "store_id", storeID, "date", date, "panic", r)
			dr.Success = false
			dr.Error = fmt.Sprintf("panic: %v", r)
		}
	}()

	res, err := s.dailyStats.Recalculate(ctx, storeID, date)
	if err != nil {
		level := slog.LevelError
		if errors.Is(err, store.ErrStoreNotFound) {
			level = slog.LevelWarn
		}
		s.logger.Log(ctx, level, "Recalculation failed", "store_id", storeID, "date", date, "error", err)
		dr.Error = err.Error()
		return dr
	}

	dr.Success = true
	dr.CastsProcessed = res.CastsProcessed
	dr.ItemsProcessed = res.ItemsProcessed
	return dr
}
