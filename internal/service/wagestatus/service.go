package wagestatus

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
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/store"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/wagestatus"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/businessday"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/database"
	"github.com/google/uuid"
)

type WageStatusServiceImpl struct {
	tx          database.Transactor
	wageRepo    wagestatus.WageStatusRepository
	storeRepo   store.StoreRepository
	castRepo    cast.CastRepository
	attendRepo  attendance.AttendanceRepository
	settingRepo compensation.SettingRepository
	calc        businessday.Calculator
	logger      *slog.Logger
	now         func() time.Time
}

func NewWageStatusService(
	tx database.Transactor,
	wageRepo wagestatus.WageStatusRepository,
	storeRepo store.StoreRepository,
	castRepo cast.CastRepository,
	attendRepo attendance.AttendanceRepository,
	settingRepo compensation.SettingRepository,
	calc businessday.Calculator,
	logger *slog.Logger,
) *WageStatusServiceImpl {
	return &WageStatusServiceImpl{
		tx:          tx,
		wageRepo:    wageRepo,
		storeRepo:   storeRepo,
		castRepo:    castRepo,
		attendRepo:  attendRepo,
		settingRepo: settingRepo,
		calc:        calc,
		logger:      logger,
		now:         time.Now,
	}
}

var _ wagestatus.WageStatusService = (*WageStatusServiceImpl)(nil)

func (s *WageStatusServiceImpl) SetClock(now func() time.Time) {
	s.now = now
}

// EvaluateCast runs one evaluation cycle for a cast. At most one tier step
// is taken and a fired demotion suppresses promotion for the cycle.
func (s *WageStatusServiceImpl) EvaluateCast(ctx context.Context, storeID, castID string) (wagestatus.EvaluationResult, error) {
	result := wagestatus.EvaluationResult{CastID: castID, Outcome: wagestatus.OutcomeUnchanged}

	st, err := s.storeRepo.GetByID(ctx, storeID)
	if err != nil {
		return result, err
	}
	statuses, err := s.loadStatuses(ctx, storeID)
	if err != nil {
		return result, err
	}
	today := s.calc.Today(s.now(), st.CutoffHour)

	progress, err := s.getOrInitProgress(ctx, castID, storeID, statuses, today)
	if err != nil {
		return result, err
	}
	result.FromStatusID = progress.StatusID
	result.ToStatusID = progress.StatusID

	if progress.IsLocked {
		result.Outcome = wagestatus.OutcomeLocked
		return result, nil
	}

	metrics, err := s.computeMetrics(ctx, storeID, castID, progress.StatusStartDate, today)
	if err != nil {
		return result, err
	}
	result.Metrics = metrics
	if err := s.wageRepo.UpdateCounts(ctx, castID, storeID, metrics.CumulativeAttendanceDays, metrics.MonthlyAttendanceDays); err != nil {
		return result, fmt.Errorf("failed to update attendance counts: %w", err)
	}
	progress.CumulativeAttendanceDays = metrics.CumulativeAttendanceDays
	progress.MonthlyAttendanceDays = metrics.MonthlyAttendanceDays

	idx := indexOf(statuses, progress.StatusID)
	if idx < 0 {
		return result, fmt.Errorf("%w: %s", wagestatus.ErrStatusNotFound, progress.StatusID)
	}
	current := statuses[idx]

	if wagestatus.AllSatisfied(current.ConditionsFor(wagestatus.DirectionDemotion), metrics) {
		if idx == 0 {
			return result, nil
		}
		to := statuses[idx-1]
		if _, err := s.transition(ctx, progress, to.ID, autoReason(wagestatus.DirectionDemotion, metrics), wagestatus.TriggerAuto, today); err != nil {
			return result, err
		}
		result.Outcome = wagestatus.OutcomeDemoted
		result.ToStatusID = to.ID
		return result, nil
	}

	if wagestatus.AllSatisfied(current.ConditionsFor(wagestatus.DirectionPromotion), metrics) && idx < len(statuses)-1 {
		to := statuses[idx+1]
		if _, err := s.transition(ctx, progress, to.ID, autoReason(wagestatus.DirectionPromotion, metrics), wagestatus.TriggerAuto, today); err != nil {
			return result, err
		}
		result.Outcome = wagestatus.OutcomePromoted
		result.ToStatusID = to.ID
	}
	return result, nil
}

func (s *WageStatusServiceImpl) EvaluateStore(ctx context.Context, storeID string) (wagestatus.StoreEvaluation, error) {
	summary := wagestatus.StoreEvaluation{StoreID: storeID}

	if _, err := s.storeRepo.GetByID(ctx, storeID); err != nil {
		return summary, err
	}
	casts, err := s.castRepo.ListByStore(ctx, storeID, true)
	if err != nil {
		return summary, fmt.Errorf("failed to list casts: %w", err)
	}

	for _, c := range casts {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		res := s.evaluateIsolated(ctx, storeID, c.ID)
		summary.Evaluated++
		switch res.Outcome {
		case wagestatus.OutcomePromoted:
			summary.Promoted++
		case wagestatus.OutcomeDemoted:
			summary.Demoted++
		case wagestatus.OutcomeLocked:
			summary.Locked++
		case wagestatus.OutcomeFailed:
			summary.Failed++
		}
		summary.Results = append(summary.Results, res)
	}

	s.logger.Info("Wage status evaluation completed",
		"store_id", storeID,
		"evaluated", summary.Evaluated,
		"promoted", summary.Promoted,
		"demoted", summary.Demoted,
		"locked", summary.Locked,
		"failed", summary.Failed,
	)
	return summary, nil
}

// evaluateIsolated turns errors and panics into a failed result so one cast
// never aborts the store.
func (s *WageStatusServiceImpl) evaluateIsolated(ctx context.Context, storeID, castID string) (res wagestatus.EvaluationResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Wage status evaluation panicked", "store_id", storeID, "cast_id", castID, "panic", r)
			res = wagestatus.EvaluationResult{CastID: castID, Outcome: wagestatus.OutcomeFailed, Error: fmt.Sprint(r)}
		}
	}()

	res, err := s.EvaluateCast(ctx, storeID, castID)
	if err != nil {
		s.logger.Warn("Wage status evaluation failed", "store_id", storeID, "cast_id", castID, "error", err)
		res.Outcome = wagestatus.OutcomeFailed
		res.Error = err.Error()
	}
	return res
}

func (s *WageStatusServiceImpl) EvaluateAll(ctx context.Context) ([]wagestatus.StoreEvaluation, error) {
	stores, err := s.storeRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active stores: %w", err)
	}

	out := make([]wagestatus.StoreEvaluation, 0, len(stores))
	for _, st := range stores {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		summary, err := s.EvaluateStore(ctx, st.ID)
		if err != nil {
			s.logger.Error("Wage status evaluation failed for store", "store_id", st.ID, "error", err)
			summary.Error = err.Error()
		}
		out = append(out, summary)
	}
	return out, nil
}

func (s *WageStatusServiceImpl) SetLock(ctx context.Context, castID string, req wagestatus.LockRequest) (wagestatus.Progress, error) {
	if err := req.Validate(); err != nil {
		return wagestatus.Progress{}, err
	}
	st, err := s.storeRepo.GetByID(ctx, req.StoreID)
	if err != nil {
		return wagestatus.Progress{}, err
	}
	if _, err := s.castRepo.GetByID(ctx, castID, req.StoreID); err != nil {
		return wagestatus.Progress{}, err
	}
	statuses, err := s.loadStatuses(ctx, req.StoreID)
	if err != nil {
		return wagestatus.Progress{}, err
	}

	progress, err := s.getOrInitProgress(ctx, castID, req.StoreID, statuses, s.calc.Today(s.now(), st.CutoffHour))
	if err != nil {
		return wagestatus.Progress{}, err
	}
	if err := s.wageRepo.SetLocked(ctx, castID, req.StoreID, req.Locked); err != nil {
		return wagestatus.Progress{}, fmt.Errorf("failed to set lock: %w", err)
	}
	progress.IsLocked = req.Locked

	s.logger.Info("Wage status lock changed", "store_id", req.StoreID, "cast_id", castID, "locked", req.Locked)
	return progress, nil
}

// ManualTransition moves a cast to any tier, regardless of its lock flag.
func (s *WageStatusServiceImpl) ManualTransition(ctx context.Context, castID string, req wagestatus.TransitionRequest) (wagestatus.Progress, error) {
	if err := req.Validate(); err != nil {
		return wagestatus.Progress{}, err
	}
	st, err := s.storeRepo.GetByID(ctx, req.StoreID)
	if err != nil {
		return wagestatus.Progress{}, err
	}
	if _, err := s.castRepo.GetByID(ctx, castID, req.StoreID); err != nil {
		return wagestatus.Progress{}, err
	}
	statuses, err := s.loadStatuses(ctx, req.StoreID)
	if err != nil {
		return wagestatus.Progress{}, err
	}
	if indexOf(statuses, req.StatusID) < 0 {
		return wagestatus.Progress{}, wagestatus.ErrStatusNotFound
	}

	today := s.calc.Today(s.now(), st.CutoffHour)
	progress, err := s.getOrInitProgress(ctx, castID, req.StoreID, statuses, today)
	if err != nil {
		return wagestatus.Progress{}, err
	}
	if progress.StatusID == req.StatusID {
		return progress, nil
	}

	reason := req.Reason
	if reason == "" {
		reason = "manual transition"
	}
	return s.transition(ctx, progress, req.StatusID, reason, wagestatus.TriggerManual, today)
}

// transition moves progress to statusID, resets the cumulative counter,
// records history and mirrors the tier into the cast's active settings.
func (s *WageStatusServiceImpl) transition(ctx context.Context, progress wagestatus.Progress, statusID, reason string, trigger wagestatus.TriggerType, today string) (wagestatus.Progress, error) {
	previous := progress.StatusID
	next := progress
	next.StatusID = statusID
	next.CumulativeAttendanceDays = 0
	next.StatusStartDate = today

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.wageRepo.UpsertProgress(ctx, next); err != nil {
			return fmt.Errorf("failed to update progress: %w", err)
		}
		h := wagestatus.History{
			ID:          uuid.NewString(),
			CastID:      progress.CastID,
			StoreID:     progress.StoreID,
			NewStatusID: statusID,
			Reason:      reason,
			TriggerType: trigger,
			CreatedAt:   s.now(),
		}
		if previous != "" {
			h.PreviousStatusID = &previous
		}
		if err := s.wageRepo.InsertHistory(ctx, h); err != nil {
			return fmt.Errorf("failed to record status history: %w", err)
		}
		if err := s.settingRepo.UpdateActiveStatus(ctx, progress.CastID, progress.StoreID, statusID); err != nil {
			return fmt.Errorf("failed to mirror status into settings: %w", err)
		}
		return nil
	})
	if err != nil {
		return progress, err
	}

	s.logger.Info("Wage status transitioned",
		"store_id", progress.StoreID,
		"cast_id", progress.CastID,
		"from", previous,
		"to", statusID,
		"trigger", trigger,
	)
	return next, nil
}

func (s *WageStatusServiceImpl) loadStatuses(ctx context.Context, storeID string) ([]wagestatus.Status, error) {
	statuses, err := s.wageRepo.ListStatuses(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wage statuses: %w", err)
	}
	if len(statuses) == 0 {
		return nil, wagestatus.ErrNoStatuses
	}
	sort.SliceStable(statuses, func(i, j int) bool { return statuses[i].Priority < statuses[j].Priority })
	return statuses, nil
}

func (s *WageStatusServiceImpl) getOrInitProgress(ctx context.Context, castID, storeID string, statuses []wagestatus.Status, today string) (wagestatus.Progress, error) {
	progress, err := s.wageRepo.GetProgress(ctx, castID, storeID)
	if err == nil {
		return progress, nil
	}
	if !errors.Is(err, wagestatus.ErrProgressNotFound) {
		return wagestatus.Progress{}, fmt.Errorf("failed to load progress: %w", err)
	}

	tier := wagestatus.DefaultTier(statuses)
	progress = wagestatus.Progress{
		CastID:          castID,
		StoreID:         storeID,
		StatusID:        tier.ID,
		StatusStartDate: today,
	}
	if err := s.wageRepo.UpsertProgress(ctx, progress); err != nil {
		return wagestatus.Progress{}, fmt.Errorf("failed to initialize progress: %w", err)
	}
	s.logger.Debug("Wage status progress initialized", "store_id", storeID, "cast_id", castID, "status_id", tier.ID)
	return progress, nil
}

func (s *WageStatusServiceImpl) computeMetrics(ctx context.Context, storeID, castID, startDate, today string) (wagestatus.Metrics, error) {
	monthStart, _, err := businessday.MonthRange(today)
	if err != nil {
		return wagestatus.Metrics{}, err
	}
	monthly, err := s.attendRepo.CountWithStatus(ctx, storeID, castID, monthStart, today)
	if err != nil {
		return wagestatus.Metrics{}, fmt.Errorf("failed to count monthly attendance: %w", err)
	}
	if startDate == "" {
		startDate = today
	}
	cumulative, err := s.attendRepo.CountWithStatus(ctx, storeID, castID, startDate, today)
	if err != nil {
		return wagestatus.Metrics{}, fmt.Errorf("failed to count cumulative attendance: %w", err)
	}
	return wagestatus.Metrics{CumulativeAttendanceDays: cumulative, MonthlyAttendanceDays: monthly}, nil
}

func indexOf(statuses []wagestatus.Status, id string) int {
	for i, st := range statuses {
		if st.ID == id {
			return i
		}
	}
	return -1
}

func autoReason(dir wagestatus.Direction, m wagestatus.Metrics) string {
	return fmt.Sprintf("auto %s: cumulative_attendance_days=%d monthly_attendance_days=%d",
		dir, m.CumulativeAttendanceDays, m.MonthlyAttendanceDays)
}
