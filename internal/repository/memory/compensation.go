package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/cast-backoffice/internal/domain/compensation"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/deduction"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/wagestatus"
)

type SettingRepository struct {
	mu       sync.RWMutex
	settings []compensation.Setting
}

func NewSettingRepository(settings ...compensation.Setting) *SettingRepository {
	return &SettingRepository{settings: settings}
}

func (r *SettingRepository) Add(s compensation.Setting) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings = append(r.settings, s)
}

func (r *SettingRepository) ListByCast(_ context.Context, castID, storeID string) ([]compensation.Setting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []compensation.Setting
	for _, s := range r.settings {
		if s.CastID == castID && s.StoreID == storeID && s.IsActive {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].IsTargeted() && !out[j].IsTargeted() })
	return out, nil
}

func (r *SettingRepository) ListActiveByStore(_ context.Context, storeID string) ([]compensation.Setting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []compensation.Setting
	for _, s := range r.settings {
		if s.StoreID == storeID && s.IsActive {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *SettingRepository) UpdateActiveStatus(_ context.Context, castID, storeID, statusID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.settings {
		s := &r.settings[i]
		if s.CastID == castID && s.StoreID == storeID && s.IsActive {
			id := statusID
			s.StatusID = &id
		}
	}
	return nil
}

type WageStatusRepository struct {
	mu       sync.RWMutex
	statuses []wagestatus.Status
	progress map[string]wagestatus.Progress
	history  []wagestatus.History
	now      func() time.Time

	// FailCast makes every write for that cast id fail.
	FailCast map[string]error
}

func NewWageStatusRepository(statuses ...wagestatus.Status) *WageStatusRepository {
	return &WageStatusRepository{
		statuses: statuses,
		progress: make(map[string]wagestatus.Progress),
		now:      time.Now,
		FailCast: make(map[string]error),
	}
}

func progressKey(castID, storeID string) string {
	return castID + "|" + storeID
}

func (r *WageStatusRepository) ListStatuses(_ context.Context, storeID string) ([]wagestatus.Status, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []wagestatus.Status
	for _, s := range r.statuses {
		if s.StoreID == storeID {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out, nil
}

func (r *WageStatusRepository) GetProgress(_ context.Context, castID, storeID string) (wagestatus.Progress, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.progress[progressKey(castID, storeID)]
	if !ok {
		return wagestatus.Progress{}, wagestatus.ErrProgressNotFound
	}
	return p, nil
}

func (r *WageStatusRepository) UpsertProgress(_ context.Context, p wagestatus.Progress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.FailCast[p.CastID]; err != nil {
		return err
	}
	p.UpdatedAt = r.now()
	r.progress[progressKey(p.CastID, p.StoreID)] = p
	return nil
}

func (r *WageStatusRepository) UpdateCounts(_ context.Context, castID, storeID string, cumulative, monthly int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.FailCast[castID]; err != nil {
		return err
	}
	key := progressKey(castID, storeID)
	p, ok := r.progress[key]
	if !ok {
		return wagestatus.ErrProgressNotFound
	}
	p.CumulativeAttendanceDays = cumulative
	p.MonthlyAttendanceDays = monthly
	p.UpdatedAt = r.now()
	r.progress[key] = p
	return nil
}

func (r *WageStatusRepository) SetLocked(_ context.Context, castID, storeID string, locked bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := progressKey(castID, storeID)
	p, ok := r.progress[key]
	if !ok {
		return wagestatus.ErrProgressNotFound
	}
	p.IsLocked = locked
	r.progress[key] = p
	return nil
}

func (r *WageStatusRepository) InsertHistory(_ context.Context, h wagestatus.History) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, h)
	return nil
}

func (r *WageStatusRepository) ListHistory(_ context.Context, castID, storeID string) ([]wagestatus.History, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []wagestatus.History
	for _, h := range r.history {
		if h.CastID == castID && h.StoreID == storeID {
			out = append(out, h)
		}
	}
	return out, nil
}

type DeductionRepository struct {
	mu    sync.RWMutex
	types []deduction.DeductionType
	rules []deduction.LatePenaltyRule
}

func NewDeductionRepository(types ...deduction.DeductionType) *DeductionRepository {
	return &DeductionRepository{types: types}
}

func (r *DeductionRepository) AddRule(rule deduction.LatePenaltyRule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule)
}

func (r *DeductionRepository) ListActive(_ context.Context, storeID string) ([]deduction.DeductionType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []deduction.DeductionType
	for _, t := range r.types {
		if t.StoreID == storeID && t.IsActive {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

func (r *DeductionRepository) ListLatePenaltyRules(_ context.Context, storeID string) ([]deduction.LatePenaltyRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []deduction.LatePenaltyRule
	for _, rule := range r.rules {
		if rule.StoreID == storeID {
			out = append(out, rule)
		}
	}
	return out, nil
}
