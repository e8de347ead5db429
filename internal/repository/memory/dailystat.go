package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/cast-backoffice/internal/domain/dailystat"
	"github.com/shopspring/decimal"
)

type DailyStatRepository struct {
	mu     sync.RWMutex
	stats  map[string]dailystat.Stat
	items  []dailystat.Item
	writes int64
}

func NewDailyStatRepository() *DailyStatRepository {
	return &DailyStatRepository{stats: make(map[string]dailystat.Stat)}
}

func statKey(castID, storeID, date string) string {
	return castID + "|" + storeID + "|" + date
}

// Put stores s as is, bypassing the finalized guard.
func (r *DailyStatRepository) Put(s dailystat.Stat) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats[statKey(s.CastID, s.StoreID, s.Date)] = s
}

// Writes is the number of rows Upsert has actually written.
func (r *DailyStatRepository) Writes() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.writes
}

func (r *DailyStatRepository) Get(castID, storeID, date string) (dailystat.Stat, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stats[statKey(castID, storeID, date)]
	return s, ok
}

func (r *DailyStatRepository) ListByDate(_ context.Context, storeID, date string) ([]dailystat.Stat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []dailystat.Stat
	for _, s := range r.stats {
		if s.StoreID == storeID && s.Date == date {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CastID < out[j].CastID })
	return out, nil
}

func (r *DailyStatRepository) ListByCastRange(_ context.Context, storeID, castID, from, to string) ([]dailystat.Stat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []dailystat.Stat
	for _, s := range r.stats {
		if s.StoreID == storeID && s.CastID == castID && inRange(s.Date, from, to) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (r *DailyStatRepository) Upsert(_ context.Context, stats []dailystat.Stat) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var written int64
	for _, s := range stats {
		key := statKey(s.CastID, s.StoreID, s.Date)
		if cur, ok := r.stats[key]; ok {
			if cur.IsFinalized || sameStatValues(cur, s) {
				continue
			}
		}
		s.IsFinalized = false
		s.FinalizedAt = nil
		r.stats[key] = s
		written++
	}
	r.writes += written
	return written, nil
}

// sameStatValues compares the computed columns only.
func sameStatValues(a, b dailystat.Stat) bool {
	if !a.WorkHours.Equal(b.WorkHours) {
		return false
	}
	if (a.WageStatusID == nil) != (b.WageStatusID == nil) {
		return false
	}
	if a.WageStatusID != nil && *a.WageStatusID != *b.WageStatusID {
		return false
	}
	for _, s := range []*dailystat.Stat{&a, &b} {
		s.WorkHours = decimal.Zero
		s.WageStatusID = nil
		s.IsFinalized = false
		s.FinalizedAt = nil
		s.UpdatedAt = time.Time{}
	}
	return a == b
}

func (r *DailyStatRepository) ListItems(_ context.Context, storeID, date string) ([]dailystat.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []dailystat.Item
	for _, it := range r.items {
		if it.StoreID == storeID && it.Date == date {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r *DailyStatRepository) ReplaceItems(_ context.Context, storeID, date string, castIDs []string, items []dailystat.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	finalized := make(map[string]bool)
	for _, s := range r.stats {
		if s.StoreID == storeID && s.Date == date && s.IsFinalized {
			finalized[s.CastID] = true
		}
	}
	scope := make(map[string]bool, len(castIDs))
	for _, id := range castIDs {
		if !finalized[id] {
			scope[id] = true
		}
	}
	kept := r.items[:0]
	for _, it := range r.items {
		if it.StoreID == storeID && it.Date == date && scope[it.CastID] {
			continue
		}
		kept = append(kept, it)
	}
	for _, it := range items {
		if !finalized[it.CastID] {
			kept = append(kept, it)
		}
	}
	r.items = kept
	return nil
}

func (r *DailyStatRepository) SetFinalized(_ context.Context, storeID, date string, castIDs []string, finalized bool, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	scope := make(map[string]bool, len(castIDs))
	for _, id := range castIDs {
		scope[id] = true
	}
	var n int64
	for key, s := range r.stats {
		if s.StoreID != storeID || s.Date != date || s.IsFinalized == finalized {
			continue
		}
		if len(scope) > 0 && !scope[s.CastID] {
			continue
		}
		s.IsFinalized = finalized
		if finalized {
			ts := at
			s.FinalizedAt = &ts
		} else {
			s.FinalizedAt = nil
		}
		r.stats[key] = s
		n++
	}
	return n, nil
}
