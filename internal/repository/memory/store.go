package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/cmlabs-hris/cast-backoffice/internal/domain/cast"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/store"
)

type StoreRepository struct {
	mu       sync.RWMutex
	stores   map[string]store.Store
	costumes map[string][]store.Costume
	bonuses  map[string]int64
	Err      error
}

func NewStoreRepository(stores ...store.Store) *StoreRepository {
	r := &StoreRepository{
		stores:   make(map[string]store.Store),
		costumes: make(map[string][]store.Costume),
		bonuses:  make(map[string]int64),
	}
	for _, s := range stores {
		r.stores[s.ID] = s
	}
	return r
}

func (r *StoreRepository) AddCostume(c store.Costume) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.costumes[c.StoreID] = append(r.costumes[c.StoreID], c)
}

func (r *StoreRepository) SetSpecialDayBonus(storeID, date string, bonus int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bonuses[storeID+"|"+date] = bonus
}

func (r *StoreRepository) GetByID(_ context.Context, id string) (store.Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Err != nil {
		return store.Store{}, r.Err
	}
	s, ok := r.stores[id]
	if !ok {
		return store.Store{}, store.ErrStoreNotFound
	}
	return s, nil
}

func (r *StoreRepository) ListActive(_ context.Context) ([]store.Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Err != nil {
		return nil, r.Err
	}
	var out []store.Store
	for _, s := range r.stores {
		if s.IsActive {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *StoreRepository) ListCostumes(_ context.Context, storeID string) ([]store.Costume, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]store.Costume(nil), r.costumes[storeID]...), nil
}

func (r *StoreRepository) GetSpecialDayBonus(_ context.Context, storeID string, date string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bonuses[storeID+"|"+date], nil
}

type CastRepository struct {
	mu    sync.RWMutex
	casts []cast.Cast
}

func NewCastRepository(casts ...cast.Cast) *CastRepository {
	return &CastRepository{casts: casts}
}

func (r *CastRepository) GetByID(_ context.Context, id string, storeID string) (cast.Cast, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.casts {
		if c.ID == id && c.StoreID == storeID {
			return c, nil
		}
	}
	return cast.Cast{}, cast.ErrCastNotFound
}

func (r *CastRepository) ListByStore(_ context.Context, storeID string, activeOnly bool) ([]cast.Cast, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []cast.Cast
	for _, c := range r.casts {
		if c.StoreID != storeID || (activeOnly && !c.IsActive) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
