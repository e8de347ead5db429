package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cmlabs-hris/cast-backoffice/internal/domain/externalorder"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/marketplace"
)

type CredentialRepository struct {
	mu    sync.RWMutex
	creds map[string]externalorder.Credential
	now   func() time.Time

	// BeforeUpdate runs inside UpdateTokenIfUnchanged before the comparison,
	// which lets tests simulate a concurrent writer.
	BeforeUpdate func(storeID string)
}

func NewCredentialRepository(creds ...externalorder.Credential) *CredentialRepository {
	r := &CredentialRepository{creds: make(map[string]externalorder.Credential), now: time.Now}
	for _, c := range creds {
		r.creds[c.StoreID] = c
	}
	return r
}

func (r *CredentialRepository) ListAll(_ context.Context) ([]externalorder.Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]externalorder.Credential, 0, len(r.creds))
	for _, c := range r.creds {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StoreID < out[j].StoreID })
	return out, nil
}

func (r *CredentialRepository) Get(_ context.Context, storeID string) (externalorder.Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.creds[storeID]
	if !ok {
		return externalorder.Credential{}, externalorder.ErrCredentialNotFound
	}
	return c, nil
}

func (r *CredentialRepository) Save(_ context.Context, c externalorder.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.UpdatedAt = r.now()
	r.creds[c.StoreID] = c
	return nil
}

func (r *CredentialRepository) UpdateTokenIfUnchanged(_ context.Context, storeID string, expectedExpiry time.Time, tok marketplace.Token) (bool, error) {
	if r.BeforeUpdate != nil {
		r.BeforeUpdate(storeID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.creds[storeID]
	if !ok || !c.TokenExpiresAt.Equal(expectedExpiry) {
		return false, nil
	}
	c.AccessToken = tok.AccessToken
	c.RefreshToken = tok.RefreshToken
	c.TokenExpiresAt = tok.ExpiresAt
	c.UpdatedAt = r.now()
	r.creds[storeID] = c
	return true, nil
}

type RecordRepository struct {
	mu        sync.RWMutex
	records   map[string]externalorder.Record
	revisions map[string]int64
	stale     map[string]int64
	seq       int
	revision  int64

	// FailProduct makes Upsert fail for records with that product name.
	FailProduct map[string]error
}

func NewRecordRepository() *RecordRepository {
	return &RecordRepository{
		records:     make(map[string]externalorder.Record),
		revisions:   make(map[string]int64),
		stale:       make(map[string]int64),
		FailProduct: make(map[string]error),
	}
}

func recordKey(r externalorder.Record) string {
	return r.StoreID + "|" + r.ExternalOrderID + "|" + r.ProductName + "|" + r.VariationName
}

func (r *RecordRepository) Upsert(_ context.Context, rec externalorder.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.FailProduct[rec.ProductName]; err != nil {
		return err
	}
	key := recordKey(rec)
	cur, ok := r.records[key]
	switch {
	case ok && sameRecord(cur, rec):
		return nil
	case ok:
		rec.ID = cur.ID
		if cur.BusinessDate != rec.BusinessDate {
			r.revision++
			r.stale[rec.StoreID+"|"+cur.BusinessDate] = r.revision
		}
	default:
		r.seq++
		rec.ID = fmt.Sprintf("ext-%d", r.seq)
	}
	rec.IsProcessed = false
	r.revision++
	r.records[key] = rec
	r.revisions[key] = r.revision
	return nil
}

func sameRecord(a, b externalorder.Record) bool {
	return stringPtrEqual(a.CastID, b.CastID) &&
		stringPtrEqual(a.ProductID, b.ProductID) &&
		a.Quantity == b.Quantity &&
		a.UnitPrice == b.UnitPrice &&
		a.OrderedAt.Equal(b.OrderedAt) &&
		a.BusinessDate == b.BusinessDate
}

func stringPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// All returns every record sorted by key.
func (r *RecordRepository) All() []externalorder.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.records))
	for k := range r.records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]externalorder.Record, 0, len(keys))
	for _, k := range keys {
		out = append(out, r.records[k])
	}
	return out
}

func (r *RecordRepository) ListByBusinessDate(_ context.Context, storeID, date string) ([]externalorder.Record, error) {
	var out []externalorder.Record
	for _, rec := range r.All() {
		if rec.StoreID == storeID && rec.BusinessDate == date {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *RecordRepository) ListUnprocessedDates(_ context.Context, storeID string) ([]externalorder.PendingDate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	latest := make(map[string]int64)
	bump := func(date string, rev int64) {
		if cur, ok := latest[date]; !ok || rev > cur {
			latest[date] = rev
		}
	}
	for key, rec := range r.records {
		if rec.StoreID == storeID && !rec.IsProcessed {
			bump(rec.BusinessDate, r.revisions[key])
		}
	}
	prefix := storeID + "|"
	for key, rev := range r.stale {
		if strings.HasPrefix(key, prefix) {
			bump(strings.TrimPrefix(key, prefix), rev)
		}
	}
	out := make([]externalorder.PendingDate, 0, len(latest))
	for date, rev := range latest {
		out = append(out, externalorder.PendingDate{Date: date, Revision: rev})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (r *RecordRepository) MarkProcessed(_ context.Context, storeID, date string, throughRevision int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, rec := range r.records {
		if rec.StoreID == storeID && rec.BusinessDate == date && !rec.IsProcessed && r.revisions[k] <= throughRevision {
			rec.IsProcessed = true
			r.records[k] = rec
			n++
		}
	}
	staleKey := storeID + "|" + date
	if rev, ok := r.stale[staleKey]; ok && rev <= throughRevision {
		delete(r.stale, staleKey)
		n++
	}
	return n, nil
}
