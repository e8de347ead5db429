package recalculation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/cast-backoffice/internal/domain/dailystat"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/externalorder"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/order"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/recalculation"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/store"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/businessday"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/logger"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/validator"
	"github.com/cmlabs-hris/cast-backoffice/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDailyStats struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
	panic map[string]bool
}

func newFakeDailyStats() *fakeDailyStats {
	return &fakeDailyStats{fail: make(map[string]error), panic: make(map[string]bool)}
}

func (f *fakeDailyStats) Recalculate(_ context.Context, storeID, date string) (dailystat.RecalculateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := storeID + "|" + date
	f.calls = append(f.calls, key)
	if f.panic[key] {
		panic("boom")
	}
	if err := f.fail[key]; err != nil {
		return dailystat.RecalculateResult{}, err
	}
	return dailystat.RecalculateResult{StoreID: storeID, Date: date, CastsProcessed: 2, ItemsProcessed: 3}, nil
}

func (f *fakeDailyStats) Finalize(context.Context, dailystat.FinalizeRequest) (dailystat.FinalizeResponse, error) {
	return dailystat.FinalizeResponse{}, nil
}

func (f *fakeDailyStats) Unfinalize(context.Context, dailystat.FinalizeRequest) (dailystat.FinalizeResponse, error) {
	return dailystat.FinalizeResponse{}, nil
}

func (f *fakeDailyStats) List(context.Context, string, string) (dailystat.ListResponse, error) {
	return dailystat.ListResponse{}, nil
}

type fixture struct {
	svc     *RecalculationServiceImpl
	stats   *fakeDailyStats
	records *memory.RecordRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{stats: newFakeDailyStats(), records: memory.NewRecordRepository()}
	stores := memory.NewStoreRepository(
		store.Store{ID: "s1", IsActive: true, CutoffHour: 6},
		store.Store{ID: "s2", IsActive: true, CutoffHour: 5},
		store.Store{ID: "s3", IsActive: false, CutoffHour: 6},
	)
	orders := memory.NewOrderRepository(
		order.Order{ID: "o1", StoreID: "s1", CheckoutAt: time.Date(2024, 3, 11, 3, 0, 0, 0, time.UTC)},
	)
	f.svc = NewRecalculationService(f.stats, stores, orders, f.records, businessday.NewCalculator(time.UTC), logger.Discard())
	f.svc.SetClock(func() time.Time { return time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC) })
	return f
}

func event(t *testing.T, typ, table string, record, old interface{}) recalculation.EventPayload {
	t.Helper()
	p := recalculation.EventPayload{Type: typ, Table: table}
	if record != nil {
		raw, err := json.Marshal(record)
		require.NoError(t, err)
		p.Record = raw
	}
	if old != nil {
		raw, err := json.Marshal(old)
		require.NoError(t, err)
		p.OldRecord = raw
	}
	return p
}

func TestHandleEvent_OrderUsesBusinessDayCutoff(t *testing.T) {
	f := newFixture(t)
	p := event(t, "INSERT", "orders", map[string]string{"store_id": "s1", "checkout_at": "2024-03-11T05:59:59Z"}, nil)

	res, err := f.svc.HandleEvent(context.Background(), p)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "2024-03-10", res.Results[0].Date)
	assert.True(t, res.Results[0].Success)
	assert.Equal(t, 2, res.Results[0].CastsProcessed)
	assert.Equal(t, 3, res.Results[0].ItemsProcessed)
}

func TestHandleEvent_MovedOrderRecomputesBothDays(t *testing.T) {
	f := newFixture(t)
	p := event(t, "UPDATE", "orders",
		map[string]string{"store_id": "s1", "checkout_at": "2024-03-11T07:00:00Z"},
		map[string]string{"store_id": "s1", "checkout_at": "2024-03-11T02:00:00Z"},
	)

	res, err := f.svc.HandleEvent(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, res.Results, 2)
	assert.Equal(t, []string{"s1|2024-03-11", "s1|2024-03-10"}, f.stats.calls)
}

func TestHandleEvent_SameDayIsDeduplicated(t *testing.T) {
	f := newFixture(t)
	p := event(t, "UPDATE", "orders",
		map[string]string{"store_id": "s1", "checkout_at": "2024-03-10T23:00:00Z"},
		map[string]string{"store_id": "s1", "checkout_at": "2024-03-10T21:00:00Z"},
	)

	res, err := f.svc.HandleEvent(context.Background(), p)
	require.NoError(t, err)
	assert.Len(t, res.Results, 1)
	assert.Len(t, f.stats.calls, 1)
}

func TestHandleEvent_AttendanceUsesDateField(t *testing.T) {
	f := newFixture(t)
	p := event(t, "DELETE", "attendances", nil, map[string]string{"store_id": "s2", "date": "2024-03-09T00:00:00"})

	res, err := f.svc.HandleEvent(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "2024-03-09", res.Results[0].Date)
	assert.Equal(t, "s2", res.Results[0].StoreID)
}

func TestHandleEvent_OrderItemResolvesParentOrder(t *testing.T) {
	f := newFixture(t)
	p := event(t, "INSERT", "order_items", map[string]string{"order_id": "o1"}, nil)

	res, err := f.svc.HandleEvent(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "s1", res.Results[0].StoreID)
	assert.Equal(t, "2024-03-10", res.Results[0].Date)
}

func TestHandleEvent_Skips(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.HandleEvent(ctx, event(t, "INSERT", "products", map[string]string{"id": "p1"}, nil))
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Contains(t, res.Reason, "products")

	res, err = f.svc.HandleEvent(ctx, event(t, "INSERT", "order_items", map[string]string{"order_id": "gone"}, nil))
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Contains(t, res.Reason, order.ErrOrderNotFound.Error())

	res, err = f.svc.HandleEvent(ctx, event(t, "INSERT", "orders", map[string]string{"store_id": "s1"}, nil))
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Empty(t, f.stats.calls)
}

func TestHandleEvent_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.HandleEvent(ctx, recalculation.EventPayload{Type: "TRUNCATE", Table: "orders"})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 2)

	_, err = f.svc.HandleEvent(ctx, recalculation.EventPayload{Type: "INSERT", Table: "orders", Record: json.RawMessage(`[1,2]`)})
	assert.ErrorAs(t, err, &verrs)
}

func TestHandleEvent_FailureIsReportedPerDate(t *testing.T) {
	f := newFixture(t)
	f.stats.fail["s1|2024-03-10"] = errors.New("db down")

	res, err := f.svc.HandleEvent(context.Background(), event(t, "INSERT", "orders", map[string]string{"store_id": "s1", "checkout_at": "2024-03-10T20:00:00Z"}, nil))
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.False(t, res.Results[0].Success)
	assert.Equal(t, "db down", res.Results[0].Error)
}

func TestRunScheduled_TodayPlusPendingMarketplaceDates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, rec := range []externalorder.Record{
		{StoreID: "s1", ExternalOrderID: "e1", ProductName: "Photo", BusinessDate: "2024-03-08"},
		{StoreID: "s1", ExternalOrderID: "e2", ProductName: "Photo", BusinessDate: "2024-03-11"},
		{StoreID: "s2", ExternalOrderID: "e3", ProductName: "Photo", BusinessDate: "2024-03-09"},
	} {
		require.NoError(t, f.records.Upsert(ctx, rec))
	}
	f.stats.fail["s2|2024-03-09"] = errors.New("db down")

	res, err := f.svc.RunScheduled(ctx)
	require.NoError(t, err)
	require.Len(t, res.Stores, 2, "inactive stores are not scheduled")

	s1 := res.Stores[0]
	require.Len(t, s1.Dates, 2)
	assert.Equal(t, "2024-03-08", s1.Dates[0].Date)
	assert.Equal(t, "2024-03-11", s1.Dates[1].Date)
	assert.Equal(t, int64(2), s1.ExternalProcessed)

	s2 := res.Stores[1]
	require.Len(t, s2.Dates, 2)
	assert.False(t, s2.Dates[0].Success)
	assert.True(t, s2.Dates[1].Success, "a failed date does not stop the store")
	assert.Equal(t, int64(0), s2.ExternalProcessed)

	pending, err := f.records.ListUnprocessedDates(ctx, "s2")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "2024-03-09", pending[0].Date, "failed dates stay pending")

	pending, err = f.records.ListUnprocessedDates(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

// syncDuringRecalculate upserts a marketplace record the first time a date is
// recomputed, as a concurrent sync would.
type syncDuringRecalculate struct {
	*fakeDailyStats
	records *memory.RecordRepository
	date    string
	rec     externalorder.Record
	done    bool
}

func (s *syncDuringRecalculate) Recalculate(ctx context.Context, storeID, date string) (dailystat.RecalculateResult, error) {
	res, err := s.fakeDailyStats.Recalculate(ctx, storeID, date)
	if date == s.date && !s.done {
		s.done = true
		if uerr := s.records.Upsert(ctx, s.rec); uerr != nil {
			return res, uerr
		}
	}
	return res, err
}

func TestRunScheduled_ChangesDuringRecalculationStayPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.records.Upsert(ctx, externalorder.Record{StoreID: "s1", ExternalOrderID: "e1", ProductName: "Photo", BusinessDate: "2024-03-08"}))

	f.svc.dailyStats = &syncDuringRecalculate{
		fakeDailyStats: f.stats,
		records:        f.records,
		date:           "2024-03-08",
		rec:            externalorder.Record{StoreID: "s1", ExternalOrderID: "e9", ProductName: "Cheki", Quantity: 2, BusinessDate: "2024-03-08"},
	}

	res, err := f.svc.RunScheduled(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Stores[0].ExternalProcessed)

	pending, err := f.records.ListUnprocessedDates(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "2024-03-08", pending[0].Date)

	f.stats.calls = nil
	_, err = f.svc.RunScheduled(ctx)
	require.NoError(t, err)
	assert.Contains(t, f.stats.calls, "s1|2024-03-08")

	pending, err = f.records.ListUnprocessedDates(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRunScheduled_RecomputesDateARecordLeft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := externalorder.Record{StoreID: "s1", ExternalOrderID: "e1", ProductName: "Photo", BusinessDate: "2024-03-07"}
	require.NoError(t, f.records.Upsert(ctx, rec))
	_, err := f.svc.RunScheduled(ctx)
	require.NoError(t, err)

	// re-sync moved the order to another business day
	rec.BusinessDate = "2024-03-09"
	require.NoError(t, f.records.Upsert(ctx, rec))

	pending, err := f.records.ListUnprocessedDates(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "2024-03-07", pending[0].Date)
	assert.Equal(t, "2024-03-09", pending[1].Date)

	f.stats.calls = nil
	res, err := f.svc.RunScheduled(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1|2024-03-07", "s1|2024-03-09", "s1|2024-03-11"}, f.stats.calls[:3])
	assert.Equal(t, int64(2), res.Stores[0].ExternalProcessed)

	pending, err = f.records.ListUnprocessedDates(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRunScheduled_RecoversPanics(t *testing.T) {
	f := newFixture(t)
	f.stats.panic["s1|2024-03-11"] = true

	res, err := f.svc.RunScheduled(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Stores, 2)
	assert.Contains(t, res.Stores[0].Dates[0].Error, "panic")
	assert.True(t, res.Stores[1].Dates[0].Success)
}

func TestRunManual_Range(t *testing.T) {
	f := newFixture(t)
	f.stats.fail["s1|2024-03-02"] = errors.New("db down")

	res, err := f.svc.RunManual(context.Background(), recalculation.ManualRequest{StoreID: "s1", DateFrom: "2024-03-01", DateTo: "2024-03-03"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Results, 3)
	assert.Equal(t, "2024-03-02", res.Results[1].Date)
	assert.Equal(t, "db down", res.Results[1].Error)
}

func TestRunManual_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RunManual(ctx, recalculation.ManualRequest{StoreID: "s1", DateFrom: "2024-01-01", DateTo: "2024-03-31"})
	var verrs validator.ValidationErrors
	assert.ErrorAs(t, err, &verrs, "ranges longer than the cap are rejected")

	_, err = f.svc.RunManual(ctx, recalculation.ManualRequest{StoreID: "nope", Date: "2024-03-01"})
	assert.ErrorIs(t, err, store.ErrStoreNotFound)
	assert.Empty(t, f.stats.calls)
}
