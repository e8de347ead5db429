package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cmlabs-hris/cast-backoffice/internal/domain/dailystat"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/externalorder"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/payslip"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/recalculation"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/wagestatus"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/cron"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/jwt"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/logger"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testWebhookSecret = "hook-secret"
	testCronSecret    = "cron-secret"
	testJWTSecret     = "test-secret-key-for-jwt"
)

type fakeRecalculation struct {
	recalculation.RecalculationService
	events  []recalculation.EventPayload
	manual  []recalculation.ManualRequest
	eventFn func(recalculation.EventPayload) (recalculation.EventResult, error)
}

func (f *fakeRecalculation) HandleEvent(_ context.Context, p recalculation.EventPayload) (recalculation.EventResult, error) {
	f.events = append(f.events, p)
	if f.eventFn != nil {
		return f.eventFn(p)
	}
	return recalculation.EventResult{Results: []recalculation.DateResult{{StoreID: "s1", Date: "2024-03-10", Success: true}}}, nil
}

func (f *fakeRecalculation) RunManual(_ context.Context, req recalculation.ManualRequest) (recalculation.ManualResult, error) {
	f.manual = append(f.manual, req)
	return recalculation.ManualResult{StoreID: req.StoreID, Succeeded: 1}, nil
}

type fakeRunner struct {
	ran     []string
	skipped bool
}

func (f *fakeRunner) Run(_ context.Context, name string) (cron.RunResult, error) {
	if name != cron.JobSyncBaseOrders && name != cron.JobRecalculateDailyStats && name != cron.JobEvaluateWageStatus {
		return cron.RunResult{}, cron.ErrUnknownJob
	}
	f.ran = append(f.ran, name)
	return cron.RunResult{Job: name, Skipped: f.skipped}, nil
}

type fakeDailyStat struct {
	dailystat.DailyStatService
	finalized   []dailystat.FinalizeRequest
	unfinalized []dailystat.FinalizeRequest
}

func (f *fakeDailyStat) Finalize(_ context.Context, req dailystat.FinalizeRequest) (dailystat.FinalizeResponse, error) {
	f.finalized = append(f.finalized, req)
	return dailystat.FinalizeResponse{StoreID: req.StoreID, Date: req.Date, Affected: 2}, nil
}

func (f *fakeDailyStat) Unfinalize(_ context.Context, req dailystat.FinalizeRequest) (dailystat.FinalizeResponse, error) {
	f.unfinalized = append(f.unfinalized, req)
	return dailystat.FinalizeResponse{StoreID: req.StoreID, Date: req.Date, Affected: 1}, nil
}

func (f *fakeDailyStat) List(_ context.Context, storeID, date string) (dailystat.ListResponse, error) {
	return dailystat.ListResponse{Stats: []dailystat.Stat{}, Items: []dailystat.Item{}}, nil
}

type fakePayslip struct {
	payslip.PayslipService
	calculated []string
	generated  []payslip.PeriodRequest
}

func (f *fakePayslip) Calculate(_ context.Context, storeID, castID string, year, month int) (payslip.Payslip, error) {
	f.calculated = append(f.calculated, storeID+"|"+castID)
	return payslip.Payslip{CastID: castID, StoreID: storeID, Year: year, Month: month}, nil
}

func (f *fakePayslip) Generate(_ context.Context, req payslip.PeriodRequest) (payslip.GenerateResponse, error) {
	if err := req.Validate(); err != nil {
		return payslip.GenerateResponse{}, err
	}
	f.generated = append(f.generated, req)
	return payslip.GenerateResponse{StoreID: req.StoreID, Year: req.Year, Month: req.Month, Generated: 3}, nil
}

func (f *fakePayslip) List(_ context.Context, req payslip.PeriodRequest) ([]payslip.Payslip, error) {
	return []payslip.Payslip{}, nil
}

type fakeWageStatus struct {
	wagestatus.WageStatusService
	calls []string
}

func (f *fakeWageStatus) EvaluateAll(context.Context) ([]wagestatus.StoreEvaluation, error) {
	f.calls = append(f.calls, "all")
	return []wagestatus.StoreEvaluation{}, nil
}

func (f *fakeWageStatus) EvaluateStore(_ context.Context, storeID string) (wagestatus.StoreEvaluation, error) {
	f.calls = append(f.calls, "store:"+storeID)
	return wagestatus.StoreEvaluation{StoreID: storeID}, nil
}

func (f *fakeWageStatus) SetLock(_ context.Context, castID string, req wagestatus.LockRequest) (wagestatus.Progress, error) {
	return wagestatus.Progress{}, wagestatus.ErrProgressNotFound
}

func (f *fakeWageStatus) ManualTransition(_ context.Context, castID string, req wagestatus.TransitionRequest) (wagestatus.Progress, error) {
	if err := req.Validate(); err != nil {
		return wagestatus.Progress{}, err
	}
	f.calls = append(f.calls, "transition:"+castID+":"+req.StatusID)
	return wagestatus.Progress{CastID: castID, StoreID: req.StoreID, StatusID: req.StatusID}, nil
}

type fakeSyncService struct {
	externalorder.SyncService
}

func (f *fakeSyncService) Connect(_ context.Context, req externalorder.ConnectRequest) (externalorder.Credential, error) {
	if err := req.Validate(); err != nil {
		return externalorder.Credential{}, err
	}
	return externalorder.Credential{StoreID: req.StoreID, AccessToken: "at-secret"}, nil
}

type fakeAuthorizer struct{}

func (fakeAuthorizer) AuthCodeURL(state string) string {
	return "https://market.example/oauth/authorize?state=" + state
}

type routerFixture struct {
	handler http.Handler
	jwt     jwt.Service
	recalc  *fakeRecalculation
	runner  *fakeRunner
	daily   *fakeDailyStat
	payslip *fakePayslip
	wage    *fakeWageStatus
}

func newRouterFixture() *routerFixture {
	f := &routerFixture{
		jwt:     jwt.NewJWTService(testJWTSecret, "1h"),
		recalc:  &fakeRecalculation{},
		runner:  &fakeRunner{},
		daily:   &fakeDailyStat{},
		payslip: &fakePayslip{},
		wage:    &fakeWageStatus{},
	}
	f.handler = NewRouter(logger.Discard(), f.jwt, RouterOptions{
		WebhookSecret: testWebhookSecret,
		CronSecret:    testCronSecret,
	}, Handlers{
		Recalculation: NewRecalculationHandler(f.recalc),
		Cron:          NewCronHandler(f.runner),
		DailyStat:     NewDailyStatHandler(f.daily),
		Payslip:       NewPayslipHandler(f.payslip),
		WageStatus:    NewWageStatusHandler(f.wage),
		Marketplace:   NewMarketplaceHandler(&fakeSyncService{}, fakeAuthorizer{}),
	})
	return f
}

func (f *routerFixture) do(t *testing.T, method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *routerFixture) adminToken(t *testing.T, admin bool) string {
	t.Helper()
	token, _, err := f.jwt.GenerateAccessToken("u-1", "ops@example.com", admin)
	require.NoError(t, err)
	return token
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestWebhook_RequiresSecret(t *testing.T) {
	f := newRouterFixture()
	payload := map[string]interface{}{"type": "INSERT", "table": "orders", "record": map[string]string{"store_id": "s1"}}

	rec := f.do(t, http.MethodPost, "/api/v1/webhooks/recalculate", "", payload)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/webhooks/recalculate", testCronSecret, payload)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, f.recalc.events)

	rec = f.do(t, http.MethodPost, "/api/v1/webhooks/recalculate", testWebhookSecret, payload)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, f.recalc.events, 1)
	assert.Equal(t, "orders", f.recalc.events[0].Table)

	var result recalculation.EventResult
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &result))
	assert.Len(t, result.Results, 1)
}

func TestWebhook_SkippedAndInvalid(t *testing.T) {
	f := newRouterFixture()

	f.recalc.eventFn = func(recalculation.EventPayload) (recalculation.EventResult, error) {
		return recalculation.EventResult{Skipped: true, Reason: "unsupported table casts"}, nil
	}
	rec := f.do(t, http.MethodPost, "/api/v1/webhooks/recalculate", testWebhookSecret,
		map[string]interface{}{"type": "UPDATE", "table": "casts", "record": map[string]string{}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Event skipped", decodeEnvelope(t, rec).Message)

	f.recalc.eventFn = func(recalculation.EventPayload) (recalculation.EventResult, error) {
		return recalculation.EventResult{}, validator.ValidationErrors{{Field: "type", Message: "must be INSERT, UPDATE or DELETE"}}
	}
	rec = f.do(t, http.MethodPost, "/api/v1/webhooks/recalculate", testWebhookSecret,
		map[string]interface{}{"type": "TRUNCATE", "table": "orders"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decodeEnvelope(t, rec).Error.Details, "type")

	rec = f.do(t, http.MethodPost, "/api/v1/webhooks/recalculate", testWebhookSecret, "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCron_RunsNamedJob(t *testing.T) {
	f := newRouterFixture()

	rec := f.do(t, http.MethodPost, "/api/v1/cron/recalculate-daily-stats", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/cron/recalculate-daily-stats", testCronSecret, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{cron.JobRecalculateDailyStats}, f.runner.ran)

	rec = f.do(t, http.MethodPost, "/api/v1/cron/drop-tables", testCronSecret, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	f.runner.skipped = true
	rec = f.do(t, http.MethodPost, "/api/v1/cron/sync-base-orders", testCronSecret, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "Job already running", env.Message)

	var result cron.RunResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.True(t, result.Skipped)
}

func TestAdmin_RequiresAdminToken(t *testing.T) {
	f := newRouterFixture()
	body := recalculation.ManualRequest{StoreID: "s1", Date: "2024-03-10"}

	rec := f.do(t, http.MethodPost, "/api/v1/admin/recalculate", "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/admin/recalculate", testCronSecret, body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/admin/recalculate", f.adminToken(t, false), body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, f.recalc.manual)

	rec = f.do(t, http.MethodPost, "/api/v1/admin/recalculate", f.adminToken(t, true), body)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, f.recalc.manual, 1)
	assert.Equal(t, "2024-03-10", f.recalc.manual[0].Date)
}

func TestAdmin_DailyStats(t *testing.T) {
	f := newRouterFixture()
	token := f.adminToken(t, true)

	rec := f.do(t, http.MethodPost, "/api/v1/admin/daily-stats/finalize", token,
		dailystat.FinalizeRequest{StoreID: "s1", Date: "2024-03-10", CastIDs: []string{"c1"}})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, f.daily.finalized, 1)
	assert.Equal(t, []string{"c1"}, f.daily.finalized[0].CastIDs)

	rec = f.do(t, http.MethodPost, "/api/v1/admin/daily-stats/unfinalize", token,
		dailystat.FinalizeRequest{StoreID: "s1", Date: "2024-03-10"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, f.daily.unfinalized, 1)

	rec = f.do(t, http.MethodGet, "/api/v1/admin/daily-stats?store_id=s1", token, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decodeEnvelope(t, rec).Error.Details, "date")

	rec = f.do(t, http.MethodGet, "/api/v1/admin/daily-stats?store_id=s1&date=2024-03-10", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdmin_Payslips(t *testing.T) {
	f := newRouterFixture()
	token := f.adminToken(t, true)

	rec := f.do(t, http.MethodGet, "/api/v1/admin/payslips?store_id=s1&year=2024&month=13", token, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decodeEnvelope(t, rec).Error.Details, "month")

	rec = f.do(t, http.MethodGet, "/api/v1/admin/payslips?store_id=s1&year=abc&month=3", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/admin/payslips?store_id=s1&year=2024&month=3", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/admin/payslips/c-9?store_id=s1&year=2024&month=3", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"s1|c-9"}, f.payslip.calculated)

	rec = f.do(t, http.MethodPost, "/api/v1/admin/payslips/generate", token,
		payslip.PeriodRequest{StoreID: "s1", Year: 2024, Month: 3})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, f.payslip.generated, 1)
	assert.Equal(t, 3, f.payslip.generated[0].Month)
}

func TestAdmin_WageStatus(t *testing.T) {
	f := newRouterFixture()
	token := f.adminToken(t, true)

	rec := f.do(t, http.MethodPost, "/api/v1/admin/wage-status/evaluate", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/admin/wage-status/evaluate", token, map[string]string{"store_id": "s1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"all", "store:s1"}, f.wage.calls)

	rec = f.do(t, http.MethodPut, "/api/v1/admin/wage-status/progress/c1/lock", token,
		wagestatus.LockRequest{StoreID: "s1", Locked: true})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/admin/wage-status/progress/c1/transition", token,
		wagestatus.TransitionRequest{StoreID: "s1", StatusID: "gold", Reason: "manager review"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Wage status updated", decodeEnvelope(t, rec).Message)
	assert.Equal(t, "transition:c1:gold", f.wage.calls[len(f.wage.calls)-1])
}

func TestAdmin_MarketplaceConnect(t *testing.T) {
	f := newRouterFixture()
	token := f.adminToken(t, true)

	rec := f.do(t, http.MethodPost, "/api/v1/admin/marketplace/connect", token,
		externalorder.ConnectRequest{StoreID: "s1", Code: "auth-code"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "at-secret")

	rec = f.do(t, http.MethodPost, "/api/v1/admin/marketplace/connect", token, externalorder.ConnectRequest{StoreID: "s1"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAdmin_MarketplaceAuthorizeURL(t *testing.T) {
	f := newRouterFixture()
	token := f.adminToken(t, true)

	rec := f.do(t, http.MethodGet, "/api/v1/admin/marketplace/authorize?store_id=s1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var data map[string]string
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &data))
	assert.Equal(t, "https://market.example/oauth/authorize?state=s1", data["url"])

	rec = f.do(t, http.MethodGet, "/api/v1/admin/marketplace/authorize", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	f := newRouterFixture()
	rec := f.do(t, http.MethodGet, "/api/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, decodeEnvelope(t, rec).Success)
}
