package externalsync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/cast-backoffice/internal/domain/cast"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/externalorder"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/product"
	"github.com/cmlabs-hris/cast-backoffice/internal/domain/store"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/businessday"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/marketplace"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	PageLimit       int
	MaxPages        int
	DetailBatchSize int
	LookbackDays    int
	MaxErrorSamples int
}

func DefaultOptions() Options {
	return Options{
		PageLimit:       100,
		MaxPages:        10,
		DetailBatchSize: 5,
		LookbackDays:    3,
		MaxErrorSamples: 5,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.PageLimit <= 0 {
		o.PageLimit = d.PageLimit
	}
	if o.MaxPages <= 0 {
		o.MaxPages = d.MaxPages
	}
	if o.DetailBatchSize <= 0 {
		o.DetailBatchSize = d.DetailBatchSize
	}
	if o.LookbackDays <= 0 {
		o.LookbackDays = d.LookbackDays
	}
	if o.MaxErrorSamples <= 0 {
		o.MaxErrorSamples = d.MaxErrorSamples
	}
	return o
}

type Repositories struct {
	Credentials externalorder.CredentialRepository
	Records     externalorder.RecordRepository
	Stores      store.StoreRepository
	Casts       cast.CastRepository
	Products    product.ProductRepository
}

type SyncServiceImpl struct {
	repos  Repositories
	client externalorder.MarketplaceClient
	calc   businessday.Calculator
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

func NewSyncService(
	repos Repositories,
	client externalorder.MarketplaceClient,
	calc businessday.Calculator,
	opts Options,
	logger *slog.Logger,
) *SyncServiceImpl {
	return &SyncServiceImpl{
		repos:  repos,
		client: client,
		calc:   calc,
		opts:   opts.withDefaults(),
		logger: logger,
		now:    time.Now,
	}
}

var _ externalorder.SyncService = (*SyncServiceImpl)(nil)

func (s *SyncServiceImpl) SetClock(now func() time.Time) {
	s.now = now
}

func (s *SyncServiceImpl) SyncAll(ctx context.Context) (externalorder.SyncResult, error) {
	creds, err := s.repos.Credentials.ListAll(ctx)
	if err != nil {
		return externalorder.SyncResult{}, fmt.Errorf("failed to list marketplace credentials: %w", err)
	}

	result := externalorder.SyncResult{Results: make([]externalorder.StoreSyncResult, 0, len(creds))}
	for _, c := range creds {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		res := s.syncIsolated(ctx, c)
		result.Results = append(result.Results, res)
		result.TotalImported += res.ImportedCount
		result.TotalErrors += res.ErrorCount
		if !res.Success {
			result.FailedStores++
		}
	}

	s.logger.Info("Marketplace sync completed",
		"stores", len(result.Results),
		"imported", result.TotalImported,
		"errors", result.TotalErrors,
		"failed_stores", result.FailedStores,
	)
	return result, nil
}

func (s *SyncServiceImpl) syncIsolated(ctx context.Context, c externalorder.Credential) (res externalorder.StoreSyncResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Marketplace sync panicked", "store_id", c.StoreID, "panic", r)
			res = externalorder.StoreSyncResult{StoreID: c.StoreID, Error: fmt.Sprintf("panic: %v", r)}
		}
	}()
	return s.SyncStore(ctx, c)
}

// SyncStore imports the lookback window of one store. Per item failures are
// counted and sampled; only credential and first page failures fail the store.
func (s *SyncServiceImpl) SyncStore(ctx context.Context, c externalorder.Credential) externalorder.StoreSyncResult {
	res := externalorder.StoreSyncResult{StoreID: c.StoreID}
	fail := func(err error) externalorder.StoreSyncResult {
		s.logger.Warn("Marketplace sync failed for store", "store_id", c.StoreID, "error", err)
		res.Success = false
		res.Error = err.Error()
		return res
	}

	st, err := s.repos.Stores.GetByID(ctx, c.StoreID)
	if err != nil {
		return fail(err)
	}
	accessToken, err := s.ensureToken(ctx, c)
	if err != nil {
		return fail(err)
	}

	now := s.now()
	summaries, err := s.listOrders(ctx, accessToken, now.AddDate(0, 0, -s.opts.LookbackDays), now, &res)
	if err != nil {
		return fail(err)
	}

	casts, err := s.repos.Casts.ListByStore(ctx, c.StoreID, true)
	if err != nil {
		return fail(fmt.Errorf("failed to load roster: %w", err))
	}
	roster := cast.NewRoster(casts)
	mappings, err := s.repos.Products.ListMappings(ctx, c.StoreID)
	if err != nil {
		return fail(fmt.Errorf("failed to load product mappings: %w", err))
	}

	var keys []string
	for _, o := range summaries {
		if o.Cancelled != nil && *o.Cancelled > 0 {
			continue
		}
		keys = append(keys, o.UniqueKey)
	}

	for start := 0; start < len(keys); start += s.opts.DetailBatchSize {
		end := start + s.opts.DetailBatchSize
		if end > len(keys) {
			end = len(keys)
		}
		details, errs := s.fetchDetails(ctx, accessToken, keys[start:end])
		for i, d := range details {
			if errs[i] != nil {
				s.recordError(&res, fmt.Sprintf("order %s: %v", keys[start+i], errs[i]))
				continue
			}
			s.importOrder(ctx, st, d, roster, mappings, &res)
		}
	}

	res.Success = true
	s.logger.Info("Marketplace store synced",
		"store_id", c.StoreID,
		"orders", len(keys),
		"imported", res.ImportedCount,
		"errors", res.ErrorCount,
	)
	return res
}

func (s *SyncServiceImpl) listOrders(ctx context.Context, accessToken string, from, to time.Time, res *externalorder.StoreSyncResult) ([]marketplace.OrderSummary, error) {
	var all []marketplace.OrderSummary
	for page := 0; page < s.opts.MaxPages; page++ {
		orders, err := s.client.ListOrders(ctx, accessToken, marketplace.ListOrdersParams{
			StartOrdered: from,
			EndOrdered:   to,
			Limit:        s.opts.PageLimit,
			Offset:       page * s.opts.PageLimit,
		})
		if err != nil {
			if page == 0 {
				return nil, fmt.Errorf("failed to list orders: %w", err)
			}
			s.recordError(res, fmt.Sprintf("orders page %d: %v", page, err))
			break
		}
		all = append(all, orders...)
		if len(orders) < s.opts.PageLimit {
			break
		}
	}
	return all, nil
}

// fetchDetails loads one batch concurrently. errs[i] belongs to keys[i].
func (s *SyncServiceImpl) fetchDetails(ctx context.Context, accessToken string, keys []string) ([]marketplace.OrderDetail, []error) {
	details := make([]marketplace.OrderDetail, len(keys))
	errs := make([]error, len(keys))

	var g errgroup.Group
	g.SetLimit(s.opts.DetailBatchSize)
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			d, err := s.client.GetOrderDetail(ctx, accessToken, key)
			details[i] = d
			errs[i] = err
			return nil
		})
	}
	_ = g.Wait()
	return details, errs
}

func (s *SyncServiceImpl) importOrder(ctx context.Context, st store.Store, d marketplace.OrderDetail, roster cast.Roster, mappings map[string]string, res *externalorder.StoreSyncResult) {
	if d.Cancelled != nil && *d.Cancelled > 0 {
		return
	}
	orderedAt := d.OrderedAt()
	businessDate := s.calc.Date(orderedAt, st.CutoffHour)

	for _, it := range d.OrderItems {
		rec := externalorder.Record{
			StoreID:         st.ID,
			ExternalOrderID: d.UniqueKey,
			ProductName:     it.Title,
			VariationName:   it.Variation,
			Quantity:        it.Amount,
			UnitPrice:       it.Price,
			OrderedAt:       orderedAt,
			BusinessDate:    businessDate,
		}
		if id, ok := roster.Lookup(it.Variation); ok {
			rec.CastID = &id
		}
		if id, ok := mappings[it.Title]; ok {
			rec.ProductID = &id
		}

		if err := s.repos.Records.Upsert(ctx, rec); err != nil {
			s.recordError(res, fmt.Sprintf("order %s item %s: %v", d.UniqueKey, it.Title, err))
			continue
		}
		res.ImportedCount++
	}
}

func (s *SyncServiceImpl) recordError(res *externalorder.StoreSyncResult, msg string) {
	res.ErrorCount++
	if len(res.ErrorSamples) < s.opts.MaxErrorSamples {
		res.ErrorSamples = append(res.ErrorSamples, msg)
	}
}

// ensureToken returns a usable access token. An expired token is refreshed
// only after re-reading the row, and the refreshed token is written back
// conditioned on the expiry that was read.
func (s *SyncServiceImpl) ensureToken(ctx context.Context, c externalorder.Credential) (string, error) {
	now := s.now()
	if !c.IsExpired(now) {
		return c.AccessToken, nil
	}

	latest, err := s.repos.Credentials.Get(ctx, c.StoreID)
	if err != nil {
		return "", fmt.Errorf("failed to reload credential: %w", err)
	}
	if !latest.IsExpired(now) {
		s.logger.Debug("Adopted token refreshed by another worker", "store_id", c.StoreID)
		return latest.AccessToken, nil
	}

	tok, err := s.client.RefreshToken(ctx, latest.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("%w: %w", externalorder.ErrTokenRefreshFailed, err)
	}

	updated, err := s.repos.Credentials.UpdateTokenIfUnchanged(ctx, c.StoreID, latest.TokenExpiresAt, tok)
	switch {
	case err != nil:
		s.logger.Warn("Failed to persist refreshed token", "store_id", c.StoreID, "error", err)
	case !updated:
		s.logger.Warn("Marketplace token conflict, using fetched token", "store_id", c.StoreID, "error", externalorder.ErrTokenConflict)
	}
	return tok.AccessToken, nil
}

// Connect exchanges an authorization code and stores the initial credential.
func (s *SyncServiceImpl) Connect(ctx context.Context, req externalorder.ConnectRequest) (externalorder.Credential, error) {
	if err := req.Validate(); err != nil {
		return externalorder.Credential{}, err
	}
	if _, err := s.repos.Stores.GetByID(ctx, req.StoreID); err != nil {
		return externalorder.Credential{}, err
	}

	tok, err := s.client.ExchangeCode(ctx, req.Code)
	if err != nil {
		return externalorder.Credential{}, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	cred := externalorder.Credential{
		StoreID:        req.StoreID,
		AccessToken:    tok.AccessToken,
		RefreshToken:   tok.RefreshToken,
		TokenExpiresAt: tok.ExpiresAt,
		UpdatedAt:      s.now(),
	}
	if err := s.repos.Credentials.Save(ctx, cred); err != nil {
		return externalorder.Credential{}, fmt.Errorf("failed to save credential: %w", err)
	}

	s.logger.Info("Marketplace connected", "store_id", req.StoreID)
	return cred, nil
}
