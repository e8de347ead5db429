package externalorder

import (
	"context"
	"time"

	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/marketplace"
)

type CredentialRepository interface {
	ListAll(ctx context.Context) ([]Credential, error)
	Get(ctx context.Context, storeID string) (Credential, error)
	Save(ctx context.Context, c Credential) error
	// UpdateTokenIfUnchanged writes tok only while token_expires_at still equals
	// expectedExpiry and reports whether a row was updated.
	UpdateTokenIfUnchanged(ctx context.Context, storeID string, expectedExpiry time.Time, tok marketplace.Token) (bool, error)
}

type RecordRepository interface {
	// Upsert inserts or refreshes a record. A changed record is marked unprocessed again.
	Upsert(ctx context.Context, r Record) error
	ListByBusinessDate(ctx context.Context, storeID, date string) ([]Record, error)
	// ListUnprocessedDates returns the business dates with changes not yet
	// folded into daily stats, including dates a record moved away from.
	ListUnprocessedDates(ctx context.Context, storeID string) ([]PendingDate, error)
	// MarkProcessed clears the pending changes of date up to and including
	// throughRevision. Later changes stay pending.
	MarkProcessed(ctx context.Context, storeID, date string, throughRevision int64) (int64, error)
}

// MarketplaceClient is the subset of the marketplace API the reconciler needs.
type MarketplaceClient interface {
	ExchangeCode(ctx context.Context, code string) (marketplace.Token, error)
	RefreshToken(ctx context.Context, refreshToken string) (marketplace.Token, error)
	ListOrders(ctx context.Context, accessToken string, params marketplace.ListOrdersParams) ([]marketplace.OrderSummary, error)
	GetOrderDetail(ctx context.Context, accessToken string, uniqueKey string) (marketplace.OrderDetail, error)
}
