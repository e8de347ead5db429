package externalorder

import "context"

type SyncService interface {
	// SyncAll reconciles every store with credentials. Store failures are
	// reported in the result, never returned as an error.
	SyncAll(ctx context.Context) (SyncResult, error)
	SyncStore(ctx context.Context, c Credential) StoreSyncResult
	Connect(ctx context.Context, req ConnectRequest) (Credential, error)
}
