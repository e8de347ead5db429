package compensation

import "context"

type SettingRepository interface {
	// ListByCast returns the cast's active settings, targeted ones first.
	ListByCast(ctx context.Context, castID, storeID string) ([]Setting, error)
	ListActiveByStore(ctx context.Context, storeID string) ([]Setting, error)
	// UpdateActiveStatus mirrors a tier change into every active setting of the cast.
	UpdateActiveStatus(ctx context.Context, castID, storeID, statusID string) error
}
