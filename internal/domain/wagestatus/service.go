package wagestatus

import "context"

type WageStatusService interface {
	EvaluateCast(ctx context.Context, storeID, castID string) (EvaluationResult, error)
	EvaluateStore(ctx context.Context, storeID string) (StoreEvaluation, error)
	EvaluateAll(ctx context.Context) ([]StoreEvaluation, error)
	SetLock(ctx context.Context, castID string, req LockRequest) (Progress, error)
	ManualTransition(ctx context.Context, castID string, req TransitionRequest) (Progress, error)
}
