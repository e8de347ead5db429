package recalculation

import "context"

type RecalculationService interface {
	HandleEvent(ctx context.Context, payload EventPayload) (EventResult, error)
	RunScheduled(ctx context.Context) (ScheduledResult, error)
	RunManual(ctx context.Context, req ManualRequest) (ManualResult, error)
}
