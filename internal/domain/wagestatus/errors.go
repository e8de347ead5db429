package wagestatus

import "errors"

var (
	ErrStatusNotFound   = errors.New("wage status not found")
	ErrProgressNotFound = errors.New("cast status progress not found")
	ErrNoStatuses       = errors.New("store has no wage statuses")
	ErrProgressLocked   = errors.New("cast status progress is locked")
)
