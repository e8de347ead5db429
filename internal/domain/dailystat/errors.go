package dailystat

import "errors"

var (
	ErrStatNotFound  = errors.New("daily stat not found")
	ErrStatFinalized = errors.New("daily stat is finalized")
)
