package recalculation

import "errors"

var ErrMissingBusinessDate = errors.New("event record has no usable date")
