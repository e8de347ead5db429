package cast

import "errors"

var ErrCastNotFound = errors.New("cast not found")
