package store

import "errors"

var (
	ErrStoreNotFound = errors.New("store not found")
	ErrStoreInactive = errors.New("store is inactive")
)
