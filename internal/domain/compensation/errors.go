package compensation

import "errors"

var (
	ErrSettingNotFound   = errors.New("compensation setting not found")
	ErrNoEnabledFormula  = errors.New("compensation setting has no enabled formula")
	ErrUnknownRewardKind = errors.New("unknown reward kind")
)
