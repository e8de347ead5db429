package compensation

import (
	"encoding/json"
	"fmt"
)

type RewardKind string

const (
	RewardFixed            RewardKind = "fixed"
	RewardAttendanceTiered RewardKind = "attendance_tiered"
	RewardSalesTiered      RewardKind = "sales_tiered"
	RewardNominationTiered RewardKind = "nomination_tiered"
)

// Reward is the closed set of fixed-amount components a formula can carry.
// Implementations are FixedReward, AttendanceTieredReward, SalesTieredReward
// and NominationTieredReward.
type Reward interface {
	Kind() RewardKind
	isReward()
}

// AmountTier pays Amount when a metric is within [Min, Max]. Max 0 means unbounded.
type AmountTier struct {
	Min    int64 `json:"min"`
	Max    int64 `json:"max"`
	Amount int64 `json:"amount"`
}

// MatchAmount returns the amount of the first tier containing v, or 0.
func MatchAmount(tiers []AmountTier, v int64) int64 {
	for _, t := range tiers {
		if v >= t.Min && (t.Max == 0 || v <= t.Max) {
			return t.Amount
		}
	}
	return 0
}

type FixedReward struct {
	Amount int64 `json:"amount"`
}

type AttendanceTieredReward struct {
	Tiers []AmountTier `json:"tiers"`
}

type SalesTieredReward struct {
	Tiers       []AmountTier `json:"tiers"`
	SalesTarget SalesTarget  `json:"sales_target"`
}

type NominationTieredReward struct {
	Tiers []AmountTier `json:"tiers"`
}

func (FixedReward) Kind() RewardKind { return RewardFixed }
func (AttendanceTieredReward) Kind() RewardKind { return RewardAttendanceTiered }
func (SalesTieredReward) Kind() RewardKind { return RewardSalesTiered }
func (NominationTieredReward) Kind() RewardKind { return RewardNominationTiered }

func (FixedReward) isReward() {}
func (AttendanceTieredReward) isReward() {}
func (SalesTieredReward) isReward() {}
func (NominationTieredReward) isReward() {}

type rewardEnvelope struct {
	Kind RewardKind `json:"kind"`
}

// UnmarshalReward decodes {"kind": ..., ...} into the matching variant.
func UnmarshalReward(data []byte) (Reward, error) {
	var env rewardEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	switch env.Kind {
	case RewardFixed:
		var r FixedReward
		err := json.Unmarshal(data, &r)
		return r, err
	case RewardAttendanceTiered:
		var r AttendanceTieredReward
		err := json.Unmarshal(data, &r)
		return r, err
	case RewardSalesTiered:
		var r SalesTieredReward
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, err
		}
		if r.SalesTarget == "" {
			r.SalesTarget = SalesTargetTotal
		}
		return r, nil
	case RewardNominationTiered:
		var r NominationTieredReward
		err := json.Unmarshal(data, &r)
		return r, err
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownRewardKind, env.Kind)
}

// MarshalReward encodes r with its kind discriminator.
func MarshalReward(r Reward) ([]byte, error) {
	switch v := r.(type) {
	case FixedReward:
		return json.Marshal(struct {
			Kind RewardKind `json:"kind"`
			FixedReward
		}{v.Kind(), v})
	case AttendanceTieredReward:
		return json.Marshal(struct {
			Kind RewardKind `json:"kind"`
			AttendanceTieredReward
		}{v.Kind(), v})
	case SalesTieredReward:
		return json.Marshal(struct {
			Kind RewardKind `json:"kind"`
			SalesTieredReward
		}{v.Kind(), v})
	case NominationTieredReward:
		return json.Marshal(struct {
			Kind RewardKind `json:"kind"`
			NominationTieredReward
		}{v.Kind(), v})
	}
	return nil, fmt.Errorf("%w: %T", ErrUnknownRewardKind, r)
}
