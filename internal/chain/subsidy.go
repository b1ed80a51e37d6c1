// Copyright (c) 2024 The phnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"math"

	"github.com/prasangapokharel/phnd/internal/money"
)

// RewardFloor is the minimum block reward the halving schedule ever
// produces; once the schedule would go below it, mining continues to
// pay this amount indefinitely rather than converging to zero.
const RewardFloor = 0.0001

// Params collects the chain-level constants that vary by deployment
// (mirroring chaincfg.Params' role for dcrd) but never vary once a chain
// has produced its genesis block.
type Params struct {
	// StartingReward is the block reward paid at height 1..HalvingInterval-1
	// (block 0's coinbase pays OwnerGenesisAmount instead).
	StartingReward money.Amount
	// HalvingInterval is the block-height delta between halvings. The
	// schedule is keyed strictly on height; it must never be keyed off
	// cumulative mined supply (see BlockReward's doc comment below).
	HalvingInterval uint64
	// MinTxFee floors the fee a user-sender transaction must carry.
	MinTxFee money.Amount
	// TotalSupply is the total issuance; 10% is minted to the owner in
	// the genesis coinbase.
	TotalSupply money.Amount
}

// DefaultParams returns the out-of-the-box constants a freshly
// initialized node uses absent configuration overrides.
func DefaultParams() Params {
	return Params{
		StartingReward:  money.NewFromFloat(50),
		HalvingInterval: 1_800_000,
		MinTxFee:        money.NewFromFloat(0.01),
		TotalSupply:     money.NewFromFloat(1_000_000_000),
	}
}

// BlockReward computes the height-keyed halving schedule:
// StartingReward / 2^(height/HalvingInterval), floored at RewardFloor.
//
// The source this protocol was distilled from also contains a second,
// incompatible variant that keys halvings off cumulative mined supply
// rather than height. That variant is NOT reproduced here: mixing the
// two makes P3 (coinbase amount) version-dependent, so exactly one must
// be chosen. This package always uses height.
func (p Params) BlockReward(height uint64) money.Amount {
	halvings := height / p.HalvingInterval
	reward := p.StartingReward.ToFloat()
	if halvings > 0 {
		// 63 halvings already take any realistic reward far below
		// RewardFloor; cap the exponent so a pathological height value
		// still yields a finite divisor.
		if halvings > 63 {
			halvings = 63
		}
		reward = reward / math.Pow(2, float64(halvings))
	}
	if reward < RewardFloor {
		reward = RewardFloor
	}
	return money.NewFromFloat(reward)
}

// OwnerGenesisAmount is the one-time 10%-of-supply coinbase paid to the
// node owner address in block 0.
func (p Params) OwnerGenesisAmount() money.Amount {
	return money.NewFromFloat(p.TotalSupply.ToFloat() * 0.10)
}
