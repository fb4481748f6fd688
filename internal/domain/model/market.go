// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
)

// Side is the direction of a candidate position.
type Side string

// Supported sides.
const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// ParseSide normalizes s into a Side.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case SideLong:
		return SideLong, nil
	case SideShort:
		return SideShort, nil
	default:
		return "", fmt.Errorf("unknown side %q", s)
	}
}

// Sign returns +1 for LONG and -1 for SHORT.
func (s Side) Sign() float64 {
	if s == SideShort {
		return -1
	}
	return 1
}

// MidTick is one mid-price observation.
type MidTick struct {
	TS  int64   // epoch milliseconds
	Mid float64 // mid price
}

// Trade is one print on the trade tape.
type Trade struct {
	TS  int64   // epoch milliseconds
	Px  float64 // trade price
	USD float64 // notional in USD
}
