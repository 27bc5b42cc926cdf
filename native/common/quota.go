package common

import (
	"errors"
	"math"
)

var (
	ErrQuotaExceeded        = errors.New("quota: active proposal cap exceeded")
	ErrQuotaCounterOverflow = errors.New("quota: counter overflow")
	ErrQuotaUnderflow       = errors.New("quota: counter underflow")
)

// QuotaNow captures the current concurrency usage for an address.
type QuotaNow struct {
	ActiveCount uint64
}

// Quota defines the cross-proposal concurrency limit enforced per address.
// A zero MaxActive disables the check.
type Quota struct {
	MaxActive uint64
}

// CheckIncrement verifies that one more active backing fits within the quota
// and returns the updated counters when it does. The previous counters are
// returned unchanged on failure.
func CheckIncrement(q Quota, prev QuotaNow) (QuotaNow, error) {
	if prev.ActiveCount == math.MaxUint64 {
		return prev, ErrQuotaCounterOverflow
	}
	next := QuotaNow{ActiveCount: prev.ActiveCount + 1}
	if q.MaxActive > 0 && next.ActiveCount > q.MaxActive {
		return prev, ErrQuotaExceeded
	}
	return next, nil
}

// Decrement releases one active backing. Draining an already-empty counter is
// an underflow, never a silent wrap.
func Decrement(prev QuotaNow) (QuotaNow, error) {
	if prev.ActiveCount == 0 {
		return prev, ErrQuotaUnderflow
	}
	return QuotaNow{ActiveCount: prev.ActiveCount - 1}, nil
}
