// Package backoff provides the retry delay schedule used between
// verification status checks.
package backoff

import (
	"fmt"
	"time"
)

// Policy maps a zero-based attempt index to the wait before that attempt.
// The schedule is an ordered table of delays; once the table is exhausted
// the last entry repeats for every further attempt.
type Policy struct {
	table []time.Duration
}

// New builds a Policy from an ordered delay table. The table must not be
// empty; the policy keeps its own copy.
func New(table ...time.Duration) Policy {
	if len(table) == 0 {
		panic("backoff: empty delay table")
	}
	cp := make([]time.Duration, len(table))
	copy(cp, table)
	return Policy{table: cp}
}

// DefaultAddress returns the address-check (KYA) schedule.
func DefaultAddress() Policy {
	return New(20*time.Second, 40*time.Second, 60*time.Second,
		300*time.Second, 1800*time.Second, 3600*time.Second)
}

// DefaultTransfer returns the transfer-check (KYT) schedule.
func DefaultTransfer() Policy {
	return New(60*time.Second, 60*time.Second, 60*time.Second,
		300*time.Second, 1800*time.Second, 3600*time.Second)
}

// Delay returns the wait before the given attempt. Indexes at or past the
// end of the table clamp to the last entry. A negative attempt is a
// programming error.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		panic(fmt.Sprintf("backoff: negative attempt index %d", attempt))
	}
	if attempt >= len(p.table) {
		return p.table[len(p.table)-1]
	}
	return p.table[attempt]
}

// Len returns the number of entries in the delay table.
func (p Policy) Len() int { return len(p.table) }

// Total returns the wall-clock budget consumed by maxAttempts polls, so a
// caller with an external deadline can size its context accordingly.
func (p Policy) Total(maxAttempts int) time.Duration {
	var sum time.Duration
	for i := 0; i < maxAttempts; i++ {
		sum += p.Delay(i)
	}
	return sum
}
