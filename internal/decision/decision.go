// Package decision provides the pluggable risk decision strategy used by
// the verification simulator.
//
// The decision function answers one question — "is this subject risky?" —
// and is deliberately decoupled from the verification protocol: it is
// evaluated lazily when alerts are fetched, never at registration time, so
// its answer may change between the two.
package decision

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

// Params carries the subject of one risk decision. It is a closed record:
// the protocol layer fills exactly the fields that exist at each phase, and
// a missing field is a zero value, never a silently absent key.
type Params struct {
	// RequestType is "kya" for address checks, "kyt" for transfer checks.
	RequestType string

	TargetAddress string // address checks
	FromAddress   string // transfer checks
	ToAddress     string // transfer checks

	TokenName   string
	TokenAmount decimal.Decimal
	Network     string
	ChainID     int64
	TxHash      string
}

// Addresses returns every non-empty subject address, deduplicated, in
// from/to/target order.
func (p Params) Addresses() []string {
	var out []string
	seen := make(map[string]struct{}, 3)
	for _, addr := range []string{p.FromAddress, p.ToAddress, p.TargetAddress} {
		if addr == "" {
			continue
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out
}

// Outcome is the decision function's answer.
type Outcome struct {
	InRisk bool
	Detail string
}

// Decider decides whether the given subject is risky. Implementations must
// be safe for concurrent use; every fetch-time evaluation goes through one.
type Decider interface {
	Decide(ctx context.Context, p Params) (Outcome, error)
}

// DeciderFunc adapts a function to the Decider interface.
type DeciderFunc func(ctx context.Context, p Params) (Outcome, error)

func (f DeciderFunc) Decide(ctx context.Context, p Params) (Outcome, error) {
	return f(ctx, p)
}

// stripHexPrefix removes a leading "0x" so prefix rules look at the address
// body.
func stripHexPrefix(addr string) string {
	return strings.TrimPrefix(addr, "0x")
}
