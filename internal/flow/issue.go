// Package flow implements payment pathfinding and the Flow liquidity
// engine (spec.md §4.G): a bounded breadth-first pathfinder over the
// order-book graph, and a step-based reverse/forward execution pass that
// realizes a payment against actual liquidity. Grounded on the teacher's
// router-over-pools idiom in core/amm.go (graph of edges keyed by token,
// priority search for the best price) generalized from a Dijkstra
// best-price search over constant-product pools to a bounded-depth BFS
// over an order-book + trust-line graph, and supplemented from
// original_source's app/paths (reverse/forward two-pass liquidity
// solving) and Flow.h (step list construction), which the teacher has no
// equivalent for.
package flow

import (
	"concordd/internal/amount"
	"concordd/internal/crypto"
)

// IssueKey identifies a graph node: a currency as held by a specific
// issuer (or the native currency, Issuer zeroed) — spec.md §4.G's
// "(AccountID, Currency)" node, projected onto the issue half since every
// step already carries the account separately.
type IssueKey struct {
	Currency amount.Currency
	Issuer   crypto.AccountID
}

// NativeIssue is the XRP-equivalent drops issue: no issuer.
func NativeIssue() IssueKey { return IssueKey{} }

func (k IssueKey) isNative() bool { return k.Currency.IsNative() }

func (k IssueKey) equal(o IssueKey) bool {
	return k.Currency == o.Currency && k.Issuer == o.Issuer
}
