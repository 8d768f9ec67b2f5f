package flow

import (
	"math/big"

	"concordd/internal/crypto"
)

// DefaultMaxDepth and DefaultMaxPaths are the pathfinder's bounds from
// spec.md §4.G.
const (
	DefaultMaxDepth = 7
	DefaultMaxPaths = 4
)

// Path is an ordered sequence of issues a payment strand passes through,
// starting at the source issue and ending at the destination issue.
type Path []IssueKey

// Pathfinder expands candidate payment routes breadth-first from a
// source issue to a destination issue (spec.md §4.G).
type Pathfinder struct {
	Source LiquiditySource
	// MaxDepth and MaxPaths default to DefaultMaxDepth/DefaultMaxPaths
	// when left zero.
	MaxDepth int
	MaxPaths int
}

type frontierEntry struct {
	path    Path
	account crypto.AccountID
}

// FindPaths expands breadth-first from srcIssue (held by srcAccount) to
// dstIssue (held by dstAccount), up to MaxDepth hops, and returns up to
// MaxPaths candidates ordered by rank's first-hop quality. The search does
// not weight issuers by how well connected they are or by whether they
// appear among srcAccount's trust lines.
func (pf *Pathfinder) FindPaths(srcAccount crypto.AccountID, srcIssue IssueKey, dstAccount crypto.AccountID, dstIssue IssueKey) ([]Path, error) {
	maxDepth := pf.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	maxPaths := pf.MaxPaths
	if maxPaths <= 0 {
		maxPaths = DefaultMaxPaths
	}

	var found []Path
	visited := map[IssueKey]bool{srcIssue: true}
	frontier := []frontierEntry{{path: Path{srcIssue}, account: srcAccount}}

	for depth := 0; depth < maxDepth && len(frontier) > 0 && len(found) < maxPaths*4; depth++ {
		var next []frontierEntry
		for _, f := range frontier {
			last := f.path[len(f.path)-1]
			if last.equal(dstIssue) {
				found = append(found, f.path)
				continue
			}
			for _, nbr := range pf.neighbors(f.account, last) {
				if visited[nbr] {
					continue
				}
				visited[nbr] = true
				p := append(Path{}, f.path...)
				p = append(p, nbr)
				next = append(next, frontierEntry{path: p, account: dstAccount})
			}
		}
		frontier = next
	}
	for _, f := range frontier {
		if f.path[len(f.path)-1].equal(dstIssue) {
			found = append(found, f.path)
		}
	}

	return pf.rank(found, maxPaths), nil
}

// neighbors returns every issue directly reachable from (account, issue)
// via a trust line or an order-book offer.
func (pf *Pathfinder) neighbors(account crypto.AccountID, issue IssueKey) []IssueKey {
	var out []IssueKey
	if lines, err := pf.Source.TrustLines(account, issue); err == nil {
		for _, l := range lines {
			out = append(out, l.Issue)
		}
	}
	if offers, err := pf.Source.OffersFrom(issue); err == nil {
		for _, o := range offers {
			out = append(out, o.Out)
		}
	}
	return out
}

// rank scores each candidate path by the quality of its first hop's best
// offer (a cheap proxy for "best achievable quality at a test amount")
// and returns the best maxPaths.
func (pf *Pathfinder) rank(paths []Path, maxPaths int) []Path {
	type scored struct {
		path    Path
		quality *big.Rat
	}
	var out []scored
	for _, p := range paths {
		q := big.NewRat(1, 1)
		if len(p) >= 2 {
			if offers, err := pf.Source.OrderBook(p[0], p[1]); err == nil && len(offers) > 0 {
				q = offers[0].quality()
			}
		}
		out = append(out, scored{path: p, quality: q})
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].quality.Cmp(out[j-1].quality) < 0; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if len(out) > maxPaths {
		out = out[:maxPaths]
	}
	result := make([]Path, len(out))
	for i, s := range out {
		result[i] = s.path
	}
	return result
}
