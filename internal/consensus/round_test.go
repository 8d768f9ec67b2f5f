package consensus

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"

	"concordd/internal/crypto"
)

func peerID(b byte) crypto.AccountID {
	var a crypto.AccountID
	a[0] = b
	return a
}

func txHash(b byte) crypto.Hash256 {
	var h crypto.Hash256
	h[0] = b
	return h
}

func newTestRound(t *testing.T, mock *clock.Mock, trusted map[crypto.AccountID]bool) *Round {
	t.Helper()
	m := NewMetrics(prometheus.NewRegistry())
	return NewRound(DefaultConsensusParms(), mock, crypto.Hash256{}, mock.Now(), trusted, m)
}

func TestRoundConvergesWhenTrustedPeersAgree(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Unix(1_700_000_000, 0))

	p1, p2, p3 := peerID(1), peerID(2), peerID(3)
	trusted := map[crypto.AccountID]bool{p1: true, p2: true, p3: true}
	r := newTestRound(t, mock, trusted)

	h1, h2 := txHash(1), txHash(2)
	r.Propose([]crypto.Hash256{h1, h2}, mock.Now())

	disp := map[crypto.Hash256]bool{h1: true, h2: true}
	for _, id := range []crypto.AccountID{p1, p2, p3} {
		r.ReceiveProposal(Proposal{
			NodeID:      id,
			Disposition: disp,
			CloseTime:   mock.Now(),
			SigningTime: mock.Now(),
		})
	}

	mock.Add(3 * time.Second)
	if phase := r.Tick(mock.Now()); phase != PhaseEstablish {
		t.Fatalf("expected Establish after min-close elapsed, got %s", phase)
	}

	// Advance past AvMinConsensusTime with stable agreement.
	for i := 0; i < 6; i++ {
		mock.Add(1 * time.Second)
		r.Tick(mock.Now())
	}

	if phase := r.Phase(); phase != PhaseAccepted {
		t.Fatalf("expected Accepted once agreement is stable, got %s", phase)
	}

	accepted := r.AcceptedTxSet()
	if len(accepted) != 2 {
		t.Fatalf("expected 2 accepted transactions, got %d", len(accepted))
	}

	closeTime, agreed := r.CloseTimeResult()
	if !agreed {
		t.Fatalf("expected close-time agreement with unanimous votes")
	}
	if closeTime.IsZero() {
		t.Fatalf("expected a non-zero close time")
	}
}

func TestRoundExpiresWithoutConvergence(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Unix(1_700_000_000, 0))

	p1, p2, p3 := peerID(4), peerID(5), peerID(6)
	trusted := map[crypto.AccountID]bool{p1: true, p2: true, p3: true}
	r := newTestRound(t, mock, trusted)

	h1 := txHash(9)
	r.Propose([]crypto.Hash256{h1}, mock.Now())

	// Only one peer ever proposes, and it disagrees with us, so agreement
	// never reaches MinConsensusPct.
	r.ReceiveProposal(Proposal{
		NodeID:      p1,
		Disposition: map[crypto.Hash256]bool{},
		CloseTime:   mock.Now(),
		SigningTime: mock.Now(),
	})

	mock.Add(3 * time.Second)
	r.Tick(mock.Now())

	for i := 0; i < int(DefaultConsensusParms().LedgerMaxConsensus/time.Second)+2; i++ {
		mock.Add(1 * time.Second)
		r.Tick(mock.Now())
	}

	if phase := r.Phase(); phase != PhaseExpired {
		t.Fatalf("expected Expired after LedgerMaxConsensus without convergence, got %s", phase)
	}
}

func TestAvalancheThresholdSchedule(t *testing.T) {
	p := DefaultConsensusParms()
	cases := []struct {
		elapsed  time.Duration
		expected int
	}{
		{0, 50},
		{p.AvMinConsensusTime * time.Duration(p.AvMidConsensusTime) / 100, 65},
		{p.AvMinConsensusTime * time.Duration(p.AvLateConsensusTime) / 100, 70},
		{p.AvMinConsensusTime * time.Duration(p.AvStuckConsensusTime) / 100, 95},
	}
	for _, c := range cases {
		if got := p.avalancheThreshold(c.elapsed); got != c.expected {
			t.Fatalf("avalancheThreshold(%s) = %d, want %d", c.elapsed, got, c.expected)
		}
	}
}
