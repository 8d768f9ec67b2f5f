package app

import (
	"testing"

	"github.com/benbjohnson/clock"

	"concordd/internal/crypto"
	"concordd/internal/jobqueue"
	"concordd/pkg/config"
)

func TestNewWiresDefaultApplication(t *testing.T) {
	member := crypto.Base58CheckEncode(crypto.VersionAccountID, make([]byte, 20))
	cfg := Config{
		Source:     config.Default(),
		Clock:      clock.NewMock(),
		UNLMembers: []string{member},
	}
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if a.Jobs == nil || a.Timekeeper == nil || a.Store == nil || a.Validators == nil || a.UNL == nil {
		t.Fatalf("expected all core components wired, got %+v", a)
	}
	if a.UNL.Size() != 1 {
		t.Fatalf("expected 1 UNL member, got %d", a.UNL.Size())
	}

	a.Start(1)
	defer a.Stop()

	done := make(chan struct{})
	job := jobqueue.Job{Type: jobqueue.JobNSWrite, Run: func() { close(done) }}
	if err := a.Jobs.Submit(job); err != nil {
		t.Fatalf("submit: %v", err)
	}
	<-done
}

func TestNewRejectsMalformedUNLMember(t *testing.T) {
	cfg := Config{Source: config.Default(), UNLMembers: []string{"not-base58check"}}
	if _, err := New(cfg); err == nil {
		t.Fatalf("expected an error for a malformed UNL member")
	}
}
