package engine

import (
	"context"
	"testing"
	"time"

	"github.com/antoniostano/fable/internal/game"
)

func TestCheckTimeoutSkipsStalledTurn(t *testing.T) {
	st := &fakeStore{}
	s := game.NewSessionState(testClock.Add(-25 * time.Hour))
	s.Join("Ava")
	s.Join("Bo")
	s.TurnIndex = 1 // Bo's turn, stalled for 25h
	if err := st.Save(context.Background(), s); err != nil {
		t.Fatalf("seed: %v", err)
	}

	nc := &fakeNarrator{}
	nt := &fakeNotifier{}
	e := newTestEngine(st, nc, nt)

	if err := e.CheckTimeout(context.Background()); err != nil {
		t.Fatalf("CheckTimeout() error = %v", err)
	}

	persisted := st.current(t)
	if persisted.TurnIndex != 0 {
		t.Fatalf("turn index = %d, want 0 (wrapped)", persisted.TurnIndex)
	}
	if persisted.Round != 2 {
		t.Fatalf("round = %d, want 2", persisted.Round)
	}
	if len(nt.skips) != 1 || nt.skips[0] != "Bo" {
		t.Fatalf("skip notifications = %v, want [Bo]", nt.skips)
	}
	if nc.calls != 0 {
		t.Fatalf("timeout resolution must never call the narrator")
	}
}

func TestCheckTimeoutBelowThresholdIsNoOp(t *testing.T) {
	st := &fakeStore{}
	s := game.NewSessionState(testClock.Add(-time.Hour))
	s.Join("Ava")
	s.Join("Bo")
	if err := st.Save(context.Background(), s); err != nil {
		t.Fatalf("seed: %v", err)
	}
	saves := st.saves

	nt := &fakeNotifier{}
	e := newTestEngine(st, &fakeNarrator{}, nt)
	if err := e.CheckTimeout(context.Background()); err != nil {
		t.Fatalf("CheckTimeout() error = %v", err)
	}
	if st.saves != saves {
		t.Fatalf("a fresh turn should not be persisted again")
	}
	if len(nt.skips) != 0 {
		t.Fatalf("no skip should be announced")
	}
}

func TestCheckTimeoutLoneParticipantRefreshesClock(t *testing.T) {
	st := &fakeStore{}
	s := game.NewSessionState(testClock.Add(-48 * time.Hour))
	s.Join("Ava")
	if err := st.Save(context.Background(), s); err != nil {
		t.Fatalf("seed: %v", err)
	}

	nt := &fakeNotifier{}
	e := newTestEngine(st, &fakeNarrator{}, nt)
	if err := e.CheckTimeout(context.Background()); err != nil {
		t.Fatalf("CheckTimeout() error = %v", err)
	}

	persisted := st.current(t)
	if !persisted.TurnStartedAt.Equal(testClock) {
		t.Fatalf("clock = %v, want refreshed to %v", persisted.TurnStartedAt, testClock)
	}
	if persisted.TurnIndex != 0 || persisted.Round != 1 {
		t.Fatalf("lone participant must not rotate: %+v", persisted)
	}
	if len(nt.skips) != 0 {
		t.Fatalf("no skip should be announced for a lone participant")
	}
}

func TestRunSupervisorStopsOnContextCancel(t *testing.T) {
	st := &fakeStore{}
	e := newTestEngine(st, &fakeNarrator{}, &fakeNotifier{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.RunSupervisor(ctx, 10*time.Millisecond)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("supervisor did not stop after cancel")
	}
}
