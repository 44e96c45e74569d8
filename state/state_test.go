package state

import (
	"errors"
	"testing"
	"time"

	badger "github.com/dgraph-io/badger/v3"
	"github.com/mguentner/mailtoken/test"
)

func newTestState(t *testing.T) *State {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return &State{
		DB:        db,
		Retention: time.Hour,
	}
}

func TestNewState(t *testing.T) {
	state, err := NewState(test.DefaultConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer state.Close()
	if state.Retention != time.Hour {
		t.Errorf("Expected the retention from the config, got %v", state.Retention)
	}
}

func TestRecordToken(t *testing.T) {
	state := newTestState(t)
	keys, err := state.AllKeys()
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 0 {
		t.Error("Expected the state to be empty")
	}
	err = state.Record("1234", StatusPending)
	if err != nil {
		t.Fatal(err)
	}
	keys, err = state.AllKeys()
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 1 {
		t.Fatal("Expected the state to contain exactly one key")
	}
	if string(keys[0]) == "1234" {
		t.Error("Expected the token not to be stored verbatim")
	}
	status, err := state.StatusOf("1234")
	if err != nil {
		t.Fatal(err)
	}
	if status != StatusPending {
		t.Fatalf("Expected %s got %s", StatusPending, status)
	}
}

func TestTransitions(t *testing.T) {
	state := newTestState(t)
	if err := state.Record("1234", StatusPending); err != nil {
		t.Fatal(err)
	}
	if err := state.Record("1234", StatusRedeemed); err != nil {
		t.Fatal(err)
	}
	err := state.Record("1234", StatusExpired)
	var invalid *InvalidTransition
	if !errors.As(err, &invalid) {
		t.Fatalf("Expected an InvalidTransition, got %v", err)
	}
	status, err := state.StatusOf("1234")
	if err != nil {
		t.Fatal(err)
	}
	if status != StatusRedeemed {
		t.Fatalf("Expected the terminal status to stick, got %s", status)
	}

	if err := state.Record("abcd", StatusPending); err != nil {
		t.Fatal(err)
	}
	if err := state.Record("abcd", StatusPending); err == nil {
		t.Fatal("Expected pending twice to be rejected")
	}
}

func TestStatusOfUnknownToken(t *testing.T) {
	state := newTestState(t)
	_, err := state.StatusOf("doesnotexist")
	var noSuchToken *NoSuchToken
	if !errors.As(err, &noSuchToken) {
		t.Fatalf("Expected NoSuchToken, got %v", err)
	}
}

func TestCounts(t *testing.T) {
	state := newTestState(t)
	for _, token := range []string{"a", "b", "c"} {
		if err := state.Record(token, StatusPending); err != nil {
			t.Fatal(err)
		}
	}
	if err := state.Record("a", StatusRedeemed); err != nil {
		t.Fatal(err)
	}
	if err := state.Record("b", StatusExpired); err != nil {
		t.Fatal(err)
	}
	counts, err := state.Counts()
	if err != nil {
		t.Fatal(err)
	}
	if counts[StatusPending] != 1 || counts[StatusRedeemed] != 1 || counts[StatusExpired] != 1 {
		t.Fatalf("Unexpected counts %v", counts)
	}
}

func TestRetention(t *testing.T) {
	state := newTestState(t)
	state.Retention = time.Second
	if err := state.Record("1234", StatusPending); err != nil {
		t.Fatal(err)
	}
	time.Sleep(1100 * time.Millisecond)
	_, err := state.StatusOf("1234")
	var noSuchToken *NoSuchToken
	if !errors.As(err, &noSuchToken) {
		t.Fatalf("Expected the entry to be gone after the retention period, got %v", err)
	}
}
