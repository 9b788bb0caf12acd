package sqlitestore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/baasic/baasic-go/dto"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "items.db"), WithPollInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_Golden(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	if _, ok, err := s.GetItem("missing"); err != nil || ok {
		t.Fatalf("GetItem(missing) = ok %v, err %v, want absent", ok, err)
	}

	if err := s.SetItem("a", "1"); err != nil {
		t.Fatalf("SetItem() error = %v", err)
	}
	if err := s.SetItem("a", "2"); err != nil {
		t.Fatalf("SetItem() overwrite error = %v", err)
	}

	value, ok, err := s.GetItem("a")
	if err != nil || !ok || value != "2" {
		t.Fatalf("GetItem(a) = %q, %v, %v, want \"2\"", value, ok, err)
	}

	if err := s.RemoveItem("a"); err != nil {
		t.Fatalf("RemoveItem() error = %v", err)
	}
	if _, ok, _ := s.GetItem("a"); ok {
		t.Fatal("GetItem(a) after remove, want absent")
	}
}

func TestStore_SurvivesReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "items.db")

	s, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s.SetItem("token", "abc"); err != nil {
		t.Fatalf("SetItem() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	s2, err := New(path)
	if err != nil {
		t.Fatalf("New() reopen error = %v", err)
	}
	defer s2.Close()

	value, ok, err := s2.GetItem("token")
	if err != nil || !ok || value != "abc" {
		t.Fatalf("GetItem(token) after reopen = %q, %v, %v, want \"abc\"", value, ok, err)
	}
}

func TestWatch_ObservesMutations(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	ch, unsub := s.Watch()
	defer unsub()

	if err := s.SetItem("bus", `{"type":"userChanged"}`); err != nil {
		t.Fatalf("SetItem() error = %v", err)
	}

	select {
	case change := <-ch:
		if change.Key != "bus" || change.NewValue != `{"type":"userChanged"}` {
			t.Errorf("change = %+v, want bus set", change)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for set notification")
	}

	if err := s.RemoveItem("bus"); err != nil {
		t.Fatalf("RemoveItem() error = %v", err)
	}

	select {
	case change := <-ch:
		if change.Key != "bus" || change.NewValue != "" {
			t.Errorf("change = %+v, want bus removal", change)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for removal notification")
	}
}

func TestWatch_UnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	ch, unsub := s.Watch()
	unsub()

	select {
	case _, open := <-ch:
		if open {
			t.Fatal("received change on unsubscribed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after unsubscribe")
	}
}

var _ dto.Backend = (*Store)(nil)
