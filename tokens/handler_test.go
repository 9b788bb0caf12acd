package tokens

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/baasic/baasic-go/dto"
	"github.com/baasic/baasic-go/storage"
)

func TestHandler_StoreAndGet(t *testing.T) {
	t.Parallel()

	h := NewHandler(storage.NewMemory(), "key1")

	if h.Get() != nil {
		t.Fatal("expected no token initially")
	}

	if err := h.Store(&dto.AccessToken{Token: "abc"}); err != nil {
		t.Fatalf("Store: %v", err)
	}
	got := h.Get()
	if got == nil || got.Token != "abc" {
		t.Fatalf("Get = %+v", got)
	}
	if got.ExpireTime != 0 {
		t.Fatalf("opaque token without lifetimes gained ExpireTime %d", got.ExpireTime)
	}
	if got.IsExpired() {
		t.Fatal("token without ExpireTime must never expire")
	}
}

func TestHandler_DerivesExpiryFromExpiresIn(t *testing.T) {
	t.Parallel()

	h := NewHandler(storage.NewMemory(), "key1")
	before := time.Now()

	if err := h.Store(&dto.AccessToken{Token: "abc", ExpiresIn: 300}); err != nil {
		t.Fatalf("Store: %v", err)
	}

	got := h.Get()
	wantMin := before.Add(299 * time.Second).UnixMilli()
	wantMax := time.Now().Add(301 * time.Second).UnixMilli()
	if got.ExpireTime < wantMin || got.ExpireTime > wantMax {
		t.Fatalf("ExpireTime %d outside [%d,%d]", got.ExpireTime, wantMin, wantMax)
	}
}

func TestHandler_DerivesExpiryFromSlidingWindow(t *testing.T) {
	t.Parallel()

	h := NewHandler(storage.NewMemory(), "key1")
	if err := h.Store(&dto.AccessToken{Token: "abc", SlidingWindow: 60}); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if got := h.Get(); got.ExpireTime == 0 {
		t.Fatal("sliding token should gain ExpireTime")
	}
}

func TestHandler_DerivesExpiryFromJWTExpClaim(t *testing.T) {
	t.Parallel()

	exp := time.Now().Add(time.Hour).Unix()
	raw := unsignedJWT(t, map[string]any{"sub": "u1", "exp": exp})

	h := NewHandler(storage.NewMemory(), "key1")
	if err := h.Store(&dto.AccessToken{Token: raw}); err != nil {
		t.Fatalf("Store: %v", err)
	}

	got := h.Get()
	if got.ExpireTime != exp*1000 {
		t.Fatalf("ExpireTime = %d want %d", got.ExpireTime, exp*1000)
	}
}

func TestHandler_ExplicitExpireTimePreserved(t *testing.T) {
	t.Parallel()

	expireAt := time.Now().Add(time.Hour).UnixMilli()
	h := NewHandler(storage.NewMemory(), "key1")
	if err := h.Store(&dto.AccessToken{Token: "abc", ExpireTime: expireAt, ExpiresIn: 5}); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if got := h.Get(); got.ExpireTime != expireAt {
		t.Fatalf("ExpireTime rewritten: %d want %d", got.ExpireTime, expireAt)
	}
}

func TestHandler_ClearNotifiesOnce(t *testing.T) {
	t.Parallel()

	h := NewHandler(storage.NewMemory(), "key1")
	var fired atomic.Int64
	h.OnExpired(func() { fired.Add(1) })

	if err := h.Store(&dto.AccessToken{Token: "abc"}); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := h.Store(nil); err != nil {
		t.Fatalf("Store(nil): %v", err)
	}
	if h.Get() != nil {
		t.Fatal("token still present after clear")
	}
	if n := fired.Load(); n != 1 {
		t.Fatalf("expired callbacks fired %d times, want 1", n)
	}

	// Clearing an already-cleared token is a no-op and must not re-notify.
	if err := h.Store(nil); err != nil {
		t.Fatalf("second Store(nil): %v", err)
	}
	if n := fired.Load(); n != 1 {
		t.Fatalf("idempotent clear re-notified: %d", n)
	}
}

func TestHandler_ConcurrentClearsNotifyOnce(t *testing.T) {
	t.Parallel()

	h := NewHandler(storage.NewMemory(), "key1")
	var fired atomic.Int64
	h.OnExpired(func() { fired.Add(1) })

	if err := h.Store(&dto.AccessToken{Token: "abc"}); err != nil {
		t.Fatalf("Store: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := h.Store(nil); err != nil {
				t.Errorf("Store(nil): %v", err)
			}
		}()
	}
	wg.Wait()

	if h.Get() != nil {
		t.Fatal("token still present after concurrent clears")
	}
	if n := fired.Load(); n != 1 {
		t.Fatalf("expired callbacks fired %d times, want 1", n)
	}
}

func TestHandler_ExpiryTimerClearsToken(t *testing.T) {
	t.Parallel()

	h := NewHandler(storage.NewMemory(), "key1")
	var fired atomic.Int64
	h.OnExpired(func() { fired.Add(1) })

	expireAt := time.Now().Add(100 * time.Millisecond).UnixMilli()
	if err := h.Store(&dto.AccessToken{Token: "abc", ExpireTime: expireAt}); err != nil {
		t.Fatalf("Store: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for h.Get() != nil {
		if time.Now().After(deadline) {
			t.Fatal("token not cleared by expiry timer")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if n := fired.Load(); n != 1 {
		t.Fatalf("expired callbacks fired %d times, want 1", n)
	}

	// No further firing afterwards.
	time.Sleep(200 * time.Millisecond)
	if n := fired.Load(); n != 1 {
		t.Fatalf("timer fired again: %d", n)
	}
}

func TestHandler_ReplacingTokenResetsTimer(t *testing.T) {
	t.Parallel()

	h := NewHandler(storage.NewMemory(), "key1")
	var fired atomic.Int64
	h.OnExpired(func() { fired.Add(1) })

	shortLived := &dto.AccessToken{Token: "a", ExpireTime: time.Now().Add(80 * time.Millisecond).UnixMilli()}
	if err := h.Store(shortLived); err != nil {
		t.Fatalf("Store: %v", err)
	}
	// Replace before the first timer fires; only the new expiry may fire.
	longLived := &dto.AccessToken{Token: "b", ExpireTime: time.Now().Add(time.Hour).UnixMilli()}
	if err := h.Store(longLived); err != nil {
		t.Fatalf("Store replacement: %v", err)
	}

	time.Sleep(250 * time.Millisecond)
	if n := fired.Load(); n != 0 {
		t.Fatalf("superseded timer fired %d times", n)
	}
	if got := h.Get(); got == nil || got.Token != "b" {
		t.Fatalf("Get = %+v", got)
	}
}

// unsignedJWT builds an alg=none JWT-shaped token for claim parsing tests.
func unsignedJWT(t *testing.T, claims map[string]any) string {
	t.Helper()

	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	payload, err := json.Marshal(claims)
	if err != nil {
		t.Fatalf("marshal claims: %v", err)
	}
	return fmt.Sprintf("%s.%s.", header, base64.RawURLEncoding.EncodeToString(payload))
}
