package record

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*miniredis.Miniredis, *Store) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return mr, NewStore(rdb)
}

func TestKeyLayout(t *testing.T) {
	key := Key(PurposeSignUpOTP, "a@x.com")
	if key != "sign-up-otp:a@x.com" {
		t.Fatalf("unexpected key: %q", key)
	}

	// Unrecognized purposes pass through as literal prefixes.
	custom := Purpose("beta-rollout")
	if custom.Known() {
		t.Fatal("custom purpose reported as known")
	}
	if got := Key(custom, "id"); got != "beta-rollout:id" {
		t.Fatalf("unexpected passthrough key: %q", got)
	}

	for _, p := range []Purpose{
		PurposeSignUpOTP, PurposeResetPasswordOTP, PurposeResetPasswordToken,
		PurposeEmailChangeOTP, PurposeOrgJoinCode, PurposeAllJoinCodes,
		PurposeCached, PurposeInviteCodeCount, PurposePauseCodeGeneration,
	} {
		if !p.Known() {
			t.Fatalf("purpose %q not known", p)
		}
	}
}

func TestPutRequiresTTL(t *testing.T) {
	_, store := newTestStore(t)

	err := store.Put(context.Background(), "cached:x", "v", 0, PutAlways)
	if !errors.Is(err, ErrInvalidTTL) {
		t.Fatalf("expected ErrInvalidTTL, got %v", err)
	}
}

func TestPutCreateOnlyConflict(t *testing.T) {
	_, store := newTestStore(t)
	ctx := context.Background()
	key := Key(PurposeSignUpOTP, "a@x.com")

	if err := store.Put(ctx, key, "first", time.Minute, PutCreateOnly); err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	err := store.Put(ctx, key, "second", time.Minute, PutCreateOnly)
	if !errors.Is(err, ErrRecordExists) {
		t.Fatalf("expected ErrRecordExists, got %v", err)
	}

	// The loser must be able to adopt the winner's record.
	value, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if value != "first" {
		t.Fatalf("winner's record overwritten: %q", value)
	}
}

func TestPutUpdateOnlyMissing(t *testing.T) {
	_, store := newTestStore(t)

	err := store.Put(context.Background(), "cached:missing", "v", time.Minute, PutUpdateOnly)
	if !errors.Is(err, ErrRecordMissing) {
		t.Fatalf("expected ErrRecordMissing, got %v", err)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	_, store := newTestStore(t)
	ctx := context.Background()

	type payload struct {
		Code         string `json:"otp"`
		RequestCount int    `json:"requestCount"`
	}

	key := Key(PurposeResetPasswordOTP, "a@x.com")
	if err := store.Put(ctx, key, payload{Code: "443211", RequestCount: 1}, time.Minute, PutCreateOnly); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	var got payload
	if err := store.GetJSON(ctx, key, &got); err != nil {
		t.Fatalf("get json failed: %v", err)
	}
	if got.Code != "443211" || got.RequestCount != 1 {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestExpiryLaw(t *testing.T) {
	mr, store := newTestStore(t)
	ctx := context.Background()
	key := Key(PurposeCached, "profile")

	if err := store.Put(ctx, key, "data", 10*time.Second, PutAlways); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if _, err := store.Get(ctx, key); err != nil {
		t.Fatalf("get before expiry failed: %v", err)
	}

	mr.FastForward(11 * time.Second)

	_, err := store.Get(ctx, key)
	if !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound after ttl, got %v", err)
	}
}

func TestDeleteReportsCount(t *testing.T) {
	_, store := newTestStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, "cached:a", "v", time.Minute, PutAlways); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	removed, err := store.Delete(ctx, "cached:a")
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}

	removed, err = store.Delete(ctx, "cached:a")
	if err != nil {
		t.Fatalf("second delete failed: %v", err)
	}
	if removed != 0 {
		t.Fatalf("expected 0 removed, got %d", removed)
	}
}

func TestIncrDecr(t *testing.T) {
	_, store := newTestStore(t)
	ctx := context.Background()
	key := Key(PurposeInviteCodeCount, "org-1")

	for want := int64(1); want <= 3; want++ {
		got, err := store.Incr(ctx, key)
		if err != nil {
			t.Fatalf("incr failed: %v", err)
		}
		if got != want {
			t.Fatalf("incr = %d, want %d", got, want)
		}
	}

	got, err := store.Decr(ctx, key)
	if err != nil {
		t.Fatalf("decr failed: %v", err)
	}
	if got != 2 {
		t.Fatalf("decr = %d, want 2", got)
	}
}

func TestSetWindowTTLNotShortened(t *testing.T) {
	mr, store := newTestStore(t)
	ctx := context.Background()
	key := Key(PurposeAllJoinCodes, "org-1")

	if err := store.AddToSet(ctx, key, "AABBCCDD", 24*time.Hour, false); err != nil {
		t.Fatalf("first add failed: %v", err)
	}

	mr.FastForward(12 * time.Hour)

	// A later addition must not restart the generation window.
	if err := store.AddToSet(ctx, key, "11223344", 24*time.Hour, false); err != nil {
		t.Fatalf("second add failed: %v", err)
	}

	remaining, err := store.TTL(ctx, key)
	if err != nil {
		t.Fatalf("ttl failed: %v", err)
	}
	if remaining > 12*time.Hour {
		t.Fatalf("set window extended by second add: %v", remaining)
	}

	count, err := store.SetCardinality(ctx, key)
	if err != nil {
		t.Fatalf("cardinality failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("cardinality = %d, want 2", count)
	}

	mr.FastForward(13 * time.Hour)

	count, err = store.SetCardinality(ctx, key)
	if err != nil {
		t.Fatalf("cardinality after expiry failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("set survived its window: %d members", count)
	}
}

func TestSetMembership(t *testing.T) {
	_, store := newTestStore(t)
	ctx := context.Background()
	key := Key(PurposeAllJoinCodes, "org-2")

	for _, code := range []string{"A1", "B2", "C3"} {
		if err := store.AddToSet(ctx, key, code, time.Hour, false); err != nil {
			t.Fatalf("add %q failed: %v", code, err)
		}
	}

	if err := store.RemoveFromSet(ctx, key, "B2"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	members, err := store.SetMembers(ctx, key)
	if err != nil {
		t.Fatalf("members failed: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("members = %v, want 2 entries", members)
	}
	for _, m := range members {
		if m == "B2" {
			t.Fatal("removed member still present")
		}
	}
}

func TestStoreUnavailable(t *testing.T) {
	mr, store := newTestStore(t)
	mr.Close()

	err := store.Put(context.Background(), "cached:x", "v", time.Minute, PutAlways)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
