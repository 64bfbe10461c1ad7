package lock

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestTryLock(t *testing.T) {
	redis := miniredis.RunT(t)
	locker, err := NewRedisLocker(redis.Addr(), "", "test:lock", time.Minute)
	if err != nil {
		t.Fatalf("new locker: %v", err)
	}
	defer locker.Close()
	ctx := context.Background()

	release, ok, err := locker.TryLock(ctx, "sweep")
	if err != nil || !ok {
		t.Fatalf("first TryLock: ok=%v err=%v", ok, err)
	}
	if !redis.Exists("test:lock:sweep") {
		t.Fatal("expected lease key to exist")
	}

	if _, ok, err := locker.TryLock(ctx, "sweep"); err != nil || ok {
		t.Fatalf("second TryLock should be refused: ok=%v err=%v", ok, err)
	}
	if _, ok, _ := locker.TryLock(ctx, "reconcile"); !ok {
		t.Fatal("expected leases for different jobs to be independent")
	}

	release()
	if redis.Exists("test:lock:sweep") {
		t.Fatal("expected release to delete the key")
	}
	if _, ok, _ := locker.TryLock(ctx, "sweep"); !ok {
		t.Fatal("expected lease to be available after release")
	}
}

func TestLeaseExpires(t *testing.T) {
	redis := miniredis.RunT(t)
	locker, err := NewRedisLocker(redis.Addr(), "", "test:lock", time.Second)
	if err != nil {
		t.Fatalf("new locker: %v", err)
	}
	defer locker.Close()
	var logs bytes.Buffer
	locker.Logger = slog.New(slog.NewTextHandler(&logs, nil))
	ctx := context.Background()

	staleRelease, ok, _ := locker.TryLock(ctx, "sweep")
	if !ok {
		t.Fatal("expected lease")
	}
	redis.FastForward(2 * time.Second)

	_, ok, _ = locker.TryLock(ctx, "sweep")
	if !ok {
		t.Fatal("expected expired lease to be taken over")
	}

	// The old holder must not release the new holder's lease.
	staleRelease()
	if !redis.Exists("test:lock:sweep") {
		t.Fatal("stale release deleted a lease it no longer owns")
	}
	if !strings.Contains(logs.String(), "lease expired before release") {
		t.Errorf("expected a warning for the lost lease, got %q", logs.String())
	}
}

func TestReleaseFailureLogged(t *testing.T) {
	redis := miniredis.RunT(t)
	locker, err := NewRedisLocker(redis.Addr(), "", "test:lock", time.Minute)
	if err != nil {
		t.Fatalf("new locker: %v", err)
	}
	defer locker.Close()
	var logs bytes.Buffer
	locker.Logger = slog.New(slog.NewTextHandler(&logs, nil))

	release, ok, err := locker.TryLock(context.Background(), "sweep")
	if err != nil || !ok {
		t.Fatalf("TryLock: ok=%v err=%v", ok, err)
	}
	redis.Close()

	release()
	out := logs.String()
	if !strings.Contains(out, "releasing lease") || !strings.Contains(out, "test:lock:sweep") {
		t.Errorf("expected release failure to be logged, got %q", out)
	}
}

func TestTryLockRedisDown(t *testing.T) {
	redis := miniredis.RunT(t)
	locker, err := NewRedisLocker(redis.Addr(), "", "", time.Minute)
	if err != nil {
		t.Fatalf("new locker: %v", err)
	}
	defer locker.Close()
	redis.Close()

	if _, ok, err := locker.TryLock(context.Background(), "sweep"); err == nil || ok {
		t.Fatalf("expected error with redis down: ok=%v err=%v", ok, err)
	}
}

func TestNewRedisLockerRequiresAddr(t *testing.T) {
	if l, err := NewRedisLocker("", "", "", time.Minute); err == nil || l != nil {
		t.Fatal("expected constructor error for empty redis addr")
	}
	if l, err := NewRedisLocker("localhost:6379", "", "", 0); err == nil || l != nil {
		t.Fatal("expected constructor error for zero ttl")
	}
}
