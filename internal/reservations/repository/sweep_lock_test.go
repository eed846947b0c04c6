package repository

import (
	"context"
	"testing"
	"time"
)

func TestMemorySweepLock(t *testing.T) {
	repo := NewMemorySweepLockRepository()
	ctx := context.Background()

	ok, _ := repo.Acquire(ctx, "hold-sweeper", "a", time.Minute)
	if !ok {
		t.Fatal("first owner must acquire a free lease")
	}
	if ok, _ := repo.Acquire(ctx, "hold-sweeper", "b", time.Minute); ok {
		t.Fatal("second owner must not acquire a live lease")
	}
	if ok, _ := repo.Acquire(ctx, "hold-sweeper", "a", time.Minute); !ok {
		t.Fatal("owner must be able to renew its lease")
	}

	_ = repo.Release(ctx, "hold-sweeper", "b")
	if ok, _ := repo.Acquire(ctx, "hold-sweeper", "b", time.Minute); ok {
		t.Fatal("release by a non-owner must not free the lease")
	}

	_ = repo.Release(ctx, "hold-sweeper", "a")
	if ok, _ := repo.Acquire(ctx, "hold-sweeper", "b", time.Minute); !ok {
		t.Fatal("released lease must be acquirable")
	}
}

func TestMemorySweepLock_Expiry(t *testing.T) {
	repo := NewMemorySweepLockRepository()
	ctx := context.Background()

	_, _ = repo.Acquire(ctx, "hold-sweeper", "a", -time.Second)
	if ok, _ := repo.Acquire(ctx, "hold-sweeper", "b", time.Minute); !ok {
		t.Fatal("expired lease must be acquirable by another owner")
	}
}
