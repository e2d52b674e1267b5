package cache_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/mkhalili/arbiter/internal/adapters/cache"
	"github.com/mkhalili/arbiter/internal/domain/model"
)

func result(resolution string) *model.ResolutionResult {
	return &model.ResolutionResult{
		Resolution: resolution,
		Confidence: 0.8,
	}
}

func TestMemoryStore(t *testing.T) {
	Convey("Given a bounded in-memory store", t, func() {
		now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
		clock := func() time.Time { return now }
		store := cache.NewMemory(
			cache.WithMaxSize(2),
			cache.WithTTL(time.Minute),
			cache.WithClock(clock),
		)
		ctx := context.Background()

		Convey("A stored resolution comes back on Get", func() {
			store.Set(ctx, "k1", result("yes"))
			got, ok := store.Get(ctx, "k1")
			So(ok, ShouldBeTrue)
			So(got.Resolution, ShouldEqual, "yes")
		})

		Convey("Exceeding the bound evicts the oldest entry", func() {
			store.Set(ctx, "k1", result("a"))
			store.Set(ctx, "k2", result("b"))
			store.Set(ctx, "k3", result("c"))

			So(store.Len(), ShouldEqual, 2)
			_, ok := store.Get(ctx, "k1")
			So(ok, ShouldBeFalse)
			_, ok = store.Get(ctx, "k3")
			So(ok, ShouldBeTrue)
		})

		Convey("Entries expire after the TTL", func() {
			store.Set(ctx, "k1", result("a"))
			now = now.Add(2 * time.Minute)
			_, ok := store.Get(ctx, "k1")
			So(ok, ShouldBeFalse)
			So(store.Len(), ShouldEqual, 0)
		})

		Convey("Setting an existing key refreshes it in place", func() {
			store.Set(ctx, "k1", result("a"))
			store.Set(ctx, "k1", result("b"))
			So(store.Len(), ShouldEqual, 1)
			got, _ := store.Get(ctx, "k1")
			So(got.Resolution, ShouldEqual, "b")
		})
	})
}

func TestMemoryStoreChurn(t *testing.T) {
	Convey("Given a small store under churn", t, func() {
		store := cache.NewMemory(cache.WithMaxSize(4), cache.WithTTL(time.Hour))
		ctx := context.Background()

		Convey("The bound holds across many inserts", func() {
			for i := 0; i < 100; i++ {
				store.Set(ctx, fmt.Sprintf("k%d", i), result("r"))
			}
			So(store.Len(), ShouldEqual, 4)
		})
	})
}

func TestKey(t *testing.T) {
	Convey("Cache keys normalize whitespace and case", t, func() {
		a := cache.Key("Did  Lakers beat Suns?")
		b := cache.Key("did lakers BEAT suns?")
		So(a, ShouldEqual, b)
		So(a, ShouldEqual, "arbiter:resolution:did lakers beat suns?")
	})
}

func TestTiered(t *testing.T) {
	Convey("Given a tiered store with a shared layer", t, func() {
		local := cache.NewMemory(cache.WithMaxSize(10), cache.WithTTL(time.Hour))
		shared := cache.NewMemory(cache.WithMaxSize(10), cache.WithTTL(time.Hour))
		tiered := cache.Tiered{Local: local, Shared: shared}
		ctx := context.Background()

		Convey("Writes go through to both layers", func() {
			tiered.Set(ctx, "k", result("yes"))
			_, ok := local.Get(ctx, "k")
			So(ok, ShouldBeTrue)
			_, ok = shared.Get(ctx, "k")
			So(ok, ShouldBeTrue)
		})

		Convey("A shared hit backfills the local layer", func() {
			shared.Set(ctx, "k", result("yes"))
			got, ok := tiered.Get(ctx, "k")
			So(ok, ShouldBeTrue)
			So(got.Resolution, ShouldEqual, "yes")
			_, ok = local.Get(ctx, "k")
			So(ok, ShouldBeTrue)
		})
	})
}
