package cache_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/affinity/internal/adapters/cache"
	"github.com/okian/affinity/internal/domain/model"
)

func profileFor(holder string, total int) model.Profile {
	return model.Profile{HolderID: holder, TotalAssets: total, Tags: map[model.Tag]int{}}
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestProfileCache(t *testing.T) {
	Convey("Given a profile cache", t, func() {
		ctx := context.Background()
		clk := &clock{now: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
		c := cache.NewProfileCache(
			cache.WithMaxSize(3),
			cache.WithTTL(time.Minute),
			cache.WithClock(clk.Now))

		Convey("When nothing is stored", func() {
			_, ok := c.Get(ctx, "0xa")

			Convey("Then lookups miss", func() {
				So(ok, ShouldBeFalse)
				So(c.Size(), ShouldEqual, 0)
			})
		})

		Convey("When a profile is stored", func() {
			c.Put(ctx, "0xa", profileFor("0xa", 4))

			Convey("Then it is returned until the TTL passes", func() {
				p, ok := c.Get(ctx, "0xa")
				So(ok, ShouldBeTrue)
				So(p.TotalAssets, ShouldEqual, 4)

				clk.Advance(59 * time.Second)
				_, ok = c.Get(ctx, "0xa")
				So(ok, ShouldBeTrue)

				clk.Advance(time.Second)
				_, ok = c.Get(ctx, "0xa")
				So(ok, ShouldBeFalse)
				So(c.Size(), ShouldEqual, 0)
			})

			Convey("Then storing it again replaces the value and refreshes the TTL", func() {
				clk.Advance(30 * time.Second)
				c.Put(ctx, "0xa", profileFor("0xa", 9))
				clk.Advance(45 * time.Second)

				p, ok := c.Get(ctx, "0xa")
				So(ok, ShouldBeTrue)
				So(p.TotalAssets, ShouldEqual, 9)
				So(c.Size(), ShouldEqual, 1)
			})

			Convey("Then invalidation drops it", func() {
				c.Invalidate(ctx, "0xa")
				_, ok := c.Get(ctx, "0xa")
				So(ok, ShouldBeFalse)
				So(c.Size(), ShouldEqual, 0)

				c.Invalidate(ctx, "0xmissing")
				So(c.Size(), ShouldEqual, 0)
			})
		})

		Convey("When the cache overflows", func() {
			for i := 1; i <= 4; i++ {
				c.Put(ctx, fmt.Sprintf("0x%d", i), profileFor(fmt.Sprintf("0x%d", i), i))
			}

			Convey("Then the oldest insertion is evicted", func() {
				So(c.Size(), ShouldEqual, 3)
				_, ok := c.Get(ctx, "0x1")
				So(ok, ShouldBeFalse)
				for i := 2; i <= 4; i++ {
					_, ok := c.Get(ctx, fmt.Sprintf("0x%d", i))
					So(ok, ShouldBeTrue)
				}
			})

			Convey("Then removing a middle entry keeps the rest linked", func() {
				c.Invalidate(ctx, "0x3")
				c.Put(ctx, "0x5", profileFor("0x5", 5))
				c.Put(ctx, "0x6", profileFor("0x6", 6))

				So(c.Size(), ShouldEqual, 3)
				_, ok := c.Get(ctx, "0x2")
				So(ok, ShouldBeFalse)
				for _, k := range []string{"0x4", "0x5", "0x6"} {
					_, ok := c.Get(ctx, k)
					So(ok, ShouldBeTrue)
				}
			})

			Convey("Then removing the newest and oldest entries keeps eviction order", func() {
				c.Invalidate(ctx, "0x4")
				c.Invalidate(ctx, "0x2")
				So(c.Size(), ShouldEqual, 1)

				for i := 5; i <= 7; i++ {
					c.Put(ctx, fmt.Sprintf("0x%d", i), profileFor(fmt.Sprintf("0x%d", i), i))
				}

				So(c.Size(), ShouldEqual, 3)
				_, ok := c.Get(ctx, "0x3")
				So(ok, ShouldBeFalse)
				for i := 5; i <= 7; i++ {
					_, ok := c.Get(ctx, fmt.Sprintf("0x%d", i))
					So(ok, ShouldBeTrue)
				}
			})

			Convey("Then draining every entry leaves an empty list that refills", func() {
				for i := 2; i <= 4; i++ {
					c.Invalidate(ctx, fmt.Sprintf("0x%d", i))
				}
				So(c.Size(), ShouldEqual, 0)

				for i := 10; i <= 13; i++ {
					c.Put(ctx, fmt.Sprintf("0x%d", i), profileFor(fmt.Sprintf("0x%d", i), i))
				}
				So(c.Size(), ShouldEqual, 3)
				_, ok := c.Get(ctx, "0x10")
				So(ok, ShouldBeFalse)
				_, ok = c.Get(ctx, "0x13")
				So(ok, ShouldBeTrue)
			})
		})
	})

	Convey("Given a large cache without expiry", t, func() {
		ctx := context.Background()
		c := cache.NewProfileCache(cache.WithMaxSize(1_000), cache.WithTTL(0))

		Convey("When many goroutines write concurrently", func() {
			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					key := fmt.Sprintf("0x%d", i)
					c.Put(ctx, key, profileFor(key, i))
					_, _ = c.Get(ctx, key)
				}(i)
			}
			wg.Wait()

			Convey("Then every entry is kept", func() {
				So(c.Size(), ShouldEqual, 50)
			})
		})
	})

	Convey("Given a cache of size zero", t, func() {
		ctx := context.Background()
		c := cache.NewProfileCache(cache.WithMaxSize(0))

		Convey("When a profile is stored", func() {
			c.Put(ctx, "0xa", profileFor("0xa", 1))

			Convey("Then nothing is kept", func() {
				_, ok := c.Get(ctx, "0xa")
				So(ok, ShouldBeFalse)
				So(c.Size(), ShouldEqual, 0)
				c.Invalidate(ctx, "0xa")
				So(c.Size(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a cache with a negative size", t, func() {
		ctx := context.Background()
		c := cache.NewProfileCache(cache.WithMaxSize(-1))
		c.Put(ctx, "0xa", profileFor("0xa", 1))

		_, ok := c.Get(ctx, "0xa")
		So(ok, ShouldBeFalse)
		So(c.Size(), ShouldEqual, 0)
	})
}
