package marketplace_test

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/affinity/internal/adapters/sources"
	"github.com/okian/affinity/internal/adapters/sources/marketplace"
	"github.com/okian/affinity/pkg/logger"
)

func TestGenerator_Candidates(t *testing.T) {
	Convey("Given a seeded demo generator", t, func() {
		fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		g := marketplace.NewGenerator(
			marketplace.WithSeed(7),
			marketplace.WithClock(func() time.Time { return fixed }),
			marketplace.WithLogger(logger.Nop()))
		ctx := context.Background()

		Convey("When fifty candidates are requested", func() {
			pool, err := g.Candidates(ctx, 50)
			So(err, ShouldBeNil)
			So(pool, ShouldHaveLength, 50)

			Convey("Then every listing follows the demo shape", func() {
				allowed := map[string]bool{}
				for _, tr := range marketplace.Traits {
					allowed[tr] = true
				}
				for i, a := range pool {
					So(strings.HasPrefix(a.ID, "0x"), ShouldBeTrue)
					So(a.Name, ShouldEndWith, "#"+strconv.Itoa(i+1))
					So(marketplace.Collections, ShouldContain, a.Collection)
					So(len(a.Metadata), ShouldBeBetweenOrEqual, 1, 3)
					for k, v := range a.Metadata {
						So(allowed[k], ShouldBeTrue)
						So(v, ShouldEqual, "true")
					}
					So(a.Price, ShouldNotBeNil)
					So(*a.Price, ShouldBeGreaterThanOrEqualTo, 10)
					So(*a.Price, ShouldBeLessThan, 1010)
					So(a.ListedAt.Equal(fixed), ShouldBeTrue)
				}
			})

			Convey("Then the same seed yields the same pool", func() {
				again, err := g.Candidates(ctx, 50)
				So(err, ShouldBeNil)
				So(again, ShouldResemble, pool)
			})
		})

		Convey("When the limit is not positive", func() {
			pool, err := g.Candidates(ctx, 0)

			Convey("Then the pool is empty", func() {
				So(err, ShouldBeNil)
				So(pool, ShouldNotBeNil)
				So(pool, ShouldBeEmpty)
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := g.Candidates(cctx, 5)

			Convey("Then a candidate pool error is returned", func() {
				So(errors.Is(err, sources.ErrCandidatePool), ShouldBeTrue)
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})
}
