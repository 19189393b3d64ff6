package config_test

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/okian/affinity/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.TopK, convey.ShouldEqual, 10)
			convey.So(cfg.TopN, convey.ShouldEqual, 5)
			convey.So(cfg.CandidateLimit, convey.ShouldEqual, 50)
			convey.So(cfg.TagWeight, convey.ShouldEqual, 5)
			convey.So(cfg.SalienceBonus, convey.ShouldEqual, 10)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.OwnershipSource, convey.ShouldEqual, config.SourceSui)
			convey.So(cfg.CandidateSource, convey.ShouldEqual, config.SourceDemo)
		})

		convey.Convey("Then the defaults validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then millisecond settings convert to durations", func() {
			convey.So(cfg.ProfileCacheTTL(), convey.ShouldEqual, time.Minute)
			convey.So(cfg.SuiTimeout(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.BreakerTimeout(), convey.ShouldEqual, 30*time.Second)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a valid config", t, func() {
		ctx := context.Background()

		cases := []struct {
			name   string
			mutate func(c *config.Config)
		}{
			{"empty addr", func(c *config.Config) { c.Addr = "" }},
			{"negative tag weight", func(c *config.Config) { c.TagWeight = -1 }},
			{"negative salience bonus", func(c *config.Config) { c.SalienceBonus = -0.5 }},
			{"zero top_k", func(c *config.Config) { c.TopK = 0 }},
			{"top_n above max", func(c *config.Config) { c.TopN = c.MaxTopN + 1 }},
			{"zero candidate limit", func(c *config.Config) { c.CandidateLimit = 0 }},
			{"unknown ownership source", func(c *config.Config) { c.OwnershipSource = "ipfs" }},
			{"unknown candidate source", func(c *config.Config) { c.CandidateSource = "hyperspace" }},
			{"empty rpc url", func(c *config.Config) { c.SuiRPCURL = "" }},
			{"file source without fixture", func(c *config.Config) { c.CandidateSource = config.SourceFile }},
			{"negative profile cache size", func(c *config.Config) { c.ProfileCacheSize = -1 }},
			{"negative profile cache ttl", func(c *config.Config) { c.ProfileCacheTTLMS = -1 }},
			{"unordered metric buckets", func(c *config.Config) { c.MetricsHTTPBuckets = []float64{5, 1} }},
		}

		for _, tc := range cases {
			tc := tc
			convey.Convey("When it has "+tc.name, func() {
				cfg := config.New(ctx)
				tc.mutate(cfg)
				err := cfg.Validate()

				convey.Convey("Then validation fails with ErrInvalidConfig", func() {
					convey.So(err, convey.ShouldNotBeNil)
					convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				})
			})
		}

		convey.Convey("When the file sources have a fixture", func() {
			cfg := config.New(ctx)
			cfg.OwnershipSource = config.SourceFile
			cfg.CandidateSource = config.SourceFile
			cfg.FixturePath = "fixtures.yaml"
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When the profile cache size is zero", func() {
			cfg := config.New(ctx)
			cfg.ProfileCacheSize = 0
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When the metric buckets increase", func() {
			cfg := config.New(ctx)
			cfg.MetricsHTTPBuckets = []float64{1, 5, 25}
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
