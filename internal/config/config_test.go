package config_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/mkhalili/arbiter/internal/config"
)

func TestDefaults(t *testing.T) {
	Convey("Given the default configuration", t, func() {
		cfg := config.New()

		Convey("Then the engine knobs carry the documented defaults", func() {
			So(cfg.LogLevel, ShouldEqual, "info")
			So(cfg.ResolveTimeoutMS, ShouldEqual, 45_000)
			So(cfg.TransportTimeoutMS, ShouldEqual, 15_000)
			So(cfg.Retries, ShouldEqual, 2)
			So(cfg.RetryInitialDelayMS, ShouldEqual, 300)
			So(cfg.RetryFactor, ShouldEqual, 2)
			So(cfg.BreakerFailureThreshold, ShouldEqual, 3)
			So(cfg.BreakerCooldownMS, ShouldEqual, 15_000)
			So(cfg.CacheSize, ShouldEqual, 10_000)
			So(cfg.CacheTTLMS, ShouldEqual, 600_000)
		})

		Convey("And the optional surfaces start unset", func() {
			So(cfg.MetricsAddr, ShouldBeEmpty)
			So(cfg.RedisAddr, ShouldBeEmpty)
			So(cfg.AdvisorBaseURL, ShouldBeEmpty)
		})
	})
}
