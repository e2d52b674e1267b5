package app_test

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/mkhalili/arbiter/internal/app"
	"github.com/mkhalili/arbiter/internal/config"
	"github.com/mkhalili/arbiter/internal/simfeed"
)

func TestServiceResolve(t *testing.T) {
	Convey("Given a started service over a synthetic feed", t, func() {
		feed := simfeed.NewServer(simfeed.Match{
			Home: "Lakers", Away: "Suns",
			HomeScore: 112, AwayScore: 108,
			Date: "2025-01-15",
		}, "", nil)
		base, err := feed.Start()
		So(err, ShouldBeNil)
		defer feed.Close()

		env := feed.Env(base)
		svc := app.New(
			app.WithConfig(config.New()),
			app.WithEnv(func(key string) string { return env[key] }),
		)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When the same query resolves twice", func() {
			first, err := svc.Resolve(ctx, "Who won Lakers vs Suns on 2025-01-15?")
			So(err, ShouldBeNil)
			So(first.Resolution, ShouldEqual, "Lakers")

			second, err := svc.Resolve(ctx, "Who won Lakers vs Suns on 2025-01-15?")
			So(err, ShouldBeNil)

			Convey("Then the second answer is served from the cache", func() {
				So(second.Resolution, ShouldEqual, first.Resolution)
				So(second.Evidence.Metadata["cached"], ShouldEqual, true)
			})
		})

		Convey("Starting twice is a no-op", func() {
			So(svc.Start(ctx), ShouldBeNil)
		})
	})
}
