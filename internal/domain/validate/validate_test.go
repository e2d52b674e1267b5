package validate_test

import (
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/mkhalili/arbiter/internal/domain/model"
	"github.com/mkhalili/arbiter/internal/domain/validate"
)

func stat(t model.StatisticType, value float64, source string) model.NormalizedStatistic {
	return model.NormalizedStatistic{
		Type:  t,
		Value: value,
		Unit:  model.UnitCount,
		Sources: []model.StatisticSource{
			{Source: source, Tier: 2, Weight: model.TierWeight(2), ParsedValue: value},
		},
	}
}

func TestRangeRules(t *testing.T) {
	Convey("Given statistics under range rules", t, func() {
		Convey("A value inside the typical band passes clean", func() {
			report := validate.Check([]model.NormalizedStatistic{
				stat(model.StatYellowCards, 4, "OPTA_STATS"),
			})
			So(report.WithinRange, ShouldBeTrue)
			So(report.LogicallyConsistent, ShouldBeTrue)
			So(report.Warnings, ShouldBeEmpty)
			So(report.InvalidSources, ShouldBeEmpty)
		})

		Convey("A value outside min/max marks the source invalid", func() {
			report := validate.Check([]model.NormalizedStatistic{
				stat(model.StatYellowCards, 22, "FLASHSCORE"),
			})
			So(report.WithinRange, ShouldBeFalse)
			So(report.InvalidSources, ShouldContain, "FLASHSCORE")
		})

		Convey("A value outside the typical band only warns", func() {
			report := validate.Check([]model.NormalizedStatistic{
				stat(model.StatYellowCards, 11, "OPTA_STATS"),
			})
			So(report.WithinRange, ShouldBeTrue)
			So(report.Warnings, ShouldHaveLength, 1)
			So(strings.HasPrefix(report.Warnings[0], "Unusual value"), ShouldBeTrue)
		})
	})
}

func TestLogicalRules(t *testing.T) {
	Convey("Given cross-statistic rules", t, func() {
		Convey("Shots on target above shots total is inconsistent", func() {
			report := validate.Check([]model.NormalizedStatistic{
				stat(model.StatShotsOnTarget, 12, "A"),
				stat(model.StatShotsTotal, 9, "B"),
			})
			So(report.LogicallyConsistent, ShouldBeFalse)
		})

		Convey("Goals above shots on target is inconsistent", func() {
			report := validate.Check([]model.NormalizedStatistic{
				stat(model.StatGoals, 5, "A"),
				stat(model.StatShotsOnTarget, 3, "B"),
			})
			So(report.LogicallyConsistent, ShouldBeFalse)
		})

		Convey("Cards must add up when all three counts are present", func() {
			ok := validate.Check([]model.NormalizedStatistic{
				stat(model.StatYellowCards, 3, "A"),
				stat(model.StatRedCards, 1, "B"),
				stat(model.StatTotalCards, 4, "C"),
			})
			So(ok.LogicallyConsistent, ShouldBeTrue)

			bad := validate.Check([]model.NormalizedStatistic{
				stat(model.StatYellowCards, 3, "A"),
				stat(model.StatRedCards, 1, "B"),
				stat(model.StatTotalCards, 6, "C"),
			})
			So(bad.LogicallyConsistent, ShouldBeFalse)
		})

		Convey("Two possession rows must sum to about 100", func() {
			possession := func(v float64, source string) model.NormalizedStatistic {
				s := stat(model.StatPossession, v, source)
				s.Unit = model.UnitPercentage
				return s
			}

			ok := validate.Check([]model.NormalizedStatistic{
				possession(55, "A"), possession(45, "B"),
			})
			So(ok.LogicallyConsistent, ShouldBeTrue)

			bad := validate.Check([]model.NormalizedStatistic{
				possession(60, "A"), possession(30, "B"),
			})
			So(bad.LogicallyConsistent, ShouldBeFalse)
		})
	})
}

func TestFilter(t *testing.T) {
	Convey("Filter drops only the out-of-range observations", t, func() {
		stats := []model.NormalizedStatistic{
			stat(model.StatYellowCards, 4, "OPTA_STATS"),
			stat(model.StatYellowCards, 22, "FLASHSCORE"),
		}
		report := validate.Check(stats)
		usable := validate.Filter(stats, report)

		So(usable, ShouldHaveLength, 1)
		So(usable[0].Sources[0].Source, ShouldEqual, "OPTA_STATS")
	})
}
