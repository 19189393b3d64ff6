package model_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/affinity/internal/domain/model"
)

func TestProfileAccessors(t *testing.T) {
	Convey("Given a built profile", t, func() {
		p := &model.Profile{
			HolderID:    "0xa",
			TotalAssets: 2,
			Tags:        map[model.Tag]int{"color_red": 2, "hat_blue": 1},
			TopTags:     []model.TagCount{{Tag: "color_red", Count: 2}},
		}

		Convey("Then counts and top membership are reported", func() {
			So(p.Count("color_red"), ShouldEqual, 2)
			So(p.Count("missing"), ShouldEqual, 0)
			So(p.IsTop("color_red"), ShouldBeTrue)
			So(p.IsTop("hat_blue"), ShouldBeFalse)
			So(p.Empty(), ShouldBeFalse)
		})

		Convey("Then a nil profile is safe to query", func() {
			var nilProfile *model.Profile
			So(nilProfile.Count("color_red"), ShouldEqual, 0)
			So(nilProfile.IsTop("color_red"), ShouldBeFalse)
			So(nilProfile.Empty(), ShouldBeTrue)
		})
	})
}

func TestNewTag(t *testing.T) {
	Convey("Tags join attribute and value with an underscore", t, func() {
		So(model.NewTag("hat", "red"), ShouldEqual, model.Tag("hat_red"))
		So(model.NewTag("color_red", "true"), ShouldEqual, model.Tag("color_red_true"))
	})
}

func TestJobStatus(t *testing.T) {
	Convey("Only done and failed jobs are terminal", t, func() {
		So(model.JobPending.Terminal(), ShouldBeFalse)
		So(model.JobRunning.Terminal(), ShouldBeFalse)
		So(model.JobDone.Terminal(), ShouldBeTrue)
		So(model.JobFailed.Terminal(), ShouldBeTrue)
	})
}
