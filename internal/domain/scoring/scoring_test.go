package scoring_test

import (
	"testing"

	"github.com/okian/affinity/internal/domain/model"
	"github.com/okian/affinity/internal/domain/profile"
	"github.com/okian/affinity/internal/domain/scoring"
	"github.com/okian/affinity/internal/domain/traits"
	. "github.com/smartystreets/goconvey/convey"
)

func generic(id string, meta map[string]any) model.Asset {
	return model.Asset{ID: id, Name: "", Collection: "generic", Metadata: meta}
}

func TestScorer_Score(t *testing.T) {
	Convey("Given a holder owning three red assets", t, func() {
		n := traits.NewNormalizer()
		owned := []model.Asset{
			generic("a", map[string]any{"color": "red"}),
			generic("b", map[string]any{"color": "red"}),
			generic("c", map[string]any{"color": "red"}),
		}
		p := profile.NewBuilder(n).Build("0xholder", owned, 10)
		scorer := scoring.NewScorer(n)

		Convey("When scoring a red candidate", func() {
			price := 42.0
			sc := scorer.Score(model.Asset{
				ID:         "cand-1",
				Name:       "Red One",
				Collection: "generic",
				Metadata:   map[string]any{"color": "red"},
				Price:      &price,
			}, &p)

			Convey("Then it earns the frequency term and the salience bonus", func() {
				// the name tag does not match, so only color_red counts
				So(sc.Score, ShouldEqual, 3*5+1*10)
				So(sc.Contributions, ShouldResemble, []model.Contribution{{Tag: "color_red", Value: 15}})
			})

			Convey("And identity fields and price pass through", func() {
				So(sc.AssetID, ShouldEqual, "cand-1")
				So(sc.Name, ShouldEqual, "Red One")
				So(sc.Collection, ShouldEqual, "generic")
				So(sc.Price, ShouldNotBeNil)
				So(*sc.Price, ShouldEqual, 42.0)
			})
		})

		Convey("When scoring a candidate with no matching tags", func() {
			sc := scorer.Score(model.Asset{ID: "cand-2", Metadata: map[string]any{"color": "blue"}}, &p)

			Convey("Then it scores zero with an empty breakdown", func() {
				So(sc.Score, ShouldEqual, 0)
				So(sc.Contributions, ShouldNotBeNil)
				So(sc.Contributions, ShouldBeEmpty)
			})

			Convey("And missing name and collection become Unknown", func() {
				So(sc.Name, ShouldEqual, "Unknown")
				So(sc.Collection, ShouldEqual, "Unknown")
				So(sc.Price, ShouldBeNil)
			})
		})
	})

	Convey("Given a profile where not every tag is salient", t, func() {
		n := traits.NewNormalizer()
		owned := []model.Asset{
			generic("a", map[string]any{"hat": "red", "eyes": "blue"}),
			generic("b", map[string]any{"hat": "red", "eyes": "blue"}),
			generic("c", map[string]any{"hat": "red", "bg": "gold"}),
		}
		// top-1 keeps only hat_red
		p := profile.NewBuilder(n).Build("0x", owned, 1)
		scorer := scoring.NewScorer(n)

		sc := scorer.Score(generic("x", map[string]any{"hat": "red", "eyes": "blue", "bg": "gold"}), &p)

		Convey("Then the bonus applies only to top-K matches", func() {
			So(p.TopTags, ShouldResemble, []model.TagCount{{Tag: "hat_red", Count: 3}})
			So(sc.Score, ShouldEqual, 3*5+2*5+1*5+10)
		})

		Convey("And contributions are sorted by value, descending", func() {
			So(sc.Contributions, ShouldResemble, []model.Contribution{
				{Tag: "hat_red", Value: 15},
				{Tag: "eyes_blue", Value: 10},
				{Tag: "bg_gold", Value: 5},
			})
		})
	})

	Convey("Given custom weights", t, func() {
		n := traits.NewNormalizer()
		p := profile.NewBuilder(n).Build("0x", []model.Asset{generic("a", map[string]any{"k": "v"})}, 10)
		scorer := scoring.NewScorer(n, scoring.WithWeights(scoring.Weights{TagWeight: 2, SalienceBonus: 1}))

		So(scorer.Weights(), ShouldResemble, scoring.Weights{TagWeight: 2, SalienceBonus: 1})
		So(scorer.Score(generic("b", map[string]any{"k": "v"}), &p).Score, ShouldEqual, 3)
	})

	Convey("Given negative weights", t, func() {
		scorer := scoring.NewScorer(traits.NewNormalizer(), scoring.WithWeights(scoring.Weights{TagWeight: -1, SalienceBonus: -1}))
		So(scorer.Weights(), ShouldResemble, scoring.DefaultWeights())
	})

	Convey("Given an empty profile", t, func() {
		n := traits.NewNormalizer()
		p := profile.NewBuilder(n).Build("0x", nil, 10)
		sc := scoring.NewScorer(n).Score(generic("b", map[string]any{"k": "v"}), &p)
		So(sc.Score, ShouldEqual, 0)
	})

	Convey("Given a nil profile", t, func() {
		sc := scoring.NewScorer(traits.NewNormalizer()).Score(generic("b", map[string]any{"k": "v"}), nil)
		So(sc.Score, ShouldEqual, 0)
	})
}
