package fixture_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/affinity/internal/adapters/sources"
	"github.com/okian/affinity/internal/adapters/sources/fixture"
	"github.com/okian/affinity/internal/domain/model"
)

const holdersYAML = `
holders:
  - wallet_address: "0xABC"
    assets:
      - object_id: "0x1"
        name: Fren with red hat
        collection: frens
      - object_id: "0x2"
        collection: "0xdef::capsule::Capsule"
        traits:
          rarity: Rare
          color: Red
  - wallet_address: "0xempty"
candidates:
  - object_id: "0x10"
    name: Candidate One
    collection: generic
    price: 12.5
    traits:
      color_red: "true"
  - object_id: "0x11"
    collection: capsule
    traits:
      rarity: Epic
  - object_id: "0x12"
`

const holdersJSON = `{
  "holders": [{"wallet_address": "0xjson", "assets": [{"object_id": "0x5", "traits": {"level": 3}}]}],
  "candidates": [{"object_id": "0x6"}]
}`

func writeFile(dir, name, content string) string {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		panic(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	Convey("Given a YAML fixture file", t, func() {
		dir := t.TempDir()
		store, err := fixture.Load(writeFile(dir, "fixtures.yaml", holdersYAML))
		So(err, ShouldBeNil)
		ctx := context.Background()

		Convey("Then holders are matched case-insensitively", func() {
			owned, err := store.OwnedAssets(ctx, "0xabc")
			So(err, ShouldBeNil)
			So(owned, ShouldHaveLength, 2)
			So(owned[0].ID, ShouldEqual, "0x1")
			So(owned[0].Name, ShouldEqual, "Fren with red hat")
			So(owned[1].Metadata["rarity"], ShouldEqual, "Rare")
			So(store.Holders(), ShouldEqual, 2)
		})

		Convey("Then unknown and empty holders own nothing", func() {
			owned, err := store.OwnedAssets(ctx, "0xnobody")
			So(err, ShouldBeNil)
			So(owned, ShouldBeEmpty)

			owned, err = store.OwnedAssets(ctx, "0xempty")
			So(err, ShouldBeNil)
			So(owned, ShouldBeEmpty)
		})

		Convey("Then a blank holder is rejected", func() {
			_, err := store.OwnedAssets(ctx, "")
			So(errors.Is(err, sources.ErrOwnershipLookup), ShouldBeTrue)
			So(errors.Is(err, sources.ErrInvalidHolder), ShouldBeTrue)
		})

		Convey("Then candidates come back in file order up to the limit", func() {
			pool, err := store.Candidates(ctx, 2)
			So(err, ShouldBeNil)
			So(pool, ShouldHaveLength, 2)
			So(pool[0].ID, ShouldEqual, "0x10")
			So(pool[0].Price, ShouldNotBeNil)
			So(*pool[0].Price, ShouldEqual, 12.5)
			So(pool[1].ID, ShouldEqual, "0x11")

			all, err := store.Candidates(ctx, 50)
			So(err, ShouldBeNil)
			So(all, ShouldHaveLength, 3)

			none, err := store.Candidates(ctx, 0)
			So(err, ShouldBeNil)
			So(none, ShouldBeEmpty)
		})

		Convey("Then callers cannot mutate the stored data", func() {
			pool, _ := store.Candidates(ctx, 1)
			pool[0].ID = "changed"
			again, _ := store.Candidates(ctx, 1)
			So(again[0].ID, ShouldEqual, "0x10")
		})
	})

	Convey("Given a JSON fixture file", t, func() {
		store, err := fixture.Load(writeFile(t.TempDir(), "fixtures.json", holdersJSON))

		Convey("Then it loads through the same parser", func() {
			So(err, ShouldBeNil)
			owned, err := store.OwnedAssets(context.Background(), "0xJSON")
			So(err, ShouldBeNil)
			So(owned, ShouldHaveLength, 1)
			So(owned[0].ID, ShouldEqual, "0x5")
		})
	})

	Convey("Given trait keys that contain dots", t, func() {
		content := `
holders:
  - wallet_address: "0xdot"
    assets:
      - object_id: "0x7"
        traits:
          v1.2: beta
          stats:
            hp.max: 5
candidates:
  - object_id: "0x8"
    traits:
      edition.no: "7"
`
		store, err := fixture.Load(writeFile(t.TempDir(), "dotted.yaml", content))
		So(err, ShouldBeNil)
		ctx := context.Background()

		Convey("Then the keys are kept whole", func() {
			owned, err := store.OwnedAssets(ctx, "0xdot")
			So(err, ShouldBeNil)
			So(owned, ShouldHaveLength, 1)
			So(owned[0].Metadata["v1.2"], ShouldEqual, "beta")
			So(owned[0].Metadata, ShouldNotContainKey, "v1")
			So(owned[0].Metadata["stats"], ShouldResemble, map[string]any{"hp.max": 5})

			pool, err := store.Candidates(ctx, 1)
			So(err, ShouldBeNil)
			So(pool[0].Metadata["edition.no"], ShouldEqual, "7")
		})
	})

	Convey("Given broken fixture inputs", t, func() {
		dir := t.TempDir()

		Convey("A missing file fails", func() {
			_, err := fixture.Load(filepath.Join(dir, "missing.yaml"))
			So(errors.Is(err, fixture.ErrLoadFixture), ShouldBeTrue)
		})

		Convey("Malformed YAML fails", func() {
			_, err := fixture.Load(writeFile(dir, "bad.yaml", "holders: [\n"))
			So(errors.Is(err, fixture.ErrLoadFixture), ShouldBeTrue)
		})

		Convey("A holder without a wallet fails", func() {
			_, err := fixture.Load(writeFile(dir, "nowallet.yaml", "holders:\n  - assets: []\n"))
			So(errors.Is(err, fixture.ErrLoadFixture), ShouldBeTrue)
		})

		Convey("An empty path fails", func() {
			_, err := fixture.Load("")
			So(errors.Is(err, fixture.ErrLoadFixture), ShouldBeTrue)
		})
	})
}

func TestLoadAssets(t *testing.T) {
	Convey("Given a flat asset list", t, func() {
		dir := t.TempDir()
		path := writeFile(dir, "owned.yaml", `
assets:
  - object_id: "0xa"
    collection: frens
    name: Fren with blue eyes
  - object_id: "0xb"
    collection: generic
    traits: {background: Blue}
`)
		assets, err := fixture.LoadAssets(path)

		Convey("Then every asset is decoded", func() {
			So(err, ShouldBeNil)
			So(assets, ShouldHaveLength, 2)
			So(assets[1].Metadata, ShouldResemble, map[string]any{"background": "Blue"})
		})

		Convey("Then a candidates-only file yields its candidates", func() {
			pool, err := fixture.LoadAssets(writeFile(dir, "pool.yaml", "candidates:\n  - object_id: \"0xc\"\n"))
			So(err, ShouldBeNil)
			So(pool, ShouldHaveLength, 1)
			So(pool[0].ID, ShouldEqual, "0xc")
		})

		Convey("Then a file without assets yields an empty list", func() {
			empty, err := fixture.LoadAssets(writeFile(dir, "none.yaml", "candidates: []\n"))
			So(err, ShouldBeNil)
			So(empty, ShouldNotBeNil)
			So(empty, ShouldBeEmpty)
		})
	})
}

func TestNewStore(t *testing.T) {
	Convey("Given an in-memory store", t, func() {
		store := fixture.NewStore(
			map[string][]model.Asset{"0xA": {{ID: "1"}}, "0xa": {{ID: "2"}}},
			[]model.Asset{{ID: "c"}})

		Convey("Then holder keys differing only in case are merged", func() {
			owned, err := store.OwnedAssets(context.Background(), "0XA")
			So(err, ShouldBeNil)
			So(owned, ShouldHaveLength, 2)
		})

		Convey("Then a cancelled context fails candidate lookups", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := store.Candidates(ctx, 1)
			So(errors.Is(err, sources.ErrCandidatePool), ShouldBeTrue)
		})
	})
}
