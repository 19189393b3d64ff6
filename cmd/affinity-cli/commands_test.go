package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/affinity/internal/domain/engine"
	"github.com/okian/affinity/pkg/logger"
)

func init() {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
}

const ownedYAML = `
assets:
  - object_id: "0x1"
    collection: "0xabc::capsule::Capsule"
    traits: {rarity: Rare, color: Red}
  - object_id: "0x2"
    collection: "0xabc::capsule::Capsule"
    traits: {rarity: Rare, color: Blue}
`

const poolYAML = `
candidates:
  - object_id: "0x10"
    name: Rare red
    collection: capsule
    traits: {rarity: Rare, color: Red}
  - object_id: "0x11"
    name: Plain
    collection: generic
    traits: {background: grey}
  - object_id: "0x12"
    name: Blue
    collection: capsule
    traits: {color: Blue}
`

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(args ...string) (string, error) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRankCommand(t *testing.T) {
	Convey("Given owned and candidate files", t, func() {
		owned := writeFile(t, "owned.yaml", ownedYAML)
		pool := writeFile(t, "pool.yaml", poolYAML)

		Convey("rank prints the best candidates first", func() {
			out, err := execute("rank", "--owned", owned, "--candidates", pool, "--top-n", "2")
			So(err, ShouldBeNil)

			var got rankOutput
			So(json.Unmarshal([]byte(out), &got), ShouldBeNil)
			So(got.TasteProfile.TotalAssets, ShouldEqual, 2)
			So(got.Recommendations, ShouldHaveLength, 2)
			So(got.Recommendations[0].AssetID, ShouldEqual, "0x10")
			So(got.Recommendations[1].AssetID, ShouldEqual, "0x12")
			So(got.Recommendations[0].Score, ShouldBeGreaterThan, got.Recommendations[1].Score)
		})

		Convey("Weights flow into the scores", func() {
			out, err := execute("rank", "--owned", owned, "--candidates", pool,
				"--top-n", "1", "--tag-weight", "0", "--salience-bonus", "0")
			So(err, ShouldBeNil)

			var got rankOutput
			So(json.Unmarshal([]byte(out), &got), ShouldBeNil)
			So(got.Recommendations[0].Score, ShouldEqual, 0)
		})

		Convey("An empty owned file is insufficient data", func() {
			empty := writeFile(t, "empty.yaml", "assets: []\n")
			_, err := execute("rank", "--owned", empty, "--candidates", pool)
			So(errors.Is(err, engine.ErrInsufficientData), ShouldBeTrue)
		})

		Convey("Negative weights are rejected", func() {
			_, err := execute("rank", "--owned", owned, "--candidates", pool, "--tag-weight", "-1")
			So(err, ShouldNotBeNil)
		})

		Convey("Both files are required", func() {
			_, err := execute("rank", "--owned", owned)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "candidates")
		})
	})
}

func TestProfileCommand(t *testing.T) {
	Convey("Given an owned file", t, func() {
		owned := writeFile(t, "owned.yaml", ownedYAML)

		Convey("profile prints tag counts and the top tags", func() {
			out, err := execute("profile", "--owned", owned, "--top-k", "1", "--wallet", "0xme")
			So(err, ShouldBeNil)

			var got struct {
				Wallet  string         `json:"wallet_address"`
				Total   int            `json:"total_assets"`
				Tags    map[string]int `json:"tags"`
				TopTags []struct {
					Tag   string `json:"tag"`
					Count int    `json:"count"`
				} `json:"top_tags"`
			}
			So(json.Unmarshal([]byte(out), &got), ShouldBeNil)
			So(got.Wallet, ShouldEqual, "0xme")
			So(got.Total, ShouldEqual, 2)
			So(got.Tags["rarity_rare"], ShouldEqual, 2)
			So(got.TopTags, ShouldHaveLength, 1)
			So(got.TopTags[0].Tag, ShouldEqual, "rarity_rare")
		})

		Convey("A missing file fails", func() {
			_, err := execute("profile", "--owned", filepath.Join(t.TempDir(), "nope.yaml"))
			So(err, ShouldNotBeNil)
		})
	})
}

func TestRecommendCommand(t *testing.T) {
	Convey("Given a server", t, func() {
		var gotBody map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/recommendations" {
				http.NotFound(w, r)
				return
			}
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
			w.Header().Set("Content-Type", "application/json")
			if gotBody["wallet_address"] == "0xempty" {
				w.WriteHeader(http.StatusUnprocessableEntity)
				_, _ = w.Write([]byte(`{"code":"insufficient_data","message":"no assets found in wallet"}`))
				return
			}
			_, _ = w.Write([]byte(`{"success":true,"wallet_address":"0xabc","recommendations":[{"object_id":"0x10","score":25}]}`))
		}))
		defer srv.Close()

		Convey("recommend prints the server response", func() {
			out, err := execute("recommend", "--url", srv.URL+"/", "--wallet", "0xabc", "--top-n", "3")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, `"object_id": "0x10"`)
			So(gotBody["wallet_address"], ShouldEqual, "0xabc")
			So(gotBody["top_n"], ShouldEqual, 3)
		})

		Convey("top_n is omitted when unset", func() {
			_, err := execute("recommend", "--url", srv.URL, "--wallet", "0xabc")
			So(err, ShouldBeNil)
			So(gotBody, ShouldNotContainKey, "top_n")
		})

		Convey("Server errors surface their code", func() {
			_, err := execute("recommend", "--url", srv.URL, "--wallet", "0xempty")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldEqual, "server returned 422 insufficient_data: no assets found in wallet")
		})

		Convey("An unreachable server fails", func() {
			_, err := execute("recommend", "--url", "http://127.0.0.1:1", "--wallet", "0xabc")
			So(err, ShouldNotBeNil)
			So(strings.HasPrefix(err.Error(), "calling http://127.0.0.1:1"), ShouldBeTrue)
		})

		Convey("The wallet flag is required", func() {
			_, err := execute("recommend", "--url", srv.URL)
			So(err, ShouldNotBeNil)
		})
	})
}
