package site

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSiteHandler(t *testing.T) {
	Convey("Given a mux with the landing page registered", t, func() {
		mux := http.NewServeMux()
		Register(context.Background(), mux)

		Convey("GET / serves the embedded page", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/html")
			So(w.Body.String(), ShouldContainSubstring, "<title>Affinity</title>")
			So(w.Body.String(), ShouldContainSubstring, "/recommendations")
		})

		Convey("HEAD / returns headers without a body", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodHead, "/", nil))

			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.Len(), ShouldEqual, 0)
		})

		Convey("POST / is rejected", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))

			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			So(w.Header().Get("Allow"), ShouldEqual, "GET, HEAD")
		})

		Convey("Unknown paths are not found", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))

			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})

	Convey("Register panics on a nil mux", t, func() {
		So(func() { Register(context.Background(), nil) }, ShouldPanic)
	})
}
