package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsMiddleware(t *testing.T) {
	Convey("Given a wrapped handler", t, func() {
		Convey("The handler's status is passed through", func() {
			h := MetricsMiddleware(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusAccepted)
			}, "test")
			w := httptest.NewRecorder()
			h(w, httptest.NewRequest(http.MethodPost, "/x", nil))

			So(w.Code, ShouldEqual, http.StatusAccepted)
		})

		Convey("A panic before writing becomes a 500 internal_error", func() {
			h := MetricsMiddleware(func(http.ResponseWriter, *http.Request) {
				panic("boom")
			}, "test")
			w := httptest.NewRecorder()
			So(func() { h(w, httptest.NewRequest(http.MethodGet, "/x", nil)) }, ShouldNotPanic)

			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			var body errorResponse
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body.Code, ShouldEqual, "internal_error")
		})

		Convey("A panic after writing keeps the written status", func() {
			h := MetricsMiddleware(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
				panic("late")
			}, "test")
			w := httptest.NewRecorder()
			h(w, httptest.NewRequest(http.MethodGet, "/x", nil))

			So(w.Code, ShouldEqual, http.StatusOK)
		})
	})

	Convey("Error classes follow the service status mapping", t, func() {
		So(errorClass(http.StatusBadRequest), ShouldEqual, "client_error")
		So(errorClass(http.StatusNotFound), ShouldEqual, "not_found")
		So(errorClass(http.StatusUnprocessableEntity), ShouldEqual, "insufficient_data")
		So(errorClass(http.StatusTooManyRequests), ShouldEqual, "rate_limit")
		So(errorClass(http.StatusBadGateway), ShouldEqual, "upstream")
		So(errorClass(http.StatusServiceUnavailable), ShouldEqual, "unavailable")
		So(errorClass(http.StatusInternalServerError), ShouldEqual, "server_error")
		So(severity(http.StatusBadGateway), ShouldEqual, "high")
		So(severity(http.StatusBadRequest), ShouldEqual, "medium")
	})
}
