package advisor_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/mkhalili/arbiter/internal/adapters/advisor"
)

func review() advisor.Review {
	return advisor.Review{
		Query:      "Did Lakers beat Suns on 2025-01-15?",
		GroupKey:   "winner:lakers:lakers|suns:2025-01-15",
		Resolution: "yes",
		Confidence: 0.75,
		Providers:  []string{"THESPORTSDB", "ODDS_API"},
	}
}

func TestHTTPAdvisorReview(t *testing.T) {
	Convey("Given an advisor endpoint that returns an opinion", t, func() {
		var gotAuth, gotContentType string
		var gotReview advisor.Review
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotContentType = r.Header.Get("Content-Type")
			_ = json.NewDecoder(r.Body).Decode(&gotReview)

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{
				"reasoning": "three independent feeds corroborate the result",
				"sources": ["advisor:model"],
				"confidence": 0.9,
				"resolution": "yes"
			}`)) //nolint:errcheck
		}))
		defer server.Close()

		client := advisor.NewHTTP(server.URL, "advisor-key")

		Convey("When the review is posted", func() {
			opinion, err := client.Review(context.Background(), review())

			Convey("Then the opinion fields are decoded", func() {
				So(err, ShouldBeNil)
				So(opinion, ShouldNotBeNil)
				So(opinion.Reasoning, ShouldEqual, "three independent feeds corroborate the result")
				So(opinion.Sources, ShouldResemble, []string{"advisor:model"})
				So(*opinion.Confidence, ShouldEqual, 0.9)
				So(opinion.Resolution, ShouldEqual, "yes")
			})

			Convey("And the raw body is preserved for the audit payload", func() {
				So(opinion.Raw, ShouldContainSubstring, "corroborate")
			})

			Convey("And the request carried auth and the full review", func() {
				So(gotAuth, ShouldEqual, "Bearer advisor-key")
				So(gotContentType, ShouldEqual, "application/json")
				So(gotReview.Resolution, ShouldEqual, "yes")
				So(gotReview.GroupKey, ShouldEqual, "winner:lakers:lakers|suns:2025-01-15")
				So(gotReview.Providers, ShouldResemble, []string{"THESPORTSDB", "ODDS_API"})
			})
		})
	})

	Convey("Given an endpoint without a configured key", t, func() {
		var gotAuth string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			w.Write([]byte(`{}`)) //nolint:errcheck
		}))
		defer server.Close()

		client := advisor.NewHTTP(server.URL, "")
		_, err := client.Review(context.Background(), review())

		Convey("Then no Authorization header is sent", func() {
			So(err, ShouldBeNil)
			So(gotAuth, ShouldBeEmpty)
		})
	})
}

func TestHTTPAdvisorFailures(t *testing.T) {
	Convey("Given a failing advisor endpoint", t, func() {
		Convey("A non-2xx status surfaces as an error", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			}))
			defer server.Close()

			client := advisor.NewHTTP(server.URL, "")
			opinion, err := client.Review(context.Background(), review())
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "502")
			So(opinion, ShouldBeNil)
		})

		Convey("An undecodable body surfaces as an error", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json")) //nolint:errcheck
			}))
			defer server.Close()

			client := advisor.NewHTTP(server.URL, "")
			opinion, err := client.Review(context.Background(), review())
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "decode")
			So(opinion, ShouldBeNil)
		})

		Convey("An unreachable endpoint surfaces as an error", func() {
			client := advisor.NewHTTP("http://127.0.0.1:1/advisor", "")
			opinion, err := client.Review(context.Background(), review())
			So(err, ShouldNotBeNil)
			So(opinion, ShouldBeNil)
		})
	})
}

func TestNoopAdvisor(t *testing.T) {
	Convey("The noop advisor reports no opinion and no error", t, func() {
		opinion, err := advisor.Noop{}.Review(context.Background(), review())
		So(opinion, ShouldBeNil)
		So(err, ShouldBeNil)
	})
}
