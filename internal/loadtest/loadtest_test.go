package loadtest_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	service "github.com/okian/vivaran/internal/app"
	"github.com/okian/vivaran/internal/loadtest"
	"github.com/okian/vivaran/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRun(t *testing.T) {
	Convey("Given a running site", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		svc := service.New(service.WithLogger(logger.Nop()))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()
		srv := httptest.NewServer(svc.Handler())
		defer srv.Close()

		Convey("When a small load test runs against it", func() {
			out := filepath.Join(t.TempDir(), "generated.json")
			stats, err := loadtest.Run(ctx, &loadtest.Config{
				BaseURL:    srv.URL,
				Founders:   4,
				Investors:  3,
				Workers:    2,
				Timeout:    10 * time.Second,
				OutputFile: out,
				Seed:       42,
			}, logger.Nop())

			Convey("Then every step succeeds and every match list checks out", func() {
				So(err, ShouldBeNil)
				So(stats.InvestorsRegistered, ShouldEqual, 3)
				So(stats.FoundersRegistered, ShouldEqual, 4)
				So(stats.ProfilesSubmitted, ShouldEqual, 4)
				So(stats.MatchesChecked, ShouldEqual, 4)
				So(stats.Mismatches, ShouldEqual, 0)
				So(stats.Failures, ShouldEqual, 0)
			})

			Convey("And the generated accounts were written out", func() {
				raw, err := os.ReadFile(out)
				So(err, ShouldBeNil)
				var doc struct {
					Investors []loadtest.Investor `json:"investors"`
					Founders  []loadtest.Founder  `json:"founders"`
				}
				So(json.Unmarshal(raw, &doc), ShouldBeNil)
				So(len(doc.Investors), ShouldEqual, 3)
				So(len(doc.Founders), ShouldEqual, 4)
			})

			Convey("And the site holds the new records", func() {
				records := svc.GetStats()["records"].(map[string]int)
				So(records["investors"], ShouldEqual, 3)
				So(records["startups"], ShouldEqual, 4)
				So(records["users"], ShouldEqual, 7)
			})
		})
	})

	Convey("Given a site that is not healthy", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		Convey("Then the run stops before creating anything", func() {
			stats, err := loadtest.Run(context.Background(), &loadtest.Config{BaseURL: srv.URL, Founders: 1, Timeout: time.Second}, nil)
			So(errors.Is(err, loadtest.ErrUnhealthy), ShouldBeTrue)
			So(stats.FoundersRegistered, ShouldEqual, 0)
		})
	})
}
