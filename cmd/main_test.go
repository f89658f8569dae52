package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	app "github.com/okian/halloffame/internal/app"
	"github.com/okian/halloffame/internal/config"
	"github.com/okian/halloffame/internal/domain/model"
	"github.com/okian/halloffame/pkg/logger"
	"github.com/okian/halloffame/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// memoryConfig returns defaults pointed at an in-memory database.
func memoryConfig() *config.Config {
	cfg := config.New()
	cfg.DBDSN = ":memory:"
	cfg.SeedDemoData = true
	return cfg
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("HOF_ADDR", ":18080")
			_ = os.Setenv("HOF_DB_DSN", ":memory:")
			defer func() {
				_ = os.Unsetenv("HOF_ADDR")
				_ = os.Unsetenv("HOF_DB_DSN")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":18080")
				convey.So(cfg.DBDSN, convey.ShouldEqual, ":memory:")
			})
		})

		convey.Convey("When testing invalid configuration", func() {
			_ = os.Setenv("HOF_ADDR", "")
			_ = os.Setenv("HOF_DB_DRIVER", "mssql")
			defer func() {
				_ = os.Unsetenv("HOF_ADDR")
				_ = os.Unsetenv("HOF_DB_DRIVER")
			}()

			convey.Convey("Then configuration loading should fail", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When testing metrics initialization", func() {
			convey.Convey("Then metrics manager should be creatable", func() {
				manager := metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))
				convey.So(manager, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given a service built from configuration", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		svc := newService(memoryConfig(), logger.Get())
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		srv := httptest.NewServer(newHandler(ctx, svc))
		defer srv.Close()

		convey.Convey("When listing people over HTTP", func() {
			resp, err := http.Get(srv.URL + "/api/v1/persons")
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()

			convey.Convey("Then the demo data should be served", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
				var people []model.Person
				convey.So(json.NewDecoder(resp.Body).Decode(&people), convey.ShouldBeNil)
				convey.So(len(people), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When posting a person over HTTP", func() {
			body := `{"Name":"TestsName","SkillsCollection":[{"Name":"a","Level":9},{"Name":"b","Level":9}]}`
			resp, err := http.Post(srv.URL+"/api/v1/person", "application/json", strings.NewReader(body))
			convey.So(err, convey.ShouldBeNil)
			resp.Body.Close()

			convey.Convey("Then it should be stored and counted", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
				updateServiceMetrics(svc)
				convey.So(svc.GetStats()["totalPeople"], convey.ShouldEqual, int64(3))
			})
		})

		convey.Convey("When fetching the docs", func() {
			resp, err := http.Get(srv.URL + "/openapi.yaml")
			convey.So(err, convey.ShouldBeNil)
			resp.Body.Close()

			convey.Convey("Then the document should be served", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			})
		})

		convey.Convey("When probing readiness", func() {
			resp, err := http.Get(srv.URL + "/readyz")
			convey.So(err, convey.ShouldBeNil)
			resp.Body.Close()

			convey.Convey("Then the service should be ready", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			})
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When testing system metrics updater", func() {
			convey.Convey("Then it should return once the context ends", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer cancel()

				convey.So(func() {
					startSystemMetricsUpdater(ctx)
				}, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When testing service metrics updater", func() {
			svc := app.New()

			convey.Convey("Then it should return once the context ends", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer cancel()

				convey.So(func() {
					startServiceMetricsUpdater(ctx, svc)
				}, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When testing system metrics update", func() {
			convey.Convey("Then it should update metrics without panicking", func() {
				convey.So(func() {
					updateSystemMetrics()
				}, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When testing service metrics update on a started service", func() {
			svc := newService(memoryConfig(), logger.Get())
			convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
			defer svc.Stop()

			convey.Convey("Then the people gauge should follow the store", func() {
				updateServiceMetrics(svc)
				count, err := testutil.GatherAndCount(metrics.GetRegistry(), "hof_people_people_total")
				convey.So(err, convey.ShouldBeNil)
				convey.So(count, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When testing service metrics update on a stopped service", func() {
			svc := app.New()

			convey.Convey("Then it should not panic", func() {
				convey.So(func() {
					updateServiceMetrics(svc)
				}, convey.ShouldNotPanic)
			})
		})
	})
}
