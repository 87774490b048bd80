package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func flaky(failures int) (Probe, *int) {
	calls := 0
	return func(context.Context) error {
		calls++
		if calls <= failures {
			return errors.New("connection refused")
		}
		return nil
	}, &calls
}

func TestCheckAll_degradesAfterThreshold(t *testing.T) {
	checker := New(Config{FailThreshold: 3}, zap.NewNop())
	probe, _ := flaky(100)
	checker.Add("postgres", probe)

	for i := 0; i < 2; i++ {
		checker.CheckAll(context.Background())
	}
	if ok, _ := checker.Status(); !ok {
		t.Fatal("expected healthy below the threshold")
	}

	checker.CheckAll(context.Background())
	ok, deps := checker.Status()
	if ok {
		t.Fatal("expected degraded at the threshold")
	}
	if deps[0].Status != StatusDegraded || deps[0].Error != "connection refused" {
		t.Errorf("got %+v", deps[0])
	}
}

func TestCheckAll_recoversOnSuccess(t *testing.T) {
	checker := New(Config{FailThreshold: 3}, zap.NewNop())
	probe, calls := flaky(3)
	checker.Add("redis", probe)

	for i := 0; i < 4; i++ {
		checker.CheckAll(context.Background())
	}
	if *calls != 4 {
		t.Fatalf("calls = %d, want 4", *calls)
	}
	if ok, deps := checker.Status(); !ok || deps[0].Status != StatusHealthy {
		t.Errorf("expected healthy after recovery, got %+v", deps)
	}
}

func TestMetricsRecord(t *testing.T) {
	checker := New(Config{}, zap.NewNop())
	checker.Add("audit", func(context.Context) error { return nil })
	checker.Add("postgres", func(context.Context) error { return errors.New("down") })

	got := map[string]bool{}
	checker.SetMetricsRecord(func(dep string, success bool) { got[dep] = success })
	checker.CheckAll(context.Background())

	if !got["audit"] || got["postgres"] {
		t.Errorf("got %v", got)
	}
}

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	checker := New(Config{FailThreshold: 1}, zap.NewNop())
	checker.Add("postgres", func(context.Context) error { return errors.New("down") })

	r := gin.New()
	r.GET("/healthz", checker.Handler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("before any probe: status = %d", w.Code)
	}

	checker.CheckAll(context.Background())
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("after failing probe: status = %d", w.Code)
	}
}
