package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"leadrush/internal/game"
)

func TestObserveTick(t *testing.T) {
	skippedBefore := testutil.ToFloat64(TicksTotal.WithLabelValues("skipped"))
	appliedBefore := testutil.ToFloat64(TicksTotal.WithLabelValues("applied"))
	successBefore := testutil.ToFloat64(AcquisitionsTotal.WithLabelValues("success"))
	failBefore := testutil.ToFloat64(AcquisitionsTotal.WithLabelValues("failure"))

	ObserveTick(game.TickReport{Skipped: true})
	ObserveTick(game.TickReport{LeadsProduced: 2, Attempts: 5, Successes: 3, Failures: 2, ExpiredBoosts: []string{"clickBoost"}})

	if got := testutil.ToFloat64(TicksTotal.WithLabelValues("skipped")) - skippedBefore; got != 1 {
		t.Fatalf("skipped ticks got=%v", got)
	}
	if got := testutil.ToFloat64(TicksTotal.WithLabelValues("applied")) - appliedBefore; got != 1 {
		t.Fatalf("applied ticks got=%v", got)
	}
	if got := testutil.ToFloat64(AcquisitionsTotal.WithLabelValues("success")) - successBefore; got != 3 {
		t.Fatalf("successes got=%v", got)
	}
	if got := testutil.ToFloat64(AcquisitionsTotal.WithLabelValues("failure")) - failBefore; got != 2 {
		t.Fatalf("failures got=%v", got)
	}
	if got := testutil.ToFloat64(BoostsExpired.WithLabelValues("clickBoost")); got < 1 {
		t.Fatalf("expired boost not counted")
	}
}

func TestObserveTickCountsExpiryWhilePaused(t *testing.T) {
	before := testutil.ToFloat64(BoostsExpired.WithLabelValues("prodBoost"))
	ObserveTick(game.TickReport{Skipped: true, ExpiredBoosts: []string{"prodBoost"}})
	if got := testutil.ToFloat64(BoostsExpired.WithLabelValues("prodBoost")) - before; got != 1 {
		t.Fatalf("expired boosts on skipped tick got=%v want=1", got)
	}
}

func TestObserveSave(t *testing.T) {
	okBefore := testutil.ToFloat64(SavesTotal.WithLabelValues("ok"))
	errBefore := testutil.ToFloat64(SavesTotal.WithLabelValues("error"))
	ObserveSave(nil)
	ObserveSave(errors.New("disk full"))
	if testutil.ToFloat64(SavesTotal.WithLabelValues("ok"))-okBefore != 1 || testutil.ToFloat64(SavesTotal.WithLabelValues("error"))-errBefore != 1 {
		t.Fatalf("save counters not updated")
	}
}

func TestMiddlewareLabelsRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Post("/v1/buildings/{id}/buy", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodPost, "/v1/buildings/{id}/buy", "400"))
	req := httptest.NewRequest(http.MethodPost, "/v1/buildings/sdr/buy", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodPost, "/v1/buildings/{id}/buy", "400"))
	if after-before != 1 {
		t.Fatalf("route counter delta got=%v want=1", after-before)
	}
}
