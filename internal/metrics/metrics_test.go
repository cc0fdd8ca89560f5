// SPDX-License-Identifier: MIT
package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordEvent(t *testing.T) {
	before := testutil.ToFloat64(eventsTotal.WithLabelValues("INVOKE"))
	RecordEvent("INVOKE")
	RecordEvent("INVOKE")
	if got := testutil.ToFloat64(eventsTotal.WithLabelValues("INVOKE")) - before; got != 2 {
		t.Errorf("INVOKE delta = %v, want 2", got)
	}
}

func TestSetLoopState_SingleActive(t *testing.T) {
	all := []string{"registering", "polling", "terminated"}
	SetLoopState("polling", all)

	if v := testutil.ToFloat64(loopState.WithLabelValues("polling")); v != 1 {
		t.Errorf("polling = %v, want 1", v)
	}
	for _, s := range []string{"registering", "terminated"} {
		if v := testutil.ToFloat64(loopState.WithLabelValues(s)); v != 0 {
			t.Errorf("%s = %v, want 0", s, v)
		}
	}
}

func TestRecordHealthProbeAndExit(t *testing.T) {
	up := testutil.ToFloat64(healthProbesTotal.WithLabelValues("up"))
	down := testutil.ToFloat64(healthProbesTotal.WithLabelValues("down"))
	RecordHealthProbe(true)
	RecordHealthProbe(false)
	if testutil.ToFloat64(healthProbesTotal.WithLabelValues("up"))-up != 1 {
		t.Error("expected one up probe")
	}
	if testutil.ToFloat64(healthProbesTotal.WithLabelValues("down"))-down != 1 {
		t.Error("expected one down probe")
	}

	clean := testutil.ToFloat64(relayExitsTotal.WithLabelValues("clean"))
	failed := testutil.ToFloat64(relayExitsTotal.WithLabelValues("error"))
	RecordRelayExit(nil)
	RecordRelayExit(errors.New("boom"))
	if testutil.ToFloat64(relayExitsTotal.WithLabelValues("clean"))-clean != 1 {
		t.Error("expected one clean exit")
	}
	if testutil.ToFloat64(relayExitsTotal.WithLabelValues("error"))-failed != 1 {
		t.Error("expected one error exit")
	}
}

func TestPromhttpExposure(t *testing.T) {
	RecordResult("missing")
	RecordRelayForward(http.StatusOK, 20*time.Millisecond)
	ObservePollWait(time.Second)

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	promhttp.Handler().ServeHTTP(recorder, req)

	body := recorder.Body.String()
	for _, name := range []string{
		"relay_extension_results_total",
		"relay_forwarded_requests_total",
		"relay_extension_poll_wait_seconds",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("expected %s in metrics output", name)
		}
	}
	if !strings.Contains(body, `outcome="missing"`) {
		t.Error(`expected outcome="missing" label`)
	}
}
