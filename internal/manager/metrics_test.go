package manager

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"llmchatd/pkg/types"
)

func TestMetrics_LoadAndGenerationOutcomes(t *testing.T) {
	mdl := testModel("metrics-model", types.StyleGeneric)
	okBefore := testutil.ToFloat64(loadsTotal.WithLabelValues(mdl.ID, "ok"))
	doneBefore := testutil.ToFloat64(generationsTotal.WithLabelValues("done"))
	deltasBefore := testutil.ToFloat64(deltasTotal)

	rt := &fakeRuntime{tokens: []string{"a", "b", "c"}}
	m, _ := readyManager(t, rt, mdl)
	if got := testutil.ToFloat64(loadsTotal.WithLabelValues(mdl.ID, "ok")) - okBefore; got != 1 {
		t.Fatalf("ok loads delta=%v", got)
	}

	s, err := m.Generate(testCtx(t), "hi", nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	drain(t, s)
	if err := s.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if got := testutil.ToFloat64(generationsTotal.WithLabelValues("done")) - doneBefore; got != 1 {
		t.Fatalf("done generations delta=%v", got)
	}
	if got := testutil.ToFloat64(deltasTotal) - deltasBefore; got != 3 {
		t.Fatalf("deltas delta=%v", got)
	}
	if got := testutil.ToFloat64(generationInflight); got != 0 {
		t.Fatalf("inflight=%v after Wait", got)
	}
}

func TestMetrics_LoadFailureCounted(t *testing.T) {
	mdl := testModel("metrics-broken", types.StyleGeneric)
	before := testutil.ToFloat64(loadsTotal.WithLabelValues(mdl.ID, "error"))
	m, _ := newTestManager(t, &fakeRuntime{loadErr: errors.New("corrupt weights")})
	if err := m.SelectModel(mdl); err != nil {
		t.Fatalf("SelectModel: %v", err)
	}
	if err := m.EnsureReady(testCtx(t)); err == nil {
		t.Fatalf("expected load failure")
	}
	if got := testutil.ToFloat64(loadsTotal.WithLabelValues(mdl.ID, "error")) - before; got != 1 {
		t.Fatalf("error loads delta=%v", got)
	}
}
