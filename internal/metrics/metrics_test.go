package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveStoryLabelsOutcome(t *testing.T) {
	ok := StoryGenerationTotal.WithLabelValues("metrics-test", "success")
	failed := StoryGenerationTotal.WithLabelValues("metrics-test", "error")
	beforeOK, beforeFailed := testutil.ToFloat64(ok), testutil.ToFloat64(failed)

	ObserveStory("metrics-test", nil, time.Second)
	ObserveStory("metrics-test", errors.New("boom"), time.Second)
	ObserveStory("metrics-test", errors.New("boom"), time.Second)

	if got := testutil.ToFloat64(ok) - beforeOK; got != 1 {
		t.Fatalf("success delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(failed) - beforeFailed; got != 2 {
		t.Fatalf("error delta = %v, want 2", got)
	}
}

func TestObserveHTTP(t *testing.T) {
	c := HTTPRequestsTotal.WithLabelValues("GET", "/healthz", "200")
	before := testutil.ToFloat64(c)
	ObserveHTTP("GET", "/healthz", 200, time.Millisecond)
	if got := testutil.ToFloat64(c) - before; got != 1 {
		t.Fatalf("delta = %v, want 1", got)
	}
}
