package upstream

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/wyverncodes/universalis-proxy/internal/testutil"
)

func TestFetchAggregatedSuccess(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()
	mock.SetAggregatedResponse("crystal", "5808", testutil.NewHealthyResponse(`{"items":[{"id":5808}]}`))

	c := New(Config{BaseURL: mock.URL(), UserAgent: "test/1.0", Timeout: time.Second, MaxRetries: 1}, zerolog.Nop())

	body, err := c.FetchAggregated(context.Background(), "crystal", []int{5808})
	if err != nil {
		t.Fatalf("FetchAggregated returned error: %v", err)
	}
	if string(body) != `{"items":[{"id":5808}]}` {
		t.Fatalf("body = %q", body)
	}
}

func TestFetchAggregatedRateLimited(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()
	mock.SetAggregatedResponse("crystal", "5808", testutil.NewRateLimitResponse())

	c := New(Config{BaseURL: mock.URL(), UserAgent: "test/1.0", Timeout: time.Second, MaxRetries: 3}, zerolog.Nop())

	_, err := c.FetchAggregated(context.Background(), "crystal", []int{5808})
	upstreamErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	if upstreamErr.Kind != KindRateLimited {
		t.Fatalf("Kind = %v, want KindRateLimited", upstreamErr.Kind)
	}
	// 429 is never retried.
	if got := mock.GetRequestCount(); got != 1 {
		t.Fatalf("expected exactly one request for a 429, got %d", got)
	}
}

func TestFetchAggregatedRetriesOn5xx(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()
	mock.SetAggregatedResponse("crystal", "5808", testutil.NewServerErrorResponse())

	c := New(Config{BaseURL: mock.URL(), UserAgent: "test/1.0", Timeout: time.Second, MaxRetries: 3}, zerolog.Nop())

	_, err := c.FetchAggregated(context.Background(), "crystal", []int{5808})
	if err == nil {
		t.Fatal("expected error for persistent 500")
	}
	if got := mock.GetRequestCount(); got != 3 {
		t.Fatalf("expected 3 attempts (maxRetries), got %d", got)
	}
}

func TestFetchAggregatedDoesNotRetryOn404(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()
	mock.SetAggregatedResponse("crystal", "5808", testutil.NewNotFoundResponse())

	c := New(Config{BaseURL: mock.URL(), UserAgent: "test/1.0", Timeout: time.Second, MaxRetries: 3}, zerolog.Nop())

	_, err := c.FetchAggregated(context.Background(), "crystal", []int{5808})
	upstreamErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if upstreamErr.StatusCode != http.StatusNotFound {
		t.Fatalf("StatusCode = %d, want 404", upstreamErr.StatusCode)
	}
	if got := mock.GetRequestCount(); got != 1 {
		t.Fatalf("expected exactly one request for a non-retryable 4xx, got %d", got)
	}
}

func TestFetchDataCentersAndWorlds(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()
	mock.SetResponse("/api/v2/data-centers", testutil.NewHealthyResponse(`["Crystal"]`))
	mock.SetResponse("/api/v2/worlds", testutil.NewHealthyResponse(`["Zalera"]`))

	c := New(Config{BaseURL: mock.URL(), UserAgent: "test/1.0", Timeout: time.Second, MaxRetries: 1}, zerolog.Nop())

	dcs, err := c.FetchDataCenters(context.Background())
	if err != nil || string(dcs) != `["Crystal"]` {
		t.Fatalf("FetchDataCenters() = %q, %v", dcs, err)
	}

	worlds, err := c.FetchWorlds(context.Background())
	if err != nil || string(worlds) != `["Zalera"]` {
		t.Fatalf("FetchWorlds() = %q, %v", worlds, err)
	}
}

func TestClientSetsUserAgentHeader(t *testing.T) {
	mock := testutil.NewMockUpstream()
	defer mock.Close()
	mock.SetResponse("/api/v2/worlds", testutil.NewHealthyResponse(`[]`))

	c := New(Config{BaseURL: mock.URL(), UserAgent: "universalis-proxy/1.2.3", Timeout: time.Second, MaxRetries: 1}, zerolog.Nop())
	if _, err := c.FetchWorlds(context.Background()); err != nil {
		t.Fatalf("FetchWorlds returned error: %v", err)
	}

	if got := mock.LastRequestHeader.Get("User-Agent"); got != "universalis-proxy/1.2.3" {
		t.Fatalf("User-Agent = %q, want %q", got, "universalis-proxy/1.2.3")
	}
}
