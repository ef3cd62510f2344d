package tmdb_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cinereco/internal/tmdb"
)

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *sleepRecorder) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := tmdb.New("", "https://example.com", "fr-FR"); err == nil {
		t.Fatal("expected error when api key missing")
	}
	if _, err := tmdb.New("key", " ", "fr-FR"); err == nil {
		t.Fatal("expected error when base url missing")
	}
}

func TestFetchInjectsCredentialsAndLanguage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/3/discover/movie" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		query := r.URL.Query()
		if query.Get("api_key") != "key" || query.Get("language") != "fr-FR" || query.Get("page") != "2" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"page":2}`))
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("key", server.URL+"/3/", "fr-FR")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	resp, err := client.Fetch(context.Background(), "/discover/movie", url.Values{"page": {"2"}})
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	var payload struct {
		Page int `json:"page"`
	}
	if err := resp.Decode(&payload); err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if !resp.OK() || payload.Page != 2 {
		t.Fatalf("unexpected response: %d %s", resp.StatusCode, resp.Body)
	}
}

func TestFetchRetriesRateLimitWithExponentialBackoff(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"id":1}`))
	}))
	t.Cleanup(server.Close)

	recorder := &sleepRecorder{}
	client, err := tmdb.New("key", server.URL, "",
		tmdb.WithSleeper(recorder.sleep),
		tmdb.WithRetryPolicy(tmdb.RetryPolicy{MaxAttempts: 5, InitialBackoff: time.Second, MaxBackoff: 3 * time.Second}),
	)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	resp, err := client.Fetch(context.Background(), "/movie/1", nil)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected success after retries, got %d", resp.StatusCode)
	}
	want := []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}
	got := recorder.recorded()
	if len(got) != len(want) {
		t.Fatalf("expected %d sleeps, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sleep %d: got %s want %s", i, got[i], want[i])
		}
	}
}

func TestFetchReturnsErrRateLimitedWhenExhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	recorder := &sleepRecorder{}
	client, err := tmdb.New("key", server.URL, "",
		tmdb.WithSleeper(recorder.sleep),
		tmdb.WithRetryPolicy(tmdb.RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}),
	)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	_, err = client.Fetch(context.Background(), "/movie/1", nil)
	if !errors.Is(err, tmdb.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
	if len(recorder.recorded()) != 2 {
		t.Fatalf("expected 2 sleeps, got %v", recorder.recorded())
	}
}

func TestFetchHonoursRetryAfter(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "4")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(server.Close)

	recorder := &sleepRecorder{}
	client, err := tmdb.New("key", server.URL, "",
		tmdb.WithSleeper(recorder.sleep),
		tmdb.WithRetryPolicy(tmdb.RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Second, MaxBackoff: 10 * time.Second}),
	)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.Fetch(context.Background(), "/movie/1", nil); err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if got := recorder.recorded(); len(got) != 1 || got[0] != 4*time.Second {
		t.Fatalf("expected Retry-After delay of 4s, got %v", got)
	}
}

func TestFetchPassesThroughOtherStatuses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status_code":34}`))
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("key", server.URL, "")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	resp, err := client.MovieDetails(context.Background(), 42)
	if err != nil {
		t.Fatalf("expected no error for 404, got %v", err)
	}
	if resp.StatusCode != http.StatusNotFound || resp.OK() {
		t.Fatalf("expected 404 response, got %d", resp.StatusCode)
	}
}

func TestMovieDetailsAppendsSubResources(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movie/550" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("append_to_response"); got != "keywords,credits,videos" {
			t.Errorf("unexpected append_to_response %q", got)
		}
		_, _ = w.Write([]byte(`{"id":550}`))
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("key", server.URL, "fr-FR")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.MovieDetails(context.Background(), 550); err != nil {
		t.Fatalf("MovieDetails returned error: %v", err)
	}
	if _, err := client.MovieDetails(context.Background(), 0); err == nil {
		t.Fatal("expected error for non-positive id")
	}
}

func TestCircuitOpensAfterConsecutiveFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := server.URL
	server.Close()

	client, err := tmdb.New("key", target, "", tmdb.WithBreaker(2, time.Hour))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	for i := 0; i < 2; i++ {
		_, err := client.Fetch(context.Background(), "/movie/1", nil)
		if err == nil || errors.Is(err, tmdb.ErrCircuitOpen) {
			t.Fatalf("attempt %d: expected transport error, got %v", i+1, err)
		}
	}
	_, err = client.Fetch(context.Background(), "/movie/1", nil)
	if !errors.Is(err, tmdb.ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestFetchStopsBackoffOnCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("key", server.URL, "",
		tmdb.WithRetryPolicy(tmdb.RetryPolicy{MaxAttempts: 5, InitialBackoff: time.Hour, MaxBackoff: time.Hour}),
	)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err = client.Fetch(ctx, "/movie/1", nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
