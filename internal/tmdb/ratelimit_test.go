package tmdb

import (
	"net/http"
	"testing"
	"time"
)

func TestRetryPolicyBackoff(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 8, InitialBackoff: 10 * time.Second, MaxBackoff: 2 * time.Minute}
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 10 * time.Second},
		{1, 10 * time.Second},
		{2, 20 * time.Second},
		{3, 40 * time.Second},
		{4, 80 * time.Second},
		{5, 2 * time.Minute},
		{40, 2 * time.Minute},
	}
	for _, tt := range tests {
		if got := policy.Backoff(tt.attempt); got != tt.want {
			t.Errorf("Backoff(%d) = %s, want %s", tt.attempt, got, tt.want)
		}
	}
}

func TestRetryPolicyNormalized(t *testing.T) {
	got := RetryPolicy{InitialBackoff: time.Minute}.normalized()
	if got.MaxAttempts != DefaultMaxAttempts {
		t.Fatalf("expected default attempts, got %d", got.MaxAttempts)
	}
	if got.MaxBackoff != time.Minute {
		t.Fatalf("expected max backoff raised to initial, got %s", got.MaxBackoff)
	}
}

func TestRetryAfter(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"empty", "", 0},
		{"seconds", "7", 7 * time.Second},
		{"negative", "-3", 0},
		{"http date", now.Add(30 * time.Second).Format(http.TimeFormat), 30 * time.Second},
		{"past date", now.Add(-time.Minute).Format(http.TimeFormat), 0},
		{"garbage", "soon", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.value != "" {
				header.Set("Retry-After", tt.value)
			}
			if got := retryAfter(header, now); got != tt.want {
				t.Fatalf("retryAfter(%q) = %s, want %s", tt.value, got, tt.want)
			}
		})
	}
}
