package application

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestFanOutPreservesInputOrder(t *testing.T) {
	hrefs := []string{"a", "b", "c", "d", "e"}

	got, err := fanOut(context.Background(), hrefs, 2, func(_ context.Context, href string) (string, error) {
		// Make early inputs finish last.
		if href == "a" {
			time.Sleep(20 * time.Millisecond)
		}
		return strings.ToUpper(href), nil
	})
	if err != nil {
		t.Fatalf("fanOut failed: %v", err)
	}

	want := []string{"A", "B", "C", "D", "E"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFanOutFirstErrorFailsWholeCall(t *testing.T) {
	wantErr := errors.New("read failed")

	got, err := fanOut(context.Background(), []string{"a", "b", "c"}, 0, func(_ context.Context, href string) (int, error) {
		if href == "b" {
			return 0, wantErr
		}
		return 1, nil
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if got != nil {
		t.Errorf("expected no partial results, got %v", got)
	}
}

func TestFanOutRespectsLimit(t *testing.T) {
	var current, peak atomic.Int32

	hrefs := make([]string, 16)
	for i := range hrefs {
		hrefs[i] = "h"
	}

	_, err := fanOut(context.Background(), hrefs, 3, func(_ context.Context, _ string) (struct{}, error) {
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		current.Add(-1)
		return struct{}{}, nil
	})
	if err != nil {
		t.Fatalf("fanOut failed: %v", err)
	}
	if p := peak.Load(); p > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", p)
	}
}

func TestFanOutCancelsRemainingWorkers(t *testing.T) {
	wantErr := errors.New("boom")

	_, err := fanOut(context.Background(), []string{"a", "b"}, 1, func(ctx context.Context, href string) (int, error) {
		if href == "a" {
			return 0, wantErr
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(time.Second):
			t.Error("worker context was not canceled")
			return 0, nil
		}
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}

func TestConcurrencyFromEnv(t *testing.T) {
	t.Setenv("MAX_THREADS", "7")
	if n := concurrencyFromEnv(); n != 7 {
		t.Errorf("concurrencyFromEnv = %d, want 7", n)
	}

	t.Setenv("MAX_THREADS", "not-a-number")
	if n := concurrencyFromEnv(); n <= 0 {
		t.Errorf("concurrencyFromEnv = %d, want a positive fallback", n)
	}
}
