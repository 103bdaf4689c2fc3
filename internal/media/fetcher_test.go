package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"scribe/internal/logging"
	"scribe/internal/services"
	"scribe/internal/testsupport"
)

func TestAcquireLocalFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := filepath.Join(t.TempDir(), "talk.m4a")
	testsupport.WriteMedia(t, path, 128)

	fetcher := NewFetcher(cfg, logging.NewNop()).WithRunner(func(context.Context, string, ...string) ([]byte, error) {
		t.Fatal("runner must not be called for local files")
		return nil, nil
	})
	got, err := fetcher.Acquire(context.Background(), path, "")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if got != path {
		t.Fatalf("expected %s, got %s", path, got)
	}

	_, err = fetcher.Acquire(context.Background(), filepath.Join(t.TempDir(), "missing.m4a"), "")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAcquireRemoteUsesDownloadCache(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cached := filepath.Join(cfg.Paths.DownloadsDir, "dQw4w9WgXcQ.webm")
	testsupport.WriteMedia(t, cached, 64)

	fetcher := NewFetcher(cfg, logging.NewNop()).WithRunner(func(context.Context, string, ...string) ([]byte, error) {
		t.Fatal("runner must not be called on cache hit")
		return nil, nil
	})
	got, err := fetcher.Acquire(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if got != cached {
		t.Fatalf("expected cached path %s, got %s", cached, got)
	}
}

func TestAcquireRemoteRetriesThenSucceeds(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Media.DownloadAttempts = 3

	var calls int
	var slept []time.Duration
	runner := func(_ context.Context, name string, args ...string) ([]byte, error) {
		calls++
		if name != "yt-dlp" {
			t.Fatalf("unexpected binary %q", name)
		}
		if calls < 2 {
			return nil, errors.New("HTTP Error 403")
		}
		var template string
		for i, arg := range args {
			if arg == "-o" {
				template = args[i+1]
			}
		}
		path := strings.Replace(template, "%(ext)s", "m4a", 1)
		if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
			t.Fatalf("write download: %v", err)
		}
		return []byte(path + "\n"), nil
	}
	fetcher := NewFetcher(cfg, logging.NewNop()).
		WithRunner(runner).
		WithSleeper(func(d time.Duration) { slept = append(slept, d) })

	got, err := fetcher.Acquire(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if filepath.Base(got) != "dQw4w9WgXcQ.m4a" {
		t.Fatalf("unexpected path %s", got)
	}
	if calls != 2 || len(slept) != 1 {
		t.Fatalf("expected one retry, calls=%d sleeps=%v", calls, slept)
	}
}

func TestAcquireRemoteExhaustsAttempts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Media.DownloadAttempts = 2

	var calls int
	fetcher := NewFetcher(cfg, logging.NewNop()).
		WithRunner(func(context.Context, string, ...string) ([]byte, error) {
			calls++
			return nil, errors.New("network unreachable")
		}).
		WithSleeper(func(time.Duration) {})

	_, err := fetcher.Acquire(context.Background(), "https://example.com/podcast.mp3", "")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
}
