package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scribe/internal/logging"
	"scribe/internal/queue"
	"scribe/internal/testsupport"
)

func TestProcessLauncherArgs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Scheduler.WorkerBinary = "/usr/local/bin/scribe"
	launcher, err := NewProcessLauncher(cfg, "/etc/scribe.toml", logging.NewNop())
	if err != nil {
		t.Fatalf("NewProcessLauncher: %v", err)
	}
	task := &queue.Task{
		ID:       "abc",
		Mode:     queue.ModeCloud,
		Source:   queue.SourceFromRef("https://youtu.be/dQw4w9WgXcQ"),
		SourceID: "dQw4w9WgXcQ",
		Title:    "Talk",
		Model:    "small",
	}
	got := strings.Join(launcher.Args(task), " ")
	want := "worker abc cloud --source https://youtu.be/dQw4w9WgXcQ --source-id dQw4w9WgXcQ --title Talk --model small --config /etc/scribe.toml"
	if got != want {
		t.Fatalf("args = %q\nwant %q", got, want)
	}
}

func TestProcessLauncherReportsExitCodeAndStderr(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	script := filepath.Join(t.TempDir(), "fake-worker")
	body := "#!/bin/sh\necho \"crashed on $2\" >&2\nexit 3\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	cfg.Scheduler.WorkerBinary = script
	cfg.Scheduler.WorkerNice = 0
	launcher, err := NewProcessLauncher(cfg, "", logging.NewNop())
	if err != nil {
		t.Fatalf("NewProcessLauncher: %v", err)
	}

	outcome, err := launcher.Launch(context.Background(), &queue.Task{ID: "t1", Mode: queue.ModeLocal, Source: queue.SourceFromRef("/a.m4a")})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if outcome.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %d", outcome.ExitCode)
	}
	if outcome.Stderr != "crashed on t1" {
		t.Fatalf("unexpected stderr: %q", outcome.Stderr)
	}
}

func TestProcessLauncherMissingBinary(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Scheduler.WorkerBinary = filepath.Join(t.TempDir(), "missing")
	launcher, err := NewProcessLauncher(cfg, "", logging.NewNop())
	if err != nil {
		t.Fatalf("NewProcessLauncher: %v", err)
	}
	if _, err := launcher.Launch(context.Background(), &queue.Task{ID: "t1"}); err == nil {
		t.Fatal("expected start error")
	}
}

func TestTailBufferKeepsLastBytes(t *testing.T) {
	buf := newTailBuffer(5)
	_, _ = buf.Write([]byte("abc"))
	_, _ = buf.Write([]byte("defgh"))
	if got := buf.String(); got != "defgh" {
		t.Fatalf("tail = %q", got)
	}
}

func TestLockRejectsSecondInstance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "scheduler.lock")
	first := NewLock(path)
	if err := first.Acquire(); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	t.Cleanup(func() { _ = first.Release() })

	second := NewLock(path)
	if err := second.Acquire(); err != ErrAlreadyRunning {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := second.Acquire(); err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	_ = second.Release()
}
