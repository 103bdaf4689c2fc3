package main

import (
	"strings"
	"testing"
)

func TestRootHelpListsCommands(t *testing.T) {
	out, _, err := runCLI(t, []string{"--help"}, "")
	if err != nil {
		t.Fatalf("help: %v", err)
	}
	for _, name := range []string{"scheduler", "queue", "config", "check"} {
		requireContains(t, out, name)
	}
	if strings.Contains(out, "worker <task-id>") {
		t.Fatal("worker command should be hidden from help")
	}
}

func TestWorkerCommandValidatesArguments(t *testing.T) {
	env := setupCLITestEnv(t)

	cases := []struct {
		name string
		args []string
	}{
		{name: "missing mode", args: []string{"worker", "task-1"}},
		{name: "unknown mode", args: []string{"worker", "task-1", "gpu", "--source", "/tmp/a.m4a"}},
		{name: "missing source", args: []string{"worker", "task-1", "local"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := runCLI(t, tc.args, env.configPath); err == nil {
				t.Fatalf("expected error for %v", tc.args)
			}
		})
	}
}

func TestWorkerCommandFailsForMissingLocalFile(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"worker", "task-9", "local", "--source", "/nonexistent/audio.m4a"}, env.configPath)
	if err == nil {
		t.Fatal("expected worker failure for missing media")
	}
}
