package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"scribe/internal/queue"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const statusLabelWidth = 22

func statusColor(status queue.Status) string {
	switch status {
	case queue.StatusCompleted:
		return ansiGreen
	case queue.StatusFailed:
		return ansiRed
	case queue.StatusProcessing:
		return ansiYellow
	case queue.StatusQueued:
		return ansiBlue
	default:
		return ""
	}
}

func renderStatus(status queue.Status, colorize bool) string {
	if colorize {
		if color := statusColor(status); color != "" {
			return color + string(status) + ansiReset
		}
	}
	return string(status)
}

func renderCheckLine(label string, passed, optional bool, detail string, colorize bool) string {
	tag, color := "OK", ansiGreen
	switch {
	case passed:
	case optional:
		tag, color = "WARN", ansiYellow
	default:
		tag, color = "ERROR", ansiRed
	}
	line := fmt.Sprintf("  %-*s [%s] %s", statusLabelWidth, label+":", tag, detail)
	if colorize {
		return color + line + ansiReset
	}
	return line
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
