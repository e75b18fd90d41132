package main

import (
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
)

// setupLog routes logging to the file named by CAPVOX_LOGFILE, or
// discards it. Stdout belongs to the TUI.
func setupLog() (func() error, error) {
	if logFile := os.Getenv("CAPVOX_LOGFILE"); logFile != "" {
		if os.Getenv("DEBUG") != "" {
			log.SetLevel(log.DebugLevel)
			log.SetReportCaller(true)
		}
		f, err := tea.LogToFileWith(logFile, "capvox", log.Default())
		if err != nil {
			return nil, err //nolint:wrapcheck
		}
		return f.Close, nil
	}
	log.SetOutput(io.Discard)
	return func() error { return nil }, nil
}
