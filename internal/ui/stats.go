package ui

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/pterm/pterm"

	"github.com/Norgate-AV/respite/internal/cache"
)

// RenderStats prints a journal summary as a table
func RenderStats(out io.Writer, path string, s cache.Stats) error {
	lastRun := "never"
	if !s.LastRun.IsZero() {
		lastRun = fmt.Sprintf("%s (%s)", s.LastRun.Format(time.RFC3339), s.LastRunID)
	}

	table, err := pterm.DefaultTable.WithData(pterm.TableData{
		{"Journal", path},
		{"Entries", strconv.Itoa(s.Entries)},
		{"Failed", strconv.Itoa(s.Failures)},
		{"Compile time", s.TotalDuration.Round(time.Millisecond).String()},
		{"Last run", lastRun},
	}).Srender()
	if err != nil {
		return fmt.Errorf("failed to render stats: %w", err)
	}

	_, err = fmt.Fprintln(out, table)
	return err
}
