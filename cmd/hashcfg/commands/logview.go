package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/mash-protocol/hashcfg/pkg/log"
)

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [run:id] DIRECTION LAYER Type
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")

	var typeLabel string
	switch {
	case event.Frame != nil:
		typeLabel = "Frame"
	case event.Run != nil:
		typeLabel = "Run " + event.Run.Phase.String()
	case event.Decision != nil:
		typeLabel = event.Decision.Action.String()
	case event.Error != nil:
		typeLabel = "Error"
	default:
		typeLabel = "Unknown"
	}

	header := fmt.Sprintf("%s [run:%s]", ts, shortenRunID(event.RunID))
	if event.Layer == log.LayerCodec {
		header += fmt.Sprintf(" %-3s", event.Direction)
	}
	fmt.Fprintf(w, "%s %s %s\n", header, event.Layer, typeLabel)
	if event.Source != "" {
		fmt.Fprintf(w, "  Source: %s\n", event.Source)
	}

	switch {
	case event.Frame != nil:
		formatFrameDetails(w, event.Frame)
	case event.Run != nil:
		formatRunDetails(w, event.Run)
	case event.Decision != nil:
		formatDecisionDetails(w, event.Decision)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w)
}

func shortenRunID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatFrameDetails(w io.Writer, frame *log.FrameEvent) {
	fmt.Fprintf(w, "  Size: %d bytes", frame.Size)
	if frame.Format != "" {
		fmt.Fprintf(w, " (%s)", frame.Format)
	}
	fmt.Fprintln(w)
	if len(frame.Data) > 0 {
		fmt.Fprintf(w, "  Data: %s", hex.EncodeToString(frame.Data))
		if frame.Truncated {
			fmt.Fprintf(w, " (truncated)")
		}
		fmt.Fprintln(w)
	}
}

func formatRunDetails(w io.Writer, run *log.RunEvent) {
	fmt.Fprintf(w, "  Mode: %s", run.Mode)
	if run.State != "" {
		fmt.Fprintf(w, "  State: %s", run.State)
	}
	fmt.Fprintln(w)
	if run.Phase == log.RunFinished {
		fmt.Fprintf(w, "  Violations: %d\n", run.Errors)
		if run.Duration != nil {
			fmt.Fprintf(w, "  Duration: %s\n", formatDuration(*run.Duration))
		}
	}
}

func formatDecisionDetails(w io.Writer, d *log.DecisionEvent) {
	fmt.Fprintf(w, "  Path: %s", d.Path)
	if d.Kind != "" {
		fmt.Fprintf(w, " (%s)", d.Kind)
	}
	fmt.Fprintln(w)
	if d.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", d.Reason)
	}
}

func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", err.Layer)
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Kind != "" {
		fmt.Fprintf(w, "  Kind: %s\n", err.Kind)
	}
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// RunLogView prints the events of an audit log that match filter.
func RunLogView(path string, filter log.Filter, w io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	count := 0
	for event, err := range reader.All() {
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(w, event)
		count++
	}
	if count == 0 {
		fmt.Fprintln(w, "No matching events.")
	}
	return nil
}

// ResolveRunID expands a run ID prefix, as printed by the view, to the full
// ID of the first run in the log that starts with it.
func ResolveRunID(path, prefix string) (string, error) {
	reader, err := log.NewReader(path)
	if err != nil {
		return "", fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for event, err := range reader.All() {
		if err != nil {
			return "", fmt.Errorf("failed to read event: %w", err)
		}
		if strings.HasPrefix(event.RunID, prefix) {
			return event.RunID, nil
		}
	}
	return "", fmt.Errorf("no run matches %q", prefix)
}

// ParseLayerFlag parses a layer name (case-insensitive).
func ParseLayerFlag(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "codec":
		return log.LayerCodec, nil
	case "schema":
		return log.LayerSchema, nil
	case "validation":
		return log.LayerValidation, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be codec, schema, or validation)", s)
	}
}

// ParseCategoryFlag parses a category name (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "frame":
		return log.CategoryFrame, nil
	case "run":
		return log.CategoryRun, nil
	case "decision":
		return log.CategoryDecision, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be frame, run, decision, or error)", s)
	}
}

// ParseDirectionFlag parses a direction name (case-insensitive).
func ParseDirectionFlag(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// Stats holds aggregate statistics about an audit log.
type Stats struct {
	TotalEvents      int
	EventsByLayer    map[log.Layer]int
	EventsByCategory map[log.Category]int
	EventsByAction   map[log.Action]int
	Runs             map[string]*RunStats
	Errors           int
	TimeRange        struct {
		Start time.Time
		End   time.Time
	}
}

// RunStats holds statistics for a single validation pass or stream.
type RunStats struct {
	FirstSeen  time.Time
	Events     int
	Source     string
	Mode       string
	Violations int
	Finished   bool
}

// RunLogStats analyzes an audit log and prints statistics.
func RunLogStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByLayer:    make(map[log.Layer]int),
		EventsByCategory: make(map[log.Category]int),
		EventsByAction:   make(map[log.Action]int),
		Runs:             make(map[string]*RunStats),
	}
	for event, err := range reader.All() {
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		collect(stats, event)
	}

	printStats(w, stats)
	return nil
}

func collect(stats *Stats, event log.Event) {
	stats.TotalEvents++
	stats.EventsByLayer[event.Layer]++
	stats.EventsByCategory[event.Category]++

	if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
		stats.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(stats.TimeRange.End) {
		stats.TimeRange.End = event.Timestamp
	}

	run, ok := stats.Runs[event.RunID]
	if !ok {
		run = &RunStats{FirstSeen: event.Timestamp, Source: event.Source}
		stats.Runs[event.RunID] = run
	}
	run.Events++

	switch {
	case event.Decision != nil:
		stats.EventsByAction[event.Decision.Action]++
	case event.Run != nil:
		run.Mode = event.Run.Mode
		if event.Run.Phase == log.RunFinished {
			run.Finished = true
			run.Violations = event.Run.Errors
		}
	case event.Error != nil:
		stats.Errors++
	}
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Audit Log Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerCodec, log.LayerSchema, log.LayerValidation} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-16s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryFrame, log.CategoryRun, log.CategoryDecision, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-16s %d\n", cat.String()+":", count)
		}
	}

	if len(stats.EventsByAction) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Decisions:")
		for _, a := range []log.Action{log.ActionAccepted, log.ActionDefaulted, log.ActionCoerced, log.ActionPassedThrough, log.ActionRejected} {
			if count := stats.EventsByAction[a]; count > 0 {
				fmt.Fprintf(w, "  %-16s %d\n", a.String()+":", count)
			}
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Runs: %d\n", len(stats.Runs))
	if len(stats.Runs) > 0 {
		type runInfo struct {
			id    string
			stats *RunStats
		}
		runs := make([]runInfo, 0, len(stats.Runs))
		for id, rs := range stats.Runs {
			runs = append(runs, runInfo{id, rs})
		}
		sort.Slice(runs, func(i, j int) bool {
			return runs[i].stats.FirstSeen.Before(runs[j].stats.FirstSeen)
		})

		fmt.Fprintln(w)
		for _, r := range runs {
			fmt.Fprintf(w, "  [%s] %d events", shortenRunID(r.id), r.stats.Events)
			if r.stats.Source != "" {
				fmt.Fprintf(w, ", source %s", r.stats.Source)
			}
			fmt.Fprintln(w)
			if r.stats.Finished {
				fmt.Fprintf(w, "             %s: %d violation(s)\n", r.stats.Mode, r.stats.Violations)
			}
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
