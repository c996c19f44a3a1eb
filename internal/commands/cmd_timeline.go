package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/wherewasi/internal/core/timeline"
	"github.com/colonyops/wherewasi/internal/tracker"
	"github.com/colonyops/wherewasi/pkg/iojson"
)

const dateLayout = "2006-01-02"

// TimelineCmd implements the wherewasi timeline command group.
type TimelineCmd struct {
	flags *Flags
	app   *tracker.App

	date       string
	jsonOutput bool

	// now is the reference clock for --date defaults. Replaced in tests.
	now func() time.Time
}

// NewTimelineCmd creates a new timeline command.
func NewTimelineCmd(flags *Flags, app *tracker.App) *TimelineCmd {
	return &TimelineCmd{flags: flags, app: app, now: time.Now}
}

// Register adds the timeline command to the application.
func (cmd *TimelineCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:    "timeline",
		Aliases: []string{"tl"},
		Usage:   "Show where your time went",
		Description: `Timeline commands rebuild work intervals and markers from item history.

An interval runs from an item's start to the stop, completion or switch
that ended it. Markers are single moments such as an item being completed
or reopened.

Examples:
  wherewasi timeline day                      # today
  wherewasi timeline day --date 2026-03-12    # a specific day
  wherewasi timeline week --json              # this week as JSON`,
		Commands: []*cli.Command{
			cmd.rangeCmd("day", "Show one day", (*tracker.TimelineService).Day),
			cmd.rangeCmd("week", "Show the week containing a day", (*tracker.TimelineService).Week),
			{
				Name:      "intervals",
				Usage:     "List every interval, newest first",
				UsageText: "wherewasi timeline intervals [--json]",
				Flags:     []cli.Flag{cmd.jsonFlag()},
				Action:    cmd.runIntervals,
			},
			{
				Name:      "markers",
				Usage:     "List every marker, newest first",
				UsageText: "wherewasi timeline markers [--json]",
				Flags:     []cli.Flag{cmd.jsonFlag()},
				Action:    cmd.runMarkers,
			},
		},
	})

	return app
}

func (cmd *TimelineCmd) jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:        "json",
		Usage:       "output as JSON",
		Destination: &cmd.jsonOutput,
	}
}

func (cmd *TimelineCmd) rangeCmd(
	name, usage string,
	viewOf func(s *tracker.TimelineService, ctx context.Context, t time.Time) (timeline.View, error),
) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		UsageText: fmt.Sprintf("wherewasi timeline %s [--date YYYY-MM-DD] [--json]", name),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "date",
				Aliases:     []string{"d"},
				Usage:       "local date to show (defaults to today)",
				Destination: &cmd.date,
			},
			cmd.jsonFlag(),
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			day, err := cmd.day()
			if err != nil {
				return err
			}

			view, err := viewOf(cmd.app.Timeline, ctx, day)
			if err != nil {
				return fmt.Errorf("build timeline: %w", err)
			}

			if cmd.jsonOutput {
				return iojson.Write(c.Root().Writer, view)
			}
			return writeView(c.Root().Writer, view, cmd.now())
		},
	}
}

func (cmd *TimelineCmd) day() (time.Time, error) {
	if cmd.date == "" {
		return cmd.now(), nil
	}
	t, err := time.ParseInLocation(dateLayout, cmd.date, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q (want YYYY-MM-DD): %w", cmd.date, err)
	}
	return t, nil
}

func (cmd *TimelineCmd) runIntervals(ctx context.Context, c *cli.Command) error {
	intervals, err := cmd.app.Timeline.Intervals(ctx)
	if err != nil {
		return fmt.Errorf("build intervals: %w", err)
	}

	out := c.Root().Writer
	if cmd.jsonOutput {
		for _, iv := range intervals {
			if err := iojson.WriteLine(out, iv); err != nil {
				return fmt.Errorf("encode interval: %w", err)
			}
		}
		return nil
	}

	return writeIntervals(out, intervals, cmd.now(), time.DateTime)
}

func (cmd *TimelineCmd) runMarkers(ctx context.Context, c *cli.Command) error {
	markers, err := cmd.app.Timeline.Markers(ctx)
	if err != nil {
		return fmt.Errorf("build markers: %w", err)
	}

	out := c.Root().Writer
	if cmd.jsonOutput {
		for _, m := range markers {
			if err := iojson.WriteLine(out, m); err != nil {
				return fmt.Errorf("encode marker: %w", err)
			}
		}
		return nil
	}

	return writeMarkers(out, markers, time.DateTime)
}

func writeView(out io.Writer, view timeline.View, now time.Time) error {
	start := view.Range.Start
	last := view.Range.End.Add(-time.Nanosecond)
	if start.YearDay() == last.YearDay() && start.Year() == last.Year() {
		_, _ = fmt.Fprintf(out, "%s\n\n", start.Format("Monday, 2006-01-02"))
	} else {
		_, _ = fmt.Fprintf(out, "%s to %s\n\n", start.Format(dateLayout), last.Format(dateLayout))
	}

	if len(view.Intervals) == 0 && len(view.Markers) == 0 {
		_, _ = fmt.Fprintln(out, "nothing tracked")
		return nil
	}

	layout := "15:04"
	if view.Range.End.Sub(view.Range.Start) > 25*time.Hour {
		layout = "Mon 15:04"
	}

	if err := writeIntervals(out, view.Intervals, now, layout); err != nil {
		return err
	}

	if len(view.Markers) > 0 {
		_, _ = fmt.Fprintln(out)
		if err := writeMarkers(out, view.Markers, layout); err != nil {
			return err
		}
	}

	if len(view.Totals) > 0 {
		_, _ = fmt.Fprintln(out)
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "TOTAL\tINTERVALS\tTITLE")
		for _, t := range view.Totals {
			_, _ = fmt.Fprintf(w, "%s\t%d\t%s\n", formatDuration(t.Duration), t.Intervals, t.ItemTitle)
		}
		return w.Flush()
	}

	return nil
}

func writeIntervals(out io.Writer, intervals []timeline.Interval, now time.Time, layout string) error {
	if len(intervals) == 0 {
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "START\tEND\tDURATION\tREASON\tTITLE")
	for _, iv := range intervals {
		end := "now"
		if iv.EndTime != nil {
			end = iv.EndTime.Local().Format(layout)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			iv.StartTime.Local().Format(layout), end, formatDuration(iv.Duration(now)), iv.EndReason, iv.ItemTitle)
	}
	return w.Flush()
}

func writeMarkers(out io.Writer, markers []timeline.Marker, layout string) error {
	if len(markers) == 0 {
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "AT\tEVENT\tTITLE")
	for _, m := range markers {
		title := m.ItemTitle
		if m.Dimmed {
			title += " (undone)"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", m.Timestamp.Local().Format(layout), m.EventType, title)
	}
	return w.Flush()
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh%02dm", h, m)
}
