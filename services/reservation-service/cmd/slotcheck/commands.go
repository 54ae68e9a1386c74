package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/varaamo/reservable/services/reservation-service/internal/availability"
)

type rootOptions struct {
	snapshot string
	now      string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "slotcheck",
		Short:         "Check reservation slots against a unit snapshot file",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.snapshot, "snapshot", "", "path to the YAML snapshot")
	root.PersistentFlags().StringVar(&opts.now, "now", "", "evaluation time (RFC3339); overrides the snapshot")
	_ = root.MarkPersistentFlagRequired("snapshot")

	root.AddCommand(newCheckCmd(opts))
	root.AddCommand(newSlotsCmd(opts))
	root.AddCommand(newGridCmd(opts))
	root.AddCommand(newBuffersCmd(opts))
	return root
}

func (o *rootOptions) load() (availability.Snapshot, error) {
	f, err := loadFixture(o.snapshot)
	if err != nil {
		return availability.Snapshot{}, err
	}
	if o.now != "" {
		if _, err := time.Parse(time.RFC3339, o.now); err != nil {
			return availability.Snapshot{}, fmt.Errorf("invalid --now (want RFC3339): %w", err)
		}
		f.Now = o.now
	}
	return f.Snapshot(time.Now())
}

func newCheckCmd(opts *rootOptions) *cobra.Command {
	var begin, end string
	c := &cobra.Command{
		Use:   "check",
		Short: "Report whether [begin, end) can be reserved",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.load()
			if err != nil {
				return err
			}
			b, err := time.Parse(time.RFC3339, begin)
			if err != nil {
				return fmt.Errorf("invalid --begin (want RFC3339): %w", err)
			}
			e, err := time.Parse(time.RFC3339, end)
			if err != nil {
				return fmt.Errorf("invalid --end (want RFC3339): %w", err)
			}
			writeCheck(cmd.OutOrStdout(), availability.Interval{Start: b, End: e}, s)
			return nil
		},
	}
	c.Flags().StringVar(&begin, "begin", "", "start of the interval (RFC3339)")
	c.Flags().StringVar(&end, "end", "", "end of the interval (RFC3339)")
	_ = c.MarkFlagRequired("begin")
	_ = c.MarkFlagRequired("end")
	return c
}

func writeCheck(w io.Writer, candidate availability.Interval, s availability.Snapshot) {
	reason := availability.Check(candidate, s)
	if reason == availability.ReasonNone {
		fmt.Fprintln(w, "reservable")
		return
	}
	fmt.Fprintf(w, "rejected: %s\n", reason)
	if reason.IsCollision() {
		cons := s.Constraints
		for _, r := range availability.Collisions(candidate, cons.BufferBefore, cons.BufferAfter, s.Reservations) {
			fmt.Fprintf(w, "  %s %s - %s\n", r.ID, formatTime(r.Begin, s), formatTime(r.End, s))
		}
	}
}

func newSlotsCmd(opts *rootOptions) *cobra.Command {
	var date, length string
	c := &cobra.Command{
		Use:   "slots",
		Short: "List reservable start times of a day",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.load()
			if err != nil {
				return err
			}
			day, err := availability.ParseDate(date)
			if err != nil {
				return fmt.Errorf("invalid --date (want YYYY-MM-DD): %w", err)
			}
			d := s.Constraints.MinDuration
			if length != "" {
				if d, err = availability.ParseDuration(length); err != nil {
					return fmt.Errorf("invalid --duration: %w", err)
				}
			}
			if d <= 0 {
				return fmt.Errorf("--duration is required when the snapshot has no min_duration")
			}
			out := cmd.OutOrStdout()
			for _, start := range availability.ReservableStarts(day, d, s) {
				fmt.Fprintf(out, "%s - %s\n", formatTime(start, s), formatTime(start.Add(d), s))
			}
			return nil
		},
	}
	c.Flags().StringVar(&date, "date", "", "day to list (YYYY-MM-DD)")
	c.Flags().StringVar(&length, "duration", "", "reservation length (PT1H, 01:00 or seconds)")
	_ = c.MarkFlagRequired("date")
	return c
}

func newGridCmd(opts *rootOptions) *cobra.Command {
	var date, lang string
	c := &cobra.Command{
		Use:   "grid",
		Short: "Print the classified calendar cells of a day",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.load()
			if err != nil {
				return err
			}
			day, err := availability.ParseDate(date)
			if err != nil {
				return fmt.Errorf("invalid --date (want YYYY-MM-DD): %w", err)
			}
			loc := zone(s)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", availability.WeekdayLabel(day.StartOfDay(loc), availability.LabelsFor(lang)), day)
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, cell := range availability.DayGrid(day, s) {
				fmt.Fprintf(tw, "%s\t%s\n", availability.LocalTimeOf(cell.Start.In(loc)), cell.State)
			}
			return tw.Flush()
		},
	}
	c.Flags().StringVar(&date, "date", "", "day to print (YYYY-MM-DD)")
	c.Flags().StringVar(&lang, "lang", "en", "weekday label language (en, fi, sv)")
	_ = c.MarkFlagRequired("date")
	return c
}

func newBuffersCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "buffers",
		Short: "List the buffer intervals around the snapshot's reservations",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.load()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, v := range availability.DeriveBufferVisuals(s.Reservations) {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v.ReservationID, v.Side,
					formatTime(v.Interval.Start, s), formatTime(v.Interval.End, s))
			}
			return tw.Flush()
		},
	}
}

func zone(s availability.Snapshot) *time.Location {
	if s.Location != nil {
		return s.Location
	}
	return time.UTC
}

func formatTime(t time.Time, s availability.Snapshot) string {
	return t.In(zone(s)).Format(time.RFC3339)
}
