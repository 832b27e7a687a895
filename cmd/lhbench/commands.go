package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shyim/lighthouse-bench/internal/models"
	"github.com/shyim/lighthouse-bench/internal/tracker"
	"github.com/shyim/lighthouse-bench/internal/utils"
	flag "github.com/spf13/pflag"
)

type measurementServer interface {
	tracker.Measurer
	Presets(ctx context.Context) ([]models.PresetInfo, error)
}

type app struct {
	tracker *tracker.Tracker
	server  measurementServer
	in      io.Reader
	out     io.Writer
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("missing command")
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "urls":
		return a.urls(ctx, rest)
	case "presets":
		return a.presets(ctx)
	case "measure":
		return a.measure(ctx, rest)
	case "records":
		return a.records(ctx, rest)
	case "avg":
		return a.avg(ctx)
	case "record-avg":
		return a.recordAvg(ctx)
	case "export":
		return a.export(ctx, rest)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) urls(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: urls add|rm|ls")
	}

	switch args[0] {
	case "add":
		if len(args) < 2 {
			return errors.New("usage: urls add <url>...")
		}
		for _, raw := range args[1:] {
			u, err := a.tracker.URLs.Add(ctx, raw)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Tracking %s\n", u)
		}
		return nil
	case "rm":
		if len(args) < 2 {
			return errors.New("usage: urls rm <url>...")
		}
		for _, u := range args[1:] {
			removed, err := a.tracker.RemoveURL(ctx, strings.TrimSpace(u))
			if err != nil {
				return err
			}
			if removed {
				fmt.Fprintf(a.out, "Removed %s\n", u)
			} else {
				fmt.Fprintf(a.out, "%s was not tracked\n", u)
			}
		}
		return nil
	case "ls":
		urls, err := a.tracker.URLs.List(ctx)
		if err != nil {
			return err
		}
		for _, u := range urls {
			fmt.Fprintln(a.out, u)
		}
		return nil
	default:
		return fmt.Errorf("unknown urls command %q", args[0])
	}
}

func (a *app) presets(ctx context.Context) error {
	presets, err := a.server.Presets(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	for _, p := range presets {
		fmt.Fprintf(w, "%s\t%s\n", p.Key, p.DisplayName)
	}
	return w.Flush()
}

func (a *app) measure(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("measure", flag.ContinueOnError)
	fs.SetOutput(a.out)
	presetKey := fs.String("preset", "", "throttling preset key (server default when empty)")
	save := fs.Bool("save", false, "save the round as a record when it completes")
	if err := fs.Parse(args); err != nil {
		return err
	}

	summary, err := a.tracker.RunRound(ctx, a.server, *presetKey, func(ev tracker.RoundEvent) {
		if ev.Err != nil {
			fmt.Fprintf(a.out, "[%d/%d] %s FAILED: %v\n", ev.Index, ev.Total, ev.URL, ev.Err)
			return
		}
		m := ev.Result.Metrics
		fmt.Fprintf(a.out, "[%d/%d] %s score %d, LCP %d ms, FCP %d ms, TBT %d ms\n",
			ev.Index, ev.Total, ev.URL, m.Score, m.LCPMs, m.FCPMs, m.TBTMs)
	})
	if err != nil {
		return err
	}

	if summary.Total == 0 {
		fmt.Fprintln(a.out, "No URLs tracked")
		return nil
	}
	fmt.Fprintf(a.out, "Measured %d of %d URLs\n", summary.Succeeded, summary.Total)

	if !*save {
		return nil
	}
	rec, err := a.tracker.SaveRound(ctx)
	if errors.Is(err, tracker.ErrEmptyRound) {
		fmt.Fprintln(a.out, "Nothing to save")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Saved record %d with %d URLs\n", rec.RecordNumber, len(rec.Measurements))
	return nil
}

func (a *app) records(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: records ls|rm <n>|reset [--yes]")
	}

	switch args[0] {
	case "ls":
		records, err := a.tracker.Records.All(ctx)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Fprintln(a.out, "No records saved")
			return nil
		}
		w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
		for _, r := range records {
			fmt.Fprintf(w, "#%d\t%s\t\t\t\t\n", r.RecordNumber, r.SavedAt.Local().Format(time.DateTime))
			for _, e := range r.Measurements {
				fmt.Fprintf(w, "\t%s\t%d\t%d ms\t%d ms\t%d ms\n", e.URL, e.Score, e.LCPMs, e.FCPMs, e.TBTMs)
			}
		}
		return w.Flush()
	case "rm":
		if len(args) != 2 {
			return errors.New("usage: records rm <n>")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid record number %q", args[1])
		}
		if err := a.tracker.DeleteRecord(ctx, n); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Deleted record %d\n", n)
		return nil
	case "reset":
		fs := flag.NewFlagSet("records reset", flag.ContinueOnError)
		fs.SetOutput(a.out)
		yes := fs.Bool("yes", false, "do not ask for confirmation")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if !*yes && !a.confirm("Delete all saved records?") {
			fmt.Fprintln(a.out, "Aborted")
			return nil
		}
		if err := a.tracker.ResetRecords(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "All records deleted")
		return nil
	default:
		return fmt.Errorf("unknown records command %q", args[0])
	}
}

func (a *app) confirm(question string) bool {
	fmt.Fprintf(a.out, "%s [y/N] ", question)
	answer, _ := bufio.NewReader(a.in).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func (a *app) avg(ctx context.Context) error {
	averages, err := a.tracker.CalculateAverages(ctx)
	if err != nil {
		return err
	}
	return a.printAverages(averages)
}

func (a *app) recordAvg(ctx context.Context) error {
	averages, err := a.tracker.CalculateRecordAverages(ctx)
	if err != nil {
		return err
	}
	if len(averages) == 0 {
		fmt.Fprintln(a.out, "No records saved")
		return nil
	}
	return a.printAverages(averages)
}

func (a *app) printAverages(averages []models.Average) error {
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "URL\tRUNS\tSCORE\tLCP\tFCP\tTBT")
	for _, avg := range averages {
		if !avg.HasData() {
			fmt.Fprintf(w, "%s\t0\t-\t-\t-\t-\n", avg.URL)
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d ms\t%d ms\t%d ms\n", avg.URL, avg.Count, avg.Score, avg.LCPMs, avg.FCPMs, avg.TBTMs)
	}
	return w.Flush()
}

func (a *app) export(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(a.out)
	out := fs.String("out", "lhbench-export.zip", "target zip file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	urls, err := a.tracker.URLs.List(ctx)
	if err != nil {
		return err
	}
	measurements, err := a.tracker.Log.All(ctx)
	if err != nil {
		return err
	}
	records, err := a.tracker.Records.All(ctx)
	if err != nil {
		return err
	}

	collections := []struct {
		name string
		v    any
	}{
		{"urls.json", nonNil(urls)},
		{"measurements.json", nonNil(measurements)},
		{"records.json", nonNil(records)},
	}

	entries := make([]utils.ArchiveEntry, 0, len(collections))
	for _, c := range collections {
		data, err := json.MarshalIndent(c.v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", c.name, err)
		}
		entries = append(entries, utils.ArchiveEntry{Name: c.name, Data: data})
	}

	if err := utils.WriteArchive(*out, entries, time.Now()); err != nil {
		return fmt.Errorf("failed to write %s: %w", *out, err)
	}
	fmt.Fprintf(a.out, "Exported to %s\n", *out)
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
