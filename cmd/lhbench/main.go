package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shyim/lighthouse-bench/internal/client"
	"github.com/shyim/lighthouse-bench/internal/state"
	"github.com/shyim/lighthouse-bench/internal/telemetry"
	"github.com/shyim/lighthouse-bench/internal/tracker"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
)

const usage = `Usage: lhbench [global flags] <command> [args]

Commands:
  urls add <url>...        track URLs
  urls rm <url>...         stop tracking URLs and drop their measurements
  urls ls                  list tracked URLs
  presets                  list throttling presets offered by the server
  measure [--preset k] [--save]
                           measure every tracked URL once
  records ls               list saved records
  records rm <n>           delete record n
  records reset [--yes]    delete all records
  avg                      average over all measurements per URL
  record-avg               average over saved records per URL
  export --out <file.zip>  write urls, measurements and records to a zip

Global flags:
`

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	fs := flag.NewFlagSet("lhbench", flag.ContinueOnError)
	fs.SetInterspersed(false)
	server := fs.String("server", envOr("LHBENCH_SERVER", "http://localhost:8080"), "measurement server URL")
	token := fs.String("token", os.Getenv("LHBENCH_TOKEN"), "bearer token for the server")
	dbPath := fs.String("db", envOr("LHBENCH_DB", "lhbench.db"), "SQLite database file")
	clientID := fs.String("client", envOr("LHBENCH_CLIENT", "default"), "client id the data is stored under")
	logLevel := fs.String("log-level", "info", "log level")
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			return
		}
		os.Exit(2)
	}
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}

	if err := telemetry.ConfigureLogging(*logLevel); err != nil {
		logrus.Fatal(err)
	}

	db, err := state.OpenSQLite(*dbPath)
	if err != nil {
		logrus.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{
		tracker: tracker.New(db.Client(*clientID)),
		server:  client.New(*server, *token),
		in:      os.Stdin,
		out:     os.Stdout,
	}

	if err := a.run(ctx, fs.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		db.Close()
		os.Exit(1)
	}
}
