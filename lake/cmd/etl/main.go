package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	flag "github.com/spf13/pflag"

	"github.com/malbeclabs/sparkify-lake/config"
	"github.com/malbeclabs/sparkify-lake/lake/pkg/duck"
	"github.com/malbeclabs/sparkify-lake/lake/pkg/etl"
	"github.com/malbeclabs/sparkify-lake/lake/pkg/logger"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configFlag := flag.String("config", config.DefaultCredentialsFile, "Path to the credentials file (KEY=VALUE lines, read only when a location is on S3)")
	inputFlag := flag.String("input", etl.DefaultInput, "Input location holding song_data and log_data (s3://, s3a:// or a local path)")
	outputFlag := flag.String("output", etl.DefaultOutput, "Output location; tables are written under parquet/<table>")
	songGlobFlag := flag.String("song-glob", etl.DefaultSongGlob, "Song metadata glob, relative to --input")
	logGlobFlag := flag.String("log-glob", etl.DefaultLogGlob, "Activity log glob, relative to --input")
	timeZoneFlag := flag.String("timezone", duck.LocalTimeZone, "Time zone event timestamps are converted to (IANA name or Local)")
	threadsFlag := flag.Int("threads", 0, "Engine worker threads (0 lets the engine decide)")
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	metricsTextfileFlag := flag.String("metrics-textfile", "", "Write run metrics to this file in Prometheus text format")
	versionFlag := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("sparkify-etl %s (commit %s, built %s)\n", version, commit, date)
		return nil
	}

	log := logger.New(*verboseFlag)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	input, err := duck.ParseLocation(*inputFlag)
	if err != nil {
		return fmt.Errorf("invalid --input: %w", err)
	}
	output, err := duck.ParseLocation(*outputFlag)
	if err != nil {
		return fmt.Errorf("invalid --output: %w", err)
	}

	var s3cfg *duck.S3Config
	if duck.AnyS3(input, output) {
		s3cfg, err = config.LoadS3Config(*configFlag)
		if err != nil {
			return fmt.Errorf("failed to load credentials: %w", err)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	metrics := etl.NewMetrics(reg)
	metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)

	pipeline, err := etl.New(ctx, log, etl.Config{
		Input:    input,
		Output:   output,
		SongGlob: *songGlobFlag,
		LogGlob:  *logGlobFlag,
		TimeZone: *timeZoneFlag,
		Threads:  *threadsFlag,
		S3:       s3cfg,
		Clock:    clockwork.NewRealClock(),
		Metrics:  metrics,
	})
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Close()

	_, runErr := pipeline.Run(ctx)

	if *metricsTextfileFlag != "" {
		if err := prometheus.WriteToTextfile(*metricsTextfileFlag, reg); err != nil {
			log.Error("failed to write metrics textfile", "path", *metricsTextfileFlag, "error", err)
			runErr = errors.Join(runErr, err)
		}
	}
	return runErr
}
