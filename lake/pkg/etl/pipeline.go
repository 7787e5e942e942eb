// Package etl reshapes the song catalog and user activity logs into the
// songs, artists, users, time and songplays tables.
//
// A run is two stages executed in order on one engine connection:
//
//	song catalog: song_data JSON -> songs, artists
//	event log:    log_data JSON + songs -> users, time, songplays
//
// The event log stage reads songs back from the location the song catalog
// stage reported, so it only ever sees a committed catalog.
package etl

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/malbeclabs/sparkify-lake/lake/pkg/duck"
	"github.com/malbeclabs/sparkify-lake/lake/pkg/storage"
)

const (
	DefaultInput    = "s3a://udacity-dend/"
	DefaultOutput   = "s3a://udacity-test-sparkify/"
	DefaultSongGlob = "song_data/*/*/*/*.json"
	DefaultLogGlob  = "log_data/*.json"

	// OutputPrefix is the directory under the output location that holds one
	// sub-directory per table.
	OutputPrefix = "parquet"

	stageSongCatalog = "song_catalog"
	stageEventLog    = "event_log"
)

type Config struct {
	Input  duck.Location
	Output duck.Location

	// SongGlob and LogGlob are relative to Input.
	SongGlob string
	LogGlob  string

	// TimeZone is the zone event timestamps are converted to; "Local" uses
	// the host zone.
	TimeZone string
	Threads  int

	// S3 is required when Input or Output is an s3:// location.
	S3 *duck.S3Config

	Clock   clockwork.Clock
	Metrics *Metrics
}

func (c *Config) Validate() error {
	if c.Input.Scheme == "" {
		return fmt.Errorf("input location is required")
	}
	if c.Output.Scheme == "" {
		return fmt.Errorf("output location is required")
	}
	if c.SongGlob == "" {
		c.SongGlob = DefaultSongGlob
	}
	if c.LogGlob == "" {
		c.LogGlob = DefaultLogGlob
	}
	if c.TimeZone == "" {
		c.TimeZone = duck.LocalTimeZone
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.Metrics == nil {
		c.Metrics = NewMetrics(prometheus.NewRegistry())
	}
	if duck.AnyS3(c.Input, c.Output) && c.S3 == nil {
		return fmt.Errorf("%w: S3 credentials are required for %s -> %s", ErrConfigMissing,
			c.Input.String(), c.Output.String())
	}
	return nil
}

// TableLocation is where a table's files live under the output location.
func (c *Config) TableLocation(t duck.TableConfig) duck.Location {
	return c.Output.Join(OutputPrefix, t.Name)
}

type Pipeline struct {
	log     *slog.Logger
	cfg     Config
	engine  *duck.Engine
	conn    duck.Connection
	store   duck.Store
	metrics *Metrics
	clock   clockwork.Clock
}

// New opens the engine and the output store. Credentials reach both through
// cfg.S3 only.
func New(ctx context.Context, log *slog.Logger, cfg Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	useS3 := duck.AnyS3(cfg.Input, cfg.Output)

	router := &storage.Router{}
	if useS3 {
		s3store, err := storage.NewS3(ctx, log, cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 store: %w", err)
		}
		if cfg.Output.IsS3() && cfg.S3.IsMinIO() && storage.IsLocalEndpoint(cfg.S3.Endpoint) {
			if err := s3store.EnsureBucket(ctx, cfg.Output.Bucket); err != nil {
				return nil, fmt.Errorf("failed to ensure MinIO bucket exists: %w", err)
			}
		}
		router.S3 = s3store
	}

	engine, err := duck.NewEngine(ctx, log, duck.EngineConfig{
		TimeZone: cfg.TimeZone,
		Threads:  cfg.Threads,
		UseS3:    useS3,
		S3:       cfg.S3,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	return newPipeline(ctx, log, cfg, engine, router)
}

func newPipeline(ctx context.Context, log *slog.Logger, cfg Config, engine *duck.Engine, store duck.Store) (*Pipeline, error) {
	conn, err := engine.Conn(ctx)
	if err != nil {
		engine.Close()
		return nil, err
	}
	return &Pipeline{
		log:     log,
		cfg:     cfg,
		engine:  engine,
		conn:    conn,
		store:   store,
		metrics: cfg.Metrics,
		clock:   cfg.Clock,
	}, nil
}

func (p *Pipeline) Close() error {
	connErr := p.conn.Close()
	if err := p.engine.Close(); err != nil {
		return err
	}
	return connErr
}

// Result summarises a run.
type Result struct {
	RunID    string
	Catalog  *SongCatalog
	EventLog *EventLog
	Duration time.Duration
}

// RowsWritten returns the row count of every table written by the run.
func (r *Result) RowsWritten() map[string]int64 {
	rows := make(map[string]int64, len(Tables))
	if r.Catalog != nil {
		rows[SongsTable.Name] = r.Catalog.SongRows
		rows[ArtistsTable.Name] = r.Catalog.ArtistRows
	}
	if r.EventLog != nil {
		rows[UsersTable.Name] = r.EventLog.UserRows
		rows[TimeTable.Name] = r.EventLog.TimeRows
		rows[SongplaysTable.Name] = r.EventLog.SongplayRows
	}
	return rows
}

// Run executes the song catalog stage and then the event log stage. There is
// no retry and no checkpoint: a failure leaves tables written so far in
// place, and rerunning rewrites every table.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	runStart := p.clock.Now()
	res := &Result{RunID: uuid.NewString()}
	log := p.log.With("run_id", res.RunID)

	log.Info("etl run starting",
		"input", p.cfg.Input.String(),
		"output", p.cfg.Output.String(),
		"time_zone", p.engine.TimeZone())

	catalog, err := p.processSongData(ctx, log)
	if err != nil {
		p.finish(log, res, runStart, err)
		return res, fmt.Errorf("song catalog stage: %w", err)
	}
	res.Catalog = catalog

	events, err := p.processLogData(ctx, log, catalog)
	if err != nil {
		p.finish(log, res, runStart, err)
		return res, fmt.Errorf("event log stage: %w", err)
	}
	res.EventLog = events

	p.finish(log, res, runStart, nil)
	return res, nil
}

func (p *Pipeline) finish(log *slog.Logger, res *Result, start time.Time, err error) {
	res.Duration = p.clock.Since(start)
	result := "success"
	if err != nil {
		result = "failure"
	}
	p.metrics.LastRun.WithLabelValues(result).Set(float64(p.clock.Now().Unix()))
	if err != nil {
		log.Error("etl run failed", "duration", res.Duration.String(), "error", err)
		return
	}
	log.Info("etl run finished", "duration", res.Duration.String(), "rows_written", res.RowsWritten())
}

// observeStage records a stage's wall time.
func (p *Pipeline) observeStage(stage string, start time.Time) {
	p.metrics.StageDuration.WithLabelValues(stage).Set(p.clock.Since(start).Seconds())
}

// writeTable writes one output table and records its row count.
func (p *Pipeline) writeTable(ctx context.Context, log *slog.Logger, t duck.TableConfig, query string) (int64, error) {
	dst := p.cfg.TableLocation(t)
	rows, err := duck.WriteParquet(ctx, log, p.conn, p.store, t, dst, query)
	if err != nil {
		return 0, err
	}
	p.metrics.RowsWritten.WithLabelValues(t.Name).Set(float64(rows))
	log.Info("table written", "table", t.Name, "rows", rows, "location", dst.String())
	return rows, nil
}
