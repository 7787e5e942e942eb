package duck

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
)

var (
	ErrConfigMissing   = errors.New("configuration missing")
	ErrInputNotFound   = errors.New("input not found")
	ErrSchemaViolation = errors.New("schema violation")
	ErrWriteFailure    = errors.New("write failure")
)

// Connection is the subset of *sql.Conn the pipeline runs statements through.
type Connection interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	Close() error
}

// EngineConfig configures an embedded DuckDB instance.
type EngineConfig struct {
	// TimeZone is the session time zone used for local wall-clock conversions
	// ("Local" resolves to the process time zone).
	TimeZone string
	// Threads caps DuckDB worker threads; zero keeps the engine default.
	Threads int
	// UseS3 loads httpfs and aws and creates an S3 secret from S3.
	UseS3 bool
	S3    *S3Config
}

type Engine struct {
	log      *slog.Logger
	db       *sql.DB
	timeZone string
}

// NewEngine opens an in-memory DuckDB database and prepares it for reading
// JSON and writing Parquet against local or S3 locations.
func NewEngine(ctx context.Context, log *slog.Logger, cfg EngineConfig) (*Engine, error) {
	if err := validateTimeZone(cfg.TimeZone); err != nil {
		return nil, err
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Temp tables live on the connection, so every caller shares one.
	db.SetMaxOpenConns(1)

	e := &Engine{log: log, db: db}
	if err := e.init(ctx, cfg); err != nil {
		db.Close()
		return nil, err
	}
	return e, nil
}

func (e *Engine) init(ctx context.Context, cfg EngineConfig) error {
	if cfg.TimeZone != "" && cfg.TimeZone != LocalTimeZone {
		if _, err := e.db.ExecContext(ctx, fmt.Sprintf("SET GLOBAL TimeZone = %s", quoteLiteral(cfg.TimeZone))); err != nil {
			return fmt.Errorf("failed to set time zone %q: %w", cfg.TimeZone, err)
		}
	}
	if err := e.db.QueryRowContext(ctx, "SELECT current_setting('TimeZone')").Scan(&e.timeZone); err != nil {
		return fmt.Errorf("failed to read session time zone: %w", err)
	}
	if cfg.Threads > 0 {
		if _, err := e.db.ExecContext(ctx, fmt.Sprintf("SET GLOBAL threads = %d", cfg.Threads)); err != nil {
			return fmt.Errorf("failed to set threads: %w", err)
		}
	}

	if !cfg.UseS3 {
		return nil
	}
	if cfg.S3 == nil {
		return fmt.Errorf("%w: S3 configuration is required when using s3:// locations", ErrConfigMissing)
	}

	for _, ext := range []string{"httpfs", "aws"} {
		if _, err := e.db.ExecContext(ctx, fmt.Sprintf("INSTALL '%s'", ext)); err != nil {
			return fmt.Errorf("failed to install extension %s: %w", ext, err)
		}
		if _, err := e.db.ExecContext(ctx, fmt.Sprintf("LOAD '%s'", ext)); err != nil {
			return fmt.Errorf("failed to load extension %s: %w", ext, err)
		}
	}

	if _, err := e.db.ExecContext(ctx, cfg.S3.secretSQL()); err != nil {
		return fmt.Errorf("failed to create S3 secret: %w", err)
	}
	e.log.Info("configured S3 access", "endpoint", cfg.S3.Endpoint, "region", cfg.S3.Region)
	return nil
}

func (e *Engine) TimeZone() string {
	return e.timeZone
}

func (e *Engine) Close() error {
	return e.db.Close()
}

// Conn returns a dedicated connection. Staging temp tables created through it
// are only visible to that connection.
func (e *Engine) Conn(ctx context.Context) (Connection, error) {
	conn, err := e.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	return conn, nil
}

// LocalTimeZone keeps DuckDB's default session zone, which is the host zone.
const LocalTimeZone = "Local"

func validateTimeZone(tz string) error {
	if tz == "" || tz == LocalTimeZone {
		return nil
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return fmt.Errorf("invalid time zone %q: %w", tz, err)
	}
	return nil
}

// Literal renders s as a SQL string literal.
func Literal(s string) string {
	return quoteLiteral(s)
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// quoteIdent renders s as a SQL identifier.
func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
