package duck

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// CountFiles returns how many files match a glob location.
func CountFiles(ctx context.Context, conn Connection, src Location) (int64, error) {
	var n int64
	if err := conn.QueryRowContext(ctx, fmt.Sprintf("SELECT count(*) FROM glob(%s)", quoteLiteral(src.String()))).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to glob %s: %w", src.String(), err)
	}
	return n, nil
}

// ReadJSON loads every JSON document matching src into a temp table named
// name, typed by the given name:type column definitions. Fields are read as
// text and then cast, so a value that does not fit its declared type becomes
// NULL instead of failing the read. Documents the engine cannot parse at all
// fail with ErrSchemaViolation; a glob that matches nothing fails with
// ErrInputNotFound. It returns the number of records loaded.
func ReadJSON(
	ctx context.Context,
	log *slog.Logger,
	conn Connection,
	name string,
	src Location,
	columns []string,
) (int64, error) {
	readStart := time.Now()

	cols, err := ParseColumns(columns)
	if err != nil {
		return 0, err
	}

	files, err := CountFiles(ctx, conn, src)
	if err != nil {
		return 0, err
	}
	if files == 0 {
		return 0, fmt.Errorf("%w: no files match %s", ErrInputNotFound, src.String())
	}

	rawFields := make([]string, 0, len(cols))
	projections := make([]string, 0, len(cols))
	for _, c := range cols {
		rawFields = append(rawFields, fmt.Sprintf("%s: 'VARCHAR'", quoteLiteral(c.Name)))
		if c.Type == "VARCHAR" {
			projections = append(projections, quoteIdent(c.Name))
			continue
		}
		projections = append(projections, fmt.Sprintf("TRY_CAST(%s AS %s) AS %s", quoteIdent(c.Name), c.Type, quoteIdent(c.Name)))
	}

	createSQL := fmt.Sprintf(
		"CREATE OR REPLACE TEMP TABLE %s AS SELECT %s FROM read_json(%s, columns = {%s}, format = 'auto')",
		quoteIdent(name),
		strings.Join(projections, ", "),
		quoteLiteral(src.String()),
		strings.Join(rawFields, ", "))
	if _, err := conn.ExecContext(ctx, createSQL); err != nil {
		return 0, fmt.Errorf("%w: failed to read %s: %w", ErrSchemaViolation, src.String(), err)
	}

	var rows int64
	if err := conn.QueryRowContext(ctx, fmt.Sprintf("SELECT count(*) FROM %s", quoteIdent(name))).Scan(&rows); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", name, err)
	}

	log.Debug("json input loaded",
		"table", name,
		"location", src.String(),
		"files", files,
		"rows", rows,
		"duration", time.Since(readStart).String())
	return rows, nil
}
