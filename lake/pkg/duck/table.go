package duck

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
)

// Column is a parsed "name:TYPE" column definition.
type Column struct {
	Name string
	Type string
}

// TableConfig describes one output table.
type TableConfig struct {
	// Name is the table name and the last element of its output location.
	Name string
	// Columns defines all columns of the table (in order) as name:type pairs,
	// e.g. "song_id:VARCHAR", "year:INTEGER".
	Columns []string
	// PartitionBy lists the columns used as hive-style directory partitions.
	// Partition columns are not stored inside the Parquet files.
	PartitionBy []string
}

// ParseColumns parses name:type column definitions.
func ParseColumns(defs []string) ([]Column, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("columns cannot be empty")
	}
	cols := make([]Column, 0, len(defs))
	for _, def := range defs {
		parts := strings.SplitN(def, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid column definition %q: expected format 'name:type'", def)
		}
		name := strings.TrimSpace(parts[0])
		typ := strings.ToUpper(strings.TrimSpace(parts[1]))
		if name == "" || typ == "" {
			return nil, fmt.Errorf("invalid column definition %q: expected format 'name:type'", def)
		}
		cols = append(cols, Column{Name: name, Type: typ})
	}
	return cols, nil
}

// Validate checks the column definitions and that every partition column is declared.
func (t TableConfig) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("table name is required")
	}
	cols, err := ParseColumns(t.Columns)
	if err != nil {
		return fmt.Errorf("table %s: %w", t.Name, err)
	}
	for _, p := range t.PartitionBy {
		if !slices.ContainsFunc(cols, func(c Column) bool { return c.Name == p }) {
			return fmt.Errorf("table %s: partition column %q is not a declared column", t.Name, p)
		}
	}
	return nil
}

// ColumnNames returns the column names in declaration order.
func (t TableConfig) ColumnNames() []string {
	cols, _ := ParseColumns(t.Columns)
	names := make([]string, 0, len(cols))
	for _, c := range cols {
		names = append(names, c.Name)
	}
	return names
}

// ParquetSource renders a read_parquet() table function call that reads the
// table back from loc, restoring partition columns with their declared types.
func (t TableConfig) ParquetSource(loc Location) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	if len(t.PartitionBy) == 0 {
		return fmt.Sprintf("read_parquet(%s)", quoteLiteral(loc.Join("*.parquet").String())), nil
	}

	cols, _ := ParseColumns(t.Columns)
	hiveTypes := make([]string, 0, len(t.PartitionBy))
	for _, p := range t.PartitionBy {
		for _, c := range cols {
			if c.Name == p {
				hiveTypes = append(hiveTypes, fmt.Sprintf("%s: %s", quoteLiteral(c.Name), quoteLiteral(c.Type)))
			}
		}
	}
	return fmt.Sprintf("read_parquet(%s, hive_partitioning = true, hive_types = {%s})",
		quoteLiteral(loc.Join("**", "*.parquet").String()),
		strings.Join(hiveTypes, ", ")), nil
}

// EmptyRelation renders a zero-row subquery with the table's columns and
// types. It stands in for a table whose location holds no files.
func (t TableConfig) EmptyRelation() (string, error) {
	cols, err := ParseColumns(t.Columns)
	if err != nil {
		return "", err
	}
	casts := make([]string, 0, len(cols))
	for _, c := range cols {
		casts = append(casts, fmt.Sprintf("CAST(NULL AS %s) AS %s", c.Type, quoteIdent(c.Name)))
	}
	return fmt.Sprintf("(SELECT %s WHERE false)", strings.Join(casts, ", ")), nil
}

// Store resets an output location before a table is rewritten into it.
type Store interface {
	Reset(ctx context.Context, loc Location) error
}

// WriteParquet materialises query as table t, then replaces everything at
// dst with its Parquet rendering. Rows are written in a total order so that
// rewriting unchanged input produces the same files. It returns the number of
// rows written.
func WriteParquet(
	ctx context.Context,
	log *slog.Logger,
	conn Connection,
	store Store,
	t TableConfig,
	dst Location,
	query string,
) (int64, error) {
	writeStart := time.Now()

	if err := t.Validate(); err != nil {
		return 0, err
	}

	stage := quoteIdent(t.Name)
	cols, _ := ParseColumns(t.Columns)
	quoted := make([]string, 0, len(cols))
	casts := make([]string, 0, len(cols))
	for _, c := range cols {
		quoted = append(quoted, quoteIdent(c.Name))
		casts = append(casts, fmt.Sprintf("CAST(%s AS %s) AS %s", quoteIdent(c.Name), c.Type, quoteIdent(c.Name)))
	}
	colList := strings.Join(quoted, ", ")

	createSQL := fmt.Sprintf("CREATE OR REPLACE TEMP TABLE %s AS SELECT %s FROM (%s)", stage, strings.Join(casts, ", "), query)
	if _, err := conn.ExecContext(ctx, createSQL); err != nil {
		return 0, fmt.Errorf("failed to build table %s: %w", t.Name, err)
	}

	var rows int64
	if err := conn.QueryRowContext(ctx, fmt.Sprintf("SELECT count(*) FROM %s", stage)).Scan(&rows); err != nil {
		return 0, fmt.Errorf("failed to count table %s: %w", t.Name, err)
	}

	if err := store.Reset(ctx, dst); err != nil {
		return 0, fmt.Errorf("%w: failed to reset %s: %w", ErrWriteFailure, dst, err)
	}

	var copySQL string
	if len(t.PartitionBy) > 0 {
		partitions := make([]string, 0, len(t.PartitionBy))
		for _, p := range t.PartitionBy {
			partitions = append(partitions, quoteIdent(p))
		}
		copySQL = fmt.Sprintf(
			"COPY (SELECT %s FROM %s ORDER BY ALL) TO %s (FORMAT PARQUET, PARTITION_BY (%s), OVERWRITE_OR_IGNORE, FILENAME_PATTERN 'part-{i}')",
			colList, stage, quoteLiteral(dst.String()), strings.Join(partitions, ", "))
	} else {
		copySQL = fmt.Sprintf(
			"COPY (SELECT %s FROM %s ORDER BY ALL) TO %s (FORMAT PARQUET)",
			colList, stage, quoteLiteral(dst.Join("part-0.parquet").String()))
	}
	if _, err := conn.ExecContext(ctx, copySQL); err != nil {
		return 0, fmt.Errorf("%w: failed to write %s to %s: %w", ErrWriteFailure, t.Name, dst, err)
	}

	log.Debug("parquet copy completed",
		"table", t.Name,
		"location", dst.String(),
		"rows", rows,
		"partitioned_by", strings.Join(t.PartitionBy, ","),
		"duration", time.Since(writeStart).String())
	return rows, nil
}
