package etl

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/malbeclabs/sparkify-lake/lake/pkg/duck"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fixture is an input tree laid out like the public dataset.
type fixture struct {
	input  string
	output string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	return &fixture{
		input:  filepath.Join(root, "input"),
		output: filepath.Join(root, "output"),
	}
}

// song writes one song metadata file under song_data/A/B/C.
func (f *fixture) song(t *testing.T, name, doc string) {
	t.Helper()
	f.write(t, filepath.Join("song_data", "A", "B", "C", name+".json"), doc)
}

// log writes one newline-delimited log file under log_data.
func (f *fixture) log(t *testing.T, name string, events ...string) {
	t.Helper()
	f.write(t, filepath.Join("log_data", name+".json"), strings.Join(events, "\n")+"\n")
}

func (f *fixture) write(t *testing.T, rel, content string) {
	t.Helper()
	path := filepath.Join(f.input, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func (f *fixture) config(t *testing.T, reg *prometheus.Registry) Config {
	t.Helper()
	input, err := duck.ParseLocation(f.input)
	require.NoError(t, err)
	output, err := duck.ParseLocation(f.output)
	require.NoError(t, err)
	return Config{
		Input:    input,
		Output:   output,
		TimeZone: "UTC",
		Clock:    clockwork.NewFakeClockAt(testNow),
		Metrics:  NewMetrics(reg),
	}
}

func newTestPipeline(t *testing.T, cfg Config) *Pipeline {
	t.Helper()
	p, err := New(context.Background(), testLogger(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func songDoc(songID, title, artistID, artistName string, year int, duration float64) string {
	return fmt.Sprintf(`{"num_songs": 1, "artist_id": %q, "artist_latitude": null, "artist_longitude": null, "artist_location": "", "artist_name": %q, "song_id": %q, "title": %q, "duration": %v, "year": %d}`,
		artistID, artistName, songID, title, duration, year)
}

type event struct {
	Page          string
	Song          string
	UserID        string
	FirstName     string
	Level         string
	TS            int64
	SessionID     int
	ItemInSession int
}

func (e event) doc() string {
	page := e.Page
	if page == "" {
		page = NextSongPage
	}
	return fmt.Sprintf(`{"artist": "Someone", "auth": "Logged In", "firstName": %q, "gender": "F", "itemInSession": %d, "lastName": "Tester", "length": 200.0, "level": %q, "location": "Lansing-East Lansing, MI", "method": "PUT", "page": %q, "registration": 1540306145796.0, "sessionId": %d, "song": %q, "status": 200, "ts": %d, "userAgent": "Mozilla/5.0", "userId": %q}`,
		e.FirstName, e.ItemInSession, e.Level, page, e.SessionID, e.Song, e.TS, e.UserID)
}

type songRow struct {
	SongID   string
	Title    string
	ArtistID string
	Year     int32
	Duration float64
}

type userRow struct {
	UserID    int32
	FirstName string
	Level     string
}

type timeRow struct {
	StartTime time.Time
	Hour      int32
	Day       int32
	Week      int32
	Month     int32
	Year      int32
	Weekday   int32
}

type songplayRow struct {
	SongplayID int64
	StartTime  time.Time
	UserID     int32
	Level      string
	SongID     string
	ArtistID   string
	SessionID  int32
	Month      int32
	Year       int32
}

// readTable queries a written table back from its output location.
func readTable[T any](t *testing.T, p *Pipeline, table duck.TableConfig, columns string, scan func(*T) []any) []T {
	t.Helper()
	src, err := table.ParquetSource(p.cfg.TableLocation(table))
	require.NoError(t, err)

	rows, err := p.conn.QueryContext(context.Background(), fmt.Sprintf("SELECT %s FROM %s ORDER BY ALL", columns, src))
	require.NoError(t, err)
	defer rows.Close()

	var out []T
	for rows.Next() {
		var v T
		require.NoError(t, rows.Scan(scan(&v)...))
		out = append(out, v)
	}
	require.NoError(t, rows.Err())
	return out
}

func readSongs(t *testing.T, p *Pipeline) []songRow {
	return readTable(t, p, SongsTable, "song_id, title, artist_id, year, duration", func(r *songRow) []any {
		return []any{&r.SongID, &r.Title, &r.ArtistID, &r.Year, &r.Duration}
	})
}

func readUsers(t *testing.T, p *Pipeline) []userRow {
	return readTable(t, p, UsersTable, "user_id, first_name, level", func(r *userRow) []any {
		return []any{&r.UserID, &r.FirstName, &r.Level}
	})
}

func readTime(t *testing.T, p *Pipeline) []timeRow {
	return readTable(t, p, TimeTable, "start_time, hour, day, week, month, year, weekday", func(r *timeRow) []any {
		return []any{&r.StartTime, &r.Hour, &r.Day, &r.Week, &r.Month, &r.Year, &r.Weekday}
	})
}

func readSongplays(t *testing.T, p *Pipeline) []songplayRow {
	return readTable(t, p, SongplaysTable, "songplay_id, start_time, user_id, level, song_id, artist_id, session_id, month, year", func(r *songplayRow) []any {
		return []any{&r.SongplayID, &r.StartTime, &r.UserID, &r.Level, &r.SongID, &r.ArtistID, &r.SessionID, &r.Month, &r.Year}
	})
}

// outputFiles lists the files under the output location relative to it.
func outputFiles(t *testing.T, root string) []string {
	t.Helper()
	var files []string
	require.NoError(t, filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	}))
	return files
}

// outputContents reads every file under root, keyed by its relative path.
func outputContents(t *testing.T, root string) map[string][]byte {
	t.Helper()
	contents := make(map[string][]byte)
	for _, rel := range outputFiles(t, root) {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		require.NoError(t, err)
		contents[rel] = data
	}
	return contents
}
