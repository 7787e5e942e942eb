package etl

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/malbeclabs/sparkify-lake/lake/pkg/duck"
)

const (
	stagingEvents = "staging_events"

	// NextSongPage is the page value of a log event that played a song.
	NextSongPage = "NextSong"
)

// EventLog summarises the event log stage.
type EventLog struct {
	RecordsRead    int64
	NextSongEvents int64
	UserRows       int64
	TimeRows       int64
	SongplayRows   int64
}

// nextSongEventsSQL keeps NextSong events only and adds the event's wall
// clock time in the session zone. ts is epoch milliseconds, so the
// conversion keeps millisecond precision.
const nextSongEventsSQL = `
CREATE OR REPLACE TEMP TABLE next_song_events AS
SELECT *,
	timezone(%[1]s, timezone('UTC', epoch_ms(ts))) AS "timestamp",
	CAST(timezone(%[1]s, timezone('UTC', epoch_ms(ts))) AS DATE) AS "datetime"
FROM staging_events
WHERE page = %[2]s`

// A user's latest event decides their row, so a level change (free to paid)
// is reflected by the most recent one.
const usersQuery = `
SELECT userId AS user_id, firstName AS first_name, lastName AS last_name, gender, level
FROM next_song_events
QUALIFY ROW_NUMBER() OVER (
	PARTITION BY userId
	ORDER BY ts DESC NULLS LAST, itemInSession DESC NULLS LAST, level DESC NULLS LAST
) = 1`

// weekday counts 1 (Sunday) through 7 (Saturday).
const timeQuery = `
SELECT DISTINCT
	"timestamp" AS start_time,
	hour("timestamp") AS hour,
	dayofmonth("timestamp") AS day,
	weekofyear("timestamp") AS week,
	month("timestamp") AS month,
	year("timestamp") AS year,
	dayofweek("timestamp") + 1 AS weekday
FROM next_song_events`

// songplayQuery joins events to songs on exact title equality. Ids follow
// a total order over the projected columns and are assigned before
// collapsing rows that share a start_time, so they increase with start_time
// but leave gaps.
const songplayQuery = `
WITH joined AS (
	SELECT
		ROW_NUMBER() OVER (
			ORDER BY e."timestamp", e.sessionId, e.itemInSession, e.userId, s.song_id, s.artist_id,
				e.level, e.location, e.userAgent
		) AS songplay_id,
		e."timestamp" AS start_time,
		e.userId AS user_id,
		e.level,
		s.song_id,
		s.artist_id,
		e.sessionId AS session_id,
		e.location,
		e.userAgent AS user_agent,
		month(e."timestamp") AS month,
		year(e."timestamp") AS year
	FROM next_song_events e
	JOIN %s s ON e.song = s.title
)
SELECT * FROM joined
QUALIFY ROW_NUMBER() OVER (PARTITION BY start_time ORDER BY songplay_id) = 1`

// ProcessLogData reads the activity logs and writes the users, time and
// songplays tables. songplays joins against catalog, the committed output of
// ProcessSongData.
func (p *Pipeline) ProcessLogData(ctx context.Context, catalog *SongCatalog) (*EventLog, error) {
	return p.processLogData(ctx, p.log, catalog)
}

func (p *Pipeline) processLogData(ctx context.Context, log *slog.Logger, catalog *SongCatalog) (*EventLog, error) {
	if catalog == nil {
		return nil, fmt.Errorf("song catalog is required before processing log data")
	}
	stageStart := p.clock.Now()
	defer p.observeStage(stageEventLog, stageStart)
	log = log.With("stage", stageEventLog)

	src := p.cfg.Input.Join(p.cfg.LogGlob)
	read, err := duck.ReadJSON(ctx, log, p.conn, stagingEvents, src, LogColumns)
	if err != nil {
		return nil, fmt.Errorf("failed to read log data: %w", err)
	}
	p.metrics.RowsRead.WithLabelValues("log_data").Set(float64(read))
	events := &EventLog{RecordsRead: read}

	tz := duck.Literal(p.engine.TimeZone())
	if _, err := p.conn.ExecContext(ctx, fmt.Sprintf(nextSongEventsSQL, tz, duck.Literal(NextSongPage))); err != nil {
		return nil, fmt.Errorf("failed to filter %s events: %w", NextSongPage, err)
	}
	if err := p.conn.QueryRowContext(ctx, "SELECT count(*) FROM next_song_events").Scan(&events.NextSongEvents); err != nil {
		return nil, fmt.Errorf("failed to count %s events: %w", NextSongPage, err)
	}
	log.Info("log data loaded", "records", read, "next_song_events", events.NextSongEvents)

	if events.UserRows, err = p.writeTable(ctx, log, UsersTable, usersQuery); err != nil {
		return nil, err
	}
	if events.TimeRows, err = p.writeTable(ctx, log, TimeTable, timeQuery); err != nil {
		return nil, err
	}

	songs, err := catalog.songsSource()
	if err != nil {
		return nil, err
	}
	if events.SongplayRows, err = p.writeTable(ctx, log, SongplaysTable, fmt.Sprintf(songplayQuery, songs)); err != nil {
		return nil, err
	}
	return events, nil
}
