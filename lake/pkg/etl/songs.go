package etl

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/malbeclabs/sparkify-lake/lake/pkg/duck"
)

const stagingSongs = "staging_songs"

// SongCatalog is the committed output of the song catalog stage. The event
// log stage joins against Songs, never against the shared output path.
type SongCatalog struct {
	Songs       duck.Location
	RecordsRead int64
	SongRows    int64
	ArtistRows  int64
}

// songsSource renders the relation the event log stage joins against.
func (c *SongCatalog) songsSource() (string, error) {
	if c.SongRows == 0 {
		return SongsTable.EmptyRelation()
	}
	return SongsTable.ParquetSource(c.Songs)
}

const songsQuery = `
SELECT DISTINCT song_id, title, artist_id, year, duration
FROM staging_songs`

const artistsQuery = `
SELECT DISTINCT artist_id, artist_latitude, artist_longitude, artist_location, artist_name
FROM staging_songs`

// ProcessSongData reads the song metadata files and writes the songs and
// artists tables.
func (p *Pipeline) ProcessSongData(ctx context.Context) (*SongCatalog, error) {
	return p.processSongData(ctx, p.log)
}

func (p *Pipeline) processSongData(ctx context.Context, log *slog.Logger) (*SongCatalog, error) {
	stageStart := p.clock.Now()
	defer p.observeStage(stageSongCatalog, stageStart)
	log = log.With("stage", stageSongCatalog)

	src := p.cfg.Input.Join(p.cfg.SongGlob)
	read, err := duck.ReadJSON(ctx, log, p.conn, stagingSongs, src, SongColumns)
	if err != nil {
		return nil, fmt.Errorf("failed to read song data: %w", err)
	}
	p.metrics.RowsRead.WithLabelValues("song_data").Set(float64(read))
	log.Info("song data loaded", "records", read)

	catalog := &SongCatalog{
		Songs:       p.cfg.TableLocation(SongsTable),
		RecordsRead: read,
	}

	if catalog.SongRows, err = p.writeTable(ctx, log, SongsTable, songsQuery); err != nil {
		return nil, err
	}
	if catalog.ArtistRows, err = p.writeTable(ctx, log, ArtistsTable, artistsQuery); err != nil {
		return nil, err
	}
	return catalog, nil
}
