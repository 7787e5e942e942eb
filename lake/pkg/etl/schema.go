package etl

import "github.com/malbeclabs/sparkify-lake/lake/pkg/duck"

// SongColumns is the read schema of song metadata records.
var SongColumns = []string{
	"num_songs:INTEGER",
	"artist_id:VARCHAR",
	"artist_latitude:VARCHAR",
	"artist_longitude:VARCHAR",
	"artist_location:VARCHAR",
	"artist_name:VARCHAR",
	"song_id:VARCHAR",
	"title:VARCHAR",
	"duration:DOUBLE",
	"year:INTEGER",
}

// LogColumns is the read schema of user activity log records.
var LogColumns = []string{
	"artist:VARCHAR",
	"auth:VARCHAR",
	"firstName:VARCHAR",
	"gender:VARCHAR",
	"itemInSession:INTEGER",
	"lastName:VARCHAR",
	"length:DOUBLE",
	"level:VARCHAR",
	"location:VARCHAR",
	"method:VARCHAR",
	"page:VARCHAR",
	"registration:BIGINT",
	"sessionId:INTEGER",
	"song:VARCHAR",
	"status:INTEGER",
	"ts:BIGINT",
	"userAgent:VARCHAR",
	"userId:INTEGER",
}

var SongsTable = duck.TableConfig{
	Name: "songs",
	Columns: []string{
		"song_id:VARCHAR",
		"title:VARCHAR",
		"artist_id:VARCHAR",
		"year:INTEGER",
		"duration:DOUBLE",
	},
	PartitionBy: []string{"year", "artist_id"},
}

var ArtistsTable = duck.TableConfig{
	Name: "artists",
	Columns: []string{
		"artist_id:VARCHAR",
		"artist_latitude:VARCHAR",
		"artist_longitude:VARCHAR",
		"artist_location:VARCHAR",
		"artist_name:VARCHAR",
	},
}

var UsersTable = duck.TableConfig{
	Name: "users",
	Columns: []string{
		"user_id:INTEGER",
		"first_name:VARCHAR",
		"last_name:VARCHAR",
		"gender:VARCHAR",
		"level:VARCHAR",
	},
}

var TimeTable = duck.TableConfig{
	Name: "time",
	Columns: []string{
		"start_time:TIMESTAMP",
		"hour:INTEGER",
		"day:INTEGER",
		"week:INTEGER",
		"month:INTEGER",
		"year:INTEGER",
		"weekday:INTEGER",
	},
	PartitionBy: []string{"year", "month"},
}

var SongplaysTable = duck.TableConfig{
	Name: "songplays",
	Columns: []string{
		"songplay_id:BIGINT",
		"start_time:TIMESTAMP",
		"user_id:INTEGER",
		"level:VARCHAR",
		"song_id:VARCHAR",
		"artist_id:VARCHAR",
		"session_id:INTEGER",
		"location:VARCHAR",
		"user_agent:VARCHAR",
		"month:INTEGER",
		"year:INTEGER",
	},
	PartitionBy: []string{"year", "month"},
}

// Tables lists every output table in write order.
var Tables = []duck.TableConfig{SongsTable, ArtistsTable, UsersTable, TimeTable, SongplaysTable}
