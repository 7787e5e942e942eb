package logger

import (
	"bytes"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLogger_FormatRFC3339Millis(t *testing.T) {
	t.Parallel()

	est := time.FixedZone("EST", -5*3600)
	got := formatRFC3339Millis(time.Date(2018, 11, 11, 21, 46, 35, 796_432_000, est))
	require.Equal(t, "2018-11-12T02:46:35.796Z", got)
}

func TestLogger_NewWithWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWithWriter(&buf, false, true)
	log.Debug("hidden")
	log.Info("table written", "table", "songs", "location", "")

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "table written")
	require.Contains(t, out, "table=songs")
	require.NotContains(t, out, "location=")
	require.Regexp(t, regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}Z `), out)

	buf.Reset()
	NewWithWriter(&buf, true, true).Debug("shown")
	require.Contains(t, buf.String(), "shown")
}
