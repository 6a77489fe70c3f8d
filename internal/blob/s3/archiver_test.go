package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seojun-park/kisbot/internal/domain"
)

type fakeWriter struct {
	paths        []string
	contentTypes []string
	bodies       [][]byte
	err          error
}

func (f *fakeWriter) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	if f.err != nil {
		return f.err
	}
	body, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.paths = append(f.paths, path)
	f.contentTypes = append(f.contentTypes, contentType)
	f.bodies = append(f.bodies, body)
	return nil
}

func newTestArchiver(w ObjectWriter) *Archiver {
	return NewArchiver(w, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestArchiveSignalsWritesJSONL(t *testing.T) {
	w := &fakeWriter{}
	a := newTestArchiver(w)

	ts := time.Date(2025, 6, 2, 9, 5, 1, 0, time.UTC)
	signals := []domain.Signal{
		{Strategy: "golden-cross", Action: domain.SignalActionBuy, Code: "005930", Quantity: 10, Price: 70000},
		{Strategy: "golden-cross", Action: domain.SignalActionSell, Code: "000660", Quantity: 5, Price: 180000},
	}

	require.NoError(t, a.ArchiveSignals(context.Background(), ts, signals))

	require.Len(t, w.paths, 1)
	assert.Equal(t, "signals/2025/06/02/090501.jsonl", w.paths[0])
	assert.Equal(t, "application/x-ndjson", w.contentTypes[0])

	lines := strings.Split(strings.TrimSpace(string(w.bodies[0])), "\n")
	require.Len(t, lines, 2)

	var first domain.Signal
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "005930", first.Code)
	assert.Equal(t, domain.SignalActionBuy, first.Action)
}

func TestArchiveSignalsSkipsEmptyBatch(t *testing.T) {
	w := &fakeWriter{}
	a := newTestArchiver(w)

	require.NoError(t, a.ArchiveSignals(context.Background(), time.Now(), nil))
	assert.Empty(t, w.paths)
}

func TestArchivePathPartitionsByRunDate(t *testing.T) {
	// Timestamps in other zones normalise to UTC key paths.
	seoul := time.FixedZone("KST", 9*3600)
	ts := time.Date(2025, 6, 2, 9, 5, 1, 0, seoul)
	assert.Equal(t, "signals/2025/06/02/000501.jsonl", archivePath(ts))
}

func TestMarshalJSONLCompactLines(t *testing.T) {
	buf, err := marshalJSONL([]map[string]string{{"a": "1"}, {"b": "2"}})
	require.NoError(t, err)
	assert.Equal(t, 2, bytes.Count(buf, []byte("\n")))
	assert.NotContains(t, string(buf), "  ")
}
