package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/seojun-park/kisbot/internal/domain"
)

// ObjectWriter is the narrow upload interface the archiver requires.
// *Writer satisfies it.
type ObjectWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Archiver implements domain.SignalArchiver by serializing each run's
// signals to JSONL and uploading the batch to object storage, partitioned by
// run date.
//
// Archival is append-only; signals stay in the primary store and are pruned
// separately once the archive is verified.
type Archiver struct {
	writer ObjectWriter
	logger *slog.Logger
}

// NewArchiver creates an Archiver that uploads through the given writer.
func NewArchiver(writer ObjectWriter, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer: writer,
		logger: logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveSignals uploads the signals of one run as a single JSONL object at
// signals/YYYY/MM/DD/HHMMSS.jsonl, keyed by the run timestamp. Empty batches
// are skipped.
func (a *Archiver) ArchiveSignals(ctx context.Context, ts time.Time, signals []domain.Signal) error {
	if len(signals) == 0 {
		return nil
	}

	buf, err := marshalJSONL(signals)
	if err != nil {
		return fmt.Errorf("s3blob: archive signals marshal: %w", err)
	}

	path := archivePath(ts)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return fmt.Errorf("s3blob: archive signals upload: %w", err)
	}

	a.logger.Info("signals archived",
		slog.String("path", path),
		slog.Int("count", len(signals)),
	)
	return nil
}

// archivePath builds the object key for a run's signal batch, partitioned by
// run date so daily batches group naturally in the bucket listing.
//
//	signals/2025/06/02/090501.jsonl
func archivePath(ts time.Time) string {
	return fmt.Sprintf("signals/%s.jsonl", ts.UTC().Format("2006/01/02/150405"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON (JSONL).
// Each element is marshalled as a single compact JSON line followed by '\n'.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

var _ domain.SignalArchiver = (*Archiver)(nil)
