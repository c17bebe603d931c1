package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/tradesim/internal/domain"
)

const jsonlContentType = "application/x-ndjson"

// SimulationArchiver uploads batches of simulation results as JSONL objects.
// Batches above the multipart threshold go through the upload manager.
type SimulationArchiver struct {
	writer    domain.BlobWriter
	prefix    string
	multipart int64
}

// NewSimulationArchiver creates an archiver writing under prefix (default
// "simulations").
func NewSimulationArchiver(writer domain.BlobWriter, prefix string) *SimulationArchiver {
	if prefix == "" {
		prefix = "simulations"
	}
	return &SimulationArchiver{writer: writer, prefix: prefix, multipart: minPartSize}
}

// Archive serializes results and uploads them to a new object partitioned by
// the UTC day of at. It returns the object key, or "" when results is empty.
func (a *SimulationArchiver) Archive(ctx context.Context, results []domain.SimulationResult, at time.Time) (string, error) {
	if len(results) == 0 {
		return "", nil
	}

	buf, err := marshalJSONL(results)
	if err != nil {
		return "", fmt.Errorf("s3blob: archive simulations marshal: %w", err)
	}

	path := archivePath(a.prefix, at)
	if int64(len(buf)) > a.multipart {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), a.multipart)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf), jsonlContentType)
	}
	if err != nil {
		return "", fmt.Errorf("s3blob: archive simulations upload: %w", err)
	}
	return path, nil
}

// archivePath builds a unique key partitioned by day:
//
//	simulations/2026/10/17/<uuid>.jsonl
func archivePath(prefix string, at time.Time) string {
	return fmt.Sprintf("%s/%s/%s.jsonl", prefix, at.UTC().Format("2006/01/02"), uuid.NewString())
}

// marshalJSONL writes one compact JSON document per line.
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
