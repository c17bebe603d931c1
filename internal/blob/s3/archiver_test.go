package s3blob

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradesim/internal/domain"
)

type recordingWriter struct {
	puts       map[string][]byte
	multiparts int
	err        error
}

func newRecordingWriter() *recordingWriter {
	return &recordingWriter{puts: make(map[string][]byte)}
}

func (w *recordingWriter) Put(_ context.Context, path string, data io.Reader, _ string) error {
	if w.err != nil {
		return w.err
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.puts[path] = b
	return nil
}

func (w *recordingWriter) PutMultipart(ctx context.Context, path string, data io.Reader, _ int64) error {
	w.multiparts++
	return w.Put(ctx, path, data, "")
}

func TestArchiveWritesJSONL(t *testing.T) {
	w := newRecordingWriter()
	a := NewSimulationArchiver(w, "")
	at := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

	results := []domain.SimulationResult{
		{ID: "a", Side: domain.OrderSideBuy, QuantityUSD: 100},
		{ID: "b", Side: domain.OrderSideSell, QuantityUSD: 250},
	}
	path, err := a.Archive(context.Background(), results, at)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^simulations/2026/10/17/[0-9a-f-]{36}\.jsonl$`), path)

	body, ok := w.puts[path]
	require.True(t, ok)

	var ids []string
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		var r domain.SimulationResult
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"a", "b"}, ids)
	assert.Zero(t, w.multiparts)
}

func TestArchiveEmptyBatch(t *testing.T) {
	w := newRecordingWriter()
	path, err := NewSimulationArchiver(w, "x").Archive(context.Background(), nil, time.Now())
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Empty(t, w.puts)
}

func TestArchiveLargeBatchUsesMultipart(t *testing.T) {
	w := newRecordingWriter()
	a := NewSimulationArchiver(w, "sims")
	a.multipart = 64

	_, err := a.Archive(context.Background(), []domain.SimulationResult{{ID: "big"}}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, w.multiparts)
}

func TestArchiveUploadError(t *testing.T) {
	w := newRecordingWriter()
	w.err = errors.New("boom")
	_, err := NewSimulationArchiver(w, "").Archive(context.Background(), []domain.SimulationResult{{ID: "a"}}, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestNormaliseEndpoint(t *testing.T) {
	assert.Equal(t, "https://minio.local", normaliseEndpoint("minio.local", true))
	assert.Equal(t, "http://minio.local", normaliseEndpoint("minio.local", false))
	assert.Equal(t, "http://x", normaliseEndpoint("http://x", true))
}
