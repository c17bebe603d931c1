package s3blob

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/alanyoungcy/tradesim/internal/domain"
)

// minPartSize is the S3 floor for multipart part sizes.
const minPartSize int64 = 5 << 20

// Writer uploads archive objects to the client's bucket.
type Writer struct {
	api    *s3.Client
	bucket string
}

// NewWriter creates a Writer for c.
func NewWriter(c *Client) *Writer {
	return &Writer{api: c.S3(), bucket: c.Bucket()}
}

func (w *Writer) object(path, contentType string, body io.Reader) *s3.PutObjectInput {
	return &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(path),
		Body:        body,
		ContentType: aws.String(contentType),
	}
}

// Put uploads data with a single PutObject.
func (w *Writer) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	if _, err := w.api.PutObject(ctx, w.object(path, contentType, data)); err != nil {
		return fmt.Errorf("s3blob: put %s: %w", path, err)
	}
	return nil
}

// PutMultipart streams a JSONL archive through the upload manager. partSize
// is raised to the 5 MiB minimum.
func (w *Writer) PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error {
	uploader := manager.NewUploader(w.api, func(u *manager.Uploader) {
		u.PartSize = max(partSize, minPartSize)
	})
	if _, err := uploader.Upload(ctx, w.object(path, jsonlContentType, data)); err != nil {
		return fmt.Errorf("s3blob: multipart upload %s: %w", path, err)
	}
	return nil
}

var _ domain.BlobWriter = (*Writer)(nil)
