package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"order-analysis/internal/report"
)

// Sink stores exported files and returns where each one landed.
type Sink interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// LocalSink writes exports under a directory.
type LocalSink struct {
	Dir string
}

// Put writes data to Dir/key, creating parent directories.
func (s LocalSink) Put(_ context.Context, key, _ string, data []byte) (string, error) {
	target := filepath.Join(s.Dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return target, nil
}

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config points exports at a bucket.
type S3Config struct {
	Bucket   string
	Region   string
	Prefix   string
	Endpoint string
}

// S3Sink uploads exports to S3.
type S3Sink struct {
	client s3API
	bucket string
	prefix string
}

// NewS3Sink loads the default AWS credential chain for cfg.Region.
func NewS3Sink(ctx context.Context, cfg S3Config) (*S3Sink, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Sink{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// Put uploads data as bucket/prefix/key.
func (s *S3Sink) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	objectKey := path.Join(s.prefix, key)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("unable to upload %s to S3: %w", objectKey, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, objectKey), nil
}

// Artifact is one exported file.
type Artifact struct {
	Table    string `json:"table"`
	Format   string `json:"format"`
	Location string `json:"location"`
	Bytes    int    `json:"bytes"`
}

// Exporter renders report tables in several formats into a sink.
type Exporter struct {
	sink    Sink
	options Options
	logger  *slog.Logger
}

// NewExporter creates an exporter writing into sink.
func NewExporter(sink Sink, opts Options, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{sink: sink, options: opts, logger: logger}
}

// Export writes every requested (table, format) pair under a
// date/hub prefix. Empty tables selects every table. It stops at the first
// failure and returns what was written so far.
func (e *Exporter) Export(ctx context.Context, rep *report.Report, tables, formats []string) ([]Artifact, error) {
	if len(tables) == 0 {
		tables = TableNames
	}

	writers := make([]Writer, 0, len(formats))
	for _, f := range formats {
		w, err := NewWriter(f, e.options)
		if err != nil {
			return nil, err
		}
		writers = append(writers, w)
	}

	prefix := path.Join(rep.Params.Date.String(), Slug(rep.Params.Hub))
	var artifacts []Artifact
	for _, name := range tables {
		t, err := Table(rep, name)
		if err != nil {
			return artifacts, err
		}
		for _, w := range writers {
			var buf bytes.Buffer
			if err := w.Write(ctx, &buf, t); err != nil {
				return artifacts, fmt.Errorf("export %s as %s: %w", name, w.Format(), err)
			}
			location, err := e.sink.Put(ctx, path.Join(prefix, FileName(t, w.Format())), w.ContentType(), buf.Bytes())
			if err != nil {
				return artifacts, err
			}
			artifacts = append(artifacts, Artifact{Table: name, Format: w.Format(), Location: location, Bytes: buf.Len()})
		}
	}

	e.logger.Info("Exported report tables", "date", rep.Params.Date, "hub", rep.Params.Hub, "files", len(artifacts))
	return artifacts, nil
}

// Slug turns a hub name into a path segment, e.g.
// "Kudlu [ BH Micro warehouse ]" becomes "kudlu-bh-micro-warehouse".
func Slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

