package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

// ParquetWriter writes the table's typed rows with snappy compression.
type ParquetWriter struct{}

func (ParquetWriter) Format() string      { return FormatParquet }
func (ParquetWriter) ContentType() string { return "application/vnd.apache.parquet" }

// Write encodes through a temporary file because the parquet footer is
// written after the row groups.
func (ParquetWriter) Write(_ context.Context, w io.Writer, t Tabular) error {
	if t.schema == nil {
		return errors.New("table has no columnar schema")
	}

	tmp, err := os.CreateTemp("", "export-*.parquet")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	path := tmp.Name()
	tmp.Close()
	defer os.Remove(path)

	if err := writeParquetFile(path, t); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to reopen parquet file: %w", err)
	}
	defer f.Close()

	_, err = io.Copy(w, f)
	return err
}

func writeParquetFile(path string, t Tabular) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("failed to create local file writer: %w", err)
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, t.schema, 1)
	if err != nil {
		return fmt.Errorf("failed to create ParquetWriter: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, rec := range t.records {
		if err := pw.Write(rec); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return nil
}
