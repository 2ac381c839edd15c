package writer

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"vizflow/table"
)

// memoryFileWriter implements the ParquetFile interface over a byte buffer,
// for building files that go straight to S3.
type memoryFileWriter struct {
	buffer *bytes.Buffer
}

func newMemoryFileWriter() *memoryFileWriter {
	return &memoryFileWriter{buffer: &bytes.Buffer{}}
}

func (mfw *memoryFileWriter) Create(name string) (source.ParquetFile, error) { return mfw, nil }
func (mfw *memoryFileWriter) Open(name string) (source.ParquetFile, error)   { return mfw, nil }
func (mfw *memoryFileWriter) Seek(offset int64, whence int) (int64, error) {
	return int64(mfw.buffer.Len()), nil
}
func (mfw *memoryFileWriter) Read(b []byte) (int, error)  { return mfw.buffer.Read(b) }
func (mfw *memoryFileWriter) Write(b []byte) (int, error) { return mfw.buffer.Write(b) }
func (mfw *memoryFileWriter) Close() error                { return nil }
func (mfw *memoryFileWriter) Bytes() []byte               { return mfw.buffer.Bytes() }

// parquetSchema renders a table's columns as a parquet-go JSON schema.
// Every column is optional so validity masks survive the round trip.
func parquetSchema(t *table.Table) (string, error) {
	type field struct {
		Tag string `json:"Tag"`
	}
	type schema struct {
		Tag    string  `json:"Tag"`
		Fields []field `json:"Fields"`
	}

	s := schema{Tag: "name=parquet_go_root, repetitiontype=REQUIRED"}
	for _, c := range t.Columns() {
		var typ string
		switch c.Kind {
		case table.Float64:
			typ = "type=DOUBLE"
		case table.Int64:
			typ = "type=INT64"
		case table.String:
			typ = "type=BYTE_ARRAY, convertedtype=UTF8"
		default:
			return "", fmt.Errorf("column %q: unsupported kind %s", c.Name, c.Kind)
		}
		s.Fields = append(s.Fields, field{
			Tag: fmt.Sprintf("name=%s, %s, repetitiontype=OPTIONAL", c.Name, typ),
		})
	}

	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// rowJSON renders one table row as a JSON object, leaving null cells out so
// they land as parquet nulls.
func rowJSON(t *table.Table, row int) (string, error) {
	obj := make(map[string]interface{}, t.NumCols())
	for _, c := range t.Columns() {
		if !c.IsValid(row) {
			continue
		}
		switch c.Kind {
		case table.Float64:
			obj[c.Name] = c.Floats[row]
		case table.Int64:
			obj[c.Name] = c.Ints[row]
		case table.String:
			obj[c.Name] = c.Strings[row]
		}
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func compressionCodec(name string) parquet.CompressionCodec {
	switch name {
	case "snappy":
		return parquet.CompressionCodec_SNAPPY
	case "gzip":
		return parquet.CompressionCodec_GZIP
	default:
		return parquet.CompressionCodec_UNCOMPRESSED
	}
}

func writeParquet(t *table.Table, fw source.ParquetFile, compression string) error {
	schema, err := parquetSchema(t)
	if err != nil {
		return err
	}

	pw, err := writer.NewJSONWriter(schema, fw, 4)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = compressionCodec(compression)

	for row := 0; row < t.NumRows(); row++ {
		rec, err := rowJSON(t, row)
		if err != nil {
			pw.WriteStop()
			return err
		}
		if err := pw.Write(rec); err != nil {
			pw.WriteStop()
			return fmt.Errorf("failed to write parquet record: %w", err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("failed to finalize parquet writing: %w", err)
	}
	return nil
}

// WriteTableParquet writes the table to a local parquet file. The schema is
// derived from the table, so horizon columns come and go with the config.
func WriteTableParquet(t *table.Table, path, compression string) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := writeParquet(t, fw, compression); err != nil {
		fw.Close()
		return err
	}
	return fw.Close()
}

// TableParquetBytes serializes the table to an in-memory parquet file.
func TableParquetBytes(t *table.Table, compression string) ([]byte, error) {
	fw := newMemoryFileWriter()
	if err := writeParquet(t, fw, compression); err != nil {
		return nil, err
	}
	return fw.Bytes(), nil
}
