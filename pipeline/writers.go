package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/aluiziolira/books-etl/models"
)

// OutputWriter defines the interface for dataset output.
type OutputWriter[T any] interface {
	Write(rows []T) error
	Close() error
	Validate() error
}

// NewOutputWriter opens a writer for format ("csv", "json" or "dual"). In dual mode
// the JSONL file sits next to filename with a .jsonl extension.
func NewOutputWriter[T any](format, filename string) (OutputWriter[T], error) {
	switch format {
	case "csv":
		return NewCSVWriter[T](filename)
	case "json":
		return NewJSONWriter[T](filename)
	case "dual":
		return NewDualWriter[T](filename, strings.TrimSuffix(filename, filepath.Ext(filename))+".jsonl")
	default:
		return nil, eris.Errorf("pipeline: unsupported output format %q", format)
	}
}

// RawFilename is the dated raw dataset path inside dir.
func RawFilename(dir string, day time.Time) string {
	return filepath.Join(dir, "books_raw_"+day.Format("20060102")+".csv")
}

// CleanFilename is the dated cleaned dataset path inside dir.
func CleanFilename(dir string, day time.Time) string {
	return filepath.Join(dir, "books_clean_"+day.Format("20060102")+".csv")
}

// CSVWriter writes rows to CSV with a header derived from the csv struct tags of T.
type CSVWriter[T any] struct {
	file    *os.File
	writer  *csv.Writer
	encoder *csvutil.Encoder
	mu      sync.Mutex
}

// NewCSVWriter initialises a CSV writer and writes the header row.
func NewCSVWriter[T any](filename string) (*CSVWriter[T], error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create csv file")
	}

	writer := csv.NewWriter(f)
	encoder := csvutil.NewEncoder(writer)
	encoder.AutoHeader = false

	var zero T
	if err := encoder.EncodeHeader(zero); err != nil {
		f.Close()
		return nil, eris.Wrap(err, "pipeline: write csv header")
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return nil, eris.Wrap(err, "pipeline: flush csv header")
	}

	return &CSVWriter[T]{
		file:    f,
		writer:  writer,
		encoder: encoder,
	}, nil
}

// Write appends rows to the CSV output.
func (cw *CSVWriter[T]) Write(rows []T) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	for i := range rows {
		if err := cw.encoder.Encode(rows[i]); err != nil {
			return eris.Wrapf(err, "pipeline: write csv row %d", i)
		}
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return eris.Wrap(err, "pipeline: flush csv rows")
	}
	return nil
}

// Close flushes and closes the file handle.
func (cw *CSVWriter[T]) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return eris.Wrap(err, "pipeline: flush csv writer")
	}
	return cw.file.Close()
}

// Validate ensures the file has content.
func (cw *CSVWriter[T]) Validate() error {
	info, err := os.Stat(cw.file.Name())
	if err != nil {
		return eris.Wrap(err, "pipeline: stat csv file")
	}
	if info.Size() <= 0 {
		return eris.New("pipeline: csv file is empty")
	}
	return nil
}

// JSONWriter writes newline-delimited JSON rows.
type JSONWriter[T any] struct {
	file    *os.File
	writer  *bufio.Writer
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewJSONWriter initialises the JSON writer.
func NewJSONWriter[T any](filename string) (*JSONWriter[T], error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create json file")
	}

	buffer := bufio.NewWriter(f)
	return &JSONWriter[T]{
		file:    f,
		writer:  buffer,
		encoder: json.NewEncoder(buffer),
	}, nil
}

// Write appends rows in JSONL format.
func (jw *JSONWriter[T]) Write(rows []T) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	for i := range rows {
		if err := jw.encoder.Encode(rows[i]); err != nil {
			return eris.Wrapf(err, "pipeline: encode json row %d", i)
		}
	}

	if err := jw.writer.Flush(); err != nil {
		return eris.Wrap(err, "pipeline: flush json writer")
	}
	return nil
}

// Close flushes buffers and closes the underlying file.
func (jw *JSONWriter[T]) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if err := jw.writer.Flush(); err != nil {
		return eris.Wrap(err, "pipeline: flush json writer")
	}
	return jw.file.Close()
}

// Validate ensures the JSON file has data.
func (jw *JSONWriter[T]) Validate() error {
	info, err := os.Stat(jw.file.Name())
	if err != nil {
		return eris.Wrap(err, "pipeline: stat json file")
	}
	if info.Size() <= 0 {
		return eris.New("pipeline: json file is empty")
	}
	return nil
}

// WriteBooks writes a raw dataset to filename in the given format.
func WriteBooks(format, filename string, books []models.Book) error {
	return writeAll(format, filename, books)
}

// WriteRecords writes a cleaned dataset to filename in the given format.
func WriteRecords(format, filename string, records []models.Record) error {
	return writeAll(format, filename, records)
}

func writeAll[T any](format, filename string, rows []T) (err error) {
	w, err := NewOutputWriter[T](format, filename)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := w.Write(rows); err != nil {
		return err
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "pipeline: create directory %q", dir)
	}
	return nil
}
