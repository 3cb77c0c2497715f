package pipeline

import (
	"errors"
	"sync"

	"github.com/rotisserie/eris"
)

// DualWriter outputs to both CSV and JSONL simultaneously.
type DualWriter[T any] struct {
	csvWriter  *CSVWriter[T]
	jsonWriter *JSONWriter[T]
	mu         sync.Mutex
}

// NewDualWriter creates a writer for both CSV and JSONL output.
func NewDualWriter[T any](csvFilename, jsonFilename string) (*DualWriter[T], error) {
	csvWriter, err := NewCSVWriter[T](csvFilename)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create csv writer")
	}

	jsonWriter, err := NewJSONWriter[T](jsonFilename)
	if err != nil {
		csvWriter.Close()
		return nil, eris.Wrap(err, "pipeline: create json writer")
	}

	return &DualWriter[T]{
		csvWriter:  csvWriter,
		jsonWriter: jsonWriter,
	}, nil
}

// Write writes rows to both outputs.
func (dw *DualWriter[T]) Write(rows []T) error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if err := dw.csvWriter.Write(rows); err != nil {
		return eris.Wrap(err, "pipeline: csv write")
	}
	if err := dw.jsonWriter.Write(rows); err != nil {
		return eris.Wrap(err, "pipeline: json write")
	}
	return nil
}

// Close closes both writers.
func (dw *DualWriter[T]) Close() error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	return errors.Join(dw.csvWriter.Close(), dw.jsonWriter.Close())
}

// Validate validates both output files.
func (dw *DualWriter[T]) Validate() error {
	return errors.Join(dw.csvWriter.Validate(), dw.jsonWriter.Validate())
}
