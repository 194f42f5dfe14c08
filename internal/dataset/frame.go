// Package dataset provides a minimal row-oriented table read from and written to delimited text.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// ErrColumnNotFound is returned when a named column is not in the header.
var ErrColumnNotFound = errors.New("column not found")

// Frame is a table of string cells with a header row.
// Index holds the 0-based row number each row had in the source file.
type Frame struct {
	Columns []string
	Rows    [][]string
	Index   []int
}

// ReadCSV reads a comma-separated file whose first record is the header.
func ReadCSV(path string) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return Read(f)
}

// Read parses comma-separated records from r.
func Read(r io.Reader) (*Frame, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty file: no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	frame := &Frame{Columns: append([]string(nil), header...)}
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(frame.Rows)+1, err)
		}
		frame.Index = append(frame.Index, len(frame.Rows))
		frame.Rows = append(frame.Rows, rec)
	}
	return frame, nil
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.Rows)
}

// ColumnIndex returns the position of the named column.
func (f *Frame) ColumnIndex(name string) (int, error) {
	for i, c := range f.Columns {
		if c == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
}

// HasColumn reports whether the header contains name.
func (f *Frame) HasColumn(name string) bool {
	_, err := f.ColumnIndex(name)
	return err == nil
}

// FloatColumn parses the named column as float64. Empty cells become NaN.
func (f *Frame) FloatColumn(name string) ([]float64, error) {
	col, err := f.ColumnIndex(name)
	if err != nil {
		return nil, err
	}

	values := make([]float64, len(f.Rows))
	for i, row := range f.Rows {
		cell := strings.TrimSpace(row[col])
		if cell == "" {
			values[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d column %q: %w", f.Index[i], name, err)
		}
		values[i] = v
	}
	return values, nil
}

// AddColumn appends a column. values must have one entry per row.
func (f *Frame) AddColumn(name string, values []string) error {
	if len(values) != len(f.Rows) {
		return fmt.Errorf("column %q has %d values for %d rows", name, len(values), len(f.Rows))
	}
	f.Columns = append(f.Columns, name)
	for i := range f.Rows {
		f.Rows[i] = append(f.Rows[i], values[i])
	}
	return nil
}

// Take returns a new frame holding the rows at the given positions, in order.
// Source row numbers are carried over.
func (f *Frame) Take(positions []int) *Frame {
	out := &Frame{
		Columns: append([]string(nil), f.Columns...),
		Rows:    make([][]string, len(positions)),
		Index:   make([]int, len(positions)),
	}
	for i, p := range positions {
		out.Rows[i] = append([]string(nil), f.Rows[p]...)
		out.Index[i] = f.Index[p]
	}
	return out
}

// DropColumn removes the named column in place.
func (f *Frame) DropColumn(name string) error {
	col, err := f.ColumnIndex(name)
	if err != nil {
		return err
	}
	f.Columns = append(f.Columns[:col:col], f.Columns[col+1:]...)
	for i, row := range f.Rows {
		f.Rows[i] = append(row[:col:col], row[col+1:]...)
	}
	return nil
}

// WriteCSV writes the frame to path with a leading unnamed column holding each
// row's source index.
func (f *Frame) WriteCSV(path string) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := f.Write(out); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return out.Close()
}

// Write emits the frame as comma-separated records.
func (f *Frame) Write(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(append([]string{""}, f.Columns...)); err != nil {
		return err
	}
	for i, row := range f.Rows {
		rec := make([]string, 0, len(row)+1)
		rec = append(rec, strconv.Itoa(f.Index[i]))
		rec = append(rec, row...)
		if err := writer.Write(rec); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
