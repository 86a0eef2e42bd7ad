package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
)

// Columns are the header names a transaction file must carry.
var Columns = []string{
	"transaction_id",
	"transaction_date",
	"product_name",
	"price",
	"store_name",
	"sales_representative_name",
	"client_name",
}

// ErrHeader means the file cannot be read as transactions at all.
var ErrHeader = errors.New("invalid header")

// Record is one data row keyed by lowercase column name.
type Record struct {
	Line   int // 1-based line where the record starts
	Fields map[string]string
	Raw    []string
}

// Get returns the raw value of column, and false if the row is too short
// to have it.
func (r Record) Get(column string) (string, bool) {
	v, ok := r.Fields[column]
	return v, ok
}

// Records reads CSV rows from r lazily. The first row is the header;
// matching is case-insensitive and ignores surrounding whitespace.
//
// A malformed row yields a *csv.ParseError and reading continues with the
// next row (see IsRowError). A header or I/O error ends the sequence.
// The sequence can be ranged over once.
func Records(r io.Reader) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		cr.ReuseRecord = false

		header, err := cr.Read()
		if err == io.EOF {
			yield(Record{}, fmt.Errorf("%w: empty file", ErrHeader))
			return
		}
		if err != nil {
			yield(Record{}, fmt.Errorf("%w: %w", ErrHeader, err))
			return
		}
		index, err := headerIndex(header)
		if err != nil {
			yield(Record{}, err)
			return
		}

		for {
			row, err := cr.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				var pe *csv.ParseError
				if errors.As(err, &pe) {
					if !yield(Record{Line: pe.StartLine}, err) {
						return
					}
					continue
				}
				yield(Record{}, err)
				return
			}

			line, _ := cr.FieldPos(0)
			rec := Record{Line: line, Raw: row, Fields: make(map[string]string, len(index))}
			for col, i := range index {
				if i < len(row) {
					rec.Fields[col] = row[i]
				}
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// IsRowError reports whether err from Records concerns a single row, so
// the caller may continue with the next one.
func IsRowError(err error) bool {
	var pe *csv.ParseError
	return errors.As(err, &pe)
}

// headerIndex maps each required column to its position.
func headerIndex(header []string) (map[string]int, error) {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := positions[key]; !dup {
			positions[key] = i
		}
	}

	index := make(map[string]int, len(Columns))
	var missing []string
	for _, col := range Columns {
		i, ok := positions[col]
		if !ok {
			missing = append(missing, col)
			continue
		}
		index[col] = i
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing columns %s", ErrHeader, strings.Join(missing, ", "))
	}
	return index, nil
}
