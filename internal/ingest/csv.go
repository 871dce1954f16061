// Package ingest reads the tabular school list (CSV or XLSX) into model.School values.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"io"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Row is one raw record from a tabular source. Err is set for a record the
// parser could not read; later rows are still delivered.
type Row struct {
	Line   int
	Fields []string
	Err    error
}

// StreamCSV parses r and sends every data row (header excluded) on the row
// channel. A leading UTF-8 BOM is dropped. Fatal read errors go to the error
// channel. Both channels are closed when the input is exhausted.
func StreamCSV(ctx context.Context, r io.Reader) (<-chan Row, <-chan error) {
	rowCh := make(chan Row, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1
		reader.TrimLeadingSpace = true

		line := 0
		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "ingest: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			line++

			var parseErr *csv.ParseError
			switch {
			case errors.As(err, &parseErr):
				record = nil
			case err != nil:
				errCh <- eris.Wrap(err, "ingest: read csv")
				return
			}

			if line == 1 && err == nil {
				continue // header
			}

			select {
			case rowCh <- Row{Line: line, Fields: record, Err: err}:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "ingest: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}
