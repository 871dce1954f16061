package ingest

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jukenmap/jukenmap/internal/model"
)

// Column positions of the school list.
const (
	colID = iota
	colMextCode
	colName
	colDeviation
	colEstablishment
	colType
	colArea
	colPrefecture
	colAddress
	colPostalCode
	colStudyURL

	minColumns = colAddress + 1
)

// Stats counts rows seen by a read.
type Stats struct {
	Rows    int
	Parsed  int
	Skipped int
}

// ErrShortRow marks a row without enough columns to carry an address.
var ErrShortRow = eris.New("ingest: row has too few columns")

// ErrMissingID marks a row with an empty identifier.
var ErrMissingID = eris.New("ingest: row has no identifier")

// ParseRow maps one record onto a School. Coordinates are left unset.
func ParseRow(fields []string) (model.School, error) {
	if len(fields) < minColumns {
		return model.School{}, ErrShortRow
	}
	col := func(i int) string {
		if i >= len(fields) {
			return ""
		}
		return strings.TrimSpace(strings.ReplaceAll(fields[i], "\r", ""))
	}

	id := col(colID)
	if id == "" {
		return model.School{}, ErrMissingID
	}

	return model.School{
		ID:            id,
		StudyID:       id,
		MextCode:      model.StringPtr(col(colMextCode)),
		Name:          col(colName),
		Deviation:     ParseScore(col(colDeviation)),
		Establishment: model.Establishment(col(colEstablishment)),
		Type:          model.SchoolType(col(colType)),
		Area:          col(colArea),
		Prefecture:    col(colPrefecture),
		Address:       col(colAddress),
		PostalCode:    model.StringPtr(col(colPostalCode)),
		StudyURL:      model.StringPtr(col(colStudyURL)),
	}, nil
}

// ParseScore reads the leading integer of s. Empty, unparseable and zero
// values have no score.
func ParseScore(s string) *int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return nil
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil || n == 0 {
		return nil
	}
	return &n
}

// ReadCSV reads every well-formed school from r. Malformed rows are skipped and logged.
func ReadCSV(ctx context.Context, r io.Reader) ([]model.School, Stats, error) {
	rowCh, errCh := StreamCSV(ctx, r)

	var schools []model.School
	var stats Stats
	for row := range rowCh {
		if s, ok := collect(row, &stats); ok {
			schools = append(schools, s)
		}
	}
	if err := <-errCh; err != nil {
		return nil, stats, err
	}
	return schools, stats, nil
}

// ReadXLSX reads every well-formed school from the first sheet of path.
func ReadXLSX(path string) ([]model.School, Stats, error) {
	rows, err := ReadXLSXRows(path)
	if err != nil {
		return nil, Stats{}, err
	}

	var schools []model.School
	var stats Stats
	for _, row := range rows {
		if s, ok := collect(row, &stats); ok {
			schools = append(schools, s)
		}
	}
	return schools, stats, nil
}

// ReadFile reads a CSV or, for a .xlsx extension, a spreadsheet.
func ReadFile(ctx context.Context, path string) ([]model.School, Stats, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return ReadXLSX(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, eris.Wrapf(err, "ingest: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	return ReadCSV(ctx, f)
}

func collect(row Row, stats *Stats) (model.School, bool) {
	stats.Rows++
	if isBlank(row.Fields) && row.Err == nil {
		stats.Skipped++
		return model.School{}, false
	}

	err := row.Err
	var s model.School
	if err == nil {
		s, err = ParseRow(row.Fields)
	}
	if err != nil {
		stats.Skipped++
		zap.L().Warn("ingest: skipping row", zap.Int("line", row.Line), zap.Error(err))
		return model.School{}, false
	}

	stats.Parsed++
	return s, true
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
