package registration

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"qualifier/pkg/platform/sentinel"
	strutil "qualifier/pkg/platform/strings"
)

// Read parses a CSV registration export. The first row is the header; header
// cells are cleaned of invisible characters before matching against cols.
// A missing required column or an unparseable file returns an error wrapping
// sentinel.ErrInvalidInput. Short rows are padded so every row matches the header.
func Read(ctx context.Context, r io.Reader, cols Columns) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty input", sentinel.ErrInvalidInput)
		}
		return nil, fmt.Errorf("%w: read csv header: %v", sentinel.ErrInvalidInput, err)
	}
	for i, h := range header {
		header[i] = strutil.CleanInvisible(h)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}

	required := []string{cols.Name, cols.Email, cols.ProgramEmail, cols.Phone, cols.ProfileURL}
	var missing []string
	for _, col := range required {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing required columns: %s", sentinel.ErrInvalidInput, strings.Join(missing, ", "))
	}
	consentIdx, hasConsent := -1, false
	if cols.Consent != "" {
		consentIdx, hasConsent = index[cols.Consent]
	}

	ds := &Dataset{Header: header, HasConsent: hasConsent}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read csv row %d: %v", sentinel.ErrInvalidInput, len(ds.Rows)+2, err)
		}
		for len(row) < len(header) {
			row = append(row, "")
		}

		cell := func(col string) string {
			return strings.TrimSpace(row[index[col]])
		}
		rec := Record{
			Row:          len(ds.Records),
			Name:         cell(cols.Name),
			Email:        cell(cols.Email),
			ProgramEmail: cell(cols.ProgramEmail),
			Phone:        cell(cols.Phone),
			ProfileURL:   cell(cols.ProfileURL),
		}
		if hasConsent {
			rec.Consent = row[consentIdx]
		}
		ds.Rows = append(ds.Rows, row)
		ds.Records = append(ds.Records, rec)
	}
	return ds, nil
}
