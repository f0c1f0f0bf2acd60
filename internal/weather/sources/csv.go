package sources

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/i474232898/wxarchive/internal/fetch"
	"github.com/i474232898/wxarchive/internal/weather"
)

// Opener opens a source object by URI.
type Opener interface {
	Open(ctx context.Context, uri string) (io.ReadCloser, error)
}

// CSVSource reads a delimited text file whose first row names the fields.
type CSVSource struct {
	name      string
	uri       string
	delimiter rune
	fieldMap  weather.FieldMap
	opener    Opener
}

func NewCSVSource(opener Opener, uri, delimiter string, fm weather.FieldMap) (*CSVSource, error) {
	if uri == "" {
		return nil, errors.New("csv file is not configured")
	}
	d := ','
	if delimiter != "" {
		if delimiter == `\t` {
			delimiter = "\t"
		}
		r, size := utf8.DecodeRuneInString(delimiter)
		if size != len(delimiter) || r == '"' || r == '\r' || r == '\n' {
			return nil, fmt.Errorf("csv delimiter must be a single character, got %q", delimiter)
		}
		d = r
	}
	if opener == nil {
		opener = &fetch.Opener{}
	}
	return &CSVSource{
		name:      "csv",
		uri:       uri,
		delimiter: d,
		fieldMap:  fm,
		opener:    opener,
	}, nil
}

func (s *CSVSource) Name() string {
	return s.name
}

func (s *CSVSource) FieldMap() weather.FieldMap {
	return s.fieldMap
}

// Periods returns the whole file as one period; the range is applied to the
// mapped records.
func (s *CSVSource) Periods(context.Context, time.Time, time.Time) ([]weather.Period, error) {
	return []weather.Period{{Label: path.Base(strings.ReplaceAll(s.uri, `\`, "/"))}}, nil
}

func (s *CSVSource) Fetch(ctx context.Context, _ weather.Period) ([]weather.RawRecord, error) {
	rc, err := s.opener.Open(ctx, s.uri)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return readDelimited(rc, s.delimiter)
}

// readDelimited reads a header row followed by data rows. Every record carries
// each header field; fields missing from a short row are empty.
func readDelimited(r io.Reader, delimiter rune) ([]weather.RawRecord, error) {
	cr := csv.NewReader(r)
	cr.Comma = delimiter
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	var out []weather.RawRecord
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		rec := make(weather.RawRecord, len(header))
		for i, h := range header {
			if i < len(row) {
				rec[h] = strings.TrimSpace(row[i])
			} else {
				rec[h] = ""
			}
		}
		out = append(out, rec)
	}
	return out, nil
}
