package weather

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by a Store when no archive data matches a query.
var ErrNotFound = errors.New("no archive data")

// Source abstracts an import source (CSV file, Weather Underground, Cumulus logs,
// Open-Meteo). Sources only read and split their data; mapping, unit
// conversion and cleaning happen in the importer.
type Source interface {
	Name() string
	// FieldMap describes how raw source fields map onto archive fields.
	FieldMap() FieldMap
	// Periods splits the requested range into fetchable chunks. A zero from/to
	// means the source decides (e.g. the whole file, or today).
	Periods(ctx context.Context, from, to time.Time) ([]Period, error)
	Fetch(ctx context.Context, p Period) ([]RawRecord, error)
}

// Store is the contract the archive (in-memory, file or any future database)
// must satisfy.
type Store interface {
	Has(ts time.Time) bool
	// SaveRecords stores records and returns how many were written. Records
	// whose timestamp already exists are skipped unless overwrite is set.
	SaveRecords(records []Record, overwrite bool) (int, error)
	Latest() (Record, error)
	// Range returns records with from <= dateTime <= to in time order.
	Range(from, to time.Time) ([]Record, error)
}
