package store

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/i474232898/wxarchive/internal/weather"
)

// FileStore persists the archive as JSON lines, one record per line, and
// serves reads from memory. Appends in time order are written incrementally;
// anything else rewrites the file.
type FileStore struct {
	mu   sync.Mutex
	path string
	mem  *MemoryStore
}

// OpenFileStore loads the archive at path, creating it when missing.
func OpenFileStore(path string) (*FileStore, error) {
	fs := &FileStore{path: path, mem: NewMemoryStore()}

	f, err := os.Open(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		return fs, nil
	case err != nil:
		return nil, err
	}
	defer f.Close()

	var records []weather.Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var r weather.Record
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		if r.Values == nil {
			r.Values = make(map[string]float64)
		}
		r.DateTime = r.DateTime.UTC()
		records = append(records, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	fs.mem.SaveRecords(records, true)
	logrus.WithFields(logrus.Fields{"path": path, "records": fs.mem.Len()}).Info("archive loaded")
	return fs, nil
}

func (f *FileStore) Has(ts time.Time) bool { return f.mem.Has(ts) }

func (f *FileStore) Latest() (weather.Record, error) { return f.mem.Latest() }

func (f *FileStore) Range(from, to time.Time) ([]weather.Record, error) { return f.mem.Range(from, to) }

// SaveRecords writes records to disk and then to memory. On a write error
// neither changes, so a later save retries the same records.
func (f *FileStore) SaveRecords(records []weather.Record, overwrite bool) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var last time.Time
	if latest, err := f.mem.Latest(); err == nil {
		last = latest.DateTime
	}

	appendOnly := true
	var fresh []weather.Record
	for _, r := range records {
		if f.mem.Has(r.DateTime) {
			if overwrite {
				appendOnly = false
			}
			continue
		}
		if !r.DateTime.After(last) {
			appendOnly = false
		}
		last = r.DateTime
		fresh = append(fresh, r)
	}

	if appendOnly {
		if len(fresh) == 0 {
			return 0, nil
		}
		if err := f.appendLines(fresh); err != nil {
			return 0, err
		}
		return f.mem.SaveRecords(fresh, false)
	}

	next := f.mem.clone()
	saved := next.saveLocked(records, overwrite)
	if saved == 0 {
		return 0, nil
	}
	if err := f.rewrite(next.records); err != nil {
		return 0, err
	}
	f.mem.replace(next)
	return saved, nil
}

// appendLines appends records to the archive file. A failed write truncates
// the file back to its previous size.
func (f *FileStore) appendLines(records []weather.Record) error {
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return err
	}
	w := bufio.NewWriter(file)
	err = writeRecords(w, records)
	if err == nil {
		err = w.Flush()
	}
	if err != nil {
		if terr := file.Truncate(info.Size()); terr != nil {
			logrus.WithError(terr).WithField("path", f.path).Error("failed to truncate archive after write error")
		}
		file.Close()
		return err
	}
	return file.Close()
}

// rewrite replaces the archive file atomically with records.
func (f *FileStore) rewrite(records []weather.Record) error {
	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	err = writeRecords(w, records)
	if err == nil {
		err = w.Flush()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}

func writeRecords(w *bufio.Writer, records []weather.Record) error {
	enc := json.NewEncoder(w)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}
