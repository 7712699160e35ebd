// Package importlog keeps a CSV history of committed imports next to the
// project config.
package importlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fintrack-dev/fintrack/internal/model"
)

// Entry is one committed import.
type Entry struct {
	Timestamp  time.Time
	UserID     string
	FileName   string
	Source     model.Source
	Imported   int
	Duplicates int
	Failed     int
	ArchiveURI string
	CommitHash string
}

// Header is the CSV header for import-log.csv.
const Header = "timestamp,user_id,file,source,imported,duplicates,failed,archive_uri,commit_hash"

const (
	numFields     = 9
	logDir        = "logs"
	logFile       = "logs/import-log.csv"
	colTimestamp  = 0
	colUserID     = 1
	colFile       = 2
	colSource     = 3
	colImported   = 4
	colDuplicates = 5
	colFailed     = 6
	colArchiveURI = 7
	colCommitHash = 8
)

// FromSummary builds the log entry for a finished commit.
func FromSummary(at time.Time, userID, fileName string, source model.Source, archiveURI string, s *model.Summary) Entry {
	return Entry{
		Timestamp:  at.UTC(),
		UserID:     userID,
		FileName:   fileName,
		Source:     source,
		Imported:   s.Imported,
		Duplicates: s.Duplicates,
		Failed:     s.Failed,
		ArchiveURI: archiveURI,
	}
}

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.Format(time.RFC3339)
	row[colUserID] = e.UserID
	row[colFile] = e.FileName
	row[colSource] = string(e.Source)
	row[colImported] = strconv.Itoa(e.Imported)
	row[colDuplicates] = strconv.Itoa(e.Duplicates)
	row[colFailed] = strconv.Itoa(e.Failed)
	row[colArchiveURI] = e.ArchiveURI
	row[colCommitHash] = e.CommitHash
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}
	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	counts := make([]int, 0, 3)
	for _, col := range []int{colImported, colDuplicates, colFailed} {
		n, err := strconv.Atoi(record[col])
		if err != nil {
			return Entry{}, fmt.Errorf("parsing count %q: %w", record[col], err)
		}
		counts = append(counts, n)
	}
	return Entry{
		Timestamp:  ts,
		UserID:     record[colUserID],
		FileName:   record[colFile],
		Source:     model.Source(record[colSource]),
		Imported:   counts[0],
		Duplicates: counts[1],
		Failed:     counts[2],
		ArchiveURI: record[colArchiveURI],
		CommitHash: record[colCommitHash],
	}, nil
}

// Append writes entries to <root>/logs/import-log.csv, creating the file
// and header if needed.
func Append(root string, entries ...Entry) error {
	if err := os.MkdirAll(filepath.Join(root, logDir), 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := filepath.Join(root, logFile)
	_, statErr := os.Stat(path)
	needsHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read returns all entries from <root>/logs/import-log.csv, oldest first.
// A missing file is an empty history.
func Read(root string) ([]Entry, error) {
	f, err := os.Open(filepath.Join(root, logFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()
	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading import log CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	entries := make([]Entry, 0, len(records)-1)
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
