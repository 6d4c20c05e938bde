// This file provides JSONL read/write helpers with atomic persistence.
package sqlite

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// readJSONL reads a JSONL file and returns each non-empty, parseable line as
// a json.RawMessage. Malformed lines are skipped. A missing file reads as
// empty.
func readJSONL(path string) ([]json.RawMessage, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var records []json.RawMessage
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			continue
		}
		cp := make([]byte, len(line))
		copy(cp, line)
		records = append(records, json.RawMessage(cp))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return records, nil
}

// writeJSONL atomically writes records to a JSONL file using the temp-file,
// fsync, rename pattern.
func writeJSONL(path string, records []json.RawMessage) error {
	tmpName, err := stageJSONL(path, records)
	if err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// stageJSONL writes records to a synced temp file next to path and returns
// its name. The temp file is removed on failure.
func stageJSONL(path string, records []json.RawMessage) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".jsonl-*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	fail := func(format string, err error) (string, error) {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf(format, err)
	}

	w := bufio.NewWriter(tmp)
	for _, rec := range records {
		if _, err := w.Write(rec); err != nil {
			return fail("writing record: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fail("writing newline: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fail("flushing buffer: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("closing temp file: %w", err)
	}
	return tmpName, nil
}

// initJSONLFiles creates an empty JSONL file for every table that has none.
func initJSONLFiles(dataDir string) error {
	for _, spec := range tableSpecs {
		path := filepath.Join(dataDir, spec.file)
		if _, err := os.Stat(path); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("checking %s: %w", spec.file, err)
		}
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			return fmt.Errorf("creating %s: %w", spec.file, err)
		}
	}
	return nil
}

// dumpTable reads every row of a table as a JSON object keyed by column
// name, ordered by primary key. NULL columns are emitted as null.
func dumpTable(ctx context.Context, q querier, spec tableSpec) ([]json.RawMessage, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(spec.columns, ", "), spec.name, spec.columns[0])
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", spec.name, err)
	}
	defer rows.Close()

	var records []json.RawMessage
	vals := make([]any, len(spec.columns))
	ptrs := make([]any, len(spec.columns))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", spec.name, err)
		}
		obj := make(map[string]any, len(spec.columns))
		for i, col := range spec.columns {
			if b, ok := vals[i].([]byte); ok {
				obj[col] = string(b)
				continue
			}
			obj[col] = vals[i]
		}
		rec, err := json.Marshal(obj)
		if err != nil {
			return nil, fmt.Errorf("encoding %s row: %w", spec.name, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", spec.name, err)
	}
	return records, nil
}

// stagedFile is one table file waiting to replace its JSONL file.
type stagedFile struct {
	tmp    string
	dst    string
	backup string
	placed bool
}

// stagedFiles is a set of table files that are swapped in together. swap
// keeps the previous files as hard links so restore can put them back if
// the transaction that produced the new rows does not commit.
type stagedFiles []*stagedFile

// stageTables dumps the named tables through q and writes each to a temp
// file in dataDir. Nothing visible changes until swap.
func stageTables(ctx context.Context, q querier, dataDir string, tables ...string) (stagedFiles, error) {
	var files stagedFiles
	for _, name := range tables {
		spec, ok := specFor(name)
		if !ok {
			files.discard()
			return nil, fmt.Errorf("unknown table %q", name)
		}
		records, err := dumpTable(ctx, q, spec)
		if err != nil {
			files.discard()
			return nil, err
		}
		dst := filepath.Join(dataDir, spec.file)
		tmp, err := stageJSONL(dst, records)
		if err != nil {
			files.discard()
			return nil, fmt.Errorf("persisting %s: %w", spec.file, err)
		}
		files = append(files, &stagedFile{tmp: tmp, dst: dst})
	}
	return files, nil
}

// swap backs up every current file, then renames each temp file into
// place. On failure the previous files are restored and the temp files
// removed, leaving the directory as it was.
func (fs stagedFiles) swap() error {
	for _, f := range fs {
		if err := f.backUp(); err != nil {
			fs.restore()
			return fmt.Errorf("persisting %s: %w", filepath.Base(f.dst), err)
		}
	}
	for _, f := range fs {
		if err := os.Rename(f.tmp, f.dst); err != nil {
			fs.restore()
			return fmt.Errorf("persisting %s: renaming temp file: %w", filepath.Base(f.dst), err)
		}
		f.placed = true
	}
	return nil
}

func (f *stagedFile) backUp() error {
	info, err := os.Lstat(f.dst)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", f.dst)
	}
	backup := f.tmp + ".bak"
	if err := os.Link(f.dst, backup); err != nil {
		data, rerr := os.ReadFile(f.dst)
		if rerr != nil {
			return rerr
		}
		if werr := os.WriteFile(backup, data, info.Mode().Perm()); werr != nil {
			return werr
		}
	}
	f.backup = backup
	return nil
}

// restore puts the previous files back and drops every temp file.
func (fs stagedFiles) restore() {
	for _, f := range fs {
		if f.placed {
			if f.backup != "" {
				os.Rename(f.backup, f.dst)
				f.backup = ""
			} else {
				os.Remove(f.dst)
			}
			f.placed = false
		}
	}
	fs.discard()
}

// discard removes temp files and backups.
func (fs stagedFiles) discard() {
	for _, f := range fs {
		if !f.placed {
			os.Remove(f.tmp)
		}
		if f.backup != "" {
			os.Remove(f.backup)
			f.backup = ""
		}
	}
}

// persistTables rewrites the JSONL files of the named tables from SQLite.
func persistTables(ctx context.Context, db *sql.DB, dataDir string, tables ...string) error {
	files, err := stageTables(ctx, db, dataDir, tables...)
	if err != nil {
		return err
	}
	if err := files.swap(); err != nil {
		return err
	}
	files.discard()
	return nil
}
