// This file implements JSONL loading for startup.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// loadAllJSONL reads each JSONL file from dataDir and inserts its records
// into the corresponding SQLite table. Loading is transactional: all
// succeed or the database remains empty. Malformed lines and records that
// violate constraints are skipped. Unknown fields are ignored.
func loadAllJSONL(db *sql.DB, dataDir string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	for _, spec := range tableSpecs {
		records, err := readJSONL(filepath.Join(dataDir, spec.file))
		if err != nil {
			return fmt.Errorf("reading %s: %w", spec.file, err)
		}
		if len(records) == 0 {
			continue
		}
		if err := insertRecords(tx, spec.name, spec.columns, records); err != nil {
			return fmt.Errorf("loading %s into %s: %w", spec.file, spec.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing load transaction: %w", err)
	}
	return nil
}

// insertRecords inserts parsed JSONL records into a SQLite table. Only the
// listed columns are extracted; extra fields from newer writers do not cause
// errors.
func insertRecords(tx *sql.Tx, table string, columns []string, records []json.RawMessage) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	insertSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), placeholders)

	stmt, err := tx.Prepare(insertSQL)
	if err != nil {
		return fmt.Errorf("preparing insert for %s: %w", table, err)
	}
	defer stmt.Close()

	for _, rec := range records {
		var obj map[string]any
		if err := json.Unmarshal(rec, &obj); err != nil {
			continue
		}

		args := make([]any, len(columns))
		for i, col := range columns {
			val, ok := obj[col]
			if !ok {
				continue
			}
			switch v := val.(type) {
			case map[string]any, []any:
				b, err := json.Marshal(v)
				if err != nil {
					continue
				}
				args[i] = string(b)
			case float64:
				// JSON numbers decode as float64; the schema's integer
				// columns want integers.
				if v == float64(int64(v)) {
					args[i] = int64(v)
				} else {
					args[i] = v
				}
			default:
				args[i] = val
			}
		}

		if _, err := stmt.Exec(args...); err != nil {
			continue
		}
	}
	return nil
}
