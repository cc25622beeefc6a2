// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"strings"
	"time"
)

// deleteBatch bounds the number of ids bound to one DELETE statement.
const deleteBatch = 500

// DeleteOlderThan queues a sweep removing events stamped before cutoff.
//
// The sweep is two-phase: it first snapshots the matching ids by walking the
// timestamp index in ascending order, then deletes exactly that snapshot in
// one transaction. Events written while the sweep runs (by this process or
// another one sharing the file) are left for the next sweep.
func (s *EventStore) DeleteOlderThan(cutoff time.Time) <-chan Result {
	cutoffMs := cutoff.UnixMilli()

	return s.enqueue("delete_older_than", func(db *sql.DB) Result {
		ids, err := snapshotExpired(db, cutoffMs)
		if err != nil {
			return Result{Err: err}
		}
		if len(ids) == 0 {
			return Result{}
		}
		n, err := deleteIDs(db, ids)
		return Result{Affected: n, Err: err}
	})
}

// snapshotExpired collects ids older than cutoffMs, oldest first.
func snapshotExpired(db *sql.DB, cutoffMs int64) ([]int64, error) {
	rows, err := db.Query(`
		SELECT id FROM events
		WHERE timestamp < ?
		ORDER BY timestamp ASC, id ASC
	`, cutoffMs)
	if err != nil {
		return nil, err
	}

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	err = rows.Err()
	// Release the single connection before the delete transaction needs it
	rows.Close()
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// deleteIDs removes the given ids in batches inside one transaction.
func deleteIDs(db *sql.DB, ids []int64) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	total := 0
	for start := 0; start < len(ids); start += deleteBatch {
		end := start + deleteBatch
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]

		args := make([]any, len(batch))
		for i, id := range batch {
			args[i] = id
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(batch)), ",")

		res, err := tx.Exec("DELETE FROM events WHERE id IN ("+placeholders+")", args...)
		if err != nil {
			return 0, err
		}
		n, _ := res.RowsAffected()
		total += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return total, nil
}
