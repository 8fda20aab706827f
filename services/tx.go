// services/tx.go - Shared transaction and locking helpers
package services

import (
	"strings"
	"time"

	"puzzlearena/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	lockRetryAttempts = 3
	lockRetryBackoff  = 50 * time.Millisecond
)

// forUpdate adds SELECT ... FOR UPDATE on dialects that support it. SQLite
// (used by the test suite) has no row locks; its single-writer file lock
// serializes writes instead.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// isLockContention reports whether err looks like transient lock contention
// (deadlock, lock timeout, serialization failure) worth one more attempt.
func isLockContention(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "deadlock") ||
		strings.Contains(msg, "lock timeout") ||
		strings.Contains(msg, "could not serialize") ||
		strings.Contains(msg, "database is locked")
}

// inTx runs fn inside a transaction, retrying a handful of times on lock
// contention before surfacing ErrConcurrentModification. Domain errors pass
// through untouched; state-machine transition failures in particular are
// never retried here because fn fails them deterministically, not via locks.
func inTx(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 0; attempt < lockRetryAttempts; attempt++ {
		err = db.Transaction(fn)
		if !isLockContention(err) {
			return err
		}
		time.Sleep(lockRetryBackoff << attempt)
	}
	return ErrConcurrentModification
}

// loadSettings reads the single game settings row.
func loadSettings(db *gorm.DB) (*models.GameSettings, error) {
	var settings models.GameSettings
	if err := db.First(&settings).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &settings, nil
}
