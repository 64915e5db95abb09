package database

import (
	"errors"
	"strings"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const (
	pqUniqueViolation = "23505"
	sqliteConstraint  = 19
	uniqueFailedText  = "unique constraint failed"
)

// UniqueViolation reports whether err is a unique-constraint violation. The
// returned target is the Postgres constraint name, or for SQLite the
// offending column list ("users.username").
func UniqueViolation(err error) (string, bool) {
	if err == nil {
		return "", false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if string(pqErr.Code) != pqUniqueViolation {
			return "", false
		}
		return pqErr.Constraint, true
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch code := sqliteErr.Code(); {
		case code == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, code == sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
			return sqliteTarget(sqliteErr.Error()), true
		case code&0xff == sqliteConstraint && strings.Contains(strings.ToLower(sqliteErr.Error()), uniqueFailedText):
			return sqliteTarget(sqliteErr.Error()), true
		default:
			return "", false
		}
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, uniqueFailedText) {
		return sqliteTarget(err.Error()), true
	}
	return "", false
}

// sqliteTarget extracts "table.col[, table.col]" from a SQLite constraint
// message.
func sqliteTarget(msg string) string {
	idx := strings.Index(strings.ToLower(msg), uniqueFailedText)
	if idx < 0 {
		return ""
	}
	target := strings.TrimSpace(msg[idx+len(uniqueFailedText):])
	target = strings.TrimPrefix(target, ":")
	if end := strings.Index(target, " ("); end >= 0 {
		target = target[:end]
	}
	return strings.TrimSpace(target)
}
