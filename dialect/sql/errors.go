package sql

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// PostgreSQL SQLSTATE codes for constraint violations (Class 23).
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// MySQL error numbers for constraint violations.
const (
	mysqlDuplicateEntry   = 1062
	mysqlForeignKeyParent = 1451 // Cannot delete or update a parent row
	mysqlForeignKeyChild  = 1452 // Cannot add or update a child row
	mysqlCheckViolation   = 3819
)

// sqlStateError is implemented by drivers exposing SQLSTATE codes (pgx).
type sqlStateError interface {
	SQLState() string
}

// IsConstraintError reports whether err resulted from executing a statement
// that violated a database constraint.
func IsConstraintError(err error) bool {
	return IsUniqueConstraintError(err) ||
		IsForeignKeyConstraintError(err) ||
		IsCheckConstraintError(err)
}

// IsUniqueConstraintError reports if the error resulted from a DB uniqueness
// constraint violation, e.g. an INSERT of a duplicate key.
func IsUniqueConstraintError(err error) bool {
	return matchError(err, []string{pgUniqueViolation}, []uint16{mysqlDuplicateEntry},
		"violates unique constraint", "UNIQUE constraint failed", "Error 1062")
}

// IsForeignKeyConstraintError reports if the error resulted from a foreign-key
// constraint violation.
func IsForeignKeyConstraintError(err error) bool {
	return matchError(err, []string{pgForeignKeyViolation}, []uint16{mysqlForeignKeyParent, mysqlForeignKeyChild},
		"violates foreign key constraint", "FOREIGN KEY constraint failed", "Error 1451", "Error 1452")
}

// IsCheckConstraintError reports if the error resulted from a CHECK
// constraint violation.
func IsCheckConstraintError(err error) bool {
	return matchError(err, []string{pgCheckViolation}, []uint16{mysqlCheckViolation},
		"violates check constraint", "CHECK constraint failed", "Error 3819")
}

func matchError(err error, states []string, numbers []uint16, fallback ...string) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return contains(states, string(pqErr.Code))
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		for _, n := range numbers {
			if myErr.Number == n {
				return true
			}
		}
		return false
	}
	var stErr sqlStateError
	if errors.As(err, &stErr) && contains(states, stErr.SQLState()) {
		return true
	}
	// SQLite drivers report constraint failures in the message only.
	msg := err.Error()
	for _, s := range fallback {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
