package errors

// Postgres error mapping for the catalog and movie job repos

import (
	stderrs "errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the repos can hit
const (
	pgErrUniqueViolation           = "23505"
	pgErrForeignKeyViolation       = "23503"
	pgErrNotNullViolation          = "23502"
	pgErrCheckViolation            = "23514"
	pgErrStringDataRightTruncation = "22001"
	pgErrInvalidTextRepresentation = "22P02"

	pgErrSerializationFailure   = "40001"
	pgErrDeadlockDetected       = "40P01"
	pgErrLockNotAvailable       = "55P03"
	pgErrReadOnlySQLTransaction = "25006"
	pgErrCannotConnectNow       = "57P03"
)

var sqlStateCodes = map[string]ErrorCode{
	pgErrUniqueViolation:           ErrorCodeDuplicateKey,
	pgErrForeignKeyViolation:       ErrorCodeInvalidArgument, // reference to a missing source
	pgErrNotNullViolation:          ErrorCodeValidation,
	pgErrCheckViolation:            ErrorCodeValidation,
	pgErrStringDataRightTruncation: ErrorCodeInvalidArgument,
	pgErrInvalidTextRepresentation: ErrorCodeInvalidArgument, // malformed job uuid
	pgErrSerializationFailure:      ErrorCodeDB,
	pgErrDeadlockDetected:          ErrorCodeDB,
	pgErrLockNotAvailable:          ErrorCodeDB,
	pgErrReadOnlySQLTransaction:    ErrorCodeUnavailable,
	pgErrCannotConnectNow:          ErrorCodeUnavailable,
}

// constraintFields names the request field behind each schema constraint
var constraintFields = map[string]string{
	"data_sources_natural_key":  "source",
	"images_source_fkey":        "source_id",
	"images_source_date_key":    "date",
	"images_geometry_check":     "filepath",
	"movie_jobs_pkey":           "job_id",
	"movie_jobs_state_check":    "state",
	"movie_jobs_progress_check": "progress",
}

// ExtractPgError returns the PgError at the root of err
func ExtractPgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if stderrs.As(Root(err), &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// IsSQLState reports whether err is a Postgres error with the given SQLSTATE
func IsSQLState(err error, code string) bool {
	pgErr, ok := ExtractPgError(err)
	return ok && pgErr.Code == code
}

// IsDuplicateKey reports a unique constraint violation
func IsDuplicateKey(err error) bool { return IsSQLState(err, pgErrUniqueViolation) }

// DBErrorCode maps a Postgres error to an ErrorCode, !ok means err is not a PgError
func DBErrorCode(err error) (ErrorCode, bool) {
	var pgErr *pgconn.PgError
	if !stderrs.As(err, &pgErr) {
		return ErrorCodeUnknown, false
	}
	if code, ok := sqlStateCodes[pgErr.Code]; ok {
		return code, true
	}
	return ErrorCodeDB, true
}

// FromPostgres wraps a pg error with its mapped code, the violated constraint becomes the field
func FromPostgres(err error, msg string) error {
	if err == nil {
		return nil
	}
	code, ok := DBErrorCode(err)
	if !ok {
		code = ErrorCodeDB
	}
	out := Wrap(err, code, msg)
	if pgErr, ok := ExtractPgError(err); ok {
		if f, ok := constraintFields[pgErr.ConstraintName]; ok {
			out = WithField(out, f)
		}
	}
	return out
}

// FromPostgresf is the formatted variant of FromPostgres
func FromPostgresf(err error, format string, a ...any) error {
	if err == nil {
		return nil
	}
	return FromPostgres(err, fmt.Sprintf(format, a...))
}

// retryText is what pgx reports on commit or lock failures that carry no SQLSTATE
var retryText = []string{
	"commit unexpectedly resulted in rollback",
	"deadlock detected",
	"could not serialize access",
	"could not obtain lock on row",
	"canceling statement due to lock timeout",
}

// IsRetryable reports contention worth retrying, such as two movie workers racing for the same lease
// Context cancellation is never retryable
func IsRetryable(err error) bool {
	if err == nil || IsContext(err) {
		return false
	}
	root := Root(err)
	var pgErr *pgconn.PgError
	if stderrs.As(root, &pgErr) {
		switch pgErr.Code {
		case pgErrSerializationFailure, pgErrDeadlockDetected, pgErrLockNotAvailable:
			return true
		}
		return false
	}
	s := strings.ToLower(root.Error())
	for _, t := range retryText {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
