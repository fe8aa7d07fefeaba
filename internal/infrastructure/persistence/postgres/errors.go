package postgres

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/schooldesk/schooldesk/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ERROR HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// IsUniqueViolation checks if the error is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsForeignKeyViolation checks if the error is a foreign key violation.
func IsForeignKeyViolation(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503" // foreign_key_violation
	}
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// IsCheckViolation checks if the error is a check constraint violation.
func IsCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23514" // check_violation
	}
	return err != nil && strings.Contains(err.Error(), "CHECK constraint failed")
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// storageError wraps a driver error that has no domain meaning.
func storageError(domain, op string, err error) error {
	return shared.WrapError(domain, op, shared.ErrStorage, "store operation failed", err)
}

// translate maps not-found and unique violations to the given domain
// errors. Either may be nil to leave that case as a storage error.
func translate(domain, op string, err, notFound, duplicate error) error {
	switch {
	case err == nil:
		return nil
	case notFound != nil && isNotFound(err):
		return notFound
	case duplicate != nil && IsUniqueViolation(err):
		return duplicate
	case IsForeignKeyViolation(err):
		return shared.WrapError(domain, op, shared.ErrIntegrity, "referenced record does not exist", err)
	case IsCheckViolation(err):
		return shared.WrapError(domain, op, shared.ErrIntegrity, "record violates a check constraint", err)
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}
	return storageError(domain, op, err)
}
