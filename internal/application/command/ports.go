// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"

	"github.com/schooldesk/schooldesk/pkg/logger"
)

// Logger is the leveled sink handlers report to. *logger.Logger satisfies it.
type Logger interface {
	Info(msg string, fields ...logger.Field)
	Warn(msg string, fields ...logger.Field)
}

// Transactor runs fn in one write transaction. Repositories called with the
// ctx passed to fn join it; an error from fn rolls everything back.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// PasswordHasher turns a plain password into a stored credential.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// PassCodeGenerator issues voice-assistant pass codes.
type PassCodeGenerator interface {
	Generate() (string, error)
}

// SessionInvalidator drops a cached session after the user changes.
type SessionInvalidator interface {
	Invalidate(ctx context.Context, username string) error
}

func withTx(ctx context.Context, tx Transactor, fn func(ctx context.Context) error) error {
	if tx == nil {
		return fn(ctx)
	}
	return tx.WithTx(ctx, fn)
}
