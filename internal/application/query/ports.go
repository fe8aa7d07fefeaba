// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"

	"github.com/schooldesk/schooldesk/internal/domain/identity"
	"github.com/schooldesk/schooldesk/pkg/logger"
)

// Logger is the leveled sink handlers report to. *logger.Logger satisfies it.
type Logger interface {
	Info(msg string, fields ...logger.Field)
	Warn(msg string, fields ...logger.Field)
}

// SnapshotReader runs fn inside one consistent read-only transaction.
// Repositories called with the ctx passed to fn join that transaction.
type SnapshotReader interface {
	ReadSnapshot(ctx context.Context, fn func(ctx context.Context) error) error
}

// SessionCache is a cache-aside store for resolved sessions.
type SessionCache interface {
	// GetSession returns nil, nil on a miss.
	GetSession(ctx context.Context, username string) (*identity.Session, error)
	SetSession(ctx context.Context, s *identity.Session) error
}

func readSnapshot(ctx context.Context, tx SnapshotReader, fn func(ctx context.Context) error) error {
	if tx == nil {
		return fn(ctx)
	}
	return tx.ReadSnapshot(ctx, fn)
}
