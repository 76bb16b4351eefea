// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/ashureev/selfexplain/internal/domain"
)

// Repository defines the interface for persisting tutoring state.
type Repository interface {
	// GetSession retrieves a session by its session ID. Returns (nil, nil)
	// when the session does not exist.
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)

	// UpsertSession creates or updates a session snapshot.
	UpsertSession(ctx context.Context, session *domain.Session) error

	// AppendInteraction appends one turn to the interaction log.
	AppendInteraction(ctx context.Context, rec *domain.InteractionRecord) error

	// ListInteractions retrieves all interactions for a session in
	// chronological order.
	ListInteractions(ctx context.Context, sessionID string) ([]*domain.InteractionRecord, error)

	// ExportInteractions retrieves the full interaction log across all
	// sessions in chronological order.
	ExportInteractions(ctx context.Context) ([]*domain.InteractionRecord, error)

	// SaveRecording stores metadata for an uploaded audio recording.
	SaveRecording(ctx context.Context, rec *domain.Recording) error

	// ListRecordings retrieves recording metadata for a session.
	ListRecordings(ctx context.Context, sessionID string) ([]*domain.Recording, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
