package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/gtfs-pathways/pkg/persistence/postgresql"
)

var supportedPersistenceProviders = []string{"postgres", "postgresql"}

// NewPersistence opens the database named by databaseURL and brings its schema up to date.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*postgresql.Persistence, error) {
	provider := parsePersistenceProvider(databaseURL)
	if provider == "" {
		return nil, fmt.Errorf("%w: database url scheme of %q", ErrUnsupportedProvider, redact(databaseURL))
	}

	return postgresql.NewPersistence(ctx, logger, databaseURL)
}

func parsePersistenceProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return ""
	}

	for _, supported := range supportedPersistenceProviders {
		if provider == supported {
			return provider
		}
	}

	return ""
}

// redact drops everything but the scheme so credentials never reach logs.
func redact(databaseURL string) string {
	scheme, _, _ := strings.Cut(databaseURL, "://")

	return scheme + "://..."
}
