package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/gtfs-pathways/pkg/storage"
	"github.com/dukex/gtfs-pathways/pkg/storage/file"
	"github.com/dukex/gtfs-pathways/pkg/storage/s3"
)

// StorageConfig selects and configures the object store.
type StorageConfig struct {
	Provider  string
	Container string
	Path      string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

func NewStorage(ctx context.Context, config StorageConfig, logger *slog.Logger) (storage.Storage, error) { //nolint:ireturn
	switch config.Provider {
	case "s3":
		client, err := s3.NewClient(ctx, s3.Config{
			Endpoint:  config.Endpoint,
			Region:    config.Region,
			AccessKey: config.AccessKey,
			SecretKey: config.SecretKey,
			Bucket:    config.Container,
		})
		if err != nil {
			return nil, err
		}

		endpoint := config.Endpoint
		if endpoint == "" {
			endpoint = fmt.Sprintf("https://s3.%s.amazonaws.com", config.Region)
		}

		return s3.NewStorage(client, endpoint, config.Container, logger), nil
	case "file":
		return file.NewStorage(config.Path, logger)
	default:
		return nil, fmt.Errorf("%w: storage %q", ErrUnsupportedProvider, config.Provider)
	}
}
