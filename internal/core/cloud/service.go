package cloud

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/FreshKeepCo/inventory-service/config"
)

// Service is the provider-agnostic archive layer the receipt pipeline
// uses. It satisfies the pipeline's Archiver dependency.
type Service struct {
	provider Provider
	logger   *slog.Logger
}

// NewService builds the archive service for the configured provider.
// Returns (nil, nil) when no provider is configured: archiving is
// optional and the pipeline runs without it.
func NewService(cfg config.CloudConfig, logger *slog.Logger) (*Service, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "azure":
		provider, err := NewAzureProvider(AzureConfig{
			StorageAccountName: cfg.Azure.StorageAccountName,
			StorageAccountKey:  cfg.Azure.StorageAccountKey,
			ConnectionString:   cfg.Azure.ConnectionString,
			ContainerName:      cfg.Azure.ContainerName,
			BaseURL:            cfg.Azure.BaseURL,
			UseHTTPS:           cfg.Azure.UseHTTPS,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create azure provider: %w", err)
		}
		return &Service{provider: provider, logger: logger}, nil
	default:
		return nil, fmt.Errorf("unsupported cloud provider: %s", cfg.Provider)
	}
}

// Upload archives a receipt image and returns its public URL.
func (s *Service) Upload(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	archived, err := s.provider.UploadBlob(ctx, &UploadRequest{
		FileID:      name,
		ContentType: contentType,
		Data:        data,
		Metadata: map[string]string{
			"origin": "receipt-pipeline",
		},
	})
	if err != nil {
		return "", err
	}

	s.logger.Debug("Archived receipt image",
		"file_id", archived.FileID,
		"size", archived.Size,
		"content_type", contentType)

	return archived.PublicURL, nil
}
