// Package cloud archives original receipt images in blob storage so
// processed receipts can be audited later.
package cloud

import (
	"context"
	"fmt"
	"time"
)

// Provider defines the interface for blob storage providers
type Provider interface {
	// UploadBlob stores a blob and returns a description of the stored file.
	UploadBlob(ctx context.Context, req *UploadRequest) (*ArchivedFile, error)
}

// UploadRequest carries one blob to store.
type UploadRequest struct {
	// FileID is the blob name; generated from FileName when empty.
	FileID      string
	FileName    string
	ContentType string
	Data        []byte
	Metadata    map[string]string
}

// ArchivedFile describes a stored receipt image.
type ArchivedFile struct {
	FileID      string
	PublicURL   string
	ContentType string
	Size        int64
	ETag        string
	UploadedAt  time.Time
}

// AzureConfig holds Azure Blob Storage connection settings
type AzureConfig struct {
	StorageAccountName string
	StorageAccountKey  string
	ConnectionString   string
	ContainerName      string
	BaseURL            string
	UseHTTPS           bool
}

// CloudError wraps provider failures with a stable machine-readable code
type CloudError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CloudError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CloudError) Unwrap() error {
	return e.Cause
}
