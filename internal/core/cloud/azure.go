package cloud

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/google/uuid"
)

// AzureProvider implements the Provider interface for Azure Blob Storage
type AzureProvider struct {
	client        *azblob.Client
	containerName string
	config        AzureConfig
}

// NewAzureProvider creates a new Azure Blob Storage provider
func NewAzureProvider(config AzureConfig) (*AzureProvider, error) {
	if err := validateAzureConfig(config); err != nil {
		return nil, err
	}

	var client *azblob.Client
	var err error

	// Create client using connection string or account name/key
	if config.ConnectionString != "" {
		client, err = azblob.NewClientFromConnectionString(config.ConnectionString, nil)
	} else {
		serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", config.StorageAccountName)
		credential, credErr := azblob.NewSharedKeyCredential(config.StorageAccountName, config.StorageAccountKey)
		if credErr != nil {
			return nil, &CloudError{
				Code:    "AZURE_CREDENTIAL_ERROR",
				Message: "failed to create Azure credentials",
				Cause:   credErr,
			}
		}
		client, err = azblob.NewClientWithSharedKeyCredential(serviceURL, credential, nil)
	}

	if err != nil {
		return nil, &CloudError{
			Code:    "AZURE_CLIENT_ERROR",
			Message: "failed to create Azure Blob Storage client",
			Cause:   err,
		}
	}

	return &AzureProvider{
		client:        client,
		containerName: config.ContainerName,
		config:        config,
	}, nil
}

// UploadBlob stores a receipt image in the configured container
func (p *AzureProvider) UploadBlob(ctx context.Context, req *UploadRequest) (*ArchivedFile, error) {
	if req == nil {
		return nil, &CloudError{
			Code:    "INVALID_REQUEST",
			Message: "upload request cannot be nil",
		}
	}

	fileID := req.FileID
	if fileID == "" {
		fileID = uuid.New().String()
		if req.FileName != "" && strings.Contains(req.FileName, ".") {
			parts := strings.Split(req.FileName, ".")
			fileID = fileID + "." + parts[len(parts)-1]
		}
	}

	metadata := make(map[string]*string)
	if req.FileName != "" {
		metadata["filename"] = to.Ptr(req.FileName)
	}
	for k, v := range req.Metadata {
		metadata[k] = to.Ptr(v)
	}

	uploadOptions := &azblob.UploadStreamOptions{
		Metadata: metadata,
	}
	if req.ContentType != "" {
		uploadOptions.HTTPHeaders = &blob.HTTPHeaders{
			BlobContentType: to.Ptr(req.ContentType),
		}
	}

	uploadResponse, err := p.client.UploadStream(ctx, p.containerName, fileID, bytes.NewReader(req.Data), uploadOptions)
	if err != nil {
		return nil, &CloudError{
			Code:    "UPLOAD_FAILED",
			Message: "failed to upload blob to Azure Blob Storage",
			Cause:   err,
		}
	}

	archived := &ArchivedFile{
		FileID:      fileID,
		PublicURL:   p.generatePublicURL(fileID),
		ContentType: req.ContentType,
		Size:        int64(len(req.Data)),
		UploadedAt:  time.Now().UTC(),
	}
	if uploadResponse.ETag != nil {
		archived.ETag = string(*uploadResponse.ETag)
	}

	return archived, nil
}

func (p *AzureProvider) generatePublicURL(fileID string) string {
	if p.config.BaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(p.config.BaseURL, "/"), p.containerName, fileID)
	}

	scheme := "https"
	if !p.config.UseHTTPS && p.config.ConnectionString != "" {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s.blob.core.windows.net/%s/%s", scheme, p.config.StorageAccountName, p.containerName, fileID)
}

func validateAzureConfig(config AzureConfig) error {
	if config.ConnectionString == "" {
		if config.StorageAccountName == "" || config.StorageAccountKey == "" {
			return &CloudError{
				Code:    "AZURE_CONFIG_INVALID",
				Message: "either connection string or account name and key must be set",
			}
		}
	}
	if config.ContainerName == "" {
		return &CloudError{
			Code:    "AZURE_CONFIG_INVALID",
			Message: "container name must be set",
		}
	}
	return nil
}
