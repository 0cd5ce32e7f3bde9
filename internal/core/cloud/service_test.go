package cloud

import (
	"log/slog"
	"testing"

	"github.com/FreshKeepCo/inventory-service/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServiceWithoutProviderDisablesArchiving(t *testing.T) {
	service, err := NewService(config.CloudConfig{}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	assert.Nil(t, service)
}

func TestNewServiceRejectsUnknownProvider(t *testing.T) {
	_, err := NewService(config.CloudConfig{Provider: "gcs"}, slog.New(slog.DiscardHandler))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported cloud provider")
}

func TestValidateAzureConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  AzureConfig
		wantErr bool
	}{
		{
			name:    "connection string alone is sufficient",
			config:  AzureConfig{ConnectionString: "UseDevelopmentStorage=true", ContainerName: "receipts"},
			wantErr: false,
		},
		{
			name:    "account name and key without connection string",
			config:  AzureConfig{StorageAccountName: "acct", StorageAccountKey: "a2V5", ContainerName: "receipts"},
			wantErr: false,
		},
		{
			name:    "missing credentials",
			config:  AzureConfig{ContainerName: "receipts"},
			wantErr: true,
		},
		{
			name:    "missing container",
			config:  AzureConfig{ConnectionString: "UseDevelopmentStorage=true"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAzureConfig(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
