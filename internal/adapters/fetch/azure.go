package fetch

import (
	"context"
	"io"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// AzureSource reads item documents from Azure Blob Storage
// (az://container/blob).
type AzureSource struct {
	cfg AzureConfig

	once    sync.Once
	client  *azblob.Client
	initErr error
}

// AzureConfig holds Azure Blob Storage source configuration.
type AzureConfig struct {
	AccountName      string
	AccountKey       string
	ConnectionString string
}

// NewAzureSource creates a new Azure source. The client is built lazily
// on first use.
func NewAzureSource(cfg AzureConfig) *AzureSource {
	return &AzureSource{cfg: cfg}
}

func (s *AzureSource) init() {
	if s.cfg.ConnectionString != "" {
		s.client, s.initErr = azblob.NewClientFromConnectionString(s.cfg.ConnectionString, nil)
		return
	}

	url := "https://" + s.cfg.AccountName + ".blob.core.windows.net/"
	cred, err := azblob.NewSharedKeyCredential(s.cfg.AccountName, s.cfg.AccountKey)
	if err != nil {
		s.initErr = err
		return
	}
	s.client, s.initErr = azblob.NewClientWithSharedKeyCredential(url, cred, nil)
}

// Read downloads the blob at az://container/blob.
func (s *AzureSource) Read(ctx context.Context, location string) ([]byte, error) {
	container, blob, err := splitObjectLocation(location, "az://")
	if err != nil {
		return nil, err
	}

	s.once.Do(s.init)
	if s.initErr != nil {
		return nil, s.initErr
	}

	resp, err := s.client.DownloadStream(ctx, container, blob, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	return io.ReadAll(resp.Body)
}
