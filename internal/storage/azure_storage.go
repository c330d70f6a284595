package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// AzurePhotoFetcher downloads photographs from Azure Blob Storage
type AzurePhotoFetcher struct {
	client   *azblob.Client
	maxBytes int64
}

// NewAzurePhotoFetcher creates a fetcher authenticated with a shared key
func NewAzurePhotoFetcher(accountName, accountKey string, maxBytes int64) (*AzurePhotoFetcher, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("invalid azure credentials: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure client: %w", err)
	}

	return &AzurePhotoFetcher{client: client, maxBytes: maxBytes}, nil
}

// Fetch downloads a blob. The location is a blob URL such as
// https://account.blob.core.windows.net/container/path/photo.jpg, or the
// container URL with the blob name in a "blob" query parameter.
func (s *AzurePhotoFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	containerName, blobName, err := parseBlobLocation(location)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.DownloadStream(ctx, containerName, blobName, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, containerName, blobName)
		}
		return nil, fmt.Errorf("download failed: %w", err)
	}

	body := resp.Body
	defer body.Close()

	return readLimited(body, s.maxBytes)
}

// parseBlobLocation splits a blob URL into container and blob names.
func parseBlobLocation(location string) (string, string, error) {
	parsed, err := url.Parse(location)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidLocation, err)
	}

	path := strings.TrimPrefix(parsed.Path, "/")
	if blob := parsed.Query().Get("blob"); blob != "" {
		container := strings.TrimSuffix(path, "/")
		if container == "" || strings.Contains(container, "/") {
			return "", "", fmt.Errorf("%w: expected a container path in %q", ErrInvalidLocation, location)
		}
		return container, blob, nil
	}

	container, blob, ok := strings.Cut(path, "/")
	if !ok || container == "" || blob == "" {
		return "", "", fmt.Errorf("%w: expected /container/blob in %q", ErrInvalidLocation, location)
	}
	return container, blob, nil
}
