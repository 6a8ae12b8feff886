package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryStore implements ObjectStore on Cloudinary raw storage.
type CloudinaryStore struct {
	client *cloudinary.Cloudinary
}

// NewCloudinaryStore creates a CloudinaryStore from a cloudinary:// URL.
func NewCloudinaryStore(cloudinaryURL string) (*CloudinaryStore, error) {
	if cloudinaryURL == "" {
		return nil, fmt.Errorf("cloudinary: connection URL is required")
	}
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: failed to create client: %w", err)
	}
	return &CloudinaryStore{client: cld}, nil
}

// Upload stores raw bytes under publicID and returns the secure URL.
func (s *CloudinaryStore) Upload(ctx context.Context, publicID string, data []byte) (string, error) {
	resp, err := s.client.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		PublicID:     publicID,
		ResourceType: "raw",
		Overwrite:    api.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary: upload failed: %w", err)
	}
	return resp.SecureURL, nil
}

// Delete removes the object. A "not found" result is treated as success so
// deletes stay idempotent.
func (s *CloudinaryStore) Delete(ctx context.Context, publicID string) error {
	resp, err := s.client.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: "raw",
	})
	if err != nil {
		return fmt.Errorf("cloudinary: destroy failed: %w", err)
	}
	if resp.Result != "ok" && resp.Result != "not found" {
		return fmt.Errorf("cloudinary: destroy returned %q", resp.Result)
	}
	return nil
}
