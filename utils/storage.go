package utils

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

func NewGCSClient(ctx context.Context) (*storage.Client, string, error) {
	bucket := os.Getenv("GCS_BUCKET")
	credentialsPath := os.Getenv("CREDENTIALS_FILE_LOCATION")
	wd, err := os.Getwd()
	if err != nil {
		return nil, "", err
	}
	client, err := storage.NewClient(ctx, option.WithAuthCredentialsFile(option.ServiceAccount, filepath.Join(wd, credentialsPath)))
	if err != nil {
		return nil, "", err
	}
	return client, bucket, nil
}

// UploadAvatarToGCS stores an avatar image under avatars/<userID>/ and
// returns its public URL.
func UploadAvatarToGCS(
	ctx context.Context,
	gcs *storage.Client,
	bucketName string,
	userID string,
	fh *multipart.FileHeader,
) (string, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if ext == "" {
		ext = ".bin"
	}
	objectName := fmt.Sprintf("avatars/%s/%d%s", userID, time.Now().UnixNano(), ext)

	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	w := gcs.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	if ct := fh.Header.Get("Content-Type"); ct != "" {
		w.ContentType = ct
	}

	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("upload copy: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("upload close: %w", err)
	}

	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucketName, objectName), nil
}

// AvatarImageValidator restricts avatar uploads to common image types.
type AvatarImageValidator struct {
	maxSize      int64
	allowedTypes map[string]bool
}

func NewAvatarImageValidator() *AvatarImageValidator {
	return &AvatarImageValidator{
		maxSize: 5 << 20, // 5MB
		allowedTypes: map[string]bool{
			"image/jpeg": true,
			"image/png":  true,
			"image/webp": true,
		},
	}
}

func (v *AvatarImageValidator) ValidateFile(fh *multipart.FileHeader) error {
	if fh.Size > v.maxSize {
		return fmt.Errorf("file exceeds %d bytes", v.maxSize)
	}
	ct := fh.Header.Get("Content-Type")
	if !v.allowedTypes[ct] {
		return fmt.Errorf("unsupported content type %q", ct)
	}
	return nil
}
