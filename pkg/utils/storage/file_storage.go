package storage

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const (
	BucketName = "socialpulse-media"
	Region     = "eu-central-1"
)

var (
	s3Client     *s3.Client
	contentTypes = map[string]string{
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".png":  "image/png",
		".webp": "image/webp",
		".gif":  "image/gif",
		".mp4":  "video/mp4",
	}
)

func InitStorage() error {
	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(Region),
	)
	if err != nil {
		return fmt.Errorf("unable to load SDK config: %v", err)
	}

	s3Client = s3.NewFromConfig(cfg)
	return nil
}

// UploadMedia stores a post attachment under the uploading user's prefix and
// returns its public URL. Keys are random so original filenames never collide.
func UploadMedia(file *multipart.FileHeader, userID uint) (string, error) {
	if s3Client == nil {
		return "", errors.New("storage is not initialized")
	}

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(file.Filename))
	contentType, ok := contentTypes[ext]
	if !ok {
		return "", fmt.Errorf("unsupported media type: %s", ext)
	}

	key := fmt.Sprintf("%d/%s%s", userID, uuid.NewString(), ext)

	_, err = s3Client.PutObject(context.TODO(), &s3.PutObjectInput{
		Bucket:      aws.String(BucketName),
		Key:         aws.String(key),
		Body:        src,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("could not upload to S3: %v", err)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", BucketName, Region, key), nil
}

// DeleteMedia removes an uploaded object by its public URL.
func DeleteMedia(mediaURL string) error {
	if s3Client == nil {
		return errors.New("storage is not initialized")
	}

	parts := strings.Split(mediaURL, "/")
	if len(parts) < 4 {
		return fmt.Errorf("malformed media URL: %s", mediaURL)
	}
	key := strings.Join(parts[3:], "/")

	_, err := s3Client.DeleteObject(context.TODO(), &s3.DeleteObjectInput{
		Bucket: aws.String(BucketName),
		Key:    aws.String(key),
	})

	return err
}
