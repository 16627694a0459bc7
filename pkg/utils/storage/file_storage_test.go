package storage

import (
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUploadMediaWithoutInitializedStorage(t *testing.T) {
	s3Client = nil

	_, err := UploadMedia(&multipart.FileHeader{Filename: "photo.jpg"}, 42)
	assert.EqualError(t, err, "storage is not initialized")
}

func TestDeleteMediaWithoutInitializedStorage(t *testing.T) {
	s3Client = nil

	err := DeleteMedia("https://socialpulse-media.s3.eu-central-1.amazonaws.com/42/x.jpg")
	assert.EqualError(t, err, "storage is not initialized")
}
