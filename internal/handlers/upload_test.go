package handlers

import (
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSaveImageRejectsMissingExtension(t *testing.T) {
	_, err := saveImage(&multipart.FileHeader{Filename: "photo"}, t.TempDir())
	assert.ErrorContains(t, err, "extension is required")
}

func TestSaveImageRejectsUnsupportedType(t *testing.T) {
	for _, name := range []string{"photo.gif", "photo.svg", "photo.exe"} {
		_, err := saveImage(&multipart.FileHeader{Filename: name, Size: 1024}, t.TempDir())
		assert.ErrorContains(t, err, "unsupported image type", "file %q", name)
	}
}

func TestSaveImageRejectsOversizedFile(t *testing.T) {
	header := &multipart.FileHeader{Filename: "photo.jpg", Size: maxUploadSize + 1}

	_, err := saveImage(header, t.TempDir())
	assert.ErrorContains(t, err, "too large")
}

func TestSaveImageAcceptsUppercaseExtension(t *testing.T) {
	// extension checks are case-insensitive, so this must get past them and
	// fail only when opening the (nonexistent) upload
	_, err := saveImage(&multipart.FileHeader{Filename: "photo.JPG", Size: 1024}, t.TempDir())
	assert.NotContains(t, errString(err), "unsupported image type")
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
