package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"tourbook/internal/apperr"
)

const (
	publicRootDir = "./public"
	maxUploadSize = 5 << 20
)

var allowedImageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".webp": {},
}

// saveUserPhoto stores an uploaded profile photo under public/img/users and
// returns the stored filename.
func saveUserPhoto(file *multipart.FileHeader) (string, error) {
	return saveImage(file, filepath.Join(publicRootDir, "img", "users"))
}

// saveTourImage stores an uploaded tour image under public/img/tours.
func saveTourImage(file *multipart.FileHeader) (string, error) {
	return saveImage(file, filepath.Join(publicRootDir, "img", "tours"))
}

func saveImage(file *multipart.FileHeader, dir string) (string, error) {
	extension := strings.ToLower(filepath.Ext(file.Filename))
	if extension == "" {
		return "", apperr.BadRequest("image file extension is required")
	}
	if _, ok := allowedImageExtensions[extension]; !ok {
		return "", apperr.BadRequest(fmt.Sprintf("unsupported image type: %s", extension))
	}
	if file.Size > maxUploadSize {
		return "", apperr.BadRequest("image file too large (max 5MB)")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	filename := uuid.NewString() + extension

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(dir, filename))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}

	return filename, nil
}
