package utils

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"image"
	"image/jpeg"
	_ "image/png"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

type IUtils interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
	ValidateImageFile(file *multipart.FileHeader) error
	DecodeImage(data []byte) (image.Image, error)
	EncodeJPEG(img image.Image) ([]byte, error)
	EncodeBase64(data []byte) string
}

type utils struct {
	maxFileSize int64
	jpegQuality int
}

func New() IUtils {
	return &utils{
		maxFileSize: 10 * 1024 * 1024,
		jpegQuality: 90,
	}
}

func (u *utils) NewULIDFromTimestamp(t time.Time) (string, error) {
	ms := ulid.Timestamp(t)
	entropy := ulid.Monotonic(rand.Reader, 0)

	id, err := ulid.New(ms, entropy)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

func (u *utils) ValidateImageFile(file *multipart.FileHeader) error {
	if file == nil {
		return errors.New("no file uploaded")
	}

	if file.Size > u.maxFileSize {
		return errors.New("file size exceeds limit")
	}

	contentType := file.Header.Get("Content-Type")
	switch contentType {
	case "image/jpeg", "image/jpg", "image/png":
		return nil
	}

	// Some clients upload without a content type, fall back to the extension.
	switch strings.ToLower(filepath.Ext(file.Filename)) {
	case ".jpg", ".jpeg", ".png":
		return nil
	}

	return errors.New("uploaded file is not a JPG/JPEG/PNG image")
}

// DecodeImage parses raw upload bytes into an in-memory image. JPEG and PNG
// decoders are registered via the blank imports above.
func (u *utils) DecodeImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, errors.New("empty image data")
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	return img, nil
}

func (u *utils) EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: u.jpegQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (u *utils) EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
