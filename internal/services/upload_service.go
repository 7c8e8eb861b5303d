package services

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"

	"agency-portal/internal/domain/message"
	"agency-portal/internal/storage"
	portal_errors "agency-portal/pkg/errors"

	"github.com/google/uuid"
)

// UploadService pushes attachment files to blob storage ahead of send.
// Uploads happen first so the attachment rows inserted with the message
// already carry final URLs.
type UploadService struct {
	storage *storage.Client
}

type UploadInput struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UploadResult is the upload boundary's {url, name, size, type} contract
// plus the derived attachment kind.
type UploadResult struct {
	URL      string `json:"url"`
	FileName string `json:"name"`
	FileSize int64  `json:"size"`
	MimeType string `json:"type"`
	Kind     string `json:"kind"`
}

func NewUploadService(storage *storage.Client) *UploadService {
	return &UploadService{storage: storage}
}

func (s *UploadService) Upload(ctx context.Context, uploaderID uuid.UUID, input UploadInput) (UploadResult, error) {
	if s.storage == nil {
		return UploadResult{}, errors.New("blob storage is not configured")
	}
	if uploaderID == uuid.Nil || input.FileName == "" || input.ContentType == "" || input.Size <= 0 {
		return UploadResult{}, portal_errors.ErrInvalidInput
	}
	if err := s.storage.ValidateUpload(input.ContentType, input.Size); err != nil {
		return UploadResult{}, err
	}

	key := buildObjectKey(uploaderID, input.FileName)
	url, err := s.storage.Put(ctx, key, input.ContentType, input.Size, input.Body)
	if err != nil {
		return UploadResult{}, err
	}

	return UploadResult{
		URL:      url,
		FileName: input.FileName,
		FileSize: input.Size,
		MimeType: input.ContentType,
		Kind:     message.KindForMime(input.ContentType),
	}, nil
}

// buildObjectKey namespaces objects per uploader and day, keeping the
// original extension for content sniffing downstream.
func buildObjectKey(uploaderID uuid.UUID, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	day := time.Now().UTC().Format("2006/01/02")
	return "attachments/" + day + "/" + uploaderID.String() + "/" + uuid.New().String() + ext
}
