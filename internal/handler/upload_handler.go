package handler

import (
	"fmt"
	"net/http"

	"agency-portal/internal/services"
	"agency-portal/internal/transport/httpdto"
	portal_errors "agency-portal/pkg/errors"

	"github.com/gin-gonic/gin"
)

type UploadHandler struct {
	service *services.UploadService
}

func NewUploadHandler(service *services.UploadService) *UploadHandler {
	return &UploadHandler{service: service}
}

// CreateBatch accepts a multipart form with one or more "files" parts
// and uploads each independently. A file that fails validation or
// storage is reported under "failed" without aborting the rest.
func (h *UploadHandler) CreateBatch(c *gin.Context) {
	identity, ok := services.IdentityFromContext(c.Request.Context())
	if !ok {
		fail(c, portal_errors.ErrUnauthorized)
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		fail(c, fmt.Errorf("%w: invalid multipart form", portal_errors.ErrInvalidInput))
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		fail(c, fmt.Errorf("%w: no files provided", portal_errors.ErrInvalidInput))
		return
	}

	resp := httpdto.UploadBatchResponse{}
	for _, header := range files {
		f, err := header.Open()
		if err != nil {
			addFailed(&resp, header.Filename, err)
			continue
		}
		result, err := h.service.Upload(c.Request.Context(), identity.ID, services.UploadInput{
			FileName:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Body:        f,
		})
		f.Close()
		if err != nil {
			addFailed(&resp, header.Filename, err)
			continue
		}
		resp.Uploaded = append(resp.Uploaded, httpdto.UploadedFile{
			URL:      result.URL,
			FileName: result.FileName,
			FileSize: result.FileSize,
			MimeType: result.MimeType,
			Kind:     result.Kind,
		})
	}

	if len(resp.Uploaded) == 0 {
		c.JSON(http.StatusBadRequest, httpdto.Response[httpdto.UploadBatchResponse]{
			Data:  resp,
			Error: "no files were uploaded",
			Code:  "INVALID_REQUEST",
		})
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(resp))
}

func addFailed(resp *httpdto.UploadBatchResponse, name string, err error) {
	if resp.Failed == nil {
		resp.Failed = make(map[string]string)
	}
	resp.Failed[name] = err.Error()
}
