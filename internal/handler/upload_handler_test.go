package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"agency-portal/internal/domain/user"
	"agency-portal/internal/services"
	"agency-portal/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func multipartBody(t *testing.T, names ...string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, name := range names {
		part, err := w.CreateFormFile("files", name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write([]byte("payload")); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, w.FormDataContentType()
}

func TestUploadBatchAllFailedUsesErrorEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// A service with no storage client rejects every file.
	h := NewUploadHandler(services.NewUploadService(nil))

	body, contentType := multipartBody(t, "a.pdf", "b.png")
	req := httptest.NewRequest(http.MethodPost, "/v1/uploads", body)
	req.Header.Set("Content-Type", contentType)
	identity := user.Identity{ID: uuid.New(), Name: "uploader", Role: user.RoleAgency}
	req = req.WithContext(services.WithIdentity(req.Context(), identity))

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = req

	h.CreateBatch(c)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var resp httpdto.Response[httpdto.UploadBatchResponse]
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Success {
		t.Fatal("an all-failed batch must not report success")
	}
	if resp.Code != "INVALID_REQUEST" || resp.Error == "" {
		t.Fatalf("expected error envelope, got code %q error %q", resp.Code, resp.Error)
	}
	if len(resp.Data.Failed) != 2 {
		t.Fatalf("expected both files reported as failed, got %v", resp.Data.Failed)
	}
	if len(resp.Data.Uploaded) != 0 {
		t.Fatalf("expected no uploads, got %v", resp.Data.Uploaded)
	}
}
