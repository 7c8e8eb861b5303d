package httpdto

// UploadedFile mirrors the upload boundary result for one file.
type UploadedFile struct {
	URL      string `json:"url"`
	FileName string `json:"name"`
	FileSize int64  `json:"size"`
	MimeType string `json:"type"`
	Kind     string `json:"kind"`
}

// UploadBatchResponse reports per-file outcomes; a failed file does not
// abort the rest of the batch.
type UploadBatchResponse struct {
	Uploaded []UploadedFile    `json:"uploaded"`
	Failed   map[string]string `json:"failed,omitempty"`
}
