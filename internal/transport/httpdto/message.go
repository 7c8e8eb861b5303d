package httpdto

import (
	"time"

	"agency-portal/internal/domain/message"
)

type EditMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

type AttachmentResponse struct {
	ID       string `json:"id"`
	FileName string `json:"file_name"`
	FilePath string `json:"file_path"`
	FileSize int64  `json:"file_size"`
	MimeType string `json:"mime_type"`
	Kind     string `json:"kind"`
}

type MessageResponse struct {
	ID          string               `json:"id"`
	RoomID      string               `json:"room_id"`
	UserID      string               `json:"user_id"`
	Content     string               `json:"content,omitempty"`
	MessageType string               `json:"message_type"`
	IsEdited    bool                 `json:"is_edited"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
	Attachments []AttachmentResponse `json:"attachments,omitempty"`
}

type ListMessagesResponse struct {
	Messages []MessageResponse `json:"messages"`
	HasMore  bool              `json:"has_more"`
}

func FromMessage(m message.Message) MessageResponse {
	resp := MessageResponse{
		ID:          m.ID.String(),
		RoomID:      m.RoomID.String(),
		UserID:      m.UserID.String(),
		MessageType: m.MessageType,
		IsEdited:    m.IsEdited,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.Content.Valid {
		resp.Content = m.Content.String
	}
	for _, a := range m.Attachments {
		resp.Attachments = append(resp.Attachments, AttachmentResponse{
			ID:       a.ID.String(),
			FileName: a.FileName,
			FilePath: a.FilePath,
			FileSize: a.FileSize,
			MimeType: a.MimeType,
			Kind:     a.Kind,
		})
	}
	return resp
}

func FromMessageSlice(msgs []message.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, FromMessage(m))
	}
	return out
}
