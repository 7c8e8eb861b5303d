package handler

import (
	"fmt"
	"net/http"
	"time"

	"agency-portal/internal/services"
	"agency-portal/internal/transport/httpdto"
	portal_errors "agency-portal/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type MessageHandler struct {
	messages *services.MessageService
	pageSize int
}

func NewMessageHandler(messages *services.MessageService, pageSize int) *MessageHandler {
	return &MessageHandler{messages: messages, pageSize: pageSize}
}

// History returns one page of room messages older than the "before"
// cursor, newest first. Without a cursor it returns the latest page.
func (h *MessageHandler) History(c *gin.Context) {
	identity, ok := services.IdentityFromContext(c.Request.Context())
	if !ok {
		fail(c, portal_errors.ErrUnauthorized)
		return
	}
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, fmt.Errorf("%w: invalid room id", portal_errors.ErrInvalidInput))
		return
	}

	before := time.Time{}
	if raw := c.Query("before"); raw != "" {
		before, err = time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			fail(c, fmt.Errorf("%w: invalid before cursor", portal_errors.ErrInvalidInput))
			return
		}
	}

	page, err := h.messages.RoomPage(c.Request.Context(), identity.ID, roomID, before, h.pageSize)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListMessagesResponse{
		Messages: httpdto.FromMessageSlice(page),
		HasMore:  len(page) == h.pageSize,
	}))
}

func (h *MessageHandler) Edit(c *gin.Context) {
	identity, ok := services.IdentityFromContext(c.Request.Context())
	if !ok {
		fail(c, portal_errors.ErrUnauthorized)
		return
	}
	messageID, err := uuid.Parse(c.Param("message_id"))
	if err != nil {
		fail(c, fmt.Errorf("%w: invalid message id", portal_errors.ErrInvalidInput))
		return
	}

	var req httpdto.EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, fmt.Errorf("%w: invalid request body", portal_errors.ErrInvalidInput))
		return
	}

	if err := h.messages.Edit(c.Request.Context(), identity, messageID, req.Content); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func (h *MessageHandler) Delete(c *gin.Context) {
	identity, ok := services.IdentityFromContext(c.Request.Context())
	if !ok {
		fail(c, portal_errors.ErrUnauthorized)
		return
	}
	messageID, err := uuid.Parse(c.Param("message_id"))
	if err != nil {
		fail(c, fmt.Errorf("%w: invalid message id", portal_errors.ErrInvalidInput))
		return
	}

	if err := h.messages.Delete(c.Request.Context(), identity, messageID); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}
