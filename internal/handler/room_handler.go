package handler

import (
	"fmt"
	"net/http"

	"agency-portal/internal/domain/room"
	"agency-portal/internal/redis"
	"agency-portal/internal/services"
	"agency-portal/internal/transport/httpdto"
	portal_errors "agency-portal/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RoomHandler struct {
	rooms    *services.RoomService
	reads    *services.ReadService
	presence *redis.PresenceStore
}

func NewRoomHandler(rooms *services.RoomService, reads *services.ReadService, presence *redis.PresenceStore) *RoomHandler {
	return &RoomHandler{rooms: rooms, reads: reads, presence: presence}
}

func (h *RoomHandler) List(c *gin.Context) {
	identity, ok := services.IdentityFromContext(c.Request.Context())
	if !ok {
		fail(c, portal_errors.ErrUnauthorized)
		return
	}

	summaries, err := h.rooms.ListRoomsForUser(c.Request.Context(), identity.ID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromRoomSummarySlice(summaries)))
}

func (h *RoomHandler) Dashboard(c *gin.Context) {
	identity, ok := services.IdentityFromContext(c.Request.Context())
	if !ok {
		fail(c, portal_errors.ErrUnauthorized)
		return
	}

	summaries, err := h.rooms.ListRoomsForUser(c.Request.Context(), identity.ID)
	if err != nil {
		fail(c, err)
		return
	}
	dashboard := h.reads.GetDashboard(summaries)

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.DashboardResponse{
		TotalUnread: dashboard.TotalUnread,
		Rooms:       httpdto.FromRoomSummarySlice(dashboard.Rooms),
	}))
}

func (h *RoomHandler) Create(c *gin.Context) {
	identity, ok := services.IdentityFromContext(c.Request.Context())
	if !ok {
		fail(c, portal_errors.ErrUnauthorized)
		return
	}

	var req httpdto.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, fmt.Errorf("%w: invalid request body", portal_errors.ErrInvalidInput))
		return
	}

	input := services.CreateRoomInput{
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		AvatarURL:   req.AvatarURL,
	}
	if req.EntityKind != "" {
		entityID, err := uuid.Parse(req.EntityID)
		if err != nil {
			fail(c, fmt.Errorf("%w: invalid entity id", portal_errors.ErrInvalidInput))
			return
		}
		input.Entity = &room.EntityRef{
			Kind: room.EntityKind(req.EntityKind),
			ID:   entityID,
			Name: req.EntityName,
		}
	}
	members, err := memberInputs(req.Members)
	if err != nil {
		fail(c, err)
		return
	}
	input.Members = members

	created, err := h.rooms.CreateRoom(c.Request.Context(), identity, input)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.FromRoom(created)))
}

// EnsureEntity resolves or creates the room bound to a business entity.
// Calling it twice with the same entity returns the same room.
func (h *RoomHandler) EnsureEntity(c *gin.Context) {
	identity, ok := services.IdentityFromContext(c.Request.Context())
	if !ok {
		fail(c, portal_errors.ErrUnauthorized)
		return
	}

	var req httpdto.EnsureEntityRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, fmt.Errorf("%w: invalid request body", portal_errors.ErrInvalidInput))
		return
	}
	entityID, err := uuid.Parse(req.EntityID)
	if err != nil {
		fail(c, fmt.Errorf("%w: invalid entity id", portal_errors.ErrInvalidInput))
		return
	}

	found, err := h.rooms.EnsureEntityRoom(c.Request.Context(), identity, room.EntityRef{
		Kind: room.EntityKind(req.EntityKind),
		ID:   entityID,
		Name: req.EntityName,
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromRoom(found)))
}

func (h *RoomHandler) GetByID(c *gin.Context) {
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

	found, err := h.rooms.GetRoom(c.Request.Context(), identity.ID, roomID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromRoom(found)))
}

func (h *RoomHandler) Update(c *gin.Context) {
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

	var req httpdto.UpdateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, fmt.Errorf("%w: invalid request body", portal_errors.ErrInvalidInput))
		return
	}
	members, err := memberInputs(req.Members)
	if err != nil {
		fail(c, err)
		return
	}

	updated, err := h.rooms.UpdateRoom(c.Request.Context(), identity, roomID, services.UpdateRoomInput{
		Name:        req.Name,
		Description: req.Description,
		AvatarURL:   req.AvatarURL,
		IsArchived:  req.IsArchived,
		Members:     members,
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromRoom(updated)))
}

func (h *RoomHandler) Delete(c *gin.Context) {
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

	if err := h.rooms.SoftDeleteRoom(c.Request.Context(), identity, roomID); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func (h *RoomHandler) MarkRead(c *gin.Context) {
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

	if _, err := h.rooms.GetRoom(c.Request.Context(), identity.ID, roomID); err != nil {
		fail(c, err)
		return
	}
	if err := h.reads.MarkRead(c.Request.Context(), identity.ID, roomID); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func (h *RoomHandler) Presence(c *gin.Context) {
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

	if _, err := h.rooms.GetRoom(c.Request.Context(), identity.ID, roomID); err != nil {
		fail(c, err)
		return
	}
	users, err := h.presence.OnlineUsers(c.Request.Context(), roomID.String())
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.PresenceResponse{
		OnlineUsers: users,
		OnlineCount: len(users),
	}))
}

func memberInputs(reqs []httpdto.MemberRequest) ([]services.MemberInput, error) {
	if reqs == nil {
		return nil, nil
	}
	out := make([]services.MemberInput, 0, len(reqs))
	for _, m := range reqs {
		id, err := uuid.Parse(m.UserID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid member user id", portal_errors.ErrInvalidInput)
		}
		out = append(out, services.MemberInput{UserID: id, Permission: m.Permission})
	}
	return out, nil
}

// fail records the error for the error middleware, which maps it to a
// status code and response envelope.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
