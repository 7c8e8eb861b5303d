package httpdto

import (
	"time"

	"agency-portal/internal/domain/room"
	"agency-portal/internal/services"
)

type MemberRequest struct {
	UserID     string `json:"user_id" binding:"required"`
	Permission string `json:"permission,omitempty"`
}

type CreateRoomRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description,omitempty"`
	Type        string          `json:"type,omitempty"`
	AvatarURL   string          `json:"avatar_url,omitempty"`
	EntityKind  string          `json:"entity_kind,omitempty"`
	EntityID    string          `json:"entity_id,omitempty"`
	EntityName  string          `json:"entity_name,omitempty"`
	Members     []MemberRequest `json:"members,omitempty"`
}

type UpdateRoomRequest struct {
	Name        *string         `json:"name,omitempty"`
	Description *string         `json:"description,omitempty"`
	AvatarURL   *string         `json:"avatar_url,omitempty"`
	IsArchived  *bool           `json:"is_archived,omitempty"`
	Members     []MemberRequest `json:"members,omitempty"`
}

type EnsureEntityRoomRequest struct {
	EntityKind string `json:"entity_kind" binding:"required"`
	EntityID   string `json:"entity_id" binding:"required"`
	EntityName string `json:"entity_name,omitempty"`
}

type PresenceResponse struct {
	OnlineUsers []string `json:"online_users"`
	OnlineCount int      `json:"online_count"`
}

type ParticipantResponse struct {
	UserID     string     `json:"user_id"`
	Permission string     `json:"permission"`
	LastReadAt *time.Time `json:"last_read_at,omitempty"`
}

type RoomResponse struct {
	ID            string                `json:"id"`
	Name          string                `json:"name"`
	Description   string                `json:"description,omitempty"`
	Type          string                `json:"type"`
	AvatarURL     string                `json:"avatar_url,omitempty"`
	ClientID      string                `json:"client_id,omitempty"`
	ContractID    string                `json:"contract_id,omitempty"`
	ProposalID    string                `json:"proposal_id,omitempty"`
	LastMessageAt *time.Time            `json:"last_message_at,omitempty"`
	IsArchived    bool                  `json:"is_archived"`
	CreatedAt     time.Time             `json:"created_at"`
	Participants  []ParticipantResponse `json:"participants,omitempty"`
}

type RoomSummaryResponse struct {
	RoomResponse
	UnreadCount        int64  `json:"unread_count"`
	ParticipantCount   int64  `json:"participant_count"`
	LastMessagePreview string `json:"last_message_preview,omitempty"`
}

type DashboardResponse struct {
	TotalUnread int64                 `json:"total_unread"`
	Rooms       []RoomSummaryResponse `json:"rooms"`
}

func FromRoom(rm room.Room) RoomResponse {
	resp := RoomResponse{
		ID:         rm.ID.String(),
		Name:       rm.Name,
		Type:       rm.Type,
		IsArchived: rm.IsArchived,
		CreatedAt:  rm.CreatedAt,
	}
	if rm.Description.Valid {
		resp.Description = rm.Description.String
	}
	if rm.AvatarURL.Valid {
		resp.AvatarURL = rm.AvatarURL.String
	}
	if rm.ClientID.Valid {
		resp.ClientID = rm.ClientID.UUID.String()
	}
	if rm.ContractID.Valid {
		resp.ContractID = rm.ContractID.UUID.String()
	}
	if rm.ProposalID.Valid {
		resp.ProposalID = rm.ProposalID.UUID.String()
	}
	if rm.LastMessageAt.Valid {
		t := rm.LastMessageAt.Time
		resp.LastMessageAt = &t
	}
	for _, p := range rm.Participants {
		pr := ParticipantResponse{UserID: p.UserID.String(), Permission: p.Permission}
		if p.LastReadAt.Valid {
			t := p.LastReadAt.Time
			pr.LastReadAt = &t
		}
		resp.Participants = append(resp.Participants, pr)
	}
	return resp
}

func FromRoomSummary(sum services.RoomSummary) RoomSummaryResponse {
	return RoomSummaryResponse{
		RoomResponse:       FromRoom(sum.Room),
		UnreadCount:        sum.UnreadCount,
		ParticipantCount:   sum.ParticipantCount,
		LastMessagePreview: sum.LastMessagePreview,
	}
}

func FromRoomSummarySlice(sums []services.RoomSummary) []RoomSummaryResponse {
	out := make([]RoomSummaryResponse, 0, len(sums))
	for _, sum := range sums {
		out = append(out, FromRoomSummary(sum))
	}
	return out
}
