package room

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Room types. A room is tied to at most one business entity; GENERAL and
// AGENCY_INTERNAL rooms have none.
const (
	TypeGeneral          = "GENERAL"
	TypeAgencyInternal   = "AGENCY_INTERNAL"
	TypeClientSpecific   = "CLIENT_SPECIFIC"
	TypeContractSpecific = "CONTRACT_SPECIFIC"
	TypeProposalSpecific = "PROPOSAL_SPECIFIC"
)

// Participant permissions
const (
	PermissionRead  = "READ"
	PermissionWrite = "WRITE"
	PermissionAdmin = "ADMIN"
)

// Room represents the rooms table
type Room struct {
	ID            uuid.UUID
	Name          string
	Description   sql.NullString
	Type          string
	AvatarURL     sql.NullString
	ClientID      uuid.NullUUID
	ContractID    uuid.NullUUID
	ProposalID    uuid.NullUUID
	LastMessageAt sql.NullTime
	IsActive      bool
	IsArchived    bool
	CreatedBy     uuid.NullUUID
	UpdatedBy     uuid.NullUUID
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// Relationships
	Participants []Participant
}

// Participant represents the room_participants table.
// At most one active row exists per (room_id, user_id).
type Participant struct {
	ID         uuid.UUID
	RoomID     uuid.UUID
	UserID     uuid.UUID
	Permission string
	IsActive   bool
	LastReadAt sql.NullTime
	CreatedBy  uuid.NullUUID
	UpdatedBy  uuid.NullUUID
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (Room) TableName() string {
	return "rooms"
}

func (Participant) TableName() string {
	return "room_participants"
}

// ValidType reports whether t is one of the known room types.
func ValidType(t string) bool {
	switch t {
	case TypeGeneral, TypeAgencyInternal, TypeClientSpecific, TypeContractSpecific, TypeProposalSpecific:
		return true
	}
	return false
}

// ValidPermission reports whether p is a known participant permission.
func ValidPermission(p string) bool {
	switch p {
	case PermissionRead, PermissionWrite, PermissionAdmin:
		return true
	}
	return false
}

// EntityKind identifies the business entity a room can be bound to.
type EntityKind string

const (
	EntityClient   EntityKind = "client"
	EntityContract EntityKind = "contract"
	EntityProposal EntityKind = "proposal"
)

// EntityRef points at the client, contract or proposal a room belongs to.
type EntityRef struct {
	Kind EntityKind
	ID   uuid.UUID
	Name string
}

// TypeForEntity maps an entity kind to its room type.
func TypeForEntity(kind EntityKind) string {
	switch kind {
	case EntityClient:
		return TypeClientSpecific
	case EntityContract:
		return TypeContractSpecific
	case EntityProposal:
		return TypeProposalSpecific
	}
	return TypeGeneral
}
