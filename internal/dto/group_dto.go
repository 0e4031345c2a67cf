package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateGroupRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description" binding:"max=500"`
}

type UpdateGroupRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=100"`
	Description *string `json:"description" binding:"omitempty,max=500"`
}

type GroupFilter struct {
	Query string `form:"q"`
	Mine  bool   `form:"mine"`
	Limit int    `form:"limit"`
}

type GroupResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Owner        AuthorRef `json:"owner"`
	MembersCount int64     `json:"membersCount"`
	IsMember     bool      `json:"isMember,omitempty"`
	IsOwner      bool      `json:"isOwner,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type GroupMemberResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	IsOwner   bool      `json:"isOwner"`
	JoinedAt  time.Time `json:"joinedAt"`
	CanRemove bool      `json:"canRemove"`
}

type GroupMembersResponse struct {
	Members   []GroupMemberResponse `json:"members"`
	CanRemove bool                  `json:"canRemove"`
}

type RemoveMemberResponse struct {
	MembersCount int64 `json:"membersCount"`
}
