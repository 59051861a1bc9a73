package domain

import (
	"github.com/fundwit/go-commons/types"
)

// WorkItem is the durable record of a trackable unit. Version increments on
// every state mutation and is the sole optimistic-concurrency guard.
type WorkItem struct {
	ID types.ID `json:"id"`

	TypeCode string `json:"typeCode" gorm:"index:idx_type"`
	Title    string `json:"title"`
	Content  string `json:"content" sql:"type:TEXT"`

	CurrentState   string   `json:"currentState" gorm:"index:idx_state"`
	CurrentOwnerID types.ID `json:"currentOwnerId,omitempty" gorm:"index:idx_owner"`
	CreatorID      types.ID `json:"creatorId" gorm:"index:idx_creator"`
	ParentID       types.ID `json:"parentId,omitempty" gorm:"index:idx_parent"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
	UpdateTime types.Timestamp `json:"updateTime" sql:"type:DATETIME(6) NOT NULL"`
	Version    int64           `json:"version"`
}

type WorkItemCreation struct {
	TypeCode  string   `json:"typeCode" binding:"required"`
	Title     string   `json:"title" binding:"required,lte=255"`
	Content   string   `json:"content"`
	CreatorID types.ID `json:"creatorId" binding:"required"`
	ParentID  types.ID `json:"parentId"`
}

const (
	OrderByCreatedAt = "created_at"
	OrderByUpdatedAt = "updated_at"
	OrderByTitle     = "title"

	DirectionAsc  = "asc"
	DirectionDesc = "desc"
)

type WorkItemQuery struct {
	TypeCode  string   `json:"typeCode" form:"typeCode"`
	State     string   `json:"state" form:"state"`
	OwnerID   types.ID `json:"ownerId" form:"ownerId"`
	CreatorID types.ID `json:"creatorId" form:"creatorId"`

	// Keyword filters by case-insensitive substring against title or content.
	Keyword string `json:"keyword" form:"keyword"`

	OrderBy   string `json:"orderBy" form:"orderBy"`
	Direction string `json:"direction" form:"direction"`

	Limit  int `json:"limit" form:"limit"`
	Offset int `json:"offset" form:"offset"`
}
