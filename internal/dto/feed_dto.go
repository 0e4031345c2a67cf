package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// FeedFilter carries the query parameters of GET /api/posts.
type FeedFilter struct {
	Query         string `form:"q"`
	Group         string `form:"group"`
	From          string `form:"from"`
	To            string `form:"to"`
	Mine          bool   `form:"mine"`
	Page          int    `form:"page"`
	Limit         int    `form:"limit"`
	GroupBy       string `form:"groupBy"`
	ItemsPerGroup int    `form:"itemsPerGroup"`
	Sort          string `form:"sort"`
}

type AuthorRef struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
}

type GroupRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// FeedItem is a post decorated for feed views. Raw like and comment rows are
// never exposed here, only their counts.
type FeedItem struct {
	ID            uuid.UUID  `json:"id"`
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	Images        []string   `json:"images"`
	Author        AuthorRef  `json:"author"`
	Group         *GroupRef  `json:"group"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	LikesCount    int64      `json:"likesCount"`
	CommentsCount int64      `json:"commentsCount"`
	UserLiked     bool       `json:"userLiked"`
}

type FeedPage struct {
	Items []FeedItem `json:"items"`
	Total int64      `json:"total"`
	Page  int        `json:"page"`
	Pages int        `json:"pages"`
	Limit int        `json:"limit"`
}

// GroupKeyKind tags the variant carried by a GroupKey.
type GroupKeyKind int

const (
	KeyDay GroupKeyKind = iota
	KeyAuthor
	KeyGroup
	KeyNone
)

// GroupKey is the tagged grouping key of a feed bucket: a raw YYYY-MM-DD
// string for day grouping, an enriched {id, displayName} pair for author and
// group grouping, and null for posts outside any group.
type GroupKey struct {
	Kind        GroupKeyKind `json:"-"`
	Day         string       `json:"-"`
	ID          uuid.UUID    `json:"-"`
	DisplayName string       `json:"-"`
}

func (k GroupKey) MarshalJSON() ([]byte, error) {
	switch k.Kind {
	case KeyDay:
		return json.Marshal(k.Day)
	case KeyAuthor:
		return json.Marshal(struct {
			ID          uuid.UUID `json:"id"`
			DisplayName string    `json:"displayName"`
		}{k.ID, k.DisplayName})
	case KeyGroup:
		return json.Marshal(struct {
			ID          uuid.UUID `json:"id"`
			DisplayName string    `json:"displayName"`
		}{k.ID, k.DisplayName})
	default:
		return []byte("null"), nil
	}
}

type FeedBucket struct {
	Key      GroupKey   `json:"key"`
	Count    int64      `json:"count"`
	LatestAt time.Time  `json:"latestAt"`
	Items    []FeedItem `json:"items"`
}

type GroupedFeed struct {
	GroupBy       string       `json:"groupBy"`
	Groups        []FeedBucket `json:"groups"`
	TotalGroups   int64        `json:"totalGroups"`
	Page          int          `json:"page"`
	Pages         int          `json:"pages"`
	Limit         int          `json:"limit"`
	ItemsPerGroup int          `json:"itemsPerGroup"`
}
