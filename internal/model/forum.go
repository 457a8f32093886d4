package model

import (
	"errors"
	"strings"
	"time"
)

// ForumPost is a threaded discussion post, distinct from the photo/caption
// post entity. Likes are a membership set (forum_post_likes rows), not a
// transactional counter: two users toggling concurrently touch different
// rows, so no counter transaction is needed.
type ForumPost struct {
	ID         int64      `db:"id" json:"id"`
	UserID     int64      `db:"user_id" json:"user_id"`
	Title      string     `db:"title" json:"title"`
	Body       string     `db:"body" json:"body"`
	LikeCount  int        `db:"like_count" json:"like_count"` // Derived COUNT over the like set
	ReplyCount int        `db:"reply_count" json:"reply_count"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	DeletedAt  *time.Time `db:"deleted_at" json:"-"`

	// Joined fields
	Media   []ForumMedia `json:"media,omitempty"`
	Author  *UserSummary `json:"author,omitempty"`
	IsLiked bool         `json:"is_liked"`
}

// ForumMedia is an attachment on a forum post.
type ForumMedia struct {
	ID        int64  `db:"id" json:"id"`
	PostID    int64  `db:"post_id" json:"-"`
	MediaURL  string `db:"media_url" json:"media_url"`
	MediaType string `db:"media_type" json:"media_type"` // MediaTypeImage or MediaTypeVideo
	Position  int    `db:"position" json:"position"`
}

// ForumReply is one node in a reply thread. Nesting is unbounded in depth
// but stored flat: each reply carries a nullable parent_reply_id.
type ForumReply struct {
	ID            int64        `db:"id" json:"id"`
	PostID        int64        `db:"post_id" json:"post_id"`
	UserID        int64        `db:"user_id" json:"-"`
	ParentReplyID *int64       `db:"parent_reply_id" json:"parent_reply_id,omitempty"`
	Content       string       `db:"content" json:"content"`
	LikeCount     int          `db:"like_count" json:"like_count"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	Author        *UserSummary `json:"author,omitempty"`
	IsLiked       bool         `json:"is_liked"`
}

// SortOption selects the forum feed ordering.
type SortOption string

const (
	SortHot        SortOption = "hot"
	SortTopDay     SortOption = "top_day"
	SortTopWeek    SortOption = "top_week"
	SortTopMonth   SortOption = "top_month"
	SortTopYear    SortOption = "top_year"
	SortTopAllTime SortOption = "top_all_time"
)

// ParseSortOption maps a query-string value to a SortOption, defaulting to hot.
func ParseSortOption(s string) (SortOption, error) {
	switch SortOption(strings.ToLower(s)) {
	case SortHot, "":
		return SortHot, nil
	case SortTopDay:
		return SortTopDay, nil
	case SortTopWeek:
		return SortTopWeek, nil
	case SortTopMonth:
		return SortTopMonth, nil
	case SortTopYear:
		return SortTopYear, nil
	case SortTopAllTime:
		return SortTopAllTime, nil
	}
	return "", ErrInvalidSortOption
}

// CreateForumPostRequest is the request body for creating a forum post.
type CreateForumPostRequest struct {
	Title string      `json:"title"`
	Body  string      `json:"body"`
	Media []MediaItem `json:"media,omitempty"`
}

// CreateForumReplyRequest is the request body for replying to a post or reply.
type CreateForumReplyRequest struct {
	Content       string `json:"content"`
	ParentReplyID *int64 `json:"parent_reply_id,omitempty"`
}

// ForumFeedResponse is the sorted/filtered forum listing.
type ForumFeedResponse struct {
	Posts []ForumPost `json:"posts"`
}

// ForumReplyListResponse is the flat reply arena for one post. Clients
// reassemble the thread from parent_reply_id links.
type ForumReplyListResponse struct {
	Replies []ForumReply `json:"replies"`
}

// ToggleLikeResponse reports the resulting membership state.
type ToggleLikeResponse struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}

// Forum constraints
const (
	MaxForumTitleLength = 300
	MaxForumBodyLength  = 10000
	MaxForumReplyLength = 5000
)

// Forum errors
var (
	ErrForumPostNotFound  = errors.New("forum post not found")
	ErrForumReplyNotFound = errors.New("forum reply not found")
	ErrNotForumPostOwner  = errors.New("not the owner of this forum post")
	ErrTitleRequired      = errors.New("forum post title is required")
	ErrTitleTooLong       = errors.New("forum post title too long")
	ErrBodyTooLong        = errors.New("forum post body too long")
	ErrReplyRequired      = errors.New("reply content is required")
	ErrReplyTooLong       = errors.New("reply content too long")
	ErrInvalidSortOption  = errors.New("invalid sort option")
)
