package model

import (
	"errors"
	"time"
)

// FollowStatus is the state of the (follower, followee) pair.
// Private accounts move through "requested"; public accounts go straight
// to "following". There is no other path onto the follower set.
type FollowStatus string

const (
	FollowStatusNone      FollowStatus = "none"
	FollowStatusRequested FollowStatus = "requested"
	FollowStatusFollowing FollowStatus = "following"
)

type Follow struct {
	FollowerID int64     `db:"follower_id" json:"follower_id"`
	FolloweeID int64     `db:"followee_id" json:"followee_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// FollowRequest is a pending inbound request on a private account.
// Invariant: a pair never has both a follow_requests row and a follows row;
// accepting deletes the request and inserts the edge in one transaction.
type FollowRequest struct {
	RequesterID int64     `db:"requester_id" json:"requester_id"`
	ReceiverID  int64     `db:"receiver_id" json:"receiver_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type UserSummary struct {
	ID          int64   `db:"id" json:"id"`
	Username    string  `db:"username" json:"username"`
	AvatarURL   *string `db:"avatar_url" json:"avatar_url"`
	IsFollowing bool    `json:"is_following"`
}

type FollowListResponse struct {
	Users      []UserSummary `json:"users"`
	NextCursor *string       `json:"next_cursor,omitempty"`
	HasMore    bool          `json:"has_more"`
}

// FollowResponse reports the resulting pair state after POST /users/{id}/follow.
type FollowResponse struct {
	Status FollowStatus `json:"status"`
}

// FollowRequestListResponse lists pending inbound requests for the viewer.
type FollowRequestListResponse struct {
	Users []UserSummary `json:"users"`
}

var (
	ErrAlreadyFollowing = errors.New("already following this user")
	ErrNotFollowing     = errors.New("not following this user")
	ErrCannotFollowSelf = errors.New("cannot follow yourself")
	ErrNoFollowRequest  = errors.New("no pending follow request from this user")
)
