package service

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/hairkim/Fitness-App-sub000/internal/cache"
	"github.com/hairkim/Fitness-App-sub000/internal/model"
	"github.com/hairkim/Fitness-App-sub000/internal/repository"
)

const (
	// FeedDefaultLimit is the default number of posts per page
	FeedDefaultLimit = 10

	// FeedMaxLimit caps the page size
	FeedMaxLimit = 50

	// CacheWarmLimit is the most posts loaded when warming a feed
	CacheWarmLimit = 500
)

// FeedService serves the home feed (precomputed fan-out) and the explore
// feed (query-time, posts from outside the viewer's circle).
type FeedService struct {
	feedCache  cache.FeedCache
	postRepo   repository.PostRepository
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
}

func NewFeedService(
	feedCache cache.FeedCache,
	postRepo repository.PostRepository,
	followRepo repository.FollowRepository,
	userRepo repository.UserRepository,
) *FeedService {
	return &FeedService{
		feedCache:  feedCache,
		postRepo:   postRepo,
		followRepo: followRepo,
		userRepo:   userRepo,
	}
}

// GetFeed reads the home feed.
//
// Flow: check the cache, warm it on miss from followees' posts, page post
// ids out of the sorted set, hydrate from Postgres, build the next cursor.
func (s *FeedService) GetFeed(ctx context.Context, userID int64, cursor *string, limit int) (*model.FeedResponse, error) {
	startTime := time.Now()
	limit = clampLimit(limit)

	exists, err := s.feedCache.Exists(ctx, userID)
	if err != nil {
		log.Printf("[FeedService] Cache check failed for user=%d: %v", userID, err)
	}

	if !exists {
		log.Printf("[FeedService] Cache miss for user=%d, warming...", userID)
		if err := s.warmCache(ctx, userID); err != nil {
			log.Printf("[FeedService] Cache warm failed for user=%d: %v", userID, err)
		}
	}

	var cursorScore *float64
	if cursor != nil {
		score, _, err := parseFeedCursor(*cursor)
		if err != nil {
			return nil, fmt.Errorf("invalid cursor: %w", err)
		}
		cursorScore = &score
	}

	postIDs, scores, err := s.feedCache.GetFeed(ctx, userID, cursorScore, limit)
	if err != nil {
		return nil, fmt.Errorf("get feed from cache: %w", err)
	}

	if len(postIDs) == 0 {
		return &model.FeedResponse{Posts: []model.FeedPost{}}, nil
	}

	posts, err := s.hydratePosts(ctx, userID, postIDs)
	if err != nil {
		return nil, fmt.Errorf("hydrate posts: %w", err)
	}

	var nextCursor *string
	hasMore := len(posts) == limit
	if hasMore && len(scores) > 0 {
		lastPost := posts[len(posts)-1]
		lastScore := scores[len(scores)-1]
		c := formatFeedCursor(lastScore, lastPost.ID)
		nextCursor = &c
	}

	log.Printf("[FeedService] GetFeed OK: user=%d posts=%d hasMore=%v duration=%v",
		userID, len(posts), hasMore, time.Since(startTime))

	return &model.FeedResponse{
		Posts:      posts,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// GetExploreFeed reads posts from authors the viewer does not follow,
// newest first, straight from Postgres. The exclusion set is the viewer's
// followee set plus the viewer; a user who follows nobody sees every post
// except their own.
func (s *FeedService) GetExploreFeed(ctx context.Context, userID int64, cursor *string, limit int) (*model.FeedResponse, error) {
	startTime := time.Now()
	limit = clampLimit(limit)

	followeeIDs, err := s.followRepo.GetFolloweeIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get followee ids: %w", err)
	}
	excludeIDs := append(followeeIDs, userID)

	posts, nextCursor, err := s.postRepo.GetExplorePosts(ctx, excludeIDs, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("get explore posts: %w", err)
	}

	feedPosts, err := s.enrichPosts(ctx, userID, posts)
	if err != nil {
		return nil, err
	}

	log.Printf("[FeedService] GetExploreFeed OK: user=%d posts=%d duration=%v",
		userID, len(feedPosts), time.Since(startTime))

	return &model.FeedResponse{
		Posts:      feedPosts,
		NextCursor: nextCursor,
		HasMore:    nextCursor != nil,
	}, nil
}

// warmCache rebuilds the home feed sorted set from Postgres.
func (s *FeedService) warmCache(ctx context.Context, userID int64) error {
	startTime := time.Now()

	followeeIDs, err := s.followRepo.GetFolloweeIDs(ctx, userID)
	if err != nil {
		return fmt.Errorf("get followee ids: %w", err)
	}

	// A user's own posts belong in their home feed too.
	followeeIDs = append(followeeIDs, userID)

	posts, err := s.postRepo.GetFeedPostIDs(ctx, followeeIDs, CacheWarmLimit)
	if err != nil {
		return fmt.Errorf("get feed post ids: %w", err)
	}

	if len(posts) == 0 {
		return nil
	}

	if err := s.feedCache.WarmCache(ctx, userID, posts); err != nil {
		return fmt.Errorf("warm cache: %w", err)
	}

	log.Printf("[FeedService] Cache warmed: user=%d posts=%d duration=%v",
		userID, len(posts), time.Since(startTime))

	return nil
}

// hydratePosts loads full rows for cached post ids, preserving cache order.
func (s *FeedService) hydratePosts(ctx context.Context, viewerID int64, postIDs []int64) ([]model.FeedPost, error) {
	posts, err := s.postRepo.GetByIDs(ctx, postIDs)
	if err != nil {
		return nil, fmt.Errorf("get posts by ids: %w", err)
	}
	return s.enrichPosts(ctx, viewerID, posts)
}

// enrichPosts attaches authors, viewer follow flags, and viewer like flags.
// The flag lookups are batch queries; failures degrade to false flags.
func (s *FeedService) enrichPosts(ctx context.Context, viewerID int64, posts []model.Post) ([]model.FeedPost, error) {
	if len(posts) == 0 {
		return []model.FeedPost{}, nil
	}

	authorIDSet := make(map[int64]struct{})
	postIDs := make([]int64, len(posts))
	for i, p := range posts {
		authorIDSet[p.UserID] = struct{}{}
		postIDs[i] = p.ID
	}
	authorIDs := make([]int64, 0, len(authorIDSet))
	for id := range authorIDSet {
		authorIDs = append(authorIDs, id)
	}

	authors := make(map[int64]model.UserSummary)
	for _, authorID := range authorIDs {
		user, err := s.userRepo.GetByID(ctx, authorID)
		if err != nil {
			log.Printf("[FeedService] Failed to get author %d: %v", authorID, err)
			continue
		}
		authors[authorID] = model.UserSummary{
			ID:        user.ID,
			Username:  user.Username,
			AvatarURL: user.AvatarURL,
		}
	}

	followStatus, err := s.followRepo.CheckFollows(ctx, viewerID, authorIDs)
	if err != nil {
		log.Printf("[FeedService] Failed to check follows: %v", err)
	}

	likeStatus, err := s.postRepo.CheckLikes(ctx, viewerID, postIDs)
	if err != nil {
		log.Printf("[FeedService] Failed to check likes: %v", err)
	}

	feedPosts := make([]model.FeedPost, len(posts))
	for i, p := range posts {
		author := authors[p.UserID]
		if followStatus != nil {
			author.IsFollowing = followStatus[p.UserID]
		}
		if likeStatus != nil {
			p.IsLiked = likeStatus[p.ID]
		}
		feedPosts[i] = model.FeedPost{
			Post:   p,
			Author: author,
		}
	}

	return feedPosts, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return FeedDefaultLimit
	}
	if limit > FeedMaxLimit {
		return FeedMaxLimit
	}
	return limit
}

// parseFeedCursor parses the "id:timestamp" cursor.
func parseFeedCursor(cursor string) (float64, int64, error) {
	parts := strings.Split(cursor, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid cursor format, expected id:timestamp")
	}

	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid post id in cursor: %w", err)
	}

	score, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid timestamp in cursor: %w", err)
	}

	return score, id, nil
}

// formatFeedCursor renders the "id:timestamp" cursor.
func formatFeedCursor(score float64, id int64) string {
	return fmt.Sprintf("%d:%.0f", id, score)
}
