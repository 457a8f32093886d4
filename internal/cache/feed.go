package cache

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// FeedCachePrefix is the key prefix for per-user home feed caches
	FeedCachePrefix = "feed:user:"

	// FeedCacheCap bounds the number of post ids kept per user
	FeedCacheCap = 500

	// FeedCacheTTL expires idle feeds (7 days)
	FeedCacheTTL = 7 * 24 * time.Hour
)

// PostScore pairs a post id with its creation timestamp, which doubles as
// the sorted-set score.
type PostScore struct {
	PostID    int64
	Timestamp int64 // Unix timestamp
}

// FeedCache is the fan-out target for home feeds. Backed by Redis sorted
// sets; an interface so services can be tested with an in-memory fake.
type FeedCache interface {
	// AddPost pushes one post into a user's feed.
	// Pipeline: ZADD + ZREMRANGEBYRANK (enforce cap) + EXPIRE (refresh TTL)
	AddPost(ctx context.Context, userID, postID int64, timestamp int64) error

	// RemovePost drops a post from a user's feed (post deleted).
	RemovePost(ctx context.Context, userID, postID int64) error

	// RemovePosts drops several posts from a user's feed in one round trip.
	// Used on unfollow to purge the former followee's posts.
	RemovePosts(ctx context.Context, userID int64, postIDs []int64) error

	// GetFeed reads post ids newest-first. A nil cursorScore starts from the
	// top; otherwise only posts strictly older than the cursor are returned.
	GetFeed(ctx context.Context, userID int64, cursorScore *float64, limit int) (postIDs []int64, scores []float64, err error)

	// GetScore looks up the timestamp score of one post.
	// found=false means the post is not cached for this user.
	GetScore(ctx context.Context, userID, postID int64) (score int64, found bool, err error)

	// WarmCache bulk-loads a feed after a cache miss or a new follow.
	WarmCache(ctx context.Context, userID int64, posts []PostScore) error

	// Size returns the number of cached post ids for a user.
	Size(ctx context.Context, userID int64) (int64, error)

	// Exists reports whether the user has any cached feed. false means the
	// key expired or was never built; callers should warm before reading.
	Exists(ctx context.Context, userID int64) (bool, error)
}

// RedisFeedCache implements FeedCache on Redis sorted sets.
type RedisFeedCache struct {
	client *redis.Client
}

// NewFeedCache creates a FeedCache backed by the given Redis client.
func NewFeedCache(client *redis.Client) FeedCache {
	return &RedisFeedCache{client: client}
}

func feedKey(userID int64) string {
	return fmt.Sprintf("%s%d", FeedCachePrefix, userID)
}

func (c *RedisFeedCache) AddPost(ctx context.Context, userID, postID int64, timestamp int64) error {
	key := feedKey(userID)
	startTime := time.Now()

	pipe := c.client.Pipeline()

	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(timestamp),
		Member: strconv.FormatInt(postID, 10),
	})

	// Rank 0 is the oldest member; keeping the top FeedCacheCap scores
	// trims everything below -cap-1.
	pipe.ZRemRangeByRank(ctx, key, 0, int64(-FeedCacheCap-1))

	pipe.Expire(ctx, key, FeedCacheTTL)

	_, err := pipe.Exec(ctx)
	if err != nil {
		log.Printf("[FeedCache] AddPost FAILED: user=%d post=%d err=%v", userID, postID, err)
		return fmt.Errorf("add post to feed: %w", err)
	}

	log.Printf("[FeedCache] AddPost OK: user=%d post=%d timestamp=%d duration=%v",
		userID, postID, timestamp, time.Since(startTime))
	return nil
}

func (c *RedisFeedCache) RemovePost(ctx context.Context, userID, postID int64) error {
	key := feedKey(userID)
	startTime := time.Now()
	member := strconv.FormatInt(postID, 10)

	removed, err := c.client.ZRem(ctx, key, member).Result()
	if err != nil {
		log.Printf("[FeedCache] RemovePost FAILED: user=%d post=%d err=%v", userID, postID, err)
		return fmt.Errorf("remove post from feed: %w", err)
	}

	log.Printf("[FeedCache] RemovePost OK: user=%d post=%d removed=%d duration=%v",
		userID, postID, removed, time.Since(startTime))
	return nil
}

func (c *RedisFeedCache) RemovePosts(ctx context.Context, userID int64, postIDs []int64) error {
	if len(postIDs) == 0 {
		return nil
	}

	key := feedKey(userID)
	startTime := time.Now()

	members := make([]interface{}, len(postIDs))
	for i, id := range postIDs {
		members[i] = strconv.FormatInt(id, 10)
	}

	removed, err := c.client.ZRem(ctx, key, members...).Result()
	if err != nil {
		log.Printf("[FeedCache] RemovePosts FAILED: user=%d posts=%d err=%v", userID, len(postIDs), err)
		return fmt.Errorf("remove posts from feed: %w", err)
	}

	log.Printf("[FeedCache] RemovePosts OK: user=%d posts=%d removed=%d duration=%v",
		userID, len(postIDs), removed, time.Since(startTime))
	return nil
}

func (c *RedisFeedCache) GetFeed(ctx context.Context, userID int64, cursorScore *float64, limit int) ([]int64, []float64, error) {
	key := feedKey(userID)
	startTime := time.Now()

	var results []redis.Z
	var err error

	if cursorScore == nil {
		results, err = c.client.ZRevRangeWithScores(ctx, key, 0, int64(limit-1)).Result()
	} else {
		// "(" makes the max bound exclusive, so the cursor post itself is
		// not repeated on the next page.
		results, err = c.client.ZRevRangeByScoreWithScores(ctx, key, &redis.ZRangeBy{
			Min:    "-inf",
			Max:    fmt.Sprintf("(%f", *cursorScore),
			Offset: 0,
			Count:  int64(limit),
		}).Result()
	}

	if err != nil {
		log.Printf("[FeedCache] GetFeed FAILED: user=%d err=%v", userID, err)
		return nil, nil, fmt.Errorf("get feed: %w", err)
	}

	// Reading the feed keeps it alive.
	c.client.Expire(ctx, key, FeedCacheTTL)

	postIDs := make([]int64, len(results))
	scores := make([]float64, len(results))

	for i, z := range results {
		id, err := strconv.ParseInt(z.Member.(string), 10, 64)
		if err != nil {
			log.Printf("[FeedCache] GetFeed parse error: member=%v err=%v", z.Member, err)
			return nil, nil, fmt.Errorf("parse post id: %w", err)
		}
		postIDs[i] = id
		scores[i] = z.Score
	}

	log.Printf("[FeedCache] GetFeed OK: user=%d returned=%d duration=%v",
		userID, len(postIDs), time.Since(startTime))
	return postIDs, scores, nil
}

func (c *RedisFeedCache) GetScore(ctx context.Context, userID, postID int64) (int64, bool, error) {
	key := feedKey(userID)
	member := strconv.FormatInt(postID, 10)

	score, err := c.client.ZScore(ctx, key, member).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		log.Printf("[FeedCache] GetScore FAILED: user=%d post=%d err=%v", userID, postID, err)
		return 0, false, fmt.Errorf("get score: %w", err)
	}

	return int64(score), true, nil
}

func (c *RedisFeedCache) WarmCache(ctx context.Context, userID int64, posts []PostScore) error {
	if len(posts) == 0 {
		log.Printf("[FeedCache] WarmCache: user=%d posts=0 (nothing to warm)", userID)
		return nil
	}

	key := feedKey(userID)
	startTime := time.Now()

	pipe := c.client.Pipeline()

	members := make([]redis.Z, len(posts))
	for i, p := range posts {
		members[i] = redis.Z{
			Score:  float64(p.Timestamp),
			Member: strconv.FormatInt(p.PostID, 10),
		}
	}
	pipe.ZAdd(ctx, key, members...)
	pipe.ZRemRangeByRank(ctx, key, 0, int64(-FeedCacheCap-1))
	pipe.Expire(ctx, key, FeedCacheTTL)

	_, err := pipe.Exec(ctx)
	if err != nil {
		log.Printf("[FeedCache] WarmCache FAILED: user=%d posts=%d err=%v", userID, len(posts), err)
		return fmt.Errorf("warm cache: %w", err)
	}

	log.Printf("[FeedCache] WarmCache OK: user=%d posts=%d duration=%v",
		userID, len(posts), time.Since(startTime))
	return nil
}

func (c *RedisFeedCache) Size(ctx context.Context, userID int64) (int64, error) {
	size, err := c.client.ZCard(ctx, feedKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("get cache size: %w", err)
	}
	return size, nil
}

func (c *RedisFeedCache) Exists(ctx context.Context, userID int64) (bool, error) {
	exists, err := c.client.Exists(ctx, feedKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("check cache exists: %w", err)
	}
	return exists > 0, nil
}
