package service

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/hairkim/Fitness-App-sub000/internal/cache"
	"github.com/hairkim/Fitness-App-sub000/internal/model"
)

// ===== IN-MEMORY FEED CACHE =====

// memFeedCache is an in-memory cache.FeedCache for service tests: one
// score map per user, no TTL, no cap.
type memFeedCache struct {
	feeds map[int64]map[int64]int64 // userID -> postID -> score
}

func newMemFeedCache() *memFeedCache {
	return &memFeedCache{feeds: make(map[int64]map[int64]int64)}
}

func (c *memFeedCache) AddPost(ctx context.Context, userID, postID int64, timestamp int64) error {
	if c.feeds[userID] == nil {
		c.feeds[userID] = make(map[int64]int64)
	}
	c.feeds[userID][postID] = timestamp
	return nil
}

func (c *memFeedCache) RemovePost(ctx context.Context, userID, postID int64) error {
	delete(c.feeds[userID], postID)
	return nil
}

func (c *memFeedCache) RemovePosts(ctx context.Context, userID int64, postIDs []int64) error {
	for _, id := range postIDs {
		delete(c.feeds[userID], id)
	}
	return nil
}

func (c *memFeedCache) GetFeed(ctx context.Context, userID int64, cursorScore *float64, limit int) ([]int64, []float64, error) {
	type entry struct {
		id    int64
		score float64
	}
	var entries []entry
	for id, score := range c.feeds[userID] {
		s := float64(score)
		if cursorScore != nil && s >= *cursorScore {
			continue
		}
		entries = append(entries, entry{id: id, score: s})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		return entries[i].id > entries[j].id
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}

	ids := make([]int64, len(entries))
	scores := make([]float64, len(entries))
	for i, e := range entries {
		ids[i] = e.id
		scores[i] = e.score
	}
	return ids, scores, nil
}

func (c *memFeedCache) GetScore(ctx context.Context, userID, postID int64) (int64, bool, error) {
	score, ok := c.feeds[userID][postID]
	return score, ok, nil
}

func (c *memFeedCache) WarmCache(ctx context.Context, userID int64, posts []cache.PostScore) error {
	for _, p := range posts {
		if err := c.AddPost(ctx, userID, p.PostID, p.Timestamp); err != nil {
			return err
		}
	}
	return nil
}

func (c *memFeedCache) Size(ctx context.Context, userID int64) (int64, error) {
	return int64(len(c.feeds[userID])), nil
}

func (c *memFeedCache) Exists(ctx context.Context, userID int64) (bool, error) {
	return len(c.feeds[userID]) > 0, nil
}

// ===== MOCK POST REPOSITORY =====

type mockPostRepository struct {
	createFn             func(ctx context.Context, userID int64, caption, split *string, media []model.MediaItem) (*model.Post, error)
	getByIDFn            func(ctx context.Context, postID int64) (*model.Post, error)
	getByIDsFn           func(ctx context.Context, postIDs []int64) ([]model.Post, error)
	deleteFn             func(ctx context.Context, postID, userID int64) error
	getUserThumbnailsFn  func(ctx context.Context, userID int64, cursor *string, limit int) ([]model.PostThumbnail, *string, error)
	getRecentPostsFn     func(ctx context.Context, userID int64, limit int) ([]cache.PostScore, error)
	getFeedPostIDsFn     func(ctx context.Context, followeeIDs []int64, limit int) ([]cache.PostScore, error)
	getExplorePostsFn    func(ctx context.Context, excludeAuthorIDs []int64, cursor *string, limit int) ([]model.Post, *string, error)
	getAuthorIDFn        func(ctx context.Context, postID int64) (int64, error)
	checkLikesFn         func(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error)
	likeFn               func(ctx context.Context, tx *sqlx.Tx, postID, userID int64) error
	unlikeFn             func(ctx context.Context, tx *sqlx.Tx, postID, userID int64) error
	getPostLikersFn      func(ctx context.Context, postID int64, cursor *string, limit int) ([]model.UserSummary, *string, error)
	incrementLikeCountFn func(ctx context.Context, tx *sqlx.Tx, postID int64, delta int) error
	existsFn             func(ctx context.Context, postID int64) (bool, error)
}

func (m *mockPostRepository) Create(ctx context.Context, userID int64, caption, split *string, media []model.MediaItem) (*model.Post, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, caption, split, media)
	}
	return &model.Post{ID: 1, UserID: userID, Caption: caption, Split: split, CreatedAt: time.Now()}, nil
}

func (m *mockPostRepository) GetByID(ctx context.Context, postID int64) (*model.Post, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, postID)
	}
	return nil, model.ErrPostNotFound
}

func (m *mockPostRepository) GetByIDs(ctx context.Context, postIDs []int64) ([]model.Post, error) {
	if m.getByIDsFn != nil {
		return m.getByIDsFn(ctx, postIDs)
	}
	posts := make([]model.Post, len(postIDs))
	for i, id := range postIDs {
		posts[i] = model.Post{ID: id, UserID: 100}
	}
	return posts, nil
}

func (m *mockPostRepository) Delete(ctx context.Context, postID, userID int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, postID, userID)
	}
	return model.ErrPostNotFound
}

func (m *mockPostRepository) GetUserThumbnails(ctx context.Context, userID int64, cursor *string, limit int) ([]model.PostThumbnail, *string, error) {
	if m.getUserThumbnailsFn != nil {
		return m.getUserThumbnailsFn(ctx, userID, cursor, limit)
	}
	return nil, nil, nil
}

func (m *mockPostRepository) GetRecentPostsByUser(ctx context.Context, userID int64, limit int) ([]cache.PostScore, error) {
	if m.getRecentPostsFn != nil {
		return m.getRecentPostsFn(ctx, userID, limit)
	}
	return nil, nil
}

func (m *mockPostRepository) GetFeedPostIDs(ctx context.Context, followeeIDs []int64, limit int) ([]cache.PostScore, error) {
	if m.getFeedPostIDsFn != nil {
		return m.getFeedPostIDsFn(ctx, followeeIDs, limit)
	}
	return nil, nil
}

func (m *mockPostRepository) GetExplorePosts(ctx context.Context, excludeAuthorIDs []int64, cursor *string, limit int) ([]model.Post, *string, error) {
	if m.getExplorePostsFn != nil {
		return m.getExplorePostsFn(ctx, excludeAuthorIDs, cursor, limit)
	}
	return nil, nil, nil
}

func (m *mockPostRepository) GetAuthorID(ctx context.Context, postID int64) (int64, error) {
	if m.getAuthorIDFn != nil {
		return m.getAuthorIDFn(ctx, postID)
	}
	return 0, model.ErrPostNotFound
}

func (m *mockPostRepository) CheckLikes(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error) {
	if m.checkLikesFn != nil {
		return m.checkLikesFn(ctx, userID, postIDs)
	}
	return map[int64]bool{}, nil
}

func (m *mockPostRepository) Like(ctx context.Context, tx *sqlx.Tx, postID, userID int64) error {
	if m.likeFn != nil {
		return m.likeFn(ctx, tx, postID, userID)
	}
	return nil
}

func (m *mockPostRepository) Unlike(ctx context.Context, tx *sqlx.Tx, postID, userID int64) error {
	if m.unlikeFn != nil {
		return m.unlikeFn(ctx, tx, postID, userID)
	}
	return nil
}

func (m *mockPostRepository) GetPostLikers(ctx context.Context, postID int64, cursor *string, limit int) ([]model.UserSummary, *string, error) {
	if m.getPostLikersFn != nil {
		return m.getPostLikersFn(ctx, postID, cursor, limit)
	}
	return nil, nil, nil
}

func (m *mockPostRepository) IncrementLikeCount(ctx context.Context, tx *sqlx.Tx, postID int64, delta int) error {
	if m.incrementLikeCountFn != nil {
		return m.incrementLikeCountFn(ctx, tx, postID, delta)
	}
	return nil
}

func (m *mockPostRepository) IncrementCommentCount(ctx context.Context, tx *sqlx.Tx, postID int64, delta int) error {
	return nil
}

func (m *mockPostRepository) Exists(ctx context.Context, postID int64) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, postID)
	}
	return false, nil
}

// ===== EXPLORE FEED TESTS =====

func feedAuthorRepo() *mockUserRepository {
	return &mockUserRepository{
		getByIDFn: func(ctx context.Context, id int64) (*model.User, error) {
			return &model.User{ID: id, Username: "author"}, nil
		},
	}
}

func TestFeedService_GetExploreFeed_ExcludesFolloweesAndSelf(t *testing.T) {
	viewer := int64(1)
	followRepo := &mockFollowRepository{
		getFolloweeIDsFn: func(ctx context.Context, userID int64) ([]int64, error) {
			return []int64{2, 3}, nil
		},
	}

	var gotExcluded []int64
	postRepo := &mockPostRepository{
		getExplorePostsFn: func(ctx context.Context, excludeAuthorIDs []int64, cursor *string, limit int) ([]model.Post, *string, error) {
			gotExcluded = excludeAuthorIDs
			return []model.Post{{ID: 50, UserID: 9}}, nil, nil
		},
	}

	svc := NewFeedService(newMemFeedCache(), postRepo, followRepo, feedAuthorRepo())

	resp, err := svc.GetExploreFeed(context.Background(), viewer, nil, 10)
	if err != nil {
		t.Fatalf("GetExploreFeed returned error: %v", err)
	}

	want := map[int64]bool{1: true, 2: true, 3: true}
	if len(gotExcluded) != len(want) {
		t.Fatalf("excluded authors = %v, want followees plus self", gotExcluded)
	}
	for _, id := range gotExcluded {
		if !want[id] {
			t.Errorf("unexpected excluded author %d", id)
		}
	}
	if len(resp.Posts) != 1 || resp.Posts[0].ID != 50 {
		t.Errorf("posts = %+v, want the single explore post", resp.Posts)
	}
}

func TestFeedService_GetExploreFeed_FollowsNobody(t *testing.T) {
	// A user with no followees sees every post except their own.
	viewer := int64(7)

	var gotExcluded []int64
	postRepo := &mockPostRepository{
		getExplorePostsFn: func(ctx context.Context, excludeAuthorIDs []int64, cursor *string, limit int) ([]model.Post, *string, error) {
			gotExcluded = excludeAuthorIDs
			return nil, nil, nil
		},
	}

	svc := NewFeedService(newMemFeedCache(), postRepo, &mockFollowRepository{}, feedAuthorRepo())

	resp, err := svc.GetExploreFeed(context.Background(), viewer, nil, 10)
	if err != nil {
		t.Fatalf("GetExploreFeed returned error: %v", err)
	}
	if len(gotExcluded) != 1 || gotExcluded[0] != viewer {
		t.Errorf("excluded authors = %v, want only the viewer", gotExcluded)
	}
	if len(resp.Posts) != 0 {
		t.Errorf("expected empty feed, got %d posts", len(resp.Posts))
	}
	if resp.HasMore {
		t.Error("empty feed should not report has_more")
	}
}

// ===== HOME FEED TESTS =====

func TestFeedService_GetFeed_WarmsCacheOnMiss(t *testing.T) {
	viewer := int64(1)
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC).Unix()

	followRepo := &mockFollowRepository{
		getFolloweeIDsFn: func(ctx context.Context, userID int64) ([]int64, error) {
			return []int64{2}, nil
		},
	}
	postRepo := &mockPostRepository{
		getFeedPostIDsFn: func(ctx context.Context, followeeIDs []int64, limit int) ([]cache.PostScore, error) {
			// Warm path must include the viewer's own posts.
			sawSelf := false
			for _, id := range followeeIDs {
				if id == viewer {
					sawSelf = true
				}
			}
			if !sawSelf {
				t.Error("warm query did not include the viewer's own id")
			}
			return []cache.PostScore{
				{PostID: 10, Timestamp: base + 100},
				{PostID: 11, Timestamp: base + 200},
				{PostID: 12, Timestamp: base + 300},
			}, nil
		},
		getByIDsFn: func(ctx context.Context, postIDs []int64) ([]model.Post, error) {
			posts := make([]model.Post, len(postIDs))
			for i, id := range postIDs {
				posts[i] = model.Post{ID: id, UserID: 2}
			}
			return posts, nil
		},
	}

	feedCache := newMemFeedCache()
	svc := NewFeedService(feedCache, postRepo, followRepo, feedAuthorRepo())

	resp, err := svc.GetFeed(context.Background(), viewer, nil, 10)
	if err != nil {
		t.Fatalf("GetFeed returned error: %v", err)
	}
	if len(resp.Posts) != 3 {
		t.Fatalf("got %d posts, want 3", len(resp.Posts))
	}
	// Newest first.
	if resp.Posts[0].ID != 12 || resp.Posts[1].ID != 11 || resp.Posts[2].ID != 10 {
		t.Errorf("order = %d,%d,%d, want 12,11,10", resp.Posts[0].ID, resp.Posts[1].ID, resp.Posts[2].ID)
	}
	if size, _ := feedCache.Size(context.Background(), viewer); size != 3 {
		t.Errorf("cache size after warm = %d, want 3", size)
	}
}

func TestFeedService_GetFeed_CursorPagination(t *testing.T) {
	viewer := int64(1)
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC).Unix()

	feedCache := newMemFeedCache()
	for i := int64(0); i < 5; i++ {
		if err := feedCache.AddPost(context.Background(), viewer, 100+i, base+i); err != nil {
			t.Fatalf("seed cache: %v", err)
		}
	}

	postRepo := &mockPostRepository{
		getByIDsFn: func(ctx context.Context, postIDs []int64) ([]model.Post, error) {
			posts := make([]model.Post, len(postIDs))
			for i, id := range postIDs {
				posts[i] = model.Post{ID: id, UserID: 2}
			}
			return posts, nil
		},
	}
	svc := NewFeedService(feedCache, postRepo, &mockFollowRepository{}, feedAuthorRepo())

	first, err := svc.GetFeed(context.Background(), viewer, nil, 2)
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(first.Posts) != 2 || !first.HasMore || first.NextCursor == nil {
		t.Fatalf("first page = %d posts hasMore=%v cursor=%v", len(first.Posts), first.HasMore, first.NextCursor)
	}
	if first.Posts[0].ID != 104 || first.Posts[1].ID != 103 {
		t.Errorf("first page ids = %d,%d, want 104,103", first.Posts[0].ID, first.Posts[1].ID)
	}

	second, err := svc.GetFeed(context.Background(), viewer, first.NextCursor, 2)
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second.Posts) != 2 {
		t.Fatalf("second page has %d posts, want 2", len(second.Posts))
	}
	// No overlap with the first page.
	if second.Posts[0].ID != 102 || second.Posts[1].ID != 101 {
		t.Errorf("second page ids = %d,%d, want 102,101", second.Posts[0].ID, second.Posts[1].ID)
	}
}

func TestFeedService_GetFeed_EmptyFeed(t *testing.T) {
	svc := NewFeedService(newMemFeedCache(), &mockPostRepository{}, &mockFollowRepository{}, feedAuthorRepo())

	resp, err := svc.GetFeed(context.Background(), 1, nil, 10)
	if err != nil {
		t.Fatalf("GetFeed returned error: %v", err)
	}
	if len(resp.Posts) != 0 || resp.HasMore || resp.NextCursor != nil {
		t.Errorf("empty feed response = %+v, want no posts and no cursor", resp)
	}
}

// ===== CURSOR TESTS =====

func TestFeedCursorRoundTrip(t *testing.T) {
	cursor := formatFeedCursor(1722470400, 42)
	score, id, err := parseFeedCursor(cursor)
	if err != nil {
		t.Fatalf("parseFeedCursor(%q): %v", cursor, err)
	}
	if id != 42 || score != 1722470400 {
		t.Errorf("parsed id=%d score=%f, want 42 and 1722470400", id, score)
	}
}

func TestParseFeedCursor_Invalid(t *testing.T) {
	for _, in := range []string{"", "42", "a:b", "42:notatime", "1:2:3"} {
		if _, _, err := parseFeedCursor(in); err == nil {
			t.Errorf("parseFeedCursor(%q) accepted malformed cursor", in)
		}
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{in: 0, want: FeedDefaultLimit},
		{in: -5, want: FeedDefaultLimit},
		{in: 25, want: 25},
		{in: FeedMaxLimit + 1, want: FeedMaxLimit},
	}
	for _, tt := range tests {
		if got := clampLimit(tt.in); got != tt.want {
			t.Errorf("clampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
