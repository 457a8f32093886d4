package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hairkim/Fitness-App-sub000/internal/model"
)

// ===== MOCK REPOSITORY =====

// mockForumRepository implements repository.ForumRepository with
// overridable function fields.
type mockForumRepository struct {
	createPostFn      func(ctx context.Context, userID int64, title, body string, media []model.MediaItem) (*model.ForumPost, error)
	getPostFn         func(ctx context.Context, postID int64) (*model.ForumPost, error)
	listPostsFn       func(ctx context.Context, since time.Time, limit int) ([]model.ForumPost, error)
	deletePostFn      func(ctx context.Context, postID, userID int64) error
	postExistsFn      func(ctx context.Context, postID int64) (bool, error)
	toggleLikeFn      func(ctx context.Context, postID, userID int64) (bool, int, error)
	toggleReplyLikeFn func(ctx context.Context, replyID, userID int64) (bool, int, error)
	checkLikesFn      func(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error)
	createReplyFn     func(ctx context.Context, postID, userID int64, parentReplyID *int64, content string) (*model.ForumReply, error)
	getReplyFn        func(ctx context.Context, replyID int64) (*model.ForumReply, error)
	getRepliesFn      func(ctx context.Context, postID int64) ([]model.ForumReply, error)
	deleteReplyFn     func(ctx context.Context, replyID, userID int64) error
}

func (m *mockForumRepository) CreatePost(ctx context.Context, userID int64, title, body string, media []model.MediaItem) (*model.ForumPost, error) {
	if m.createPostFn != nil {
		return m.createPostFn(ctx, userID, title, body, media)
	}
	return &model.ForumPost{ID: 1, UserID: userID, Title: title, Body: body, CreatedAt: time.Now()}, nil
}

func (m *mockForumRepository) GetPost(ctx context.Context, postID int64) (*model.ForumPost, error) {
	if m.getPostFn != nil {
		return m.getPostFn(ctx, postID)
	}
	return nil, model.ErrForumPostNotFound
}

func (m *mockForumRepository) ListPosts(ctx context.Context, since time.Time, limit int) ([]model.ForumPost, error) {
	if m.listPostsFn != nil {
		return m.listPostsFn(ctx, since, limit)
	}
	return nil, nil
}

func (m *mockForumRepository) DeletePost(ctx context.Context, postID, userID int64) error {
	if m.deletePostFn != nil {
		return m.deletePostFn(ctx, postID, userID)
	}
	return model.ErrForumPostNotFound
}

func (m *mockForumRepository) PostExists(ctx context.Context, postID int64) (bool, error) {
	if m.postExistsFn != nil {
		return m.postExistsFn(ctx, postID)
	}
	return false, nil
}

func (m *mockForumRepository) ToggleLike(ctx context.Context, postID, userID int64) (bool, int, error) {
	if m.toggleLikeFn != nil {
		return m.toggleLikeFn(ctx, postID, userID)
	}
	return false, 0, nil
}

func (m *mockForumRepository) ToggleReplyLike(ctx context.Context, replyID, userID int64) (bool, int, error) {
	if m.toggleReplyLikeFn != nil {
		return m.toggleReplyLikeFn(ctx, replyID, userID)
	}
	return false, 0, nil
}

func (m *mockForumRepository) CheckLikes(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error) {
	if m.checkLikesFn != nil {
		return m.checkLikesFn(ctx, userID, postIDs)
	}
	return map[int64]bool{}, nil
}

func (m *mockForumRepository) CreateReply(ctx context.Context, postID, userID int64, parentReplyID *int64, content string) (*model.ForumReply, error) {
	if m.createReplyFn != nil {
		return m.createReplyFn(ctx, postID, userID, parentReplyID, content)
	}
	return &model.ForumReply{ID: 1, PostID: postID, UserID: userID, ParentReplyID: parentReplyID, Content: content}, nil
}

func (m *mockForumRepository) GetReply(ctx context.Context, replyID int64) (*model.ForumReply, error) {
	if m.getReplyFn != nil {
		return m.getReplyFn(ctx, replyID)
	}
	return nil, model.ErrForumReplyNotFound
}

func (m *mockForumRepository) GetReplies(ctx context.Context, postID int64) ([]model.ForumReply, error) {
	if m.getRepliesFn != nil {
		return m.getRepliesFn(ctx, postID)
	}
	return nil, nil
}

func (m *mockForumRepository) DeleteReply(ctx context.Context, replyID, userID int64) error {
	if m.deleteReplyFn != nil {
		return m.deleteReplyFn(ctx, replyID, userID)
	}
	return model.ErrForumReplyNotFound
}

// ===== SORT TESTS =====

func forumPost(id int64, likes int, age time.Duration, now time.Time) model.ForumPost {
	return model.ForumPost{ID: id, LikeCount: likes, CreatedAt: now.Add(-age)}
}

func postIDs(posts []model.ForumPost) []int64 {
	ids := make([]int64, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	return ids
}

func TestForumService_GetFeed_AllTimeKeepsMostLikedBeyondFetchCap(t *testing.T) {
	// ARRANGE: a board larger than one fetch, where the most-liked post is
	// also the oldest. The mock honors the repository contract: most-liked
	// first, truncated at the limit.
	now := time.Now()
	board := make([]model.ForumPost, 0, ForumFeedLimit+1)
	for i := 0; i < ForumFeedLimit; i++ {
		board = append(board, forumPost(int64(i+1), 1, time.Duration(i)*time.Minute, now))
	}
	board = append(board, forumPost(999, 1000, 400*24*time.Hour, now))

	forumRepo := &mockForumRepository{
		listPostsFn: func(ctx context.Context, since time.Time, limit int) ([]model.ForumPost, error) {
			if !since.IsZero() {
				t.Errorf("all-time fetch passed a window start of %v, want zero time", since)
			}
			out := SortForumPosts(board, model.SortTopAllTime, now)
			if len(out) > limit {
				out = out[:limit]
			}
			return out, nil
		},
	}
	svc := NewForumService(forumRepo, &mockUserRepository{})

	// ACT
	resp, err := svc.GetFeed(context.Background(), model.SortTopAllTime, "", nil)

	// ASSERT: the 1000-like post survives the fetch cap and leads the feed.
	if err != nil {
		t.Fatalf("GetFeed returned error: %v", err)
	}
	if len(resp.Posts) == 0 {
		t.Fatal("feed came back empty")
	}
	if resp.Posts[0].ID != 999 {
		t.Fatalf("first post = %d, want the all-time most-liked post 999", resp.Posts[0].ID)
	}
}

func TestSortForumPosts_LikesDescending(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	posts := []model.ForumPost{
		forumPost(1, 3, time.Hour, now),
		forumPost(2, 10, 2*time.Hour, now),
		forumPost(3, 7, 3*time.Hour, now),
	}

	got := SortForumPosts(posts, model.SortHot, now)

	want := []int64{2, 3, 1}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("sorted order = %v, want %v", postIDs(got), want)
		}
	}
}

func TestSortForumPosts_TiesGoToNewerPost(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	posts := []model.ForumPost{
		forumPost(1, 5, 3*time.Hour, now),
		forumPost(2, 5, time.Hour, now), // same likes, newer
		forumPost(3, 5, 2*time.Hour, now),
	}

	got := SortForumPosts(posts, model.SortHot, now)

	want := []int64{2, 3, 1}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("sorted order = %v, want %v", postIDs(got), want)
		}
	}
}

func TestSortForumPosts_TopWindowDropsOldPosts(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		opt     model.SortOption
		wantIDs []int64
	}{
		{name: "top_day", opt: model.SortTopDay, wantIDs: []int64{1}},
		{name: "top_week", opt: model.SortTopWeek, wantIDs: []int64{2, 1}},
		{name: "top_month", opt: model.SortTopMonth, wantIDs: []int64{3, 2, 1}},
		{name: "top_year", opt: model.SortTopYear, wantIDs: []int64{4, 3, 2, 1}},
		{name: "top_all_time keeps everything", opt: model.SortTopAllTime, wantIDs: []int64{5, 4, 3, 2, 1}},
	}

	// One post per window bucket, likes increasing with age so windowing is
	// visible in the output.
	posts := []model.ForumPost{
		forumPost(1, 1, 2*time.Hour, now),
		forumPost(2, 2, 3*24*time.Hour, now),
		forumPost(3, 3, 20*24*time.Hour, now),
		forumPost(4, 4, 200*24*time.Hour, now),
		forumPost(5, 5, 500*24*time.Hour, now),
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SortForumPosts(posts, tt.opt, now)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("got %d posts %v, want %v", len(got), postIDs(got), tt.wantIDs)
			}
			for i, id := range tt.wantIDs {
				if got[i].ID != id {
					t.Fatalf("order = %v, want %v", postIDs(got), tt.wantIDs)
				}
			}
		})
	}
}

func TestSortForumPosts_DoesNotModifyInput(t *testing.T) {
	now := time.Now()
	posts := []model.ForumPost{
		forumPost(1, 1, time.Hour, now),
		forumPost(2, 9, 2*time.Hour, now),
	}

	SortForumPosts(posts, model.SortHot, now)

	if posts[0].ID != 1 || posts[1].ID != 2 {
		t.Errorf("input slice was reordered: %v", postIDs(posts))
	}
}

// ===== FILTER TESTS =====

func TestFilterForumPosts(t *testing.T) {
	posts := []model.ForumPost{
		{ID: 1, Title: "Best PUSH day split", Body: "chest and tris"},
		{ID: 2, Title: "Cutting advice", Body: "how do I keep strength on a push-pull routine"},
		{ID: 3, Title: "Rest days", Body: "legs are sore"},
	}

	tests := []struct {
		name    string
		query   string
		wantIDs []int64
	}{
		{name: "title match is case-insensitive", query: "push", wantIDs: []int64{1, 2}},
		{name: "body match", query: "SORE", wantIDs: []int64{3}},
		{name: "no match", query: "deadlift", wantIDs: []int64{}},
		{name: "empty query passes everything", query: "", wantIDs: []int64{1, 2, 3}},
		{name: "whitespace query passes everything", query: "   ", wantIDs: []int64{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterForumPosts(posts, tt.query)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("got %v, want %v", postIDs(got), tt.wantIDs)
			}
			for i, id := range tt.wantIDs {
				if got[i].ID != id {
					t.Fatalf("order = %v, want %v", postIDs(got), tt.wantIDs)
				}
			}
		})
	}
}

// ===== SORT OPTION PARSING =====

func TestParseSortOption(t *testing.T) {
	tests := []struct {
		in      string
		want    model.SortOption
		wantErr bool
	}{
		{in: "", want: model.SortHot},
		{in: "hot", want: model.SortHot},
		{in: "TOP_WEEK", want: model.SortTopWeek},
		{in: "top_all_time", want: model.SortTopAllTime},
		{in: "newest", wantErr: true},
	}

	for _, tt := range tests {
		t.Run("input_"+tt.in, func(t *testing.T) {
			got, err := model.ParseSortOption(tt.in)
			if tt.wantErr {
				if !errors.Is(err, model.ErrInvalidSortOption) {
					t.Errorf("error = %v, want ErrInvalidSortOption", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseSortOption(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// ===== POST AND REPLY TESTS =====

func TestForumService_CreatePost_Validation(t *testing.T) {
	tests := []struct {
		name    string
		req     model.CreateForumPostRequest
		wantErr error
	}{
		{name: "empty title", req: model.CreateForumPostRequest{Title: "   "}, wantErr: model.ErrTitleRequired},
		{
			name:    "title too long",
			req:     model.CreateForumPostRequest{Title: strings.Repeat("x", model.MaxForumTitleLength+1)},
			wantErr: model.ErrTitleTooLong,
		},
		{
			name:    "body too long",
			req:     model.CreateForumPostRequest{Title: "ok", Body: strings.Repeat("x", model.MaxForumBodyLength+1)},
			wantErr: model.ErrBodyTooLong,
		},
		{
			name:    "bad media type",
			req:     model.CreateForumPostRequest{Title: "ok", Media: []model.MediaItem{{URL: "https://cdn/x", Type: "gif"}}},
			wantErr: model.ErrInvalidMedia,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewForumService(&mockForumRepository{}, &mockUserRepository{})
			_, err := svc.CreatePost(context.Background(), 1, tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CreatePost error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestForumService_ToggleLike_ReportsNewState(t *testing.T) {
	liked := false
	repo := &mockForumRepository{
		postExistsFn: func(ctx context.Context, postID int64) (bool, error) { return true, nil },
		toggleLikeFn: func(ctx context.Context, postID, userID int64) (bool, int, error) {
			liked = !liked
			count := 0
			if liked {
				count = 1
			}
			return liked, count, nil
		},
	}
	svc := NewForumService(repo, &mockUserRepository{})

	first, err := svc.ToggleLike(context.Background(), 10, 1)
	if err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	if !first.Liked || first.LikeCount != 1 {
		t.Errorf("first toggle = %+v, want liked with count 1", first)
	}

	// Toggling again lands back where it started.
	second, err := svc.ToggleLike(context.Background(), 10, 1)
	if err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if second.Liked || second.LikeCount != 0 {
		t.Errorf("second toggle = %+v, want unliked with count 0", second)
	}
}

func TestForumService_ToggleLike_MissingPost(t *testing.T) {
	svc := NewForumService(&mockForumRepository{}, &mockUserRepository{})
	_, err := svc.ToggleLike(context.Background(), 404, 1)
	if !errors.Is(err, model.ErrForumPostNotFound) {
		t.Errorf("error = %v, want ErrForumPostNotFound", err)
	}
}

func TestForumService_CreateReply(t *testing.T) {
	parent := int64(5)

	tests := []struct {
		name    string
		req     model.CreateForumReplyRequest
		exists  bool
		wantErr error
	}{
		{name: "empty content", req: model.CreateForumReplyRequest{Content: "  "}, exists: true, wantErr: model.ErrReplyRequired},
		{
			name:    "content too long",
			req:     model.CreateForumReplyRequest{Content: strings.Repeat("x", model.MaxForumReplyLength+1)},
			exists:  true,
			wantErr: model.ErrReplyTooLong,
		},
		{name: "post missing", req: model.CreateForumReplyRequest{Content: "hi"}, wantErr: model.ErrForumPostNotFound},
		{name: "top-level reply", req: model.CreateForumReplyRequest{Content: "hi"}, exists: true},
		{name: "nested reply", req: model.CreateForumReplyRequest{Content: "hi", ParentReplyID: &parent}, exists: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockForumRepository{
				postExistsFn: func(ctx context.Context, postID int64) (bool, error) { return tt.exists, nil },
			}
			svc := NewForumService(repo, &mockUserRepository{})

			reply, err := svc.CreateReply(context.Background(), 10, 1, tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("CreateReply error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateReply returned error: %v", err)
			}
			if tt.req.ParentReplyID != nil {
				if reply.ParentReplyID == nil || *reply.ParentReplyID != *tt.req.ParentReplyID {
					t.Errorf("parent_reply_id not preserved: %v", reply.ParentReplyID)
				}
			} else if reply.ParentReplyID != nil {
				t.Errorf("top-level reply got parent %d", *reply.ParentReplyID)
			}
		})
	}
}
