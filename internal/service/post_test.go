package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/hairkim/Fitness-App-sub000/internal/model"
	"github.com/hairkim/Fitness-App-sub000/internal/queue"
)

// ===== MOCK PUBLISHER =====

// mockPublisher records published events instead of touching a stream.
type mockPublisher struct {
	events []queue.FeedEvent
	err    error
}

func (m *mockPublisher) Publish(ctx context.Context, stream string, event queue.FeedEvent) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.events = append(m.events, event)
	return "1-0", nil
}

// ===== CREATE TESTS =====

func validMedia() []model.MediaItem {
	return []model.MediaItem{{URL: "https://cdn/posts/a.jpg", Type: model.MediaTypeImage}}
}

func TestPostService_Create_Validation(t *testing.T) {
	longCaption := strings.Repeat("x", model.MaxPostCaptionLength+1)
	badSplit := "cardio"

	tooMany := make([]model.MediaItem, model.MaxPostMediaCount+1)
	for i := range tooMany {
		tooMany[i] = model.MediaItem{URL: "https://cdn/posts/a.jpg", Type: model.MediaTypeImage}
	}

	tests := []struct {
		name    string
		req     model.CreatePostRequest
		wantErr error
	}{
		{name: "no media", req: model.CreatePostRequest{}, wantErr: model.ErrNoMediaProvided},
		{name: "too many media", req: model.CreatePostRequest{Media: tooMany}, wantErr: model.ErrTooManyMedia},
		{
			name:    "caption too long",
			req:     model.CreatePostRequest{Caption: &longCaption, Media: validMedia()},
			wantErr: model.ErrCaptionTooLong,
		},
		{
			name:    "unknown split tag",
			req:     model.CreatePostRequest{Split: &badSplit, Media: validMedia()},
			wantErr: model.ErrInvalidSplit,
		},
		{
			name:    "media with empty url",
			req:     model.CreatePostRequest{Media: []model.MediaItem{{Type: model.MediaTypeImage}}},
			wantErr: model.ErrInvalidMedia,
		},
		{
			name:    "media with unknown variant",
			req:     model.CreatePostRequest{Media: []model.MediaItem{{URL: "https://cdn/x", Type: "gif"}}},
			wantErr: model.ErrInvalidMedia,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &mockPublisher{}
			svc := NewPostService(&mockPostRepository{}, &mockUserRepository{}, pub, nil)

			_, err := svc.Create(context.Background(), 1, tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Create error = %v, want %v", err, tt.wantErr)
			}
			if len(pub.events) != 0 {
				t.Error("event published despite validation failure")
			}
		})
	}
}

func TestPostService_Create_PublishesFanOutEvent(t *testing.T) {
	// ARRANGE
	split := model.SplitPush
	pub := &mockPublisher{}
	userRepo := &mockUserRepository{
		getByIDFn: func(ctx context.Context, id int64) (*model.User, error) {
			return &model.User{ID: id, Username: "lifter"}, nil
		},
	}
	svc := NewPostService(&mockPostRepository{}, userRepo, pub, nil)

	// ACT
	post, err := svc.Create(context.Background(), 7, model.CreatePostRequest{
		Split: &split,
		Media: validMedia(),
	})

	// ASSERT
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if post.Author == nil || post.Author.Username != "lifter" {
		t.Errorf("author = %+v, want the creating user", post.Author)
	}
	if len(pub.events) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.events))
	}
	event := pub.events[0]
	if event.Type != queue.EventPostCreated || event.PostID != post.ID || event.AuthorID != 7 {
		t.Errorf("event = %+v, want post_created for post %d by author 7", event, post.ID)
	}
}

func TestPostService_Create_PublishFailureDoesNotFailRequest(t *testing.T) {
	pub := &mockPublisher{err: errors.New("stream unavailable")}
	svc := NewPostService(&mockPostRepository{}, &mockUserRepository{}, pub, nil)

	if _, err := svc.Create(context.Background(), 7, model.CreatePostRequest{Media: validMedia()}); err != nil {
		t.Errorf("Create failed on publish error: %v", err)
	}
}

// ===== DELETE TESTS =====

func TestPostService_Delete(t *testing.T) {
	tests := []struct {
		name      string
		deleteErr error
		wantErr   error
		wantEvent bool
	}{
		{name: "owner deletes", wantEvent: true},
		{name: "not the owner", deleteErr: model.ErrNotPostOwner, wantErr: model.ErrNotPostOwner},
		{name: "post missing", deleteErr: model.ErrPostNotFound, wantErr: model.ErrPostNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &mockPublisher{}
			postRepo := &mockPostRepository{
				deleteFn: func(ctx context.Context, postID, userID int64) error {
					return tt.deleteErr
				},
			}
			svc := NewPostService(postRepo, &mockUserRepository{}, pub, nil)

			err := svc.Delete(context.Background(), 55, 7)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Delete error = %v, want %v", err, tt.wantErr)
				}
				if len(pub.events) != 0 {
					t.Error("purge event published for failed delete")
				}
				return
			}
			if err != nil {
				t.Fatalf("Delete returned error: %v", err)
			}
			if !tt.wantEvent {
				return
			}
			if len(pub.events) != 1 || pub.events[0].Type != queue.EventPostDeleted {
				t.Errorf("events = %+v, want one post_deleted", pub.events)
			}
		})
	}
}

// ===== READ TESTS =====

func TestPostService_GetByID_ViewerLikeFlag(t *testing.T) {
	viewer := int64(9)
	postRepo := &mockPostRepository{
		getByIDFn: func(ctx context.Context, postID int64) (*model.Post, error) {
			return &model.Post{ID: postID, UserID: 7, LikeCount: 3}, nil
		},
		checkLikesFn: func(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error) {
			return map[int64]bool{postIDs[0]: true}, nil
		},
	}
	userRepo := &mockUserRepository{
		getByIDFn: func(ctx context.Context, id int64) (*model.User, error) {
			return &model.User{ID: id, Username: "author"}, nil
		},
	}
	svc := NewPostService(postRepo, userRepo, &mockPublisher{}, nil)

	post, err := svc.GetByID(context.Background(), 55, &viewer)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if !post.IsLiked {
		t.Error("viewer like flag not set")
	}
	if post.Author == nil {
		t.Error("author not attached")
	}
}

// ===== LIKE COUNTER TESTS =====

func TestPostService_LikeThenUnlike_RestoresCount(t *testing.T) {
	// ARRANGE: the mock pairs the like rows and the counter the way the
	// real repository does inside one transaction.
	liked := map[int64]bool{}
	count := 0
	postRepo := &mockPostRepository{
		existsFn: func(ctx context.Context, postID int64) (bool, error) {
			return true, nil
		},
		likeFn: func(ctx context.Context, tx *sqlx.Tx, postID, userID int64) error {
			if liked[userID] {
				return model.ErrAlreadyLiked
			}
			liked[userID] = true
			return nil
		},
		unlikeFn: func(ctx context.Context, tx *sqlx.Tx, postID, userID int64) error {
			if !liked[userID] {
				return model.ErrNotLiked
			}
			delete(liked, userID)
			return nil
		},
		incrementLikeCountFn: func(ctx context.Context, tx *sqlx.Tx, postID int64, delta int) error {
			count += delta
			return nil
		},
		getAuthorIDFn: func(ctx context.Context, postID int64) (int64, error) {
			return 2, nil
		},
	}
	pub := &mockPublisher{}
	db, mock := newTxDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit() // like
	mock.ExpectBegin()
	mock.ExpectCommit() // unlike
	mock.ExpectBegin()
	mock.ExpectRollback() // second unlike fails before commit
	svc := NewPostService(postRepo, &mockUserRepository{}, pub, db)
	ctx := context.Background()

	// ACT + ASSERT: like then unlike nets the counter back to zero.
	if err := svc.Like(ctx, 55, 7); err != nil {
		t.Fatalf("Like returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("like_count after like = %d, want 1", count)
	}
	if err := svc.Unlike(ctx, 55, 7); err != nil {
		t.Fatalf("Unlike returned error: %v", err)
	}
	if count != 0 {
		t.Fatalf("like_count after unlike = %d, want 0", count)
	}

	// Unliking again must not drive the counter negative.
	if err := svc.Unlike(ctx, 55, 7); !errors.Is(err, model.ErrNotLiked) {
		t.Errorf("second unlike error = %v, want ErrNotLiked", err)
	}
	if count != 0 {
		t.Errorf("like_count after failed unlike = %d, want 0", count)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("transaction expectations: %v", err)
	}

	// The author heard about the like exactly once.
	if len(pub.events) != 1 || pub.events[0].Type != queue.EventPostLiked {
		t.Fatalf("events = %+v, want one post_liked", pub.events)
	}
	if pub.events[0].ActorID != 7 || pub.events[0].RecipientID != 2 {
		t.Errorf("event = %+v, want actor 7 notifying author 2", pub.events[0])
	}
}

func TestPostService_Like_DuplicateLeavesCountUntouched(t *testing.T) {
	count := 0
	postRepo := &mockPostRepository{
		existsFn: func(ctx context.Context, postID int64) (bool, error) {
			return true, nil
		},
		likeFn: func(ctx context.Context, tx *sqlx.Tx, postID, userID int64) error {
			return model.ErrAlreadyLiked
		},
		incrementLikeCountFn: func(ctx context.Context, tx *sqlx.Tx, postID int64, delta int) error {
			count += delta
			return nil
		},
	}
	db, mock := newTxDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()
	svc := NewPostService(postRepo, &mockUserRepository{}, &mockPublisher{}, db)

	if err := svc.Like(context.Background(), 55, 7); !errors.Is(err, model.ErrAlreadyLiked) {
		t.Fatalf("error = %v, want ErrAlreadyLiked", err)
	}
	if count != 0 {
		t.Errorf("like_count = %d, want 0 after duplicate like", count)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("transaction expectations: %v", err)
	}
}

func TestPostService_Like_MissingPost(t *testing.T) {
	svc := NewPostService(&mockPostRepository{}, &mockUserRepository{}, &mockPublisher{}, nil)

	err := svc.Like(context.Background(), 404, 1)
	if !errors.Is(err, model.ErrPostNotFound) {
		t.Errorf("Like error = %v, want ErrPostNotFound", err)
	}
}

func TestPostService_GetPostLikers_MissingPost(t *testing.T) {
	svc := NewPostService(&mockPostRepository{}, &mockUserRepository{}, &mockPublisher{}, nil)

	_, err := svc.GetPostLikers(context.Background(), 404, nil, 10)
	if !errors.Is(err, model.ErrPostNotFound) {
		t.Errorf("GetPostLikers error = %v, want ErrPostNotFound", err)
	}
}

func TestPostService_GetUserPosts_GridPaging(t *testing.T) {
	var gotLimit int
	next := "55:1722470400"
	postRepo := &mockPostRepository{
		getUserThumbnailsFn: func(ctx context.Context, userID int64, cursor *string, limit int) ([]model.PostThumbnail, *string, error) {
			gotLimit = limit
			thumbs := make([]model.PostThumbnail, limit)
			return thumbs, &next, nil
		},
	}
	svc := NewPostService(postRepo, &mockUserRepository{}, &mockPublisher{}, nil)

	resp, err := svc.GetUserPosts(context.Background(), 7, nil, 0)
	if err != nil {
		t.Fatalf("GetUserPosts returned error: %v", err)
	}
	if gotLimit != 12 {
		t.Errorf("default limit = %d, want 12", gotLimit)
	}
	if !resp.HasMore || resp.NextCursor == nil {
		t.Error("full page with repo cursor should report has_more")
	}
}
