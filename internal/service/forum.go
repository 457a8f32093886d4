package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/hairkim/Fitness-App-sub000/internal/model"
	"github.com/hairkim/Fitness-App-sub000/internal/repository"
)

const (
	// ForumFeedLimit caps how many posts one feed request considers
	ForumFeedLimit = 200
)

// ForumService handles the discussion board: posts, the flat reply arena,
// and membership-set likes. Sorting and filtering are pure functions over
// the fetched slice, so they are deterministic and independently testable.
type ForumService struct {
	forumRepo repository.ForumRepository
	userRepo  repository.UserRepository
}

func NewForumService(forumRepo repository.ForumRepository, userRepo repository.UserRepository) *ForumService {
	return &ForumService{
		forumRepo: forumRepo,
		userRepo:  userRepo,
	}
}

// CreatePost validates and stores a forum post.
func (s *ForumService) CreatePost(ctx context.Context, userID int64, req model.CreateForumPostRequest) (*model.ForumPost, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, model.ErrTitleRequired
	}
	if len(title) > model.MaxForumTitleLength {
		return nil, model.ErrTitleTooLong
	}
	if len(req.Body) > model.MaxForumBodyLength {
		return nil, model.ErrBodyTooLong
	}
	for _, m := range req.Media {
		if m.URL == "" || !model.IsValidMediaType(m.Type) {
			return nil, model.ErrInvalidMedia
		}
	}

	post, err := s.forumRepo.CreatePost(ctx, userID, title, req.Body, req.Media)
	if err != nil {
		return nil, fmt.Errorf("create forum post: %w", err)
	}

	if author, err := s.userRepo.GetByID(ctx, userID); err == nil {
		post.Author = &model.UserSummary{
			ID:        author.ID,
			Username:  author.Username,
			AvatarURL: author.AvatarURL,
		}
	}

	return post, nil
}

// GetPost retrieves one forum post with the viewer's like flag.
func (s *ForumService) GetPost(ctx context.Context, postID int64, viewerID *int64) (*model.ForumPost, error) {
	post, err := s.forumRepo.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	if author, err := s.userRepo.GetByID(ctx, post.UserID); err == nil {
		post.Author = &model.UserSummary{
			ID:        author.ID,
			Username:  author.Username,
			AvatarURL: author.AvatarURL,
		}
	}

	if viewerID != nil {
		likeMap, err := s.forumRepo.CheckLikes(ctx, *viewerID, []int64{postID})
		if err == nil {
			post.IsLiked = likeMap[postID]
		}
	}

	return post, nil
}

// GetFeed returns the sorted, filtered forum listing. Top windows restrict
// the fetch to the trailing period; hot and top_all_time fetch without a
// window. The repository hands back the most-liked posts first, so the
// fetch cap never loses the top of the board to newer low-like posts. The
// search filter applies after sorting and never reorders.
func (s *ForumService) GetFeed(ctx context.Context, sortOpt model.SortOption, search string, viewerID *int64) (*model.ForumFeedResponse, error) {
	now := time.Now()

	var since time.Time
	if w, ok := windowFor(sortOpt); ok {
		since = now.Add(-w)
	}

	posts, err := s.forumRepo.ListPosts(ctx, since, ForumFeedLimit)
	if err != nil {
		return nil, fmt.Errorf("list forum posts: %w", err)
	}

	posts = SortForumPosts(posts, sortOpt, now)
	posts = FilterForumPosts(posts, search)

	if viewerID != nil && len(posts) > 0 {
		postIDs := make([]int64, len(posts))
		for i, p := range posts {
			postIDs[i] = p.ID
		}
		likeMap, err := s.forumRepo.CheckLikes(ctx, *viewerID, postIDs)
		if err == nil {
			for i := range posts {
				posts[i].IsLiked = likeMap[posts[i].ID]
			}
		}
	}

	s.attachAuthors(ctx, posts)

	return &model.ForumFeedResponse{Posts: posts}, nil
}

// DeletePost removes the viewer's own forum post.
func (s *ForumService) DeletePost(ctx context.Context, postID, userID int64) error {
	return s.forumRepo.DeletePost(ctx, postID, userID)
}

// ToggleLike flips the viewer's membership in the post's like set and
// reports the resulting state. Toggling twice lands back where it started.
func (s *ForumService) ToggleLike(ctx context.Context, postID, userID int64) (*model.ToggleLikeResponse, error) {
	exists, err := s.forumRepo.PostExists(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("check forum post exists: %w", err)
	}
	if !exists {
		return nil, model.ErrForumPostNotFound
	}

	liked, likeCount, err := s.forumRepo.ToggleLike(ctx, postID, userID)
	if err != nil {
		return nil, err
	}

	log.Printf("[ForumService] ToggleLike: post=%d user=%d liked=%t count=%d", postID, userID, liked, likeCount)
	return &model.ToggleLikeResponse{Liked: liked, LikeCount: likeCount}, nil
}

// ToggleReplyLike is the same membership toggle against one reply.
func (s *ForumService) ToggleReplyLike(ctx context.Context, replyID, userID int64) (*model.ToggleLikeResponse, error) {
	if _, err := s.forumRepo.GetReply(ctx, replyID); err != nil {
		return nil, err
	}

	liked, likeCount, err := s.forumRepo.ToggleReplyLike(ctx, replyID, userID)
	if err != nil {
		return nil, err
	}

	return &model.ToggleLikeResponse{Liked: liked, LikeCount: likeCount}, nil
}

// CreateReply appends a node to the post's reply arena. Depth is unbounded
// but storage stays flat.
func (s *ForumService) CreateReply(ctx context.Context, postID, userID int64, req model.CreateForumReplyRequest) (*model.ForumReply, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, model.ErrReplyRequired
	}
	if len(content) > model.MaxForumReplyLength {
		return nil, model.ErrReplyTooLong
	}

	exists, err := s.forumRepo.PostExists(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("check forum post exists: %w", err)
	}
	if !exists {
		return nil, model.ErrForumPostNotFound
	}

	reply, err := s.forumRepo.CreateReply(ctx, postID, userID, req.ParentReplyID, content)
	if err != nil {
		return nil, err
	}

	if author, err := s.userRepo.GetByID(ctx, userID); err == nil {
		reply.Author = &model.UserSummary{
			ID:        author.ID,
			Username:  author.Username,
			AvatarURL: author.AvatarURL,
		}
	}

	return reply, nil
}

// GetReplies returns the whole flat arena for one post.
func (s *ForumService) GetReplies(ctx context.Context, postID int64, viewerID *int64) (*model.ForumReplyListResponse, error) {
	exists, err := s.forumRepo.PostExists(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("check forum post exists: %w", err)
	}
	if !exists {
		return nil, model.ErrForumPostNotFound
	}

	replies, err := s.forumRepo.GetReplies(ctx, postID)
	if err != nil {
		return nil, err
	}

	return &model.ForumReplyListResponse{Replies: replies}, nil
}

// DeleteReply removes the viewer's own reply.
func (s *ForumService) DeleteReply(ctx context.Context, replyID, userID int64) error {
	return s.forumRepo.DeleteReply(ctx, replyID, userID)
}

func (s *ForumService) attachAuthors(ctx context.Context, posts []model.ForumPost) {
	seen := make(map[int64]*model.UserSummary)
	for i := range posts {
		author, ok := seen[posts[i].UserID]
		if !ok {
			user, err := s.userRepo.GetByID(ctx, posts[i].UserID)
			if err != nil {
				seen[posts[i].UserID] = nil
				continue
			}
			author = &model.UserSummary{
				ID:        user.ID,
				Username:  user.Username,
				AvatarURL: user.AvatarURL,
			}
			seen[posts[i].UserID] = author
		}
		if author != nil {
			a := *author
			posts[i].Author = &a
		}
	}
}

// windowFor maps a top sort option to its trailing window. Hot and
// top_all_time have no window.
func windowFor(opt model.SortOption) (time.Duration, bool) {
	switch opt {
	case model.SortTopDay:
		return 24 * time.Hour, true
	case model.SortTopWeek:
		return 7 * 24 * time.Hour, true
	case model.SortTopMonth:
		return 30 * 24 * time.Hour, true
	case model.SortTopYear:
		return 365 * 24 * time.Hour, true
	}
	return 0, false
}

// SortForumPosts orders posts for the given option. Hot and every top
// variant sort by like count descending with newer posts winning ties; top
// variants additionally drop posts outside the trailing window ending at
// now. The input slice is not modified.
func SortForumPosts(posts []model.ForumPost, opt model.SortOption, now time.Time) []model.ForumPost {
	out := make([]model.ForumPost, 0, len(posts))

	if w, ok := windowFor(opt); ok {
		cutoff := now.Add(-w)
		for _, p := range posts {
			if !p.CreatedAt.Before(cutoff) {
				out = append(out, p)
			}
		}
	} else {
		out = append(out, posts...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].LikeCount != out[j].LikeCount {
			return out[i].LikeCount > out[j].LikeCount
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return out
}

// FilterForumPosts keeps posts whose title or body contains the query,
// case-insensitively. An empty or whitespace query passes everything
// through. Relative order is preserved.
func FilterForumPosts(posts []model.ForumPost, query string) []model.ForumPost {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return posts
	}

	out := make([]model.ForumPost, 0, len(posts))
	for _, p := range posts {
		if strings.Contains(strings.ToLower(p.Title), q) || strings.Contains(strings.ToLower(p.Body), q) {
			out = append(out, p)
		}
	}
	return out
}
