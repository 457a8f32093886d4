package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hairkim/Fitness-App-sub000/internal/handler"
	"github.com/hairkim/Fitness-App-sub000/internal/httputil"
	authmw "github.com/hairkim/Fitness-App-sub000/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	AuthHandler         *handler.AuthHandler
	UserHandler         *handler.UserHandler
	FollowHandler       *handler.FollowHandler
	FeedHandler         *handler.FeedHandler
	PostHandler         *handler.PostHandler
	CommentHandler      *handler.CommentHandler
	ForumHandler        *handler.ForumHandler
	NotificationHandler *handler.NotificationHandler
	ChatHandler         *handler.ChatHandler
	HealthHandler       *handler.HealthHandler
	MediaHandler        *handler.MediaHandler
	JWTSecret           string
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	// Liveness endpoint for deployment/monitoring
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, 200, map[string]string{"status": "ok"})
	})

	// Public routes - no authentication required
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", cfg.AuthHandler.Register)
		r.Post("/login", cfg.AuthHandler.Login)
		r.Post("/refresh", cfg.AuthHandler.Refresh)
	})

	// Public endpoints with optional authentication (personalized when a
	// valid token is present)
	r.Group(func(r chi.Router) {
		r.Use(authmw.OptionalAuthMiddleware(cfg.JWTSecret))

		r.Get("/users/search", cfg.UserHandler.Search)
		r.Get("/users/{id}", cfg.UserHandler.GetProfile)
		r.Get("/users/{id}/followers", cfg.FollowHandler.GetFollowers)
		r.Get("/users/{id}/following", cfg.FollowHandler.GetFollowing)
		r.Get("/users/{id}/posts", cfg.PostHandler.GetUserPosts)

		r.Get("/posts/{id}", cfg.PostHandler.GetByID)
		r.Get("/posts/{id}/comments", cfg.CommentHandler.GetByPost)
		r.Get("/posts/{id}/likes", cfg.PostHandler.GetLikers)

		r.Get("/forum", cfg.ForumHandler.GetFeed)
		r.Get("/forum/{id}", cfg.ForumHandler.GetPost)
		r.Get("/forum/{id}/replies", cfg.ForumHandler.GetReplies)
	})

	// Protected routes - require authentication
	r.Group(func(r chi.Router) {
		r.Use(authmw.AuthMiddleware(cfg.JWTSecret))

		// Current user
		r.Get("/me", cfg.AuthHandler.Me)
		r.Patch("/me", cfg.UserHandler.UpdateProfile)
		r.Put("/me/avatar", cfg.UserHandler.UpdateAvatar)
		r.Delete("/me", cfg.UserHandler.DeleteAccount)

		// Auth actions
		r.Post("/auth/logout", cfg.AuthHandler.Logout)
		r.Post("/auth/logout-all", cfg.AuthHandler.LogoutAll)

		// Follow graph
		r.Post("/users/{id}/follow", cfg.FollowHandler.Follow)
		r.Delete("/users/{id}/follow", cfg.FollowHandler.Unfollow)
		r.Delete("/me/followers/{id}", cfg.FollowHandler.RemoveFollower)
		r.Get("/me/follow-requests", cfg.FollowHandler.GetRequests)
		r.Post("/me/follow-requests/{id}/accept", cfg.FollowHandler.AcceptRequest)
		r.Post("/me/follow-requests/{id}/decline", cfg.FollowHandler.DeclineRequest)

		// Feeds
		r.Get("/feed", cfg.FeedHandler.GetFeed)
		r.Get("/feed/explore", cfg.FeedHandler.GetExploreFeed)

		// Posts
		r.Post("/posts", cfg.PostHandler.Create)
		r.Delete("/posts/{id}", cfg.PostHandler.Delete)
		r.Post("/posts/{id}/like", cfg.PostHandler.Like)
		r.Delete("/posts/{id}/like", cfg.PostHandler.Unlike)
		r.Post("/posts/{id}/comments", cfg.CommentHandler.Create)
		r.Delete("/comments/{id}", cfg.CommentHandler.Delete)

		// Forum
		r.Post("/forum", cfg.ForumHandler.CreatePost)
		r.Delete("/forum/{id}", cfg.ForumHandler.DeletePost)
		r.Post("/forum/{id}/like", cfg.ForumHandler.ToggleLike)
		r.Post("/forum/{id}/replies", cfg.ForumHandler.CreateReply)
		r.Post("/forum/replies/{id}/like", cfg.ForumHandler.ToggleReplyLike)
		r.Delete("/forum/replies/{id}", cfg.ForumHandler.DeleteReply)

		// Notifications
		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", cfg.NotificationHandler.List)
			r.Get("/unread-count", cfg.NotificationHandler.UnreadCount)
			r.Post("/read", cfg.NotificationHandler.MarkRead)
			r.Delete("/{id}", cfg.NotificationHandler.Remove)
			r.Post("/devices", cfg.NotificationHandler.RegisterDevice)
			r.Delete("/devices", cfg.NotificationHandler.RemoveDevice)
		})

		// Chats
		r.Route("/chats", func(r chi.Router) {
			r.Get("/", cfg.ChatHandler.List)
			r.Post("/media", cfg.ChatHandler.UploadMedia)
			r.Post("/{userID}/messages", cfg.ChatHandler.SendMessage)
			r.Get("/{id}/messages", cfg.ChatHandler.GetMessages)
			r.Post("/{id}/read", cfg.ChatHandler.MarkRead)
		})

		// Health / streaks
		r.Route("/health", func(r chi.Router) {
			r.Post("/gym-visit", cfg.HealthHandler.GymVisit)
			r.Put("/today", cfg.HealthHandler.SyncToday)
			r.Get("/samples", cfg.HealthHandler.GetSamples)
		})

		// Media uploads
		r.Post("/media/posts", cfg.MediaHandler.UploadPostMedia)
		r.Post("/media/forum", cfg.MediaHandler.UploadForumMedia)
	})

	return r
}
