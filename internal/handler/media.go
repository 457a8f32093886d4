package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/hairkim/Fitness-App-sub000/internal/httputil"
	"github.com/hairkim/Fitness-App-sub000/internal/model"
	"github.com/hairkim/Fitness-App-sub000/internal/service"
	"github.com/hairkim/Fitness-App-sub000/internal/transport/http/middleware"
)

// MediaHandler accepts media uploads ahead of post/forum creation. The
// returned URL and variant tag are referenced from the create request body.
type MediaHandler struct {
	mediaService *service.MediaService
}

func NewMediaHandler(mediaService *service.MediaService) *MediaHandler {
	return &MediaHandler{
		mediaService: mediaService,
	}
}

// UploadPostMedia handles POST /media/posts
func (h *MediaHandler) UploadPostMedia(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, model.PostMediaFolder)
}

// UploadForumMedia handles POST /media/forum
func (h *MediaHandler) UploadForumMedia(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, model.ForumMediaFolder)
}

func (h *MediaHandler) upload(w http.ResponseWriter, r *http.Request, folder string) {
	if _, ok := middleware.GetUserIDFromContext(r.Context()); !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	maxFormSize := int64(model.MaxMediaSizeBytes) + 1024*1024
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		httputil.WriteBadRequest(w, "Invalid form data")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteBadRequest(w, "File is required")
		return
	}
	defer file.Close()

	upload, err := h.mediaService.UploadMedia(r.Context(), folder, file, header)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrFileTooLarge):
			httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "File exceeds upload limit")
		case errors.Is(err, model.ErrInvalidMediaType):
			httputil.WriteBadRequest(w, "Unsupported media type")
		default:
			log.Printf("[ERROR] UploadMedia handler: folder=%s err=%v", folder, err)
			httputil.WriteInternalError(w, "Failed to upload media")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, upload)
}
