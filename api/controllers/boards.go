package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/roomdang/roomdang-backend/api/middleware"
	"github.com/roomdang/roomdang-backend/api/responses"
	"github.com/roomdang/roomdang-backend/api/validators"
	"github.com/roomdang/roomdang-backend/internal/boards"
	pkgerrors "github.com/roomdang/roomdang-backend/pkg/errors"
	"github.com/roomdang/roomdang-backend/pkg/logger"
)

type createPostRequest struct {
	Title   string `json:"title" validate:"required,max=120"`
	Content string `json:"content" validate:"required"`
}

type createReplyRequest struct {
	Content string `json:"content" validate:"required,max=2000"`
}

// CreatePost publishes a board post authored by the caller.
func CreatePost(svc boards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createPostRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		post, err := svc.CreatePost(r.Context(), boards.CreatePostParams{
			AuthorID: middleware.MemberIDFromContext(r.Context()),
			Title:    req.Title,
			Content:  req.Content,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, post)
	}
}

// CreateReply adds a reply to a post and notifies its owner.
func CreateReply(svc boards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := chi.URLParam(r, "postId")
		postID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || postID <= 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "post id must be a positive integer"))
			return
		}

		var req createReplyRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reply, err := svc.CreateReply(r.Context(), boards.CreateReplyParams{
			PostID:   postID,
			AuthorID: middleware.MemberIDFromContext(r.Context()),
			Content:  req.Content,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, reply)
	}
}
