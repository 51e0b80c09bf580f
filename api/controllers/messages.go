package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/roomdang/roomdang-backend/api/middleware"
	"github.com/roomdang/roomdang-backend/api/responses"
	"github.com/roomdang/roomdang-backend/api/validators"
	"github.com/roomdang/roomdang-backend/internal/messages"
	pkgerrors "github.com/roomdang/roomdang-backend/pkg/errors"
	"github.com/roomdang/roomdang-backend/pkg/logger"
)

type sendMessageRequest struct {
	ReceiverID int64  `json:"receiverId" validate:"required,gt=0"`
	Content    string `json:"content" validate:"required,max=2000"`
}

// SendMessage delivers a direct message from the caller to another member.
func SendMessage(svc messages.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sendMessageRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		message, err := svc.Send(r.Context(), messages.SendParams{
			SenderID:   middleware.MemberIDFromContext(r.Context()),
			ReceiverID: req.ReceiverID,
			Content:    req.Content,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, message)
	}
}

// ListMessages returns the caller's inbox, newest first.
func ListMessages(svc messages.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := messages.ListParams{ReceiverID: middleware.MemberIDFromContext(r.Context())}

		if limitStr := strings.TrimSpace(r.URL.Query().Get("limit")); limitStr != "" {
			value, err := strconv.Atoi(limitStr)
			if err != nil || value <= 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a positive integer"))
				return
			}
			params.Limit = value
		}
		if cursor := strings.TrimSpace(r.URL.Query().Get("cursor")); cursor != "" {
			params.Cursor = cursor
		}

		resp, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}
