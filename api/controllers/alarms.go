package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/roomdang/roomdang-backend/api/middleware"
	"github.com/roomdang/roomdang-backend/api/responses"
	"github.com/roomdang/roomdang-backend/api/validators"
	"github.com/roomdang/roomdang-backend/internal/alarms"
	"github.com/roomdang/roomdang-backend/pkg/enums"
	pkgerrors "github.com/roomdang/roomdang-backend/pkg/errors"
	"github.com/roomdang/roomdang-backend/pkg/logger"
)

// SubscribeAlarms opens the member's live notification stream and blocks
// until it closes. The stream survives as long as the client, the timeout,
// and the heartbeats allow.
func SubscribeAlarms(dispatcher *alarms.Dispatcher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if dispatcher == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dispatcher unavailable"))
			return
		}

		memberID := middleware.MemberIDFromContext(r.Context())
		if memberID <= 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing member context"))
			return
		}

		emitter, err := alarms.NewEmitter(w)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := dispatcher.Subscribe(r.Context(), memberID, emitter); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dispatcher.Serve(r.Context(), memberID, emitter)
	}
}

// ListAlarms returns the member's alarms, newest first, with cursor paging.
func ListAlarms(svc alarms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "alarms service unavailable"))
			return
		}

		params := alarms.ListParams{ReceiverID: middleware.MemberIDFromContext(r.Context())}

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

		if typeStr := strings.TrimSpace(r.URL.Query().Get("type")); typeStr != "" {
			alarmType, err := enums.ParseAlarmType(typeStr)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid alarm type"))
				return
			}
			params.AlarmType = &alarmType
		}

		if unread := strings.TrimSpace(r.URL.Query().Get("unreadOnly")); unread != "" {
			value, err := strconv.ParseBool(unread)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unreadOnly value"))
				return
			}
			params.UnreadOnly = value
		}

		resp, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// GetAlarm fetches a single alarm owned by the caller.
func GetAlarm(svc alarms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		alarmID, err := alarmIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		alarm, err := svc.Get(r.Context(), middleware.MemberIDFromContext(r.Context()), alarmID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, alarm)
	}
}

// AlarmCounts reports total and unread alarm counts for the caller.
func AlarmCounts(svc alarms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := svc.Counts(r.Context(), middleware.MemberIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, counts)
	}
}

type createAlarmRequest struct {
	ReceiverID int64  `json:"receiverId" validate:"required,gt=0"`
	Title      string `json:"title" validate:"required,max=120"`
	Content    string `json:"content" validate:"required"`
	AlarmType  string `json:"alarmType" validate:"required"`
	RelID      *int64 `json:"relId,omitempty"`
}

// CreateAlarm persists an alarm directly, bypassing the event listeners.
// Intended for system announcements.
func CreateAlarm(svc alarms.Service, dispatcher *alarms.Dispatcher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createAlarmRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		alarmType, err := enums.ParseAlarmType(req.AlarmType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid alarm type"))
			return
		}

		alarm, err := svc.Create(r.Context(), alarms.CreateParams{
			ReceiverID: req.ReceiverID,
			Title:      req.Title,
			Content:    req.Content,
			AlarmType:  alarmType,
			RelID:      req.RelID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if dispatcher != nil {
			if pushErr := dispatcher.SendNotification(r.Context(), alarm.ReceiverID, *alarm); pushErr != nil && logg != nil {
				logg.Warn(logg.WithMemberID(r.Context(), alarm.ReceiverID), "live push failed for created alarm")
			}
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, alarm)
	}
}

// MarkAlarmRead marks one alarm read. Repeating the call is a no-op.
func MarkAlarmRead(svc alarms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		alarmID, err := alarmIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.MarkRead(r.Context(), middleware.MemberIDFromContext(r.Context()), alarmID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"read": true})
	}
}

// MarkAllAlarmsRead marks every unread alarm read and reports the count.
func MarkAllAlarmsRead(svc alarms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := svc.MarkAllRead(r.Context(), middleware.MemberIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"updated": count})
	}
}

// DeleteAlarm removes one of the caller's alarms.
func DeleteAlarm(svc alarms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		alarmID, err := alarmIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), middleware.MemberIDFromContext(r.Context()), alarmID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

// AlarmRedirect resolves the in-app destination for an alarm, marking it
// read, and answers with a redirect to that path.
func AlarmRedirect(svc alarms.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		alarmID, err := alarmIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		path, err := svc.RedirectURL(r.Context(), middleware.MemberIDFromContext(r.Context()), alarmID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		http.Redirect(w, r, path, http.StatusFound)
	}
}

func alarmIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "alarmId")
	alarmID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || alarmID <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "alarm id must be a positive integer")
	}
	return alarmID, nil
}
