package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/roomdang/roomdang-backend/api/middleware"
	"github.com/roomdang/roomdang-backend/api/responses"
	"github.com/roomdang/roomdang-backend/api/validators"
	"github.com/roomdang/roomdang-backend/internal/parties"
	"github.com/roomdang/roomdang-backend/pkg/enums"
	pkgerrors "github.com/roomdang/roomdang-backend/pkg/errors"
	"github.com/roomdang/roomdang-backend/pkg/logger"
)

type createPartyRequest struct {
	Title       string    `json:"title" validate:"required,max=120"`
	ScheduledAt time.Time `json:"scheduledAt" validate:"required"`
}

type partyDecisionRequest struct {
	MemberID int64  `json:"memberId" validate:"required,gt=0"`
	Status   string `json:"status" validate:"required"`
}

// CreateParty opens a new party hosted by the caller.
func CreateParty(svc parties.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createPartyRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		party, err := svc.Create(r.Context(), parties.CreateParams{
			HostID:      middleware.MemberIDFromContext(r.Context()),
			Title:       req.Title,
			ScheduledAt: req.ScheduledAt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, party)
	}
}

// GetParty fetches one party.
func GetParty(svc parties.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partyID, err := partyIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		party, err := svc.Get(r.Context(), partyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, party)
	}
}

// ApplyToParty records the caller's application and notifies the host.
func ApplyToParty(svc parties.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partyID, err := partyIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		member, err := svc.Apply(r.Context(), parties.ApplyParams{
			PartyID:     partyID,
			ApplicantID: middleware.MemberIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, member)
	}
}

// DecidePartyMember lets the host accept or reject an application.
func DecidePartyMember(svc parties.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partyID, err := partyIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req partyDecisionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParsePartyMemberStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		if err := svc.UpdateMemberStatus(r.Context(), parties.UpdateStatusParams{
			PartyID:  partyID,
			MemberID: req.MemberID,
			ActorID:  middleware.MemberIDFromContext(r.Context()),
			Status:   status,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": string(status)})
	}
}

func partyIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "partyId")
	partyID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || partyID <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "party id must be a positive integer")
	}
	return partyID, nil
}
