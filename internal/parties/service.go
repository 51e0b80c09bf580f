package parties

import (
	"context"
	"strings"
	"time"

	"github.com/roomdang/roomdang-backend/internal/events"
	"github.com/roomdang/roomdang-backend/pkg/db/models"
	"github.com/roomdang/roomdang-backend/pkg/enums"
	pkgerrors "github.com/roomdang/roomdang-backend/pkg/errors"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// MemberLookup resolves member display data for event payloads.
type MemberLookup interface {
	Nickname(ctx context.Context, memberID int64) (string, error)
}

// Service defines party and application operations.
type Service interface {
	Create(ctx context.Context, params CreateParams) (*models.Party, error)
	Get(ctx context.Context, partyID int64) (*models.Party, error)
	Apply(ctx context.Context, params ApplyParams) (*models.PartyMember, error)
	UpdateMemberStatus(ctx context.Context, params UpdateStatusParams) error
}

type service struct {
	tx      txRunner
	repo    Repository
	members MemberLookup
	bus     *events.Bus
}

// CreateParams carries a party-creation command.
type CreateParams struct {
	HostID      int64
	Title       string
	ScheduledAt time.Time
}

// ApplyParams carries a member's application to a party.
type ApplyParams struct {
	PartyID     int64
	ApplicantID int64
}

// UpdateStatusParams carries the host's decision on an application.
type UpdateStatusParams struct {
	PartyID  int64
	MemberID int64
	ActorID  int64
	Status   enums.PartyMemberStatus
}

// NewService wires party dependencies.
func NewService(tx txRunner, repo Repository, members MemberLookup, bus *events.Bus) (Service, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "tx runner required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "parties repository required")
	}
	if members == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "member lookup required")
	}
	if bus == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "event bus required")
	}
	return &service{tx: tx, repo: repo, members: members, bus: bus}, nil
}

func (s *service) Create(ctx context.Context, params CreateParams) (*models.Party, error) {
	if params.HostID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "host id required")
	}
	if strings.TrimSpace(params.Title) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title required")
	}
	if params.ScheduledAt.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scheduled time required")
	}

	party := &models.Party{
		HostID:      params.HostID,
		Title:       params.Title,
		ScheduledAt: params.ScheduledAt,
		CreatedAt:   time.Now().UTC(),
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).CreateParty(ctx, party)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create party")
	}
	return party, nil
}

func (s *service) Get(ctx context.Context, partyID int64) (*models.Party, error) {
	if partyID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "party id required")
	}

	party, err := s.repo.GetParty(ctx, partyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get party")
	}
	if party == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "party not found")
	}
	return party, nil
}

// Apply records the application and notifies the host through the event
// bus once the write is committed.
func (s *service) Apply(ctx context.Context, params ApplyParams) (*models.PartyMember, error) {
	if params.PartyID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "party id required")
	}
	if params.ApplicantID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "applicant id required")
	}

	party, err := s.Get(ctx, params.PartyID)
	if err != nil {
		return nil, err
	}
	if party.HostID == params.ApplicantID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "hosts cannot apply to their own party")
	}

	existing, err := s.repo.GetMember(ctx, params.PartyID, params.ApplicantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing application")
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "already applied to this party")
	}

	applicantNickname, err := s.members.Nickname(ctx, params.ApplicantID)
	if err != nil {
		return nil, err
	}

	member := &models.PartyMember{
		PartyID:   params.PartyID,
		MemberID:  params.ApplicantID,
		Status:    enums.PartyMemberStatusApplied,
		CreatedAt: time.Now().UTC(),
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).CreateMember(ctx, member)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create party application")
	}

	s.bus.Publish(ctx, events.PartyApplied{
		PartyID:           party.ID,
		PartyTitle:        party.Title,
		HostID:            party.HostID,
		ApplicantID:       params.ApplicantID,
		ApplicantNickname: applicantNickname,
	})

	return member, nil
}

// UpdateMemberStatus lets the host accept or reject an application and
// notifies the applicant after the commit.
func (s *service) UpdateMemberStatus(ctx context.Context, params UpdateStatusParams) error {
	if params.PartyID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "party id required")
	}
	if params.MemberID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "member id required")
	}
	if !params.Status.IsValid() || params.Status == enums.PartyMemberStatusApplied {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid target status")
	}

	party, err := s.Get(ctx, params.PartyID)
	if err != nil {
		return err
	}
	if party.HostID != params.ActorID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the host can update applications")
	}

	hostNickname, err := s.members.Nickname(ctx, party.HostID)
	if err != nil {
		return err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		updated, err := s.repo.WithTx(tx).UpdateMemberStatus(ctx, params.PartyID, params.MemberID, params.Status, time.Now().UTC())
		if err != nil {
			return err
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeNotFound, "application not found")
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update application status")
	}

	s.bus.Publish(ctx, events.PartyMemberStatusChanged{
		PartyID:      party.ID,
		PartyTitle:   party.Title,
		MemberID:     params.MemberID,
		HostID:       party.HostID,
		HostNickname: hostNickname,
		NewStatus:    params.Status,
	})

	return nil
}
