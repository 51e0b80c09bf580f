package parties

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/roomdang/roomdang-backend/internal/events"
	"github.com/roomdang/roomdang-backend/pkg/db/models"
	"github.com/roomdang/roomdang-backend/pkg/enums"
	pkgerrors "github.com/roomdang/roomdang-backend/pkg/errors"
	"github.com/roomdang/roomdang-backend/pkg/logger"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeRepository struct {
	party   *models.Party
	member  *models.PartyMember
	updated bool
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) CreateParty(ctx context.Context, party *models.Party) error {
	party.ID = 7
	f.party = party
	return nil
}

func (f *fakeRepository) GetParty(ctx context.Context, partyID int64) (*models.Party, error) {
	if f.party != nil && f.party.ID == partyID {
		return f.party, nil
	}
	return nil, nil
}

func (f *fakeRepository) CreateMember(ctx context.Context, member *models.PartyMember) error {
	member.ID = 1
	f.member = member
	return nil
}

func (f *fakeRepository) GetMember(ctx context.Context, partyID, memberID int64) (*models.PartyMember, error) {
	if f.member != nil && f.member.PartyID == partyID && f.member.MemberID == memberID {
		return f.member, nil
	}
	return nil, nil
}

func (f *fakeRepository) UpdateMemberStatus(ctx context.Context, partyID, memberID int64, status enums.PartyMemberStatus, now time.Time) (bool, error) {
	if f.member == nil || f.member.PartyID != partyID || f.member.MemberID != memberID {
		return false, nil
	}
	f.member.Status = status
	f.updated = true
	return true, nil
}

type fakeMembers map[int64]string

func (f fakeMembers) Nickname(ctx context.Context, memberID int64) (string, error) {
	nickname, ok := f[memberID]
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "member not found")
	}
	return nickname, nil
}

func testBus() *events.Bus {
	return events.NewBus(logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled}))
}

func newFixture(t *testing.T, bus *events.Bus) (Service, *fakeRepository) {
	t.Helper()
	repo := &fakeRepository{}
	svc, err := NewService(fakeTxRunner{}, repo, fakeMembers{42: "Hana", 99: "Zoe"}, bus)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc, repo
}

func createParty(t *testing.T, svc Service) *models.Party {
	t.Helper()
	party, err := svc.Create(context.Background(), CreateParams{
		HostID:      42,
		Title:       "Night at the Vault",
		ScheduledAt: time.Now().Add(48 * time.Hour),
	})
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	return party
}

func TestService_ApplyPublishesPartyApplied(t *testing.T) {
	bus := testBus()
	var received atomic.Pointer[events.PartyApplied]
	bus.Subscribe(events.PartyApplied{}, func(ctx context.Context, event events.Event) error {
		payload := event.(events.PartyApplied)
		received.Store(&payload)
		return nil
	})

	svc, repo := newFixture(t, bus)
	party := createParty(t, svc)

	member, err := svc.Apply(context.Background(), ApplyParams{PartyID: party.ID, ApplicantID: 99})
	if err != nil {
		t.Fatalf("unexpected apply error: %v", err)
	}
	bus.Wait()

	if member.Status != enums.PartyMemberStatusApplied {
		t.Fatalf("expected APPLIED status, got %s", member.Status)
	}
	event := received.Load()
	if event == nil {
		t.Fatal("expected PartyApplied published")
	}
	if event.HostID != 42 || event.ApplicantNickname != "Zoe" || event.PartyTitle != "Night at the Vault" {
		t.Fatalf("unexpected event payload: %+v", event)
	}
	if repo.member == nil {
		t.Fatal("expected application persisted")
	}
}

func TestService_ApplyRejectsDuplicates(t *testing.T) {
	svc, _ := newFixture(t, testBus())
	party := createParty(t, svc)

	if _, err := svc.Apply(context.Background(), ApplyParams{PartyID: party.ID, ApplicantID: 99}); err != nil {
		t.Fatalf("unexpected apply error: %v", err)
	}
	_, err := svc.Apply(context.Background(), ApplyParams{PartyID: party.ID, ApplicantID: 99})
	if pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestService_ApplyRejectsHost(t *testing.T) {
	svc, _ := newFixture(t, testBus())
	party := createParty(t, svc)

	_, err := svc.Apply(context.Background(), ApplyParams{PartyID: party.ID, ApplicantID: 42})
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestService_UpdateMemberStatusPublishesChange(t *testing.T) {
	bus := testBus()
	var received atomic.Pointer[events.PartyMemberStatusChanged]
	bus.Subscribe(events.PartyMemberStatusChanged{}, func(ctx context.Context, event events.Event) error {
		payload := event.(events.PartyMemberStatusChanged)
		received.Store(&payload)
		return nil
	})

	svc, repo := newFixture(t, bus)
	party := createParty(t, svc)
	if _, err := svc.Apply(context.Background(), ApplyParams{PartyID: party.ID, ApplicantID: 99}); err != nil {
		t.Fatalf("unexpected apply error: %v", err)
	}

	err := svc.UpdateMemberStatus(context.Background(), UpdateStatusParams{
		PartyID:  party.ID,
		MemberID: 99,
		ActorID:  42,
		Status:   enums.PartyMemberStatusAccepted,
	})
	if err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}
	bus.Wait()

	if !repo.updated {
		t.Fatal("expected status persisted")
	}
	event := received.Load()
	if event == nil {
		t.Fatal("expected PartyMemberStatusChanged published")
	}
	if event.MemberID != 99 || event.NewStatus != enums.PartyMemberStatusAccepted {
		t.Fatalf("unexpected event payload: %+v", event)
	}
}

func TestService_UpdateMemberStatusHostOnly(t *testing.T) {
	svc, _ := newFixture(t, testBus())
	party := createParty(t, svc)

	err := svc.UpdateMemberStatus(context.Background(), UpdateStatusParams{
		PartyID:  party.ID,
		MemberID: 99,
		ActorID:  99,
		Status:   enums.PartyMemberStatusAccepted,
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestService_UpdateMemberStatusRejectsApplied(t *testing.T) {
	svc, _ := newFixture(t, testBus())
	party := createParty(t, svc)

	err := svc.UpdateMemberStatus(context.Background(), UpdateStatusParams{
		PartyID:  party.ID,
		MemberID: 99,
		ActorID:  42,
		Status:   enums.PartyMemberStatusApplied,
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
