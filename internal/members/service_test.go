package members

import (
	"context"
	"testing"

	"github.com/roomdang/roomdang-backend/pkg/auth"
	"github.com/roomdang/roomdang-backend/pkg/config"
	"github.com/roomdang/roomdang-backend/pkg/db/models"
	pkgerrors "github.com/roomdang/roomdang-backend/pkg/errors"
	"gorm.io/gorm"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeRepository struct {
	byEmail map[string]*models.Member
	byID    map[int64]*models.Member
	nextID  int64
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		byEmail: map[string]*models.Member{},
		byID:    map[int64]*models.Member{},
	}
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) Create(ctx context.Context, member *models.Member) error {
	f.nextID++
	member.ID = f.nextID
	f.byEmail[member.Email] = member
	f.byID[member.ID] = member
	return nil
}

func (f *fakeRepository) GetByID(ctx context.Context, memberID int64) (*models.Member, error) {
	return f.byID[memberID], nil
}

func (f *fakeRepository) GetByEmail(ctx context.Context, email string) (*models.Member, error) {
	return f.byEmail[email], nil
}

func testConfigs() (config.JWTConfig, config.PasswordConfig) {
	jwtCfg := config.JWTConfig{Secret: "test-secret", Issuer: "roomdang-test", ExpirationMinutes: 15}
	passwordCfg := config.PasswordConfig{
		ArgonMemoryKB:    8,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     8,
		ArgonKeyLen:      16,
	}
	return jwtCfg, passwordCfg
}

func newTestService(t *testing.T) (Service, *fakeRepository) {
	t.Helper()
	repo := newFakeRepository()
	jwtCfg, passwordCfg := testConfigs()
	svc, err := NewService(fakeTxRunner{}, repo, jwtCfg, passwordCfg)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc, repo
}

func TestService_RegisterAndLogin(t *testing.T) {
	svc, _ := newTestService(t)

	member, err := svc.Register(context.Background(), RegisterParams{
		Nickname: "Zoe",
		Email:    "Zoe@Example.com",
		Password: "escape-room",
	})
	if err != nil {
		t.Fatalf("unexpected register error: %v", err)
	}
	if member.Email != "zoe@example.com" {
		t.Fatalf("expected normalized email, got %q", member.Email)
	}

	result, err := svc.Login(context.Background(), LoginParams{Email: "zoe@example.com", Password: "escape-room"})
	if err != nil {
		t.Fatalf("unexpected login error: %v", err)
	}

	jwtCfg, _ := testConfigs()
	claims, err := auth.ParseAccessToken(jwtCfg, result.Token)
	if err != nil {
		t.Fatalf("unexpected token parse error: %v", err)
	}
	if claims.MemberID != member.ID || claims.Nickname != "Zoe" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestService_LoginWrongPassword(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Register(context.Background(), RegisterParams{
		Nickname: "Zoe",
		Email:    "zoe@example.com",
		Password: "escape-room",
	}); err != nil {
		t.Fatalf("unexpected register error: %v", err)
	}

	_, err := svc.Login(context.Background(), LoginParams{Email: "zoe@example.com", Password: "wrong"})
	if pkgerrors.As(err).Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestService_NicknameLookup(t *testing.T) {
	svc, _ := newTestService(t)

	member, err := svc.Register(context.Background(), RegisterParams{
		Nickname: "Zoe",
		Email:    "zoe@example.com",
		Password: "escape-room",
	})
	if err != nil {
		t.Fatalf("unexpected register error: %v", err)
	}

	nickname, err := svc.Nickname(context.Background(), member.ID)
	if err != nil {
		t.Fatalf("unexpected nickname error: %v", err)
	}
	if nickname != "Zoe" {
		t.Fatalf("expected Zoe, got %q", nickname)
	}

	_, err = svc.Nickname(context.Background(), 404)
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestService_RegisterValidation(t *testing.T) {
	svc, _ := newTestService(t)

	cases := []struct {
		name   string
		params RegisterParams
	}{
		{"blank nickname", RegisterParams{Email: "a@b.c", Password: "longenough"}},
		{"blank email", RegisterParams{Nickname: "Zoe", Password: "longenough"}},
		{"short password", RegisterParams{Nickname: "Zoe", Email: "a@b.c", Password: "short"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Register(context.Background(), tc.params); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
