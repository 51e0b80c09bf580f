package members

import (
	"context"
	"strings"
	"time"

	"github.com/roomdang/roomdang-backend/pkg/auth"
	"github.com/roomdang/roomdang-backend/pkg/config"
	"github.com/roomdang/roomdang-backend/pkg/db"
	"github.com/roomdang/roomdang-backend/pkg/db/models"
	pkgerrors "github.com/roomdang/roomdang-backend/pkg/errors"
	"github.com/roomdang/roomdang-backend/pkg/security"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines member account operations. The alarm core only needs
// Nickname; the rest backs the auth surface.
type Service interface {
	Register(ctx context.Context, params RegisterParams) (*models.Member, error)
	Login(ctx context.Context, params LoginParams) (*LoginResult, error)
	Nickname(ctx context.Context, memberID int64) (string, error)
}

type service struct {
	tx          txRunner
	repo        Repository
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
}

// RegisterParams carries a signup command.
type RegisterParams struct {
	Nickname string
	Email    string
	Password string
}

// LoginParams carries a login attempt.
type LoginParams struct {
	Email    string
	Password string
}

// LoginResult bundles the minted token with the member it represents.
type LoginResult struct {
	Token  string         `json:"token"`
	Member *models.Member `json:"member"`
}

// NewService wires member dependencies.
func NewService(tx txRunner, repo Repository, jwtCfg config.JWTConfig, passwordCfg config.PasswordConfig) (Service, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "tx runner required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "members repository required")
	}
	return &service{tx: tx, repo: repo, jwtCfg: jwtCfg, passwordCfg: passwordCfg}, nil
}

func (s *service) Register(ctx context.Context, params RegisterParams) (*models.Member, error) {
	if strings.TrimSpace(params.Nickname) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nickname required")
	}
	if strings.TrimSpace(params.Email) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}
	if len(params.Password) < 8 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}

	hash, err := security.HashPassword(params.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	member := &models.Member{
		Nickname:     params.Nickname,
		Email:        strings.ToLower(strings.TrimSpace(params.Email)),
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Create(ctx, member)
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "nickname or email already taken")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create member")
	}
	return member, nil
}

func (s *service) Login(ctx context.Context, params LoginParams) (*LoginResult, error) {
	if strings.TrimSpace(params.Email) == "" || params.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password required")
	}

	member, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(params.Email)))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup member")
	}
	if member == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	ok, err := security.VerifyPassword(params.Password, member.PasswordHash)
	if err != nil || !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	token, err := auth.MintAccessToken(s.jwtCfg, time.Now().UTC(), auth.AccessTokenPayload{
		MemberID: member.ID,
		Nickname: member.Nickname,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}

	return &LoginResult{Token: token, Member: member}, nil
}

func (s *service) Nickname(ctx context.Context, memberID int64) (string, error) {
	if memberID <= 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "member id required")
	}

	member, err := s.repo.GetByID(ctx, memberID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup member")
	}
	if member == nil {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "member not found")
	}
	return member.Nickname, nil
}
