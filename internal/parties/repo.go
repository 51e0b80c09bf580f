package parties

import (
	"context"
	"errors"
	"time"

	"github.com/roomdang/roomdang-backend/pkg/db/models"
	"github.com/roomdang/roomdang-backend/pkg/enums"
	"gorm.io/gorm"
)

// Repository exposes persistence helpers for parties and applications.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateParty(ctx context.Context, party *models.Party) error
	GetParty(ctx context.Context, partyID int64) (*models.Party, error)
	CreateMember(ctx context.Context, member *models.PartyMember) error
	GetMember(ctx context.Context, partyID, memberID int64) (*models.PartyMember, error)
	UpdateMemberStatus(ctx context.Context, partyID, memberID int64, status enums.PartyMemberStatus, now time.Time) (bool, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) CreateParty(ctx context.Context, party *models.Party) error {
	return r.db.WithContext(ctx).Create(party).Error
}

func (r *repositoryImpl) GetParty(ctx context.Context, partyID int64) (*models.Party, error) {
	var party models.Party
	err := r.db.WithContext(ctx).First(&party, partyID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &party, nil
}

func (r *repositoryImpl) CreateMember(ctx context.Context, member *models.PartyMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *repositoryImpl) GetMember(ctx context.Context, partyID, memberID int64) (*models.PartyMember, error) {
	var member models.PartyMember
	err := r.db.WithContext(ctx).
		Where("party_id = ? AND member_id = ?", partyID, memberID).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

func (r *repositoryImpl) UpdateMemberStatus(ctx context.Context, partyID, memberID int64, status enums.PartyMemberStatus, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PartyMember{}).
		Where("party_id = ? AND member_id = ?", partyID, memberID).
		UpdateColumns(map[string]any{"status": status, "updated_at": now})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
