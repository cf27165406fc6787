package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/leonard05717/appointment/internal/model"
)

// AccountRepository 登录凭证与用户资料的组合操作
type AccountRepository interface {
	// CreateAccount 在同一事务中创建凭证与用户资料
	CreateAccount(ctx context.Context, identity *model.AuthIdentity, user *model.User) error
	// DeleteAccount 在同一事务中删除用户资料与凭证
	DeleteAccount(ctx context.Context, userID uint) error
	GetIdentityByID(ctx context.Context, id string) (*model.AuthIdentity, error)
	GetIdentityByEmail(ctx context.Context, email string) (*model.AuthIdentity, error)
	ListIdentities(ctx context.Context) ([]model.AuthIdentity, error)
	UpdatePassword(ctx context.Context, identityID, passwordHash string) error
	UpdateEmail(ctx context.Context, identityID, email string) error
}

type accountRepo struct {
	db *gorm.DB
}

// NewAccountRepo 创建 AccountRepository 实例
func NewAccountRepo(db *gorm.DB) AccountRepository {
	return &accountRepo{db: db}
}

func (r *accountRepo) CreateAccount(ctx context.Context, identity *model.AuthIdentity, user *model.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(identity).Error; err != nil {
			return err
		}
		user.AuthID = &identity.ID
		user.Auth = nil
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		user.Auth = identity
		return nil
	})
}

func (r *accountRepo) DeleteAccount(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user model.User
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model.User{}, userID).Error; err != nil {
			return err
		}
		if user.AuthID != nil {
			if err := tx.Where("id = ?", *user.AuthID).Delete(&model.AuthIdentity{}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *accountRepo) GetIdentityByID(ctx context.Context, id string) (*model.AuthIdentity, error) {
	var identity model.AuthIdentity
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&identity).Error; err != nil {
		return nil, err
	}
	return &identity, nil
}

func (r *accountRepo) GetIdentityByEmail(ctx context.Context, email string) (*model.AuthIdentity, error) {
	var identity model.AuthIdentity
	if err := r.db.WithContext(ctx).Where("lower(email) = lower(?)", email).First(&identity).Error; err != nil {
		return nil, err
	}
	return &identity, nil
}

func (r *accountRepo) ListIdentities(ctx context.Context) ([]model.AuthIdentity, error) {
	var list []model.AuthIdentity
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&list).Error
	return list, err
}

func (r *accountRepo) UpdatePassword(ctx context.Context, identityID, passwordHash string) error {
	return r.updateIdentity(ctx, identityID, map[string]interface{}{"password_hash": passwordHash})
}

func (r *accountRepo) UpdateEmail(ctx context.Context, identityID, email string) error {
	return r.updateIdentity(ctx, identityID, map[string]interface{}{"email": email})
}

func (r *accountRepo) updateIdentity(ctx context.Context, identityID string, fields map[string]interface{}) error {
	fields["updated_at"] = gorm.Expr("CURRENT_TIMESTAMP")
	res := r.db.WithContext(ctx).
		Model(&model.AuthIdentity{}).
		Where("id = ?", identityID).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
