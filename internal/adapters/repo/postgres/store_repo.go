package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/geocheapest/marketplace/internal/domain"
)

type StoreRepo struct{ db *gorm.DB }

func NewStoreRepo(db *gorm.DB) *StoreRepo { return &StoreRepo{db: db} }

func (r *StoreRepo) FindByID(ctx context.Context, id string) (*domain.Store, error) {
	var s domain.Store
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *StoreRepo) ListActive(ctx context.Context) ([]domain.Store, error) {
	var list []domain.Store
	if err := r.db.WithContext(ctx).Where("active = ?", true).Order("name asc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *StoreRepo) Save(ctx context.Context, s *domain.Store) error {
	return r.db.WithContext(ctx).Save(s).Error
}
