package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/geocheapest/marketplace/internal/domain"
)

type PayoutRepo struct{ db *gorm.DB }

func NewPayoutRepo(db *gorm.DB) *PayoutRepo { return &PayoutRepo{db: db} }

func (r *PayoutRepo) ByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.Payout, error) {
	var list []domain.Payout
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("store_id asc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *PayoutRepo) Create(ctx context.Context, p *domain.Payout) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PayoutRepo) Update(ctx context.Context, p *domain.Payout) error {
	return r.db.WithContext(ctx).Save(p).Error
}
