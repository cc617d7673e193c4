package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/geocheapest/marketplace/internal/domain"
)

type ListingRepo struct{ db *gorm.DB }

func NewListingRepo(db *gorm.DB) *ListingRepo { return &ListingRepo{db: db} }

func (r *ListingRepo) Get(ctx context.Context, id string) (*domain.Listing, error) {
	var l domain.Listing
	if err := r.db.WithContext(ctx).First(&l, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (r *ListingRepo) ByProduct(ctx context.Context, productID uuid.UUID, source domain.ListingSource, status domain.ListingStatus) ([]domain.Listing, error) {
	var list []domain.Listing
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND source = ? AND status = ?", productID, source, status).
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *ListingRepo) BySource(ctx context.Context, source domain.ListingSource, status domain.ListingStatus) ([]domain.Listing, error) {
	var list []domain.Listing
	err := r.db.WithContext(ctx).
		Where("source = ? AND status = ?", source, status).
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

// Put upserts by primary key so re-ingesting the same source item refreshes
// the row in place.
func (r *ListingRepo) Put(ctx context.Context, l *domain.Listing) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(l).Error
}

func (r *ListingRepo) UpdateQuantityBySourceItem(ctx context.Context, source domain.ListingSource, sourceItemID string, quantity int) error {
	res := r.db.WithContext(ctx).Model(&domain.Listing{}).
		Where("source = ? AND source_item_id = ?", source, sourceItemID).
		Updates(map[string]interface{}{
			"quantity": quantity,
			"in_stock": quantity > 0,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ListingRepo) MarkDeletedBySourceItem(ctx context.Context, source domain.ListingSource, sourceItemID string) error {
	res := r.db.WithContext(ctx).Model(&domain.Listing{}).
		Where("source = ? AND source_item_id = ?", source, sourceItemID).
		Update("status", domain.ListingDeleted)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
