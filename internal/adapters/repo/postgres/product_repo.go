package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/geocheapest/marketplace/internal/domain"
)

type ProductRepo struct{ db *gorm.DB }

func NewProductRepo(db *gorm.DB) *ProductRepo { return &ProductRepo{db: db} }

func (r *ProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *ProductRepo) FindByUPC(ctx context.Context, upc string) (*domain.Product, error) {
	return r.findOne(ctx, "upc = ?", upc)
}

func (r *ProductRepo) FindByMarketplaceID(ctx context.Context, marketplaceID string) (*domain.Product, error) {
	return r.findOne(ctx, "marketplace_id = ?", marketplaceID)
}

func (r *ProductRepo) FindByNormalizedName(ctx context.Context, normalized string) (*domain.Product, error) {
	return r.findOne(ctx, "normalized_name = ?", normalized)
}

func (r *ProductRepo) findOne(ctx context.Context, query string, arg interface{}) (*domain.Product, error) {
	var p domain.Product
	if err := r.db.WithContext(ctx).First(&p, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepo) Create(ctx context.Context, p *domain.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *ProductRepo) Update(ctx context.Context, p *domain.Product) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *ProductRepo) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, error) {
	q := r.db.WithContext(ctx).Model(&domain.Product{})
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Segment != "" {
		q = q.Where("segment = ?", f.Segment)
	}
	if f.Query != "" {
		like := "%" + strings.TrimSpace(f.Query) + "%"
		q = q.Where("LOWER(name) LIKE LOWER(?) OR upc = ?", like, strings.TrimSpace(f.Query))
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	var list []domain.Product
	if err := q.Order("total_sales desc, name asc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *ProductRepo) IncrementSales(ctx context.Context, id uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).Model(&domain.Product{}).
		Where("id = ?", id).
		UpdateColumn("total_sales", gorm.Expr("total_sales + ?", qty)).Error
}
