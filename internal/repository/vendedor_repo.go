package repository

import (
	"context"

	"restopos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VendedorRepository interface {
	Create(ctx context.Context, v *model.Vendedor) error
	FindByUsername(ctx context.Context, username string) (*model.Vendedor, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Vendedor, error)
}

type vendedorRepo struct{ db *gorm.DB }

func NewVendedorRepository(db *gorm.DB) VendedorRepository { return &vendedorRepo{db: db} }

func (r *vendedorRepo) Create(ctx context.Context, v *model.Vendedor) error {
	return r.db.WithContext(ctx).Create(v).Error
}

func (r *vendedorRepo) FindByUsername(ctx context.Context, username string) (*model.Vendedor, error) {
	var v model.Vendedor
	err := r.db.WithContext(ctx).
		Where("username = ? AND activo = true", username).
		First(&v).Error
	return &v, err
}

func (r *vendedorRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Vendedor, error) {
	var v model.Vendedor
	err := r.db.WithContext(ctx).First(&v, "id = ?", id).Error
	return &v, err
}
