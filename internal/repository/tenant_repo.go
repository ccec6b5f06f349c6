package repository

import (
	"context"

	"restopos/internal/model"

	"gorm.io/gorm"
)

// TenantRepository creates restaurantes and sucursales (used by posctl seed).
type TenantRepository interface {
	CreateRestaurante(ctx context.Context, r *model.Restaurante) error
	CreateSucursal(ctx context.Context, s *model.Sucursal) error
	FindRestauranteByNombre(ctx context.Context, nombre string) (*model.Restaurante, error)
	FindSucursalByNombre(ctx context.Context, restaurante *model.Restaurante, nombre string) (*model.Sucursal, error)
}

type tenantRepo struct{ db *gorm.DB }

func NewTenantRepository(db *gorm.DB) TenantRepository { return &tenantRepo{db: db} }

func (r *tenantRepo) CreateRestaurante(ctx context.Context, res *model.Restaurante) error {
	return r.db.WithContext(ctx).Create(res).Error
}

func (r *tenantRepo) CreateSucursal(ctx context.Context, s *model.Sucursal) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *tenantRepo) FindRestauranteByNombre(ctx context.Context, nombre string) (*model.Restaurante, error) {
	var res model.Restaurante
	err := r.db.WithContext(ctx).Where("nombre = ?", nombre).First(&res).Error
	return &res, err
}

func (r *tenantRepo) FindSucursalByNombre(ctx context.Context, restaurante *model.Restaurante, nombre string) (*model.Sucursal, error) {
	var s model.Sucursal
	err := r.db.WithContext(ctx).
		Where("restaurante_id = ? AND nombre = ?", restaurante.ID, nombre).
		First(&s).Error
	return &s, err
}
