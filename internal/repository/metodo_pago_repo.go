package repository

import (
	"context"
	"strings"

	"restopos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MetodoPagoRepository interface {
	List(ctx context.Context, soloActivos bool) ([]model.MetodoPago, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.MetodoPago, error)
	// DescripcionOcupada compares case-insensitively, ignoring excluir.
	DescripcionOcupada(ctx context.Context, descripcion string, excluir *uuid.UUID) (bool, error)
	Create(ctx context.Context, m *model.MetodoPago) error
	Update(ctx context.Context, m *model.MetodoPago) error
	Delete(ctx context.Context, id uuid.UUID) error
	// EnUso reports whether any venta references the metodo de pago.
	EnUso(ctx context.Context, id uuid.UUID) (bool, error)
}

type metodoPagoRepo struct{ db *gorm.DB }

func NewMetodoPagoRepository(db *gorm.DB) MetodoPagoRepository { return &metodoPagoRepo{db: db} }

func (r *metodoPagoRepo) List(ctx context.Context, soloActivos bool) ([]model.MetodoPago, error) {
	var out []model.MetodoPago
	q := r.db.WithContext(ctx)
	if soloActivos {
		q = q.Where("activo = true")
	}
	err := q.Order("descripcion ASC").Find(&out).Error
	return out, err
}

func (r *metodoPagoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.MetodoPago, error) {
	var m model.MetodoPago
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	return &m, err
}

func (r *metodoPagoRepo) DescripcionOcupada(ctx context.Context, descripcion string, excluir *uuid.UUID) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&model.MetodoPago{}).
		Where("LOWER(descripcion) = ?", strings.ToLower(strings.TrimSpace(descripcion)))
	if excluir != nil {
		q = q.Where("id <> ?", *excluir)
	}
	err := q.Count(&count).Error
	return count > 0, err
}

func (r *metodoPagoRepo) Create(ctx context.Context, m *model.MetodoPago) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *metodoPagoRepo) Update(ctx context.Context, m *model.MetodoPago) error {
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *metodoPagoRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.MetodoPago{}, "id = ?", id).Error
}

func (r *metodoPagoRepo) EnUso(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Venta{}).
		Where("metodo_pago_id = ?", id).
		Limit(1).
		Count(&count).Error
	return count > 0, err
}
