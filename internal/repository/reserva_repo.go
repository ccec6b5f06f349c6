package repository

import (
	"context"
	"errors"
	"time"

	"restopos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReservaFiltro narrows ListReservas. Zero values mean "any".
type ReservaFiltro struct {
	SucursalID *uuid.UUID
	Desde      *time.Time
	Hasta      *time.Time
}

type ReservaRepository interface {
	WithTx(tx *gorm.DB) ReservaRepository
	Create(ctx context.Context, r *model.Reserva) error
	Save(ctx context.Context, r *model.Reserva) error
	FindByID(ctx context.Context, restauranteID, id uuid.UUID) (*model.Reserva, error)
	List(ctx context.Context, restauranteID uuid.UUID, f ReservaFiltro) ([]model.Reserva, error)
	// Solapadas returns the confirmada/pendiente reservas of the mesa whose
	// window overlaps [inicio, fin).
	Solapadas(ctx context.Context, mesaID uuid.UUID, inicio, fin time.Time) ([]model.Reserva, error)
	// Vigente returns the confirmada/pendiente reserva covering t, or (nil, nil).
	Vigente(ctx context.Context, mesaID uuid.UUID, t time.Time) (*model.Reserva, error)
	// Activas returns the confirmada/pendiente reservas of the mesa that have
	// not ended at t.
	Activas(ctx context.Context, mesaID uuid.UUID, t time.Time) ([]model.Reserva, error)
}

type reservaRepo struct{ db *gorm.DB }

func NewReservaRepository(db *gorm.DB) ReservaRepository { return &reservaRepo{db: db} }

func (r *reservaRepo) WithTx(tx *gorm.DB) ReservaRepository {
	if tx == nil {
		return r
	}
	return &reservaRepo{db: tx}
}

func (r *reservaRepo) Create(ctx context.Context, res *model.Reserva) error {
	return r.db.WithContext(ctx).Create(res).Error
}

func (r *reservaRepo) Save(ctx context.Context, res *model.Reserva) error {
	return r.db.WithContext(ctx).Save(res).Error
}

func (r *reservaRepo) FindByID(ctx context.Context, restauranteID, id uuid.UUID) (*model.Reserva, error) {
	var res model.Reserva
	err := r.db.WithContext(ctx).
		Where("id = ? AND restaurante_id = ?", id, restauranteID).
		First(&res).Error
	return &res, err
}

func (r *reservaRepo) List(ctx context.Context, restauranteID uuid.UUID, f ReservaFiltro) ([]model.Reserva, error) {
	var out []model.Reserva
	q := r.db.WithContext(ctx).Where("restaurante_id = ?", restauranteID)
	if f.SucursalID != nil {
		q = q.Where("sucursal_id = ?", *f.SucursalID)
	}
	if f.Desde != nil {
		q = q.Where("fecha_hora_inicio >= ?", *f.Desde)
	}
	if f.Hasta != nil {
		q = q.Where("fecha_hora_inicio < ?", *f.Hasta)
	}
	err := q.Order("fecha_hora_inicio ASC, id ASC").Find(&out).Error
	return out, err
}

func (r *reservaRepo) Solapadas(ctx context.Context, mesaID uuid.UUID, inicio, fin time.Time) ([]model.Reserva, error) {
	var out []model.Reserva
	err := r.db.WithContext(ctx).
		Where("mesa_id = ? AND estado IN ? AND fecha_hora_inicio < ? AND fecha_hora_fin > ?",
			mesaID, []string{model.ReservaConfirmada, model.ReservaPendiente}, fin, inicio).
		Find(&out).Error
	return out, err
}

func (r *reservaRepo) Vigente(ctx context.Context, mesaID uuid.UUID, t time.Time) (*model.Reserva, error) {
	var res model.Reserva
	err := r.db.WithContext(ctx).
		Where("mesa_id = ? AND estado IN ? AND fecha_hora_inicio <= ? AND fecha_hora_fin > ?",
			mesaID, []string{model.ReservaConfirmada, model.ReservaPendiente}, t, t).
		Order("fecha_hora_inicio ASC").
		First(&res).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *reservaRepo) Activas(ctx context.Context, mesaID uuid.UUID, t time.Time) ([]model.Reserva, error) {
	var out []model.Reserva
	err := r.db.WithContext(ctx).
		Where("mesa_id = ? AND estado IN ? AND fecha_hora_fin > ?",
			mesaID, []string{model.ReservaConfirmada, model.ReservaPendiente}, t).
		Order("fecha_hora_inicio ASC").
		Find(&out).Error
	return out, err
}
