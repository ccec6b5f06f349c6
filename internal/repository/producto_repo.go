package repository

import (
	"context"
	"strings"

	"restopos/internal/dto"
	"restopos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductoRepository defines the data access contract for products.
// Services depend on this interface, not on the concrete GORM implementation,
// enabling clean unit testing via fakes.
type ProductoRepository interface {
	Create(ctx context.Context, p *model.Producto) error
	FindByID(ctx context.Context, restauranteID, id uuid.UUID) (*model.Producto, error)
	// FindByIDs returns the productos of the restaurante among ids, keyed by id.
	// Missing ids are simply absent from the map.
	FindByIDs(ctx context.Context, restauranteID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]model.Producto, error)
	List(ctx context.Context, restauranteID uuid.UUID, filter dto.ProductoFilter) ([]model.Producto, error)
	Desactivar(ctx context.Context, restauranteID, id uuid.UUID) (bool, error)
}

type productoRepo struct{ db *gorm.DB }

func NewProductoRepository(db *gorm.DB) ProductoRepository { return &productoRepo{db: db} }

func (r *productoRepo) Create(ctx context.Context, p *model.Producto) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productoRepo) FindByID(ctx context.Context, restauranteID, id uuid.UUID) (*model.Producto, error) {
	var p model.Producto
	err := r.db.WithContext(ctx).
		Where("id = ? AND restaurante_id = ?", id, restauranteID).
		First(&p).Error
	return &p, err
}

func (r *productoRepo) FindByIDs(ctx context.Context, restauranteID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]model.Producto, error) {
	out := make(map[uuid.UUID]model.Producto, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var productos []model.Producto
	if err := r.db.WithContext(ctx).
		Where("restaurante_id = ? AND id IN ?", restauranteID, ids).
		Find(&productos).Error; err != nil {
		return nil, err
	}
	for _, p := range productos {
		out[p.ID] = p
	}
	return out, nil
}

func (r *productoRepo) List(ctx context.Context, restauranteID uuid.UUID, filter dto.ProductoFilter) ([]model.Producto, error) {
	var productos []model.Producto
	q := r.db.WithContext(ctx).Where("restaurante_id = ?", restauranteID)
	if filter.SoloActivos {
		q = q.Where("activo = true")
	}
	if filter.Nombre != "" {
		q = q.Where("LOWER(nombre) LIKE ?", "%"+strings.ToLower(filter.Nombre)+"%")
	}
	if filter.Categoria != "" {
		q = q.Where("categoria = ?", filter.Categoria)
	}
	err := q.Order("categoria ASC, nombre ASC").Find(&productos).Error
	return productos, err
}

func (r *productoRepo) Desactivar(ctx context.Context, restauranteID, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Producto{}).
		Where("id = ? AND restaurante_id = ?", id, restauranteID).
		Update("activo", false)
	return res.RowsAffected > 0, res.Error
}
