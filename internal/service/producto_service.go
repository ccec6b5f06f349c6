package service

import (
	"context"
	"strings"

	"restopos/internal/dto"
	"restopos/internal/model"
	"restopos/internal/repository"

	"github.com/google/uuid"
)

// ProductoService defines the business logic contract for products.
type ProductoService interface {
	Crear(ctx context.Context, a Actor, req dto.CrearProductoRequest) (*dto.ProductoResponse, error)
	Listar(ctx context.Context, a Actor, filter dto.ProductoFilter) ([]dto.ProductoResponse, error)
	Desactivar(ctx context.Context, a Actor, id uuid.UUID) error
}

type productoService struct {
	repo repository.ProductoRepository
}

func NewProductoService(repo repository.ProductoRepository) ProductoService {
	return &productoService{repo: repo}
}

func (s *productoService) Crear(ctx context.Context, a Actor, req dto.CrearProductoRequest) (*dto.ProductoResponse, error) {
	if req.Precio.IsNegative() {
		return nil, invalido("el precio no puede ser negativo")
	}
	categoria := strings.TrimSpace(req.Categoria)
	if categoria == "" {
		categoria = "general"
	}
	p := &model.Producto{
		RestauranteID: a.RestauranteID,
		Nombre:        strings.TrimSpace(req.Nombre),
		Categoria:     categoria,
		Precio:        req.Precio,
		Activo:        true,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return productoToResponse(p), nil
}

func (s *productoService) Listar(ctx context.Context, a Actor, filter dto.ProductoFilter) ([]dto.ProductoResponse, error) {
	productos, err := s.repo.List(ctx, a.RestauranteID, filter)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ProductoResponse, 0, len(productos))
	for i := range productos {
		out = append(out, *productoToResponse(&productos[i]))
	}
	return out, nil
}

// Desactivar is a soft delete: past detalle_ventas keep referencing the row.
func (s *productoService) Desactivar(ctx context.Context, a Actor, id uuid.UUID) error {
	ok, err := s.repo.Desactivar(ctx, a.RestauranteID, id)
	if err != nil {
		return err
	}
	if !ok {
		return noEncontrado("producto no encontrado")
	}
	return nil
}

func productoToResponse(p *model.Producto) *dto.ProductoResponse {
	return &dto.ProductoResponse{
		ID:        p.ID.String(),
		Nombre:    p.Nombre,
		Categoria: p.Categoria,
		Precio:    p.Precio,
		Activo:    p.Activo,
	}
}
