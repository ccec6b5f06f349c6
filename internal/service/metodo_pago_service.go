package service

import (
	"context"
	"strings"

	"restopos/internal/dto"
	"restopos/internal/model"
	"restopos/internal/repository"

	"github.com/google/uuid"
)

type MetodoPagoService interface {
	Listar(ctx context.Context, soloActivos bool) ([]dto.MetodoPagoResponse, error)
	Crear(ctx context.Context, req dto.MetodoPagoRequest) (*dto.MetodoPagoResponse, error)
	Actualizar(ctx context.Context, id uuid.UUID, req dto.MetodoPagoRequest) (*dto.MetodoPagoResponse, error)
	Eliminar(ctx context.Context, id uuid.UUID) error
}

type metodoPagoService struct {
	repo repository.MetodoPagoRepository
}

func NewMetodoPagoService(repo repository.MetodoPagoRepository) MetodoPagoService {
	return &metodoPagoService{repo: repo}
}

func (s *metodoPagoService) Listar(ctx context.Context, soloActivos bool) ([]dto.MetodoPagoResponse, error) {
	metodos, err := s.repo.List(ctx, soloActivos)
	if err != nil {
		return nil, err
	}
	out := make([]dto.MetodoPagoResponse, 0, len(metodos))
	for i := range metodos {
		out = append(out, metodoPagoToResponse(&metodos[i]))
	}
	return out, nil
}

func (s *metodoPagoService) Crear(ctx context.Context, req dto.MetodoPagoRequest) (*dto.MetodoPagoResponse, error) {
	desc := strings.TrimSpace(req.Descripcion)
	if desc == "" {
		return nil, invalido("la descripción es obligatoria")
	}
	ocupada, err := s.repo.DescripcionOcupada(ctx, desc, nil)
	if err != nil {
		return nil, err
	}
	if ocupada {
		return nil, conflicto("ya existe un método de pago %q", desc)
	}

	m := &model.MetodoPago{Descripcion: desc, Activo: true}
	if req.Activo != nil {
		m.Activo = *req.Activo
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, duplicadoOr(err, "ya existe un método de pago con esa descripción")
	}
	resp := metodoPagoToResponse(m)
	return &resp, nil
}

func (s *metodoPagoService) Actualizar(ctx context.Context, id uuid.UUID, req dto.MetodoPagoRequest) (*dto.MetodoPagoResponse, error) {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "método de pago no encontrado")
	}
	desc := strings.TrimSpace(req.Descripcion)
	if desc != "" && !strings.EqualFold(desc, m.Descripcion) {
		ocupada, err := s.repo.DescripcionOcupada(ctx, desc, &m.ID)
		if err != nil {
			return nil, err
		}
		if ocupada {
			return nil, conflicto("ya existe un método de pago %q", desc)
		}
	}
	if desc != "" {
		m.Descripcion = desc
	}
	if req.Activo != nil {
		m.Activo = *req.Activo
	}
	if err := s.repo.Update(ctx, m); err != nil {
		return nil, duplicadoOr(err, "ya existe un método de pago con esa descripción")
	}
	resp := metodoPagoToResponse(m)
	return &resp, nil
}

// Eliminar refuses to remove a metodo de pago referenced by ventas; those
// should be deactivated instead.
func (s *metodoPagoService) Eliminar(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return notFoundOr(err, "método de pago no encontrado")
	}
	enUso, err := s.repo.EnUso(ctx, id)
	if err != nil {
		return err
	}
	if enUso {
		return conflicto("el método de pago tiene ventas asociadas; desactívelo en su lugar")
	}
	return duplicadoOr(s.repo.Delete(ctx, id), "el método de pago tiene ventas asociadas")
}

func metodoPagoToResponse(m *model.MetodoPago) dto.MetodoPagoResponse {
	return dto.MetodoPagoResponse{ID: m.ID.String(), Descripcion: m.Descripcion, Activo: m.Activo}
}
