package service

import (
	"context"
	"strings"
	"time"

	"restopos/internal/dto"
	"restopos/internal/model"
	"restopos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type ReservaService interface {
	Crear(ctx context.Context, a Actor, req dto.CrearReservaRequest) (*dto.ReservaResponse, error)
	Cancelar(ctx context.Context, a Actor, id uuid.UUID, req dto.CancelarReservaRequest) (*dto.ReservaResponse, error)
	Listar(ctx context.Context, a Actor, filter dto.ReservaFilter) ([]dto.ReservaResponse, error)
}

type reservaService struct {
	reservas repository.ReservaRepository
	mesas    repository.MesaRepository
}

func NewReservaService(reservas repository.ReservaRepository, mesas repository.MesaRepository) ReservaService {
	return &reservaService{reservas: reservas, mesas: mesas}
}

func (s *reservaService) Crear(ctx context.Context, a Actor, req dto.CrearReservaRequest) (*dto.ReservaResponse, error) {
	mesaID, err := uuid.Parse(req.MesaID)
	if err != nil {
		return nil, invalido("mesa_id inválido")
	}
	if !req.FechaHoraFin.After(req.FechaHoraInicio) {
		return nil, invalido("la hora de fin debe ser posterior a la de inicio")
	}
	if req.NumeroPersonas <= 0 {
		return nil, invalido("el número de personas debe ser mayor a 0")
	}

	var res *model.Reserva
	err = runTx(ctx, s.mesas.DB(), func(tx *gorm.DB) error {
		mesas := s.mesas.WithTx(tx)
		reservas := s.reservas.WithTx(tx)

		m, err := mesas.LockByID(ctx, a.RestauranteID, mesaID)
		if err != nil {
			return notFoundOr(err, "mesa no encontrada")
		}
		if m.Estado != model.MesaLibre {
			return estadoInvalido("la mesa %d no está libre (estado: %s)", m.Numero, m.Estado)
		}
		solapadas, err := reservas.Solapadas(ctx, m.ID, req.FechaHoraInicio, req.FechaHoraFin)
		if err != nil {
			return err
		}
		if len(solapadas) > 0 {
			return conflicto("la mesa %d ya tiene una reserva en ese horario", m.Numero)
		}

		res = &model.Reserva{
			RestauranteID:   m.RestauranteID,
			SucursalID:      m.SucursalID,
			MesaID:          m.ID,
			RegistradoPor:   a.VendedorID,
			NombreCliente:   strings.TrimSpace(req.NombreCliente),
			TelefonoCliente: req.TelefonoCliente,
			EmailCliente:    req.EmailCliente,
			FechaHoraInicio: req.FechaHoraInicio,
			FechaHoraFin:    req.FechaHoraFin,
			NumeroPersonas:  req.NumeroPersonas,
			Estado:          model.ReservaConfirmada,
			Observaciones:   req.Observaciones,
		}
		if err := reservas.Create(ctx, res); err != nil {
			return err
		}
		m.Estado = model.MesaReservada
		return mesas.Save(ctx, m)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("reserva_id", res.ID.String()).Str("mesa_id", res.MesaID.String()).Msg("reserva creada")
	return reservaToResponse(res), nil
}

// Cancelar marks the reserva cancelada and frees its mesa when the mesa is
// still held for it. Both writes commit together.
func (s *reservaService) Cancelar(ctx context.Context, a Actor, id uuid.UUID, req dto.CancelarReservaRequest) (*dto.ReservaResponse, error) {
	motivo := strings.TrimSpace(req.Motivo)
	if motivo == "" {
		return nil, invalido("el motivo de cancelación es obligatorio")
	}

	var res *model.Reserva
	err := runTx(ctx, s.mesas.DB(), func(tx *gorm.DB) error {
		mesas := s.mesas.WithTx(tx)
		reservas := s.reservas.WithTx(tx)

		var err error
		res, err = reservas.FindByID(ctx, a.RestauranteID, id)
		if err != nil {
			return notFoundOr(err, "reserva no encontrada")
		}
		if res.Estado != model.ReservaConfirmada && res.Estado != model.ReservaPendiente {
			return estadoInvalido("la reserva no puede cancelarse (estado: %s)", res.Estado)
		}

		m, err := mesas.LockByID(ctx, a.RestauranteID, res.MesaID)
		if err != nil {
			return notFoundOr(err, "mesa de la reserva no encontrada")
		}

		res.Estado = model.ReservaCancelada
		res.MotivoCancelacion = &motivo
		if err := reservas.Save(ctx, res); err != nil {
			return err
		}
		if m.Estado == model.MesaReservada {
			m.Estado = model.MesaLibre
			return mesas.Save(ctx, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("reserva_id", res.ID.String()).Str("motivo", motivo).Msg("reserva cancelada")
	return reservaToResponse(res), nil
}

func (s *reservaService) Listar(ctx context.Context, a Actor, filter dto.ReservaFilter) ([]dto.ReservaResponse, error) {
	var f repository.ReservaFiltro
	if filter.SucursalID != "" {
		sid, err := uuid.Parse(filter.SucursalID)
		if err != nil {
			return nil, invalido("sucursal_id inválido")
		}
		f.SucursalID = &sid
	}
	if filter.Fecha != "" {
		dia, err := time.ParseInLocation("2006-01-02", filter.Fecha, time.Local)
		if err != nil {
			return nil, invalido("fecha inválida, use AAAA-MM-DD")
		}
		hasta := dia.AddDate(0, 0, 1)
		f.Desde, f.Hasta = &dia, &hasta
	}

	reservas, err := s.reservas.List(ctx, a.RestauranteID, f)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ReservaResponse, 0, len(reservas))
	for i := range reservas {
		out = append(out, *reservaToResponse(&reservas[i]))
	}
	return out, nil
}

func reservaToResponse(r *model.Reserva) *dto.ReservaResponse {
	return &dto.ReservaResponse{
		ID:                r.ID.String(),
		MesaID:            r.MesaID.String(),
		SucursalID:        r.SucursalID.String(),
		NombreCliente:     r.NombreCliente,
		TelefonoCliente:   r.TelefonoCliente,
		EmailCliente:      r.EmailCliente,
		FechaHoraInicio:   r.FechaHoraInicio,
		FechaHoraFin:      r.FechaHoraFin,
		NumeroPersonas:    r.NumeroPersonas,
		Estado:            r.Estado,
		Observaciones:     r.Observaciones,
		MotivoCancelacion: r.MotivoCancelacion,
	}
}
