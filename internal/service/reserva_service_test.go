package service

import (
	"testing"
	"time"

	"restopos/internal/dto"
	"restopos/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reservaReq(mesaID uuid.UUID, inicio time.Time) dto.CrearReservaRequest {
	return dto.CrearReservaRequest{
		MesaID:          mesaID.String(),
		NombreCliente:   "Familia Pérez",
		FechaHoraInicio: inicio,
		FechaHoraFin:    inicio.Add(2 * time.Hour),
		NumeroPersonas:  4,
	}
}

func TestCrearReserva(t *testing.T) {
	f := newFixture()
	id := f.crearMesa(1)
	svc := NewReservaService(f.reservas, f.mesas)
	inicio := time.Date(2024, 5, 2, 21, 0, 0, 0, time.UTC)

	resp, err := svc.Crear(ctx, f.actor, reservaReq(id, inicio))

	require.NoError(t, err)
	assert.Equal(t, model.ReservaConfirmada, resp.Estado)
	assert.Equal(t, f.sucursalID.String(), resp.SucursalID)
	assert.Equal(t, model.MesaReservada, f.mesas.mesas[id].Estado)
}

func TestCrearReserva_Solapada(t *testing.T) {
	f := newFixture()
	id := f.crearMesa(1)
	svc := NewReservaService(f.reservas, f.mesas)
	inicio := time.Date(2024, 5, 2, 21, 0, 0, 0, time.UTC)
	existente := model.Reserva{
		ID: uuid.New(), RestauranteID: f.actor.RestauranteID, MesaID: id,
		FechaHoraInicio: inicio.Add(time.Hour), FechaHoraFin: inicio.Add(3 * time.Hour),
		Estado: model.ReservaPendiente,
	}
	f.reservas.reservas[existente.ID] = existente

	_, err := svc.Crear(ctx, f.actor, reservaReq(id, inicio))

	assert.ErrorIs(t, err, ErrConflicto)
	assert.Equal(t, model.MesaLibre, f.mesas.mesas[id].Estado)
}

func TestCrearReserva_MesaOcupada(t *testing.T) {
	f := newFixture()
	id := f.crearMesa(1)
	require.NoError(t, f.abrir(1))
	svc := NewReservaService(f.reservas, f.mesas)

	_, err := svc.Crear(ctx, f.actor, reservaReq(id, time.Date(2024, 5, 2, 21, 0, 0, 0, time.UTC)))

	assert.ErrorIs(t, err, ErrEstadoInvalido)
}

func TestCrearReserva_VentanaInvalida(t *testing.T) {
	f := newFixture()
	id := f.crearMesa(1)
	svc := NewReservaService(f.reservas, f.mesas)
	req := reservaReq(id, time.Date(2024, 5, 2, 21, 0, 0, 0, time.UTC))
	req.FechaHoraFin = req.FechaHoraInicio

	_, err := svc.Crear(ctx, f.actor, req)

	assert.ErrorIs(t, err, ErrValidacion)
}

func TestCancelarReserva_LiberaMesa(t *testing.T) {
	f := newFixture()
	id := f.crearMesa(1)
	svc := NewReservaService(f.reservas, f.mesas)
	res, err := svc.Crear(ctx, f.actor, reservaReq(id, time.Date(2024, 5, 2, 21, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	cancelada, err := svc.Cancelar(ctx, f.actor, uuid.MustParse(res.ID), dto.CancelarReservaRequest{Motivo: "cliente avisó"})

	require.NoError(t, err)
	assert.Equal(t, model.ReservaCancelada, cancelada.Estado)
	require.NotNil(t, cancelada.MotivoCancelacion)
	assert.Equal(t, "cliente avisó", *cancelada.MotivoCancelacion)
	assert.Equal(t, model.MesaLibre, f.mesas.mesas[id].Estado)

	_, err = svc.Cancelar(ctx, f.actor, uuid.MustParse(res.ID), dto.CancelarReservaRequest{Motivo: "otra vez"})
	assert.ErrorIs(t, err, ErrEstadoInvalido)
}

func TestCancelarReserva_NoEncontrada(t *testing.T) {
	f := newFixture()
	svc := NewReservaService(f.reservas, f.mesas)

	_, err := svc.Cancelar(ctx, f.actor, uuid.New(), dto.CancelarReservaRequest{Motivo: "x y z"})

	assert.ErrorIs(t, err, ErrNoEncontrado)
}

func TestListarReservas_PorFecha(t *testing.T) {
	f := newFixture()
	uno := f.crearMesa(1)
	dos := f.crearMesa(2)
	svc := NewReservaService(f.reservas, f.mesas)
	_, err := svc.Crear(ctx, f.actor, reservaReq(uno, time.Date(2024, 5, 2, 13, 0, 0, 0, time.Local)))
	require.NoError(t, err)
	_, err = svc.Crear(ctx, f.actor, reservaReq(dos, time.Date(2024, 5, 3, 13, 0, 0, 0, time.Local)))
	require.NoError(t, err)

	out, err := svc.Listar(ctx, f.actor, dto.ReservaFilter{Fecha: "2024-05-02"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, uno.String(), out[0].MesaID)

	_, err = svc.Listar(ctx, f.actor, dto.ReservaFilter{Fecha: "02/05/2024"})
	assert.ErrorIs(t, err, ErrValidacion)
}
