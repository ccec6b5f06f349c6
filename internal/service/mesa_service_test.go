package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"restopos/internal/dto"
	"restopos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

// ── Tests: Crear / Actualizar / Eliminar ──────────────────────────────────────

func TestCrearMesa_DefaultsAndOpenPrefactura(t *testing.T) {
	f := newFixture()

	resp, err := f.svc.Crear(ctx, f.actor, dto.CrearMesaRequest{SucursalID: f.sucursalID.String(), Numero: 3})

	require.NoError(t, err)
	assert.Equal(t, model.MesaLibre, resp.Estado)
	assert.Equal(t, 4, resp.Capacidad)
	assert.True(t, resp.TotalAcumulado.IsZero())
	assert.Equal(t, 1, f.prefacturasAbiertas(uuid.MustParse(resp.ID)))
}

func TestCrearMesa_NumeroDuplicado(t *testing.T) {
	f := newFixture()
	f.crearMesa(1)

	_, err := f.svc.Crear(ctx, f.actor, dto.CrearMesaRequest{SucursalID: f.sucursalID.String(), Numero: 1})

	assert.ErrorIs(t, err, ErrConflicto)
}

func TestCrearMesa_MismoNumeroOtraSucursal(t *testing.T) {
	f := newFixture()
	f.crearMesa(1)
	otra := uuid.New()
	f.mesas.sucursales[otra] = f.actor.RestauranteID

	_, err := f.svc.Crear(ctx, f.actor, dto.CrearMesaRequest{SucursalID: otra.String(), Numero: 1})

	assert.NoError(t, err)
}

func TestCrearMesa_SucursalDeOtroRestaurante(t *testing.T) {
	f := newFixture()
	ajena := uuid.New()
	f.mesas.sucursales[ajena] = uuid.New()

	_, err := f.svc.Crear(ctx, f.actor, dto.CrearMesaRequest{SucursalID: ajena.String(), Numero: 1})

	assert.ErrorIs(t, err, ErrNoEncontrado)
}

func TestCrearMesa_NumeroInvalido(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Crear(ctx, f.actor, dto.CrearMesaRequest{SucursalID: f.sucursalID.String(), Numero: 0})

	assert.ErrorIs(t, err, ErrValidacion)
}

func TestActualizarMesa_NumeroDuplicado(t *testing.T) {
	f := newFixture()
	f.crearMesa(1)
	id := f.crearMesa(2)
	uno := 1

	_, err := f.svc.Actualizar(ctx, f.actor, id, dto.ActualizarMesaRequest{Numero: &uno})

	assert.ErrorIs(t, err, ErrConflicto)
}

func TestActualizarMesa_Mantenimiento(t *testing.T) {
	f := newFixture()
	id := f.crearMesa(1)
	mant, libre, enUso := model.MesaMantenimiento, model.MesaLibre, model.MesaEnUso

	resp, err := f.svc.Actualizar(ctx, f.actor, id, dto.ActualizarMesaRequest{Estado: &mant})
	require.NoError(t, err)
	assert.Equal(t, model.MesaMantenimiento, resp.Estado)

	_, err = f.svc.Actualizar(ctx, f.actor, id, dto.ActualizarMesaRequest{Estado: &enUso})
	assert.ErrorIs(t, err, ErrEstadoInvalido, "sessions are only started by abrir")

	resp, err = f.svc.Actualizar(ctx, f.actor, id, dto.ActualizarMesaRequest{Estado: &libre})
	require.NoError(t, err)
	assert.Equal(t, model.MesaLibre, resp.Estado)
}

func TestEliminarMesa_SoloLibre(t *testing.T) {
	f := newFixture()
	id := f.crearMesa(1)
	require.NoError(t, f.abrir(1))

	err := f.svc.Eliminar(ctx, f.actor, id)
	assert.ErrorIs(t, err, ErrEstadoInvalido)

	_, err = f.svc.Liberar(ctx, f.actor, id)
	require.NoError(t, err)
	assert.NoError(t, f.svc.Eliminar(ctx, f.actor, id))
	_, err = f.svc.Obtener(ctx, f.actor, id)
	assert.ErrorIs(t, err, ErrNoEncontrado)
}

func TestEliminarMesa_ConVentasEsConflicto(t *testing.T) {
	f := newFixture()
	id := f.crearMesa(1)
	p := f.producto("Agua", 2)
	require.NoError(t, f.abrir(1))
	_, err := f.svc.RegistrarVenta(ctx, f.actor, id, dto.RegistrarVentaRequest{Items: []dto.ItemVentaRequest{item(p, 1)}})
	require.NoError(t, err)
	_, err = f.svc.Cerrar(ctx, f.actor, id, dto.CerrarMesaRequest{})
	require.NoError(t, err)

	err = f.svc.Eliminar(ctx, f.actor, id)

	assert.ErrorIs(t, err, ErrConflicto)
}

func TestObtenerMesa_OtroRestaurante(t *testing.T) {
	f := newFixture()
	id := f.crearMesa(1)
	intruso := f.actor
	intruso.RestauranteID = uuid.New()

	_, err := f.svc.Obtener(ctx, intruso, id)

	assert.ErrorIs(t, err, ErrNoEncontrado)
}

// ── Tests: Abrir ──────────────────────────────────────────────────────────────

func TestAbrirMesa_Libre(t *testing.T) {
	f := newFixture()
	id := f.crearMesa(1)

	require.NoError(t, f.abrir(1))

	m, err := f.svc.Obtener(ctx, f.actor, id)
	require.NoError(t, err)
	assert.Equal(t, model.MesaEnUso, m.Estado)
	assert.NotNil(t, m.HoraApertura)
	require.NotNil(t, m.MeseroActualID)
	assert.Equal(t, f.actor.VendedorID.String(), *m.MeseroActualID)
	assert.Nil(t, m.VentaActualID)
	assert.Equal(t, 1, f.prefacturasAbiertas(id))

	pf, _ := f.mesas.FindPrefacturaAbierta(ctx, id)
	stored := f.mesas.mesas[id]
	assert.True(t, pf.FechaApertura.Equal(*stored.HoraApertura), "watermark starts at the opening instant")
}

func TestAbrirMesa_YaEnUso(t *testing.T) {
	f := newFixture()
	f.crearMesa(1)
	require.NoError(t, f.abrir(1))

	err := f.abrir(1)

	assert.ErrorIs(t, err, ErrEstadoInvalido)
}

func TestAbrirMesa_Mantenimiento(t *testing.T) {
	f := newFixture()
	id := f.crearMesa(1)
	mant := model.MesaMantenimiento
	_, err := f.svc.Actualizar(ctx, f.actor, id, dto.ActualizarMesaRequest{Estado: &mant})
	require.NoError(t, err)

	assert.ErrorIs(t, f.abrir(1), ErrEstadoInvalido)
}

func TestAbrirMesa_Inexistente(t *testing.T) {
	f := newFixture()

	assert.ErrorIs(t, f.abrir(99), ErrNoEncontrado)
}

func TestAbrirMesa_SinPrefacturaCreaUna(t *testing.T) {
	f := newFixture()
	id := f.crearMesa(1)
	f.mesas.prefacturas = nil

	require.NoError(t, f.abrir(1))

	assert.Equal(t, 1, f.prefacturasAbiertas(id))
}

func TestAbrirMesa_ReservadaConReservaVigente(t *testing.T) {
	f := newFixture()
	id := f.crearMesa(1)
	m := f.mesas.mesas[id]
	m.Estado = model.MesaReservada
	f.mesas.mesas[id] = m
	res := model.Reserva{
		ID:              uuid.New(),
		RestauranteID:   f.actor.RestauranteID,
		MesaID:          id,
		FechaHoraInicio: f.clock.t.Add(-time.Minute),
		FechaHoraFin:    f.clock.t.Add(2 * time.Hour),
		Estado:          model.ReservaConfirmada,
	}
	f.reservas.reservas[res.ID] = res

	require.NoError(t, f.abrir(1))

	assert.Equal(t, model.MesaEnUso, f.mesas.mesas[id].Estado)
	assert.Equal(t, model.ReservaCompletada, f.reservas.reservas[res.ID].Estado)
}

func TestAbrirMesa_ReservadaSinReservaVigente(t *testing.T) {
	f := newFixture()
	id := f.crearMesa(1)
	m := f.mesas.mesas[id]
	m.Estado = model.MesaReservada
	f.mesas.mesas[id] = m
	res := model.Reserva{
		ID:              uuid.New(),
		RestauranteID:   f.actor.RestauranteID,
		MesaID:          id,
		FechaHoraInicio: f.clock.t.Add(3 * time.Hour),
		FechaHoraFin:    f.clock.t.Add(5 * time.Hour),
		Estado:          model.ReservaConfirmada,
	}
	f.reservas.reservas[res.ID] = res

	assert.ErrorIs(t, f.abrir(1), ErrEstadoInvalido)
	assert.Equal(t, model.ReservaConfirmada, f.reservas.reservas[res.ID].Estado)
}

// ── Tests: RegistrarVenta / CambiarEstadoVenta ────────────────────────────────

// The reference scenario: two sales of $7 and $14 plus a cancelled one.
// Every representation of the balance must read 21.
func TestSesion_SieteMasCatorceMasCancelada(t *testing.T) {
	f := newFixture()
	id := f.crearMesa(1)
	empanada := f.producto("Empanada", 7)
	milanesa := f.producto("Milanesa", 14)
	flan := f.producto("Flan", 5)
	require.NoError(t, f.abrir(1))

	v1, err := f.svc.RegistrarVenta(ctx, f.actor, id, dto.RegistrarVentaRequest{Items: []dto.ItemVentaRequest{item(empanada, 1)}})
	require.NoError(t, err)
	assert.True(t, v1.Total.Equal(dec("7")))
	assert.True(t, v1.TotalMesa.Equal(dec("7")))

	v2, err := f.svc.RegistrarVenta(ctx, f.actor, id, dto.RegistrarVentaRequest{Items: []dto.ItemVentaRequest{item(milanesa, 1)}})
	require.NoError(t, err)
	assert.True(t, v2.TotalMesa.Equal(dec("21")))

	v3, err := f.svc.RegistrarVenta(ctx, f.actor, id, dto.RegistrarVentaRequest{Items: []dto.ItemVentaRequest{item(flan, 2)}})
	require.NoError(t, err)
	assert.True(t, v3.TotalMesa.Equal(dec("31")))

	cancelada, err := f.svc.CambiarEstadoVenta(ctx, f.actor, uuid.MustParse(v3.ID), model.VentaCancelado)
	require.NoError(t, err)
	assert.Equal(t, model.VentaCancelado, cancelada.Estado)
	assert.True(t, cancelada.TotalMesa.Equal(dec("21")))

	m, err := f.svc.Obtener(ctx, f.actor, id)
	require.NoError(t, err)
	assert.True(t, m.TotalAcumulado.Equal(dec("21")))

	pf, _ := f.mesas.FindPrefacturaAbierta(ctx, id)
	assert.True(t, pf.TotalAcumulado.Equal(dec("21")))
	require.NotNil(t, pf.VentaPrincipalID)
	assert.Equal(t, v1.ID, pf.VentaPrincipalID.String())

	bill, err := f.svc.GenerarPrefactura(ctx, f.actor, id)
	require.NoError(t, err)
	assert.True(t, bill.Total.Equal(dec("21")))
	assert.True(t, bill.TotalVentas.Equal(dec("21")))
	assert.True(t, bill.TotalMesa.Equal(dec("21")))
	assert.True(t, bill.Consistente)
	require.Len(t, bill.Ventas, 2)
	assert.Equal(t, v1.ID, bill.Ventas[0].ID)
	assert.Equal(t, v2.ID, bill.Ventas[1].ID)
	require.Len(t, bill.Items, 2)
	assert.Equal(t, "Empanada", bill.Items[0].Producto)
	assert.Equal(t, "Milanesa", bill.Items[1].Producto)
	for _, it := range bill.Items {
		assert.NotEqual(t, "Flan", it.Producto, "cancelled sale must not be billed")
	}
}

func TestRegistrarVenta_CopiaDatosDeLaMesa(t *testing.T) {
	f := newFixture()
	id := f.crearMesa(5)
	p := f.producto("Café", 3)
	require.NoError(t, f.abrir(5))

	v, err := f.svc.RegistrarVenta(ctx, f.actor, id, dto.RegistrarVentaRequest{Items: []dto.ItemVentaRequest{item(p, 2)}})
	require.NoError(t, err)

	stored := f.mesas.ventas[uuid.MustParse(v.ID)]
	assert.Equal(t, f.actor.RestauranteID, stored.RestauranteID)
	assert.Equal(t, f.sucursalID, stored.SucursalID)
	require.NotNil(t, stored.MesaNumero)
	assert.Equal(t, 5, *stored.MesaNumero)
	assert.Equal(t, model.VentaRecibido, stored.Estado)
	assert.Equal(t, "mesa", stored.TipoServicio)
	assert.True(t, stored.Total.Equal(dec("6")))

	m := f.mesas.mesas[id]
	require.NotNil(t, m.VentaActualID)
	assert.Equal(t, v.ID, m.VentaActualID.String())
}

func TestRegistrarVenta_PrecioExplicito(t *testing.T) {
	f := newFixture()
	id := f.crearMesa(1)
	p := f.producto("Vino", 20)
	require.NoError(t, f.abrir(1))
	precio := dec("15.50")

	v, err := f.svc.RegistrarVenta(ctx, f.actor, id, dto.RegistrarVentaRequest{Items: []dto.ItemVentaRequest{
		{ProductoID: p.ID.String(), Cantidad: 2, PrecioUnitario: &precio},
	}})

	require.NoError(t, err)
	assert.True(t, v.Total.Equal(dec("31")))
	assert.True(t, v.Detalles[0].PrecioUnitario.Equal(precio))
}

func TestRegistrarVenta_MesaLibre(t *testing.T) {
	f := newFixture()
	id := f.crearMesa(1)
	p := f.producto("Agua", 2)

	_, err := f.svc.RegistrarVenta(ctx, f.actor, id, dto.RegistrarVentaRequest{Items: []dto.ItemVentaRequest{item(p, 1)}})

	assert.ErrorIs(t, err, ErrEstadoInvalido)
	assert.Empty(t, f.mesas.ventas)
}

func TestRegistrarVenta_Validaciones(t *testing.T) {
	f := newFixture()
	id := f.crearMesa(1)
	p := f.producto("Agua", 2)
	inactivo := f.producto("Soda", 2)
	inactivo.Activo = false
	f.productos.productos[inactivo.ID] = inactivo
	ajeno := model.Producto{ID: uuid.New(), RestauranteID: uuid.New(), Nombre: "Ajeno", Precio: dec("1"), Activo: true}
	f.productos.productos[ajeno.ID] = ajeno
	require.NoError(t, f.abrir(1))
	negativo := dec("-1")

	cases := []struct {
		name  string
		items []dto.ItemVentaRequest
		want  error
	}{
		{"sin items", nil, ErrValidacion},
		{"cantidad cero", []dto.ItemVentaRequest{item(p, 0)}, ErrValidacion},
		{"precio negativo", []dto.ItemVentaRequest{{ProductoID: p.ID.String(), Cantidad: 1, PrecioUnitario: &negativo}}, ErrValidacion},
		{"producto inexistente", []dto.ItemVentaRequest{{ProductoID: uuid.NewString(), Cantidad: 1}}, ErrNoEncontrado},
		{"producto de otro restaurante", []dto.ItemVentaRequest{item(ajeno, 1)}, ErrNoEncontrado},
		{"producto inactivo", []dto.ItemVentaRequest{item(inactivo, 1)}, ErrValidacion},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.RegistrarVenta(ctx, f.actor, id, dto.RegistrarVentaRequest{Items: tc.items})
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Empty(t, f.mesas.ventas)
	assert.True(t, f.mesas.mesas[id].TotalAcumulado.IsZero())
}

func TestRegistrarVenta_PendienteCobroVuelveAEnUso(t *testing.T) {
	f := newFixture()
	id := f.crearMesa(1)
	p := f.producto("Postre", 6)
	require.NoError(t, f.abrir(1))
	_, err := f.svc.SolicitarCuenta(ctx, f.actor, id)
	require.NoError(t, err)

	_, err = f.svc.RegistrarVenta(ctx, f.actor, id, dto.RegistrarVentaRequest{Items: []dto.ItemVentaRequest{item(p, 1)}})

	require.NoError(t, err)
	assert.Equal(t, model.MesaEnUso, f.mesas.mesas[id].Estado)
}

func TestCambiarEstadoVenta_EstadoInvalido(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CambiarEstadoVenta(ctx, f.actor, uuid.New(), "inventado")

	assert.ErrorIs(t, err, ErrValidacion)
}

func TestCambiarEstadoVenta_NoEncontrada(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CambiarEstadoVenta(ctx, f.actor, uuid.New(), model.VentaEntregado)

	assert.ErrorIs(t, err, ErrNoEncontrado)
}

func TestCambiarEstadoVenta_FlujoDeCocinaMantieneTotal(t *testing.T) {
	f := newFixture()
	id := f.crearMesa(1)
	p := f.producto("Pizza", 12)
	require.NoError(t, f.abrir(1))
	v, err := f.svc.RegistrarVenta(ctx, f.actor, id, dto.RegistrarVentaRequest{Items: []dto.ItemVentaRequest{item(p, 1)}})
	require.NoError(t, err)

	for _, e := range []string{model.VentaEnPreparacion, model.VentaListoParaServir, model.VentaEntregado} {
		resp, err := f.svc.CambiarEstadoVenta(ctx, f.actor, uuid.MustParse(v.ID), e)
		require.NoError(t, err)
		assert.True(t, resp.TotalMesa.Equal(dec("12")), e)
	}

	resp, err := f.svc.CambiarEstadoVenta(ctx, f.actor, uuid.MustParse(v.ID), model.VentaCerrada)
	require.NoError(t, err)
	assert.True(t, resp.TotalMesa.IsZero(), "cerrada is outside the active set")
}

// ── Tests: SolicitarCuenta / Cerrar / Liberar ─────────────────────────────────

func TestSolicitarCuenta(t *testing.T) {
	f := newFixture()
	id := f.crearMesa(1)

	_, err := f.svc.SolicitarCuenta(ctx, f.actor, id)
	assert.ErrorIs(t, err, ErrEstadoInvalido)

	require.NoError(t, f.abrir(1))
	m, err := f.svc.SolicitarCuenta(ctx, f.actor, id)
	require.NoError(t, err)
	assert.Equal(t, model.MesaPendienteCobro, m.Estado)
}

func TestCerrarMesa(t *testing.T) {
	f := newFixture()
	id := f.crearMesa(1)
	p := f.producto("Asado", 25)
	require.NoError(t, f.abrir(1))
	v, err := f.svc.RegistrarVenta(ctx, f.actor, id, dto.RegistrarVentaRequest{Items: []dto.ItemVentaRequest{item(p, 2)}})
	require.NoError(t, err)
	metodo := model.MetodoPago{ID: uuid.New(), Descripcion: "Efectivo", Activo: true}
	f.metodos.metodos[metodo.ID] = metodo
	metodoID := metodo.ID.String()
	email := "cliente@example.com"
	abierta, _ := f.mesas.FindPrefacturaAbierta(ctx, id)

	resp, err := f.svc.Cerrar(ctx, f.actor, id, dto.CerrarMesaRequest{MetodoPagoID: &metodoID, Email: &email})

	require.NoError(t, err)
	assert.Equal(t, model.PrefacturaCerrada, resp.Estado)
	assert.Equal(t, abierta.ID.String(), resp.PrefacturaID)
	assert.True(t, resp.Total.Equal(dec("50")))
	assert.Equal(t, model.MesaLibre, resp.Mesa.Estado)
	assert.True(t, resp.Mesa.TotalAcumulado.IsZero())
	assert.NotNil(t, resp.Mesa.HoraCierre)
	assert.Nil(t, resp.Mesa.VentaActualID)
	assert.Nil(t, resp.Mesa.MeseroActualID)
	require.NotNil(t, resp.Prefactura)
	assert.True(t, resp.Prefactura.Total.Equal(dec("50")))

	stored := f.mesas.ventas[uuid.MustParse(v.ID)]
	require.NotNil(t, stored.MetodoPagoID)
	assert.Equal(t, metodo.ID, *stored.MetodoPagoID)

	assert.Equal(t, 1, f.prefacturasAbiertas(id), "a fresh abierta prefactura replaces the closed one")
	for _, pf := range f.mesas.prefacturas {
		if pf.ID == abierta.ID {
			assert.Equal(t, model.PrefacturaCerrada, pf.Estado)
			assert.NotNil(t, pf.FechaCierre)
			assert.True(t, pf.TotalAcumulado.Equal(dec("50")))
		}
	}

	assert.True(t, resp.EmailEnCola)
	require.Len(t, f.dispatcher.payloads, 1)
	assert.Equal(t, email, f.dispatcher.payloads[0].ToEmail)
}

func TestCerrarMesa_Facturar(t *testing.T) {
	f := newFixture()
	id := f.crearMesa(1)
	require.NoError(t, f.abrir(1))

	resp, err := f.svc.Cerrar(ctx, f.actor, id, dto.CerrarMesaRequest{Facturar: true})

	require.NoError(t, err)
	assert.Equal(t, model.PrefacturaFacturada, resp.Estado)
	assert.False(t, resp.EmailEnCola)
}

func TestCerrarMesa_Precondiciones(t *testing.T) {
	f := newFixture()
	id := f.crearMesa(1)

	_, err := f.svc.Cerrar(ctx, f.actor, id, dto.CerrarMesaRequest{})
	assert.ErrorIs(t, err, ErrEstadoInvalido)

	require.NoError(t, f.abrir(1))
	inactivo := model.MetodoPago{ID: uuid.New(), Descripcion: "Cheque", Activo: false}
	f.metodos.metodos[inactivo.ID] = inactivo
	mid := inactivo.ID.String()
	_, err = f.svc.Cerrar(ctx, f.actor, id, dto.CerrarMesaRequest{MetodoPagoID: &mid})
	assert.ErrorIs(t, err, ErrValidacion)

	desconocido := uuid.NewString()
	_, err = f.svc.Cerrar(ctx, f.actor, id, dto.CerrarMesaRequest{MetodoPagoID: &desconocido})
	assert.ErrorIs(t, err, ErrNoEncontrado)
	assert.Equal(t, model.MesaEnUso, f.mesas.mesas[id].Estado)
}

func TestCerrarMesa_ErrorDeColaNoFallaElCierre(t *testing.T) {
	f := newFixture()
	id := f.crearMesa(1)
	require.NoError(t, f.abrir(1))
	f.dispatcher.err = errors.New("redis down")
	email := "x@example.com"

	resp, err := f.svc.Cerrar(ctx, f.actor, id, dto.CerrarMesaRequest{Email: &email})

	require.NoError(t, err)
	assert.False(t, resp.EmailEnCola)
	assert.Equal(t, model.MesaLibre, f.mesas.mesas[id].Estado)
}

// After closing, the next session starts from zero: ventas of the previous
// session are behind the new watermark.
func TestNuevaSesionExcluyeVentasAnteriores(t *testing.T) {
	f := newFixture()
	id := f.crearMesa(1)
	p := f.producto("Cerveza", 8)
	require.NoError(t, f.abrir(1))
	_, err := f.svc.RegistrarVenta(ctx, f.actor, id, dto.RegistrarVentaRequest{Items: []dto.ItemVentaRequest{item(p, 3)}})
	require.NoError(t, err)
	_, err = f.svc.Cerrar(ctx, f.actor, id, dto.CerrarMesaRequest{})
	require.NoError(t, err)

	require.NoError(t, f.abrir(1))
	bill, err := f.svc.GenerarPrefactura(ctx, f.actor, id)
	require.NoError(t, err)
	assert.Empty(t, bill.Ventas)
	assert.True(t, bill.Total.IsZero())

	v, err := f.svc.RegistrarVenta(ctx, f.actor, id, dto.RegistrarVentaRequest{Items: []dto.ItemVentaRequest{item(p, 1)}})
	require.NoError(t, err)
	assert.True(t, v.TotalMesa.Equal(dec("8")))
	assert.Equal(t, 1, f.prefacturasAbiertas(id))
}

func TestLiberarMesa(t *testing.T) {
	f := newFixture()
	id := f.crearMesa(1)
	p := f.producto("Agua", 2)

	_, err := f.svc.Liberar(ctx, f.actor, id)
	assert.ErrorIs(t, err, ErrEstadoInvalido)

	require.NoError(t, f.abrir(1))
	_, err = f.svc.RegistrarVenta(ctx, f.actor, id, dto.RegistrarVentaRequest{Items: []dto.ItemVentaRequest{item(p, 1)}})
	require.NoError(t, err)

	m, err := f.svc.Liberar(ctx, f.actor, id)
	require.NoError(t, err)
	assert.Equal(t, model.MesaLibre, m.Estado)
	assert.True(t, m.TotalAcumulado.IsZero())
	assert.Equal(t, 1, f.prefacturasAbiertas(id))
	for _, pf := range f.mesas.prefacturas {
		if pf.Estado == model.PrefacturaCerrada {
			assert.True(t, pf.TotalAcumulado.IsZero(), "liberar closes without billing")
		}
	}
}

// Freeing a reservada mesa cancels the reserva holding it, so the window can
// be booked again.
func TestLiberarMesa_ReservadaCancelaReserva(t *testing.T) {
	cases := []struct {
		name    string
		liberar func(f *fixture, id uuid.UUID) error
	}{
		{"liberar", func(f *fixture, id uuid.UUID) error {
			_, err := f.svc.Liberar(ctx, f.actor, id)
			return err
		}},
		{"actualizar a libre", func(f *fixture, id uuid.UUID) error {
			libre := model.MesaLibre
			_, err := f.svc.Actualizar(ctx, f.actor, id, dto.ActualizarMesaRequest{Estado: &libre})
			return err
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			id := f.crearMesa(1)
			reservas := NewReservaService(f.reservas, f.mesas)
			inicio := f.clock.t.Add(3 * time.Hour)
			res, err := reservas.Crear(ctx, f.actor, reservaReq(id, inicio))
			require.NoError(t, err)
			require.Equal(t, model.MesaReservada, f.mesas.mesas[id].Estado)

			require.NoError(t, tc.liberar(f, id))

			assert.Equal(t, model.MesaLibre, f.mesas.mesas[id].Estado)
			stored := f.reservas.reservas[uuid.MustParse(res.ID)]
			assert.Equal(t, model.ReservaCancelada, stored.Estado)
			require.NotNil(t, stored.MotivoCancelacion)

			_, err = reservas.Crear(ctx, f.actor, reservaReq(id, inicio))
			assert.NoError(t, err, "the freed window can be booked again")
		})
	}
}

// A venta on the mesa whose sucursal disagrees with the mesa's is neither
// summed nor billed.
func TestSesion_IgnoraVentasDeOtraSucursal(t *testing.T) {
	f := newFixture()
	id := f.crearMesa(1)
	p := f.producto("Agua", 2)
	require.NoError(t, f.abrir(1))

	mesa := f.mesas.mesas[id]
	numero := mesa.Numero
	corrupta := &model.Venta{
		ID:            uuid.New(),
		RestauranteID: mesa.RestauranteID,
		SucursalID:    uuid.New(),
		MesaID:        &id,
		MesaNumero:    &numero,
		VendedorID:    f.actor.VendedorID,
		Estado:        model.VentaRecibido,
		Fecha:         f.clock.now(),
		Total:         dec("500"),
		Detalles:      []model.DetalleVenta{{ID: uuid.New(), ProductoID: p.ID, Cantidad: 250, PrecioUnitario: dec("2")}},
	}
	f.mesas.ventas[corrupta.ID] = f.mesas.copiar(corrupta)

	v, err := f.svc.RegistrarVenta(ctx, f.actor, id, dto.RegistrarVentaRequest{Items: []dto.ItemVentaRequest{item(p, 1)}})
	require.NoError(t, err)
	assert.True(t, v.TotalMesa.Equal(dec("2")))

	bill, err := f.svc.GenerarPrefactura(ctx, f.actor, id)
	require.NoError(t, err)
	require.Len(t, bill.Ventas, 1)
	assert.Equal(t, v.ID, bill.Ventas[0].ID)
	assert.True(t, bill.Total.Equal(dec("2")))
	assert.True(t, bill.Consistente)
}

// ── Tests: GenerarPrefactura / Estadisticas ──────────────────────────────────

func TestGenerarPrefactura_Idempotente(t *testing.T) {
	f := newFixture()
	id := f.crearMesa(1)
	a := f.producto("Empanada", 7)
	b := f.producto("Milanesa", 14)
	require.NoError(t, f.abrir(1))
	_, err := f.svc.RegistrarVenta(ctx, f.actor, id, dto.RegistrarVentaRequest{Items: []dto.ItemVentaRequest{item(a, 2), item(b, 1)}})
	require.NoError(t, err)
	_, err = f.svc.RegistrarVenta(ctx, f.actor, id, dto.RegistrarVentaRequest{Items: []dto.ItemVentaRequest{item(a, 1)}})
	require.NoError(t, err)

	first, err := f.svc.GenerarPrefactura(ctx, f.actor, id)
	require.NoError(t, err)
	second, err := f.svc.GenerarPrefactura(ctx, f.actor, id)
	require.NoError(t, err)

	assert.Equal(t, first.Ventas, second.Ventas)
	assert.Equal(t, first.Items, second.Items)
	assert.True(t, first.Total.Equal(second.Total))
	require.Len(t, first.Items, 2)
	assert.Equal(t, 3, first.Items[0].Cantidad)
	assert.True(t, first.Items[0].Subtotal.Equal(dec("21")))
	assert.True(t, first.Total.Equal(dec("35")))
	assert.True(t, first.Consistente)
}

func TestEstadisticas(t *testing.T) {
	f := newFixture()
	id := f.crearMesa(1)
	f.crearMesa(2)
	f.crearMesa(3)
	p := f.producto("Agua", 2)
	require.NoError(t, f.abrir(1))
	_, err := f.svc.RegistrarVenta(ctx, f.actor, id, dto.RegistrarVentaRequest{Items: []dto.ItemVentaRequest{item(p, 5)}})
	require.NoError(t, err)

	st, err := f.svc.Estadisticas(ctx, f.actor, dto.MesaFilter{SucursalID: f.sucursalID.String()})

	require.NoError(t, err)
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, 2, st.PorEstado[model.MesaLibre])
	assert.Equal(t, 1, st.PorEstado[model.MesaEnUso])
	assert.Equal(t, 0, st.PorEstado[model.MesaMantenimiento])
	assert.True(t, st.TotalAcumuladoGeneral.Equal(dec("10")))
}
