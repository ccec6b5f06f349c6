package service

import (
	"context"
	"time"

	"restopos/internal/dto"
	"restopos/internal/metrics"
	"restopos/internal/model"
	"restopos/internal/repository"
	"restopos/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Actor is the authenticated vendedor on whose behalf an operation runs.
// Every lookup is scoped to Actor.RestauranteID.
type Actor struct {
	VendedorID    uuid.UUID
	RestauranteID uuid.UUID
	SucursalID    *uuid.UUID
	Rol           string
}

// CuentaDispatcher enqueues the "mail the closed bill" job.
// *worker.Dispatcher implements it.
type CuentaDispatcher interface {
	EnqueueCuenta(ctx context.Context, payload worker.CuentaJobPayload) error
}

type MesaService interface {
	Crear(ctx context.Context, a Actor, req dto.CrearMesaRequest) (*dto.MesaResponse, error)
	Actualizar(ctx context.Context, a Actor, id uuid.UUID, req dto.ActualizarMesaRequest) (*dto.MesaResponse, error)
	Eliminar(ctx context.Context, a Actor, id uuid.UUID) error
	Listar(ctx context.Context, a Actor, filter dto.MesaFilter) ([]dto.MesaResponse, error)
	Obtener(ctx context.Context, a Actor, id uuid.UUID) (*dto.MesaResponse, error)
	Estadisticas(ctx context.Context, a Actor, filter dto.MesaFilter) (*dto.MesaEstadisticasResponse, error)

	Abrir(ctx context.Context, a Actor, req dto.AbrirMesaRequest) (*dto.MesaResponse, error)
	RegistrarVenta(ctx context.Context, a Actor, mesaID uuid.UUID, req dto.RegistrarVentaRequest) (*dto.VentaResponse, error)
	CambiarEstadoVenta(ctx context.Context, a Actor, ventaID uuid.UUID, estado string) (*dto.VentaResponse, error)
	SolicitarCuenta(ctx context.Context, a Actor, id uuid.UUID) (*dto.MesaResponse, error)
	GenerarPrefactura(ctx context.Context, a Actor, id uuid.UUID) (*dto.PrefacturaResponse, error)
	Cerrar(ctx context.Context, a Actor, id uuid.UUID, req dto.CerrarMesaRequest) (*dto.CerrarMesaResponse, error)
	Liberar(ctx context.Context, a Actor, id uuid.UUID) (*dto.MesaResponse, error)
}

type mesaService struct {
	mesas      repository.MesaRepository
	productos  repository.ProductoRepository
	reservas   repository.ReservaRepository
	metodos    repository.MetodoPagoRepository
	dispatcher CuentaDispatcher
	now        func() time.Time
}

func NewMesaService(
	mesas repository.MesaRepository,
	productos repository.ProductoRepository,
	reservas repository.ReservaRepository,
	metodos repository.MetodoPagoRepository,
	dispatcher CuentaDispatcher,
) MesaService {
	return &mesaService{
		mesas:      mesas,
		productos:  productos,
		reservas:   reservas,
		metodos:    metodos,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// clock truncates to the database's timestamp precision so that in-memory
// watermarks compare equal to the stored ones.
func (s *mesaService) clock() time.Time {
	return s.now().Truncate(time.Microsecond)
}

// ── CRUD ──────────────────────────────────────────────────────────────────────

func (s *mesaService) Crear(ctx context.Context, a Actor, req dto.CrearMesaRequest) (*dto.MesaResponse, error) {
	sucursalID, err := uuid.Parse(req.SucursalID)
	if err != nil {
		return nil, invalido("sucursal_id inválido")
	}
	if req.Numero <= 0 {
		return nil, invalido("el número de mesa debe ser mayor a 0")
	}
	capacidad := req.Capacidad
	if capacidad <= 0 {
		capacidad = 4
	}

	ok, err := s.mesas.SucursalDeRestaurante(ctx, a.RestauranteID, sucursalID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, noEncontrado("sucursal no encontrada")
	}
	ocupado, err := s.mesas.NumeroOcupado(ctx, a.RestauranteID, sucursalID, req.Numero, nil)
	if err != nil {
		return nil, err
	}
	if ocupado {
		return nil, conflicto("ya existe la mesa %d en esta sucursal", req.Numero)
	}

	m := &model.Mesa{
		RestauranteID:  a.RestauranteID,
		SucursalID:     sucursalID,
		Numero:         req.Numero,
		Capacidad:      capacidad,
		Estado:         model.MesaLibre,
		TotalAcumulado: decimal.Zero,
	}
	err = runTx(ctx, s.mesas.DB(), func(tx *gorm.DB) error {
		repo := s.mesas.WithTx(tx)
		if err := repo.Create(ctx, m); err != nil {
			return duplicadoOr(err, "ya existe una mesa con ese número")
		}
		return repo.CreatePrefactura(ctx, nuevaPrefactura(m, s.clock()))
	})
	if err != nil {
		return nil, err
	}
	return mesaToResponse(m), nil
}

func (s *mesaService) Actualizar(ctx context.Context, a Actor, id uuid.UUID, req dto.ActualizarMesaRequest) (*dto.MesaResponse, error) {
	var m *model.Mesa
	err := runTx(ctx, s.mesas.DB(), func(tx *gorm.DB) error {
		repo := s.mesas.WithTx(tx)
		var err error
		m, err = repo.LockByID(ctx, a.RestauranteID, id)
		if err != nil {
			return notFoundOr(err, "mesa no encontrada")
		}

		if req.Numero != nil && *req.Numero != m.Numero {
			if *req.Numero <= 0 {
				return invalido("el número de mesa debe ser mayor a 0")
			}
			ocupado, err := repo.NumeroOcupado(ctx, m.RestauranteID, m.SucursalID, *req.Numero, &m.ID)
			if err != nil {
				return err
			}
			if ocupado {
				return conflicto("ya existe la mesa %d en esta sucursal", *req.Numero)
			}
			m.Numero = *req.Numero
		}
		if req.Capacidad != nil {
			if *req.Capacidad <= 0 {
				return invalido("la capacidad debe ser mayor a 0")
			}
			m.Capacidad = *req.Capacidad
		}
		if req.Estado != nil && *req.Estado != m.Estado {
			if err := validarCambioAdministrativo(m.Estado, *req.Estado); err != nil {
				return err
			}
			if m.Estado == model.MesaReservada {
				if err := s.cancelarReservas(ctx, tx, m, "mesa liberada por administración"); err != nil {
					return err
				}
			}
			m.Estado = *req.Estado
		}
		return duplicadoOr(repo.Save(ctx, m), "ya existe una mesa con ese número")
	})
	if err != nil {
		return nil, err
	}
	return mesaToResponse(m), nil
}

// validarCambioAdministrativo only lets Actualizar move a mesa between the
// states that carry no session (libre, reservada, mantenimiento). Sessions
// are started and ended by Abrir, Cerrar and Liberar.
func validarCambioAdministrativo(desde, hacia string) error {
	if !model.EstadoMesaValido(hacia) {
		return invalido("estado de mesa inválido: %s", hacia)
	}
	sesion := func(e string) bool { return e == model.MesaEnUso || e == model.MesaPendienteCobro }
	if sesion(desde) || sesion(hacia) {
		return estadoInvalido("use abrir, cerrar o liberar para cambiar de %s a %s", desde, hacia)
	}
	if !model.PuedeTransicionar(desde, hacia) {
		return estadoInvalido("transición no permitida: %s → %s", desde, hacia)
	}
	return nil
}

func (s *mesaService) Eliminar(ctx context.Context, a Actor, id uuid.UUID) error {
	return runTx(ctx, s.mesas.DB(), func(tx *gorm.DB) error {
		repo := s.mesas.WithTx(tx)
		m, err := repo.LockByID(ctx, a.RestauranteID, id)
		if err != nil {
			return notFoundOr(err, "mesa no encontrada")
		}
		if m.Estado != model.MesaLibre {
			return estadoInvalido("solo se puede eliminar una mesa libre (estado: %s)", m.Estado)
		}
		return duplicadoOr(repo.Delete(ctx, m.ID), "la mesa tiene ventas o reservas registradas")
	})
}

func (s *mesaService) Listar(ctx context.Context, a Actor, filter dto.MesaFilter) ([]dto.MesaResponse, error) {
	mesas, err := s.mesas.List(ctx, a.RestauranteID, filter)
	if err != nil {
		return nil, err
	}
	out := make([]dto.MesaResponse, 0, len(mesas))
	for i := range mesas {
		out = append(out, *mesaToResponse(&mesas[i]))
	}
	return out, nil
}

func (s *mesaService) Obtener(ctx context.Context, a Actor, id uuid.UUID) (*dto.MesaResponse, error) {
	m, err := s.mesas.FindByID(ctx, a.RestauranteID, id)
	if err != nil {
		return nil, notFoundOr(err, "mesa no encontrada")
	}
	return mesaToResponse(m), nil
}

func (s *mesaService) Estadisticas(ctx context.Context, a Actor, filter dto.MesaFilter) (*dto.MesaEstadisticasResponse, error) {
	filter.Estado = ""
	mesas, err := s.mesas.List(ctx, a.RestauranteID, filter)
	if err != nil {
		return nil, err
	}
	resp := &dto.MesaEstadisticasResponse{
		Total: len(mesas),
		PorEstado: map[string]int{
			model.MesaLibre: 0, model.MesaEnUso: 0, model.MesaPendienteCobro: 0,
			model.MesaReservada: 0, model.MesaMantenimiento: 0,
		},
		TotalAcumuladoGeneral: decimal.Zero,
	}
	for _, m := range mesas {
		resp.PorEstado[m.Estado]++
		resp.TotalAcumuladoGeneral = resp.TotalAcumuladoGeneral.Add(m.TotalAcumulado)
	}
	return resp, nil
}

// ── Abrir ─────────────────────────────────────────────────────────────────────
// Starts a session: libre (or reservada with a vigente reserva) → en_uso.
// The abierta prefactura is reused with a new fecha_apertura, or created, so
// exactly one abierta prefactura exists afterwards.

func (s *mesaService) Abrir(ctx context.Context, a Actor, req dto.AbrirMesaRequest) (*dto.MesaResponse, error) {
	sucursalID, err := uuid.Parse(req.SucursalID)
	if err != nil {
		return nil, invalido("sucursal_id inválido")
	}

	var m *model.Mesa
	err = runTx(ctx, s.mesas.DB(), func(tx *gorm.DB) error {
		repo := s.mesas.WithTx(tx)
		var err error
		m, err = repo.LockByNumero(ctx, a.RestauranteID, sucursalID, req.Numero)
		if err != nil {
			return notFoundOr(err, "mesa no encontrada")
		}
		now := s.clock()

		switch m.Estado {
		case model.MesaLibre:
		case model.MesaReservada:
			reservas := s.reservas.WithTx(tx)
			res, err := reservas.Vigente(ctx, m.ID, now)
			if err != nil {
				return err
			}
			if res == nil {
				return estadoInvalido("la mesa %d está reservada y no hay una reserva vigente", m.Numero)
			}
			res.Estado = model.ReservaCompletada
			if err := reservas.Save(ctx, res); err != nil {
				return err
			}
		default:
			return estadoInvalido("la mesa %d no está libre (estado: %s)", m.Numero, m.Estado)
		}

		return abrirSesion(ctx, repo, m, a.VendedorID, now)
	})
	if err != nil {
		return nil, err
	}

	metrics.MesaTransiciones.WithLabelValues("abrir").Inc()
	log.Info().Str("mesa_id", m.ID.String()).Int("numero", m.Numero).Str("vendedor_id", a.VendedorID.String()).Msg("mesa abierta")
	return mesaToResponse(m), nil
}

// abrirSesion moves m to en_uso with a zero balance starting at now. The
// abierta prefactura is reused with the new fecha_apertura, or created.
func abrirSesion(ctx context.Context, repo repository.MesaRepository, m *model.Mesa, mesero uuid.UUID, now time.Time) error {
	m.Estado = model.MesaEnUso
	m.HoraApertura = &now
	m.HoraCierre = nil
	m.TotalAcumulado = decimal.Zero
	m.VentaActualID = nil
	m.MeseroActualID = &mesero
	if err := repo.Save(ctx, m); err != nil {
		return err
	}

	pf, err := repo.FindPrefacturaAbierta(ctx, m.ID)
	if err != nil {
		return err
	}
	if pf == nil {
		return repo.CreatePrefactura(ctx, nuevaPrefactura(m, now))
	}
	pf.FechaApertura = now
	pf.TotalAcumulado = decimal.Zero
	pf.VentaPrincipalID = nil
	return repo.SavePrefactura(ctx, pf)
}

// ── RegistrarVenta ────────────────────────────────────────────────────────────
// Attaches a venta with its lines to an open mesa. Productos are resolved
// outside the transaction; the mesa row is locked before inserting so that
// concurrent sales on the same mesa serialize.

func (s *mesaService) RegistrarVenta(ctx context.Context, a Actor, mesaID uuid.UUID, req dto.RegistrarVentaRequest) (*dto.VentaResponse, error) {
	if len(req.Items) == 0 {
		return nil, invalido("la venta debe tener al menos un ítem")
	}

	ids := make([]uuid.UUID, 0, len(req.Items))
	for _, item := range req.Items {
		pid, err := uuid.Parse(item.ProductoID)
		if err != nil {
			return nil, invalido("producto_id inválido: %s", item.ProductoID)
		}
		if item.Cantidad <= 0 {
			return nil, invalido("la cantidad debe ser mayor a 0")
		}
		if item.PrecioUnitario != nil && item.PrecioUnitario.IsNegative() {
			return nil, invalido("el precio unitario no puede ser negativo")
		}
		ids = append(ids, pid)
	}

	productos, err := s.productos.FindByIDs(ctx, a.RestauranteID, ids)
	if err != nil {
		return nil, err
	}
	detalles := make([]model.DetalleVenta, 0, len(req.Items))
	for i, item := range req.Items {
		p, ok := productos[ids[i]]
		if !ok {
			return nil, noEncontrado("producto %s no encontrado", item.ProductoID)
		}
		if !p.Activo {
			return nil, invalido("producto %s está inactivo y no puede venderse", p.Nombre)
		}
		precio := p.Precio
		if item.PrecioUnitario != nil {
			precio = *item.PrecioUnitario
		}
		detalles = append(detalles, model.DetalleVenta{
			ProductoID:     p.ID,
			Orden:          i,
			Cantidad:       item.Cantidad,
			PrecioUnitario: precio,
			Observaciones:  item.Observaciones,
		})
	}

	tipo := req.TipoServicio
	if tipo == "" {
		tipo = "mesa"
	}

	var (
		venta model.Venta
		m     *model.Mesa
	)
	err = runTx(ctx, s.mesas.DB(), func(tx *gorm.DB) error {
		repo := s.mesas.WithTx(tx)
		var err error
		m, err = repo.LockByID(ctx, a.RestauranteID, mesaID)
		if err != nil {
			return notFoundOr(err, "mesa no encontrada")
		}
		if m.Estado != model.MesaEnUso && m.Estado != model.MesaPendienteCobro {
			return estadoInvalido("la mesa %d no está abierta (estado: %s)", m.Numero, m.Estado)
		}

		numero := m.Numero
		mesaRef := m.ID
		venta = model.Venta{
			RestauranteID: m.RestauranteID,
			SucursalID:    m.SucursalID,
			MesaID:        &mesaRef,
			MesaNumero:    &numero,
			VendedorID:    a.VendedorID,
			TipoServicio:  tipo,
			Estado:        model.VentaRecibido,
			Total:         decimal.Zero,
			Fecha:         s.clock(),
			Observaciones: req.Observaciones,
			Detalles:      detalles,
		}
		if err := repo.CreateVenta(ctx, &venta); err != nil {
			return err
		}
		if venta.Total, err = recalcularVenta(ctx, repo, venta.ID); err != nil {
			return err
		}

		pf, err := recalcularMesa(ctx, repo, m)
		if err != nil {
			return err
		}
		if pf != nil && pf.VentaPrincipalID == nil {
			pf.VentaPrincipalID = &venta.ID
			if err := repo.SavePrefactura(ctx, pf); err != nil {
				return err
			}
		}

		// A new order while the bill was requested reopens the session.
		m.Estado = model.MesaEnUso
		m.VentaActualID = &venta.ID
		if m.MeseroActualID == nil {
			mesero := a.VendedorID
			m.MeseroActualID = &mesero
		}
		return repo.Save(ctx, m)
	})
	if err != nil {
		return nil, err
	}

	metrics.VentasRegistradas.Inc()
	log.Info().
		Str("venta_id", venta.ID.String()).
		Int("mesa", m.Numero).
		Str("total", venta.Total.StringFixed(2)).
		Str("total_mesa", m.TotalAcumulado.StringFixed(2)).
		Msg("venta registrada")

	resp := ventaToResponse(&venta, productos)
	resp.TotalMesa = m.TotalAcumulado
	return resp, nil
}

// ── CambiarEstadoVenta ────────────────────────────────────────────────────────

func (s *mesaService) CambiarEstadoVenta(ctx context.Context, a Actor, ventaID uuid.UUID, estado string) (*dto.VentaResponse, error) {
	if !model.EstadoVentaValido(estado) {
		return nil, invalido("estado de venta inválido: %s", estado)
	}

	var (
		venta     *model.Venta
		totalMesa decimal.Decimal
	)
	err := runTx(ctx, s.mesas.DB(), func(tx *gorm.DB) error {
		repo := s.mesas.WithTx(tx)
		var err error
		venta, err = repo.FindVenta(ctx, a.RestauranteID, ventaID)
		if err != nil {
			return notFoundOr(err, "venta no encontrada")
		}

		var m *model.Mesa
		if venta.MesaID != nil {
			if m, err = repo.LockByID(ctx, a.RestauranteID, *venta.MesaID); err != nil {
				return notFoundOr(err, "mesa de la venta no encontrada")
			}
		}

		if err := repo.UpdateVentaEstado(ctx, venta.ID, estado); err != nil {
			return err
		}
		venta.Estado = estado
		if venta.Total, err = recalcularVenta(ctx, repo, venta.ID); err != nil {
			return err
		}

		if m != nil {
			if _, err := recalcularMesa(ctx, repo, m); err != nil {
				return err
			}
			totalMesa = m.TotalAcumulado
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp := ventaToResponse(venta, nil)
	resp.TotalMesa = totalMesa
	return resp, nil
}

// ── SolicitarCuenta ───────────────────────────────────────────────────────────

func (s *mesaService) SolicitarCuenta(ctx context.Context, a Actor, id uuid.UUID) (*dto.MesaResponse, error) {
	var m *model.Mesa
	err := runTx(ctx, s.mesas.DB(), func(tx *gorm.DB) error {
		repo := s.mesas.WithTx(tx)
		var err error
		m, err = repo.LockByID(ctx, a.RestauranteID, id)
		if err != nil {
			return notFoundOr(err, "mesa no encontrada")
		}
		if m.Estado != model.MesaEnUso {
			return estadoInvalido("la mesa %d no está en uso (estado: %s)", m.Numero, m.Estado)
		}
		if _, err := recalcularMesa(ctx, repo, m); err != nil {
			return err
		}
		m.Estado = model.MesaPendienteCobro
		return repo.Save(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	metrics.MesaTransiciones.WithLabelValues("solicitar_cuenta").Inc()
	return mesaToResponse(m), nil
}

// ── GenerarPrefactura ─────────────────────────────────────────────────────────

func (s *mesaService) GenerarPrefactura(ctx context.Context, a Actor, id uuid.UUID) (*dto.PrefacturaResponse, error) {
	m, err := s.mesas.FindByID(ctx, a.RestauranteID, id)
	if err != nil {
		return nil, notFoundOr(err, "mesa no encontrada")
	}
	return prefacturaDeMesa(ctx, s.mesas, m, s.clock())
}

// prefacturaDeMesa loads the current session of m and builds its bill.
func prefacturaDeMesa(ctx context.Context, repo repository.MesaRepository, m *model.Mesa, ahora time.Time) (*dto.PrefacturaResponse, error) {
	pf, err := repo.FindPrefacturaAbierta(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	desde := Watermark(m, pf)
	ventas, err := repo.ListVentasSesion(ctx, m, desde)
	if err != nil {
		return nil, err
	}
	return BuildPrefactura(m, pf, desde, ventas, ahora), nil
}

// ── Cerrar / Liberar ──────────────────────────────────────────────────────────
// Both end the session: the abierta prefactura is closed, the mesa goes back
// to libre with a zero balance, and a fresh abierta prefactura is inserted
// whose fecha_apertura excludes every venta of the finished session.

func (s *mesaService) Cerrar(ctx context.Context, a Actor, id uuid.UUID, req dto.CerrarMesaRequest) (*dto.CerrarMesaResponse, error) {
	metodoID, err := metodoPagoActivo(ctx, s.metodos, req.MetodoPagoID)
	if err != nil {
		return nil, err
	}

	var (
		m        *model.Mesa
		cerrada  *model.Prefactura
		snapshot *dto.PrefacturaResponse
	)
	err = runTx(ctx, s.mesas.DB(), func(tx *gorm.DB) error {
		repo := s.mesas.WithTx(tx)
		var err error
		m, err = repo.LockByID(ctx, a.RestauranteID, id)
		if err != nil {
			return notFoundOr(err, "mesa no encontrada")
		}
		if m.Estado != model.MesaEnUso && m.Estado != model.MesaPendienteCobro {
			return estadoInvalido("la mesa %d no está abierta (estado: %s)", m.Numero, m.Estado)
		}
		if m.GrupoMesaID != nil {
			return estadoInvalido("la mesa %d pertenece a un grupo; cierre el grupo", m.Numero)
		}

		estado := model.PrefacturaCerrada
		if req.Facturar {
			estado = model.PrefacturaFacturada
		}
		cerrada, snapshot, err = cobrarSesion(ctx, repo, m, metodoID, estado, s.clock())
		return err
	})
	if err != nil {
		return nil, err
	}

	resp := &dto.CerrarMesaResponse{
		Mesa:         *mesaToResponse(m),
		PrefacturaID: cerrada.ID.String(),
		Estado:       cerrada.Estado,
		Total:        cerrada.TotalAcumulado,
		Prefactura:   snapshot,
	}

	if req.Email != nil && *req.Email != "" && s.dispatcher != nil {
		err := s.dispatcher.EnqueueCuenta(ctx, worker.CuentaJobPayload{ToEmail: *req.Email, Prefactura: *snapshot})
		if err != nil {
			log.Error().Err(err).Str("mesa_id", m.ID.String()).Msg("no se pudo encolar el envío de la cuenta")
		} else {
			resp.EmailEnCola = true
		}
	}

	metrics.MesaTransiciones.WithLabelValues("cerrar").Inc()
	log.Info().
		Str("mesa_id", m.ID.String()).
		Int("numero", m.Numero).
		Str("prefactura_id", cerrada.ID.String()).
		Str("total", cerrada.TotalAcumulado.StringFixed(2)).
		Msg("mesa cerrada")
	return resp, nil
}

func (s *mesaService) Liberar(ctx context.Context, a Actor, id uuid.UUID) (*dto.MesaResponse, error) {
	var m *model.Mesa
	err := runTx(ctx, s.mesas.DB(), func(tx *gorm.DB) error {
		repo := s.mesas.WithTx(tx)
		var err error
		m, err = repo.LockByID(ctx, a.RestauranteID, id)
		if err != nil {
			return notFoundOr(err, "mesa no encontrada")
		}
		if m.Estado == model.MesaLibre {
			return estadoInvalido("la mesa %d ya está libre", m.Numero)
		}
		if m.GrupoMesaID != nil {
			return estadoInvalido("la mesa %d pertenece a un grupo; remuévala o disuelva el grupo", m.Numero)
		}
		if m.Estado == model.MesaReservada {
			if err := s.cancelarReservas(ctx, tx, m, "mesa liberada"); err != nil {
				return err
			}
		}
		pf, err := repo.FindPrefacturaAbierta(ctx, m.ID)
		if err != nil {
			return err
		}
		_, err = cerrarSesion(ctx, repo, m, pf, model.PrefacturaCerrada, decimal.Zero, s.clock())
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.MesaTransiciones.WithLabelValues("liberar").Inc()
	log.Info().Str("mesa_id", m.ID.String()).Int("numero", m.Numero).Msg("mesa liberada")
	return mesaToResponse(m), nil
}

// metodoPagoActivo resolves an optional metodo_pago_id, which must name an
// active method.
func metodoPagoActivo(ctx context.Context, metodos repository.MetodoPagoRepository, raw *string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, invalido("metodo_pago_id inválido")
	}
	mp, err := metodos.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "método de pago no encontrado")
	}
	if !mp.Activo {
		return nil, invalido("el método de pago %s está inactivo", mp.Descripcion)
	}
	return &id, nil
}

// cobrarSesion recomputes m, snapshots its bill, stamps the payment method on
// the session's active ventas and ends the session. It returns the closed
// prefactura and the bill as it was before closing.
func cobrarSesion(ctx context.Context, repo repository.MesaRepository, m *model.Mesa, metodoID *uuid.UUID, estado string, now time.Time) (*model.Prefactura, *dto.PrefacturaResponse, error) {
	pf, err := recalcularMesa(ctx, repo, m)
	if err != nil {
		return nil, nil, err
	}
	snapshot, err := prefacturaDeMesa(ctx, repo, m, now)
	if err != nil {
		return nil, nil, err
	}
	if metodoID != nil {
		if err := repo.AsignarMetodoPago(ctx, m, Watermark(m, pf), *metodoID); err != nil {
			return nil, nil, err
		}
	}
	cerrada, err := cerrarSesion(ctx, repo, m, pf, estado, m.TotalAcumulado, now)
	if err != nil {
		return nil, nil, err
	}
	return cerrada, snapshot, nil
}

// cancelarReservas cancels the reservas holding m when it leaves reservada
// without being opened.
func (s *mesaService) cancelarReservas(ctx context.Context, tx *gorm.DB, m *model.Mesa, motivo string) error {
	reservas := s.reservas.WithTx(tx)
	activas, err := reservas.Activas(ctx, m.ID, s.clock())
	if err != nil {
		return err
	}
	for i := range activas {
		res := &activas[i]
		res.Estado = model.ReservaCancelada
		res.MotivoCancelacion = &motivo
		if err := reservas.Save(ctx, res); err != nil {
			return err
		}
		log.Info().Str("reserva_id", res.ID.String()).Int("mesa", m.Numero).Msg("reserva cancelada al liberar la mesa")
	}
	return nil
}

// cerrarSesion closes pf (creating a closed one if the mesa had none), resets
// the mesa, takes it out of its grupo and opens the next session's
// prefactura. Returns the closed one.
func cerrarSesion(ctx context.Context, repo repository.MesaRepository, m *model.Mesa, pf *model.Prefactura, estado string, total decimal.Decimal, now time.Time) (*model.Prefactura, error) {
	if pf == nil {
		desde := now
		if m.HoraApertura != nil {
			desde = *m.HoraApertura
		}
		pf = &model.Prefactura{
			MesaID:        m.ID,
			RestauranteID: m.RestauranteID,
			Estado:        estado,
			FechaApertura: desde,
		}
		pf.TotalAcumulado = total
		pf.FechaCierre = &now
		if err := repo.CreatePrefactura(ctx, pf); err != nil {
			return nil, err
		}
	} else {
		pf.Estado = estado
		pf.TotalAcumulado = total
		pf.FechaCierre = &now
		if err := repo.SavePrefactura(ctx, pf); err != nil {
			return nil, err
		}
	}

	m.Estado = model.MesaLibre
	m.HoraCierre = &now
	m.TotalAcumulado = decimal.Zero
	m.VentaActualID = nil
	m.MeseroActualID = nil
	m.GrupoMesaID = nil
	if err := repo.Save(ctx, m); err != nil {
		return nil, err
	}
	if err := repo.CreatePrefactura(ctx, nuevaPrefactura(m, now)); err != nil {
		return nil, err
	}
	return pf, nil
}

func nuevaPrefactura(m *model.Mesa, now time.Time) *model.Prefactura {
	return &model.Prefactura{
		MesaID:         m.ID,
		RestauranteID:  m.RestauranteID,
		Estado:         model.PrefacturaAbierta,
		TotalAcumulado: decimal.Zero,
		FechaApertura:  now,
	}
}

// ── Mappers ───────────────────────────────────────────────────────────────────

func mesaToResponse(m *model.Mesa) *dto.MesaResponse {
	return &dto.MesaResponse{
		ID:             m.ID.String(),
		SucursalID:     m.SucursalID.String(),
		Numero:         m.Numero,
		Capacidad:      m.Capacidad,
		Estado:         m.Estado,
		TotalAcumulado: m.TotalAcumulado,
		HoraApertura:   formatTime(m.HoraApertura),
		HoraCierre:     formatTime(m.HoraCierre),
		VentaActualID:  uuidString(m.VentaActualID),
		MeseroActualID: uuidString(m.MeseroActualID),
		GrupoMesaID:    uuidString(m.GrupoMesaID),
	}
}

// ventaToResponse maps v. productos, when given, supplies names for lines
// whose Producto association is not loaded.
func ventaToResponse(v *model.Venta, productos map[uuid.UUID]model.Producto) *dto.VentaResponse {
	resp := &dto.VentaResponse{
		ID:            v.ID.String(),
		MesaID:        uuidString(v.MesaID),
		MesaNumero:    v.MesaNumero,
		SucursalID:    v.SucursalID.String(),
		VendedorID:    v.VendedorID.String(),
		MetodoPagoID:  uuidString(v.MetodoPagoID),
		TipoServicio:  v.TipoServicio,
		Estado:        v.Estado,
		Total:         v.Total,
		Fecha:         v.Fecha.Format(time.RFC3339),
		Observaciones: v.Observaciones,
		Detalles:      make([]dto.DetalleVentaResponse, 0, len(v.Detalles)),
	}
	for _, d := range v.Detalles {
		nombre := ""
		if d.Producto != nil {
			nombre = d.Producto.Nombre
		} else if p, ok := productos[d.ProductoID]; ok {
			nombre = p.Nombre
		}
		resp.Detalles = append(resp.Detalles, dto.DetalleVentaResponse{
			ID:             d.ID.String(),
			ProductoID:     d.ProductoID.String(),
			Producto:       nombre,
			Cantidad:       d.Cantidad,
			PrecioUnitario: d.PrecioUnitario,
			Subtotal:       d.CalcularSubtotal(),
			Observaciones:  d.Observaciones,
		})
	}
	return resp
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
