package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"restopos/internal/dto"
	"restopos/internal/model"
	"restopos/internal/repository"
	"restopos/internal/worker"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── Stubs ─────────────────────────────────────────────────────────────────────
// In-memory repositories with the same constraint behaviour as the schema:
// unique mesa numero, one abierta prefactura per mesa, FK from ventas to
// mesas. Rows are copied in and out so that services only observe what they
// explicitly saved.

type stubMesaRepo struct {
	sucursales  map[uuid.UUID]uuid.UUID // sucursal → restaurante
	mesas       map[uuid.UUID]model.Mesa
	prefacturas []*model.Prefactura
	ventas      map[uuid.UUID]*model.Venta
	productos   map[uuid.UUID]model.Producto
	vendedores  map[uuid.UUID]model.Vendedor
	grupos      map[uuid.UUID]model.GrupoMesa
}

func newStubMesaRepo() *stubMesaRepo {
	return &stubMesaRepo{
		sucursales: map[uuid.UUID]uuid.UUID{},
		mesas:      map[uuid.UUID]model.Mesa{},
		ventas:     map[uuid.UUID]*model.Venta{},
		productos:  map[uuid.UUID]model.Producto{},
		vendedores: map[uuid.UUID]model.Vendedor{},
		grupos:     map[uuid.UUID]model.GrupoMesa{},
	}
}

func (r *stubMesaRepo) WithTx(_ *gorm.DB) repository.MesaRepository { return r }
func (r *stubMesaRepo) DB() *gorm.DB                                  { return nil }

func (r *stubMesaRepo) numeroTomado(m *model.Mesa) bool {
	for id, o := range r.mesas {
		if id != m.ID && o.RestauranteID == m.RestauranteID && o.SucursalID == m.SucursalID && o.Numero == m.Numero {
			return true
		}
	}
	return false
}

func (r *stubMesaRepo) Create(_ context.Context, m *model.Mesa) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if r.numeroTomado(m) {
		return gorm.ErrDuplicatedKey
	}
	r.mesas[m.ID] = *m
	return nil
}

func (r *stubMesaRepo) Save(_ context.Context, m *model.Mesa) error {
	if r.numeroTomado(m) {
		return gorm.ErrDuplicatedKey
	}
	r.mesas[m.ID] = *m
	return nil
}

func (r *stubMesaRepo) Delete(_ context.Context, id uuid.UUID) error {
	for _, v := range r.ventas {
		if v.MesaID != nil && *v.MesaID == id {
			return gorm.ErrForeignKeyViolated
		}
	}
	delete(r.mesas, id)
	return nil
}

func (r *stubMesaRepo) FindByID(_ context.Context, restauranteID, id uuid.UUID) (*model.Mesa, error) {
	m, ok := r.mesas[id]
	if !ok || m.RestauranteID != restauranteID {
		return nil, gorm.ErrRecordNotFound
	}
	return &m, nil
}

func (r *stubMesaRepo) List(_ context.Context, restauranteID uuid.UUID, f dto.MesaFilter) ([]model.Mesa, error) {
	var out []model.Mesa
	for _, m := range r.mesas {
		if m.RestauranteID != restauranteID {
			continue
		}
		if f.SucursalID != "" && m.SucursalID.String() != f.SucursalID {
			continue
		}
		if f.Estado != "" && m.Estado != f.Estado {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Numero < out[j].Numero })
	return out, nil
}

func (r *stubMesaRepo) LockByID(ctx context.Context, restauranteID, id uuid.UUID) (*model.Mesa, error) {
	return r.FindByID(ctx, restauranteID, id)
}

func (r *stubMesaRepo) LockByNumero(_ context.Context, restauranteID, sucursalID uuid.UUID, numero int) (*model.Mesa, error) {
	for _, m := range r.mesas {
		if m.RestauranteID == restauranteID && m.SucursalID == sucursalID && m.Numero == numero {
			return &m, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubMesaRepo) NumeroOcupado(_ context.Context, restauranteID, sucursalID uuid.UUID, numero int, excluir *uuid.UUID) (bool, error) {
	m := model.Mesa{RestauranteID: restauranteID, SucursalID: sucursalID, Numero: numero}
	if excluir != nil {
		m.ID = *excluir
	}
	return r.numeroTomado(&m), nil
}

func (r *stubMesaRepo) SucursalDeRestaurante(_ context.Context, restauranteID, sucursalID uuid.UUID) (bool, error) {
	return r.sucursales[sucursalID] == restauranteID, nil
}

func (r *stubMesaRepo) SetTotal(_ context.Context, mesaID uuid.UUID, total decimal.Decimal) error {
	m := r.mesas[mesaID]
	m.TotalAcumulado = total
	r.mesas[mesaID] = m
	return nil
}

func (r *stubMesaRepo) FindPrefacturaAbierta(_ context.Context, mesaID uuid.UUID) (*model.Prefactura, error) {
	for _, p := range r.prefacturas {
		if p.MesaID == mesaID && p.Estado == model.PrefacturaAbierta {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *stubMesaRepo) abiertas(mesaID uuid.UUID, excluir uuid.UUID) int {
	n := 0
	for _, p := range r.prefacturas {
		if p.MesaID == mesaID && p.ID != excluir && p.Estado == model.PrefacturaAbierta {
			n++
		}
	}
	return n
}

func (r *stubMesaRepo) CreatePrefactura(_ context.Context, p *model.Prefactura) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Estado == model.PrefacturaAbierta && r.abiertas(p.MesaID, p.ID) > 0 {
		return gorm.ErrDuplicatedKey
	}
	cp := *p
	r.prefacturas = append(r.prefacturas, &cp)
	return nil
}

func (r *stubMesaRepo) SavePrefactura(_ context.Context, p *model.Prefactura) error {
	if p.Estado == model.PrefacturaAbierta && r.abiertas(p.MesaID, p.ID) > 0 {
		return gorm.ErrDuplicatedKey
	}
	for i, o := range r.prefacturas {
		if o.ID == p.ID {
			cp := *p
			r.prefacturas[i] = &cp
			return nil
		}
	}
	cp := *p
	r.prefacturas = append(r.prefacturas, &cp)
	return nil
}

func (r *stubMesaRepo) CreateVenta(_ context.Context, v *model.Venta) error {
	if v.MesaID != nil {
		if _, ok := r.mesas[*v.MesaID]; !ok {
			return gorm.ErrForeignKeyViolated
		}
	}
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	for i := range v.Detalles {
		if v.Detalles[i].ID == uuid.Nil {
			v.Detalles[i].ID = uuid.New()
		}
		v.Detalles[i].VentaID = v.ID
	}
	r.ventas[v.ID] = r.copiar(v)
	return nil
}

// copiar deep-copies v and attaches the associations a Preload would load.
func (r *stubMesaRepo) copiar(v *model.Venta) *model.Venta {
	cp := *v
	cp.Detalles = make([]model.DetalleVenta, len(v.Detalles))
	for i, d := range v.Detalles {
		d.Subtotal = d.CalcularSubtotal()
		if p, ok := r.productos[d.ProductoID]; ok {
			d.Producto = &p
		}
		cp.Detalles[i] = d
	}
	if vend, ok := r.vendedores[v.VendedorID]; ok {
		cp.Vendedor = &vend
	}
	return &cp
}

func (r *stubMesaRepo) FindVenta(_ context.Context, restauranteID, id uuid.UUID) (*model.Venta, error) {
	v, ok := r.ventas[id]
	if !ok || v.RestauranteID != restauranteID {
		return nil, gorm.ErrRecordNotFound
	}
	return r.copiar(v), nil
}

func (r *stubMesaRepo) UpdateVentaEstado(_ context.Context, id uuid.UUID, estado string) error {
	if v, ok := r.ventas[id]; ok {
		v.Estado = estado
	}
	return nil
}

func (r *stubMesaRepo) SumDetalles(_ context.Context, ventaID uuid.UUID) (decimal.Decimal, error) {
	total := decimal.Zero
	if v, ok := r.ventas[ventaID]; ok {
		for _, d := range v.Detalles {
			total = total.Add(d.CalcularSubtotal())
		}
	}
	return total, nil
}

func (r *stubMesaRepo) SetVentaTotal(_ context.Context, ventaID uuid.UUID, total decimal.Decimal) error {
	if v, ok := r.ventas[ventaID]; ok {
		v.Total = total
	}
	return nil
}

func (r *stubMesaRepo) sesion(m *model.Mesa, desde time.Time) []*model.Venta {
	var out []*model.Venta
	for _, v := range r.ventas {
		if v.MesaID == nil || *v.MesaID != m.ID || v.SucursalID != m.SucursalID || v.RestauranteID != m.RestauranteID {
			continue
		}
		if !v.Fecha.Before(desde) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Fecha.Equal(out[j].Fecha) {
			return out[i].Fecha.Before(out[j].Fecha)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (r *stubMesaRepo) SumVentasActivas(_ context.Context, m *model.Mesa, desde time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, v := range r.sesion(m, desde) {
		if model.EstadoVentaActivo(v.Estado) {
			total = total.Add(v.Total)
		}
	}
	return total, nil
}

func (r *stubMesaRepo) ListVentasSesion(_ context.Context, m *model.Mesa, desde time.Time) ([]model.Venta, error) {
	var out []model.Venta
	for _, v := range r.sesion(m, desde) {
		out = append(out, *r.copiar(v))
	}
	return out, nil
}

func (r *stubMesaRepo) AsignarMetodoPago(_ context.Context, m *model.Mesa, desde time.Time, metodoPagoID uuid.UUID) error {
	for _, v := range r.sesion(m, desde) {
		if model.EstadoVentaActivo(v.Estado) {
			id := metodoPagoID
			v.MetodoPagoID = &id
		}
	}
	return nil
}

func (r *stubMesaRepo) CreateGrupo(_ context.Context, g *model.GrupoMesa) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	r.grupos[g.ID] = *g
	return nil
}

func (r *stubMesaRepo) SaveGrupo(_ context.Context, g *model.GrupoMesa) error {
	r.grupos[g.ID] = *g
	return nil
}

func (r *stubMesaRepo) FindGrupo(_ context.Context, restauranteID, id uuid.UUID) (*model.GrupoMesa, error) {
	g, ok := r.grupos[id]
	if !ok || g.RestauranteID != restauranteID {
		return nil, gorm.ErrRecordNotFound
	}
	return &g, nil
}

func (r *stubMesaRepo) LockGrupo(ctx context.Context, restauranteID, id uuid.UUID) (*model.GrupoMesa, error) {
	return r.FindGrupo(ctx, restauranteID, id)
}

func (r *stubMesaRepo) ListGrupos(_ context.Context, restauranteID uuid.UUID, f dto.GrupoMesaFilter) ([]model.GrupoMesa, error) {
	estado := f.Estado
	if estado == "" {
		estado = model.GrupoAbierto
	}
	var out []model.GrupoMesa
	for _, g := range r.grupos {
		if g.RestauranteID != restauranteID || g.Estado != estado {
			continue
		}
		if f.SucursalID != "" && g.SucursalID.String() != f.SucursalID {
			continue
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (r *stubMesaRepo) ListByGrupo(_ context.Context, grupoID uuid.UUID) ([]model.Mesa, error) {
	var out []model.Mesa
	for _, m := range r.mesas {
		if m.GrupoMesaID != nil && *m.GrupoMesaID == grupoID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Numero < out[j].Numero })
	return out, nil
}

var _ repository.MesaRepository = (*stubMesaRepo)(nil)

// stubProductoRepo shares its rows with the mesa stub so ventas can preload
// their productos.
type stubProductoRepo struct {
	productos map[uuid.UUID]model.Producto
}

func (r *stubProductoRepo) Create(_ context.Context, p *model.Producto) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.productos[p.ID] = *p
	return nil
}

func (r *stubProductoRepo) FindByID(_ context.Context, restauranteID, id uuid.UUID) (*model.Producto, error) {
	p, ok := r.productos[id]
	if !ok || p.RestauranteID != restauranteID {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r *stubProductoRepo) FindByIDs(_ context.Context, restauranteID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]model.Producto, error) {
	out := map[uuid.UUID]model.Producto{}
	for _, id := range ids {
		if p, ok := r.productos[id]; ok && p.RestauranteID == restauranteID {
			out[id] = p
		}
	}
	return out, nil
}

func (r *stubProductoRepo) List(_ context.Context, restauranteID uuid.UUID, f dto.ProductoFilter) ([]model.Producto, error) {
	var out []model.Producto
	for _, p := range r.productos {
		if p.RestauranteID != restauranteID || (f.SoloActivos && !p.Activo) {
			continue
		}
		if f.Nombre != "" && !strings.Contains(strings.ToLower(p.Nombre), strings.ToLower(f.Nombre)) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nombre < out[j].Nombre })
	return out, nil
}

func (r *stubProductoRepo) Desactivar(_ context.Context, restauranteID, id uuid.UUID) (bool, error) {
	p, ok := r.productos[id]
	if !ok || p.RestauranteID != restauranteID {
		return false, nil
	}
	p.Activo = false
	r.productos[id] = p
	return true, nil
}

var _ repository.ProductoRepository = (*stubProductoRepo)(nil)

type stubReservaRepo struct {
	reservas map[uuid.UUID]model.Reserva
}

func newStubReservaRepo() *stubReservaRepo {
	return &stubReservaRepo{reservas: map[uuid.UUID]model.Reserva{}}
}

func (r *stubReservaRepo) WithTx(_ *gorm.DB) repository.ReservaRepository { return r }

func (r *stubReservaRepo) Create(_ context.Context, res *model.Reserva) error {
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	r.reservas[res.ID] = *res
	return nil
}

func (r *stubReservaRepo) Save(_ context.Context, res *model.Reserva) error {
	r.reservas[res.ID] = *res
	return nil
}

func (r *stubReservaRepo) FindByID(_ context.Context, restauranteID, id uuid.UUID) (*model.Reserva, error) {
	res, ok := r.reservas[id]
	if !ok || res.RestauranteID != restauranteID {
		return nil, gorm.ErrRecordNotFound
	}
	return &res, nil
}

func (r *stubReservaRepo) List(_ context.Context, restauranteID uuid.UUID, f repository.ReservaFiltro) ([]model.Reserva, error) {
	var out []model.Reserva
	for _, res := range r.reservas {
		if res.RestauranteID != restauranteID {
			continue
		}
		if f.SucursalID != nil && res.SucursalID != *f.SucursalID {
			continue
		}
		if f.Desde != nil && res.FechaHoraInicio.Before(*f.Desde) {
			continue
		}
		if f.Hasta != nil && !res.FechaHoraInicio.Before(*f.Hasta) {
			continue
		}
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FechaHoraInicio.Before(out[j].FechaHoraInicio) })
	return out, nil
}

func (r *stubReservaRepo) Solapadas(_ context.Context, mesaID uuid.UUID, inicio, fin time.Time) ([]model.Reserva, error) {
	var out []model.Reserva
	for _, res := range r.reservas {
		activa := res.Estado == model.ReservaConfirmada || res.Estado == model.ReservaPendiente
		if res.MesaID == mesaID && activa && res.Solapa(inicio, fin) {
			out = append(out, res)
		}
	}
	return out, nil
}

func (r *stubReservaRepo) Vigente(_ context.Context, mesaID uuid.UUID, t time.Time) (*model.Reserva, error) {
	for _, res := range r.reservas {
		if res.MesaID == mesaID && res.Vigente(t) {
			return &res, nil
		}
	}
	return nil, nil
}

func (r *stubReservaRepo) Activas(_ context.Context, mesaID uuid.UUID, t time.Time) ([]model.Reserva, error) {
	var out []model.Reserva
	for _, res := range r.reservas {
		activa := res.Estado == model.ReservaConfirmada || res.Estado == model.ReservaPendiente
		if res.MesaID == mesaID && activa && t.Before(res.FechaHoraFin) {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FechaHoraInicio.Before(out[j].FechaHoraInicio) })
	return out, nil
}

var _ repository.ReservaRepository = (*stubReservaRepo)(nil)

type stubMetodoPagoRepo struct {
	metodos map[uuid.UUID]model.MetodoPago
	enUso   map[uuid.UUID]bool
}

func newStubMetodoPagoRepo() *stubMetodoPagoRepo {
	return &stubMetodoPagoRepo{metodos: map[uuid.UUID]model.MetodoPago{}, enUso: map[uuid.UUID]bool{}}
}

func (r *stubMetodoPagoRepo) List(_ context.Context, soloActivos bool) ([]model.MetodoPago, error) {
	var out []model.MetodoPago
	for _, m := range r.metodos {
		if !soloActivos || m.Activo {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Descripcion < out[j].Descripcion })
	return out, nil
}

func (r *stubMetodoPagoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.MetodoPago, error) {
	m, ok := r.metodos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &m, nil
}

func (r *stubMetodoPagoRepo) DescripcionOcupada(_ context.Context, desc string, excluir *uuid.UUID) (bool, error) {
	for id, m := range r.metodos {
		if excluir != nil && id == *excluir {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(m.Descripcion), strings.TrimSpace(desc)) {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubMetodoPagoRepo) Create(_ context.Context, m *model.MetodoPago) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	r.metodos[m.ID] = *m
	return nil
}

func (r *stubMetodoPagoRepo) Update(_ context.Context, m *model.MetodoPago) error {
	r.metodos[m.ID] = *m
	return nil
}

func (r *stubMetodoPagoRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.metodos, id)
	return nil
}

func (r *stubMetodoPagoRepo) EnUso(_ context.Context, id uuid.UUID) (bool, error) {
	return r.enUso[id], nil
}

var _ repository.MetodoPagoRepository = (*stubMetodoPagoRepo)(nil)

type stubDispatcher struct {
	payloads []worker.CuentaJobPayload
	err      error
}

func (d *stubDispatcher) EnqueueCuenta(_ context.Context, p worker.CuentaJobPayload) error {
	if d.err != nil {
		return d.err
	}
	d.payloads = append(d.payloads, p)
	return nil
}

var _ CuentaDispatcher = (*stubDispatcher)(nil)

// ── Fixture ───────────────────────────────────────────────────────────────────

// stepClock advances one second on every call so that consecutive writes get
// strictly increasing timestamps.
type stepClock struct{ t time.Time }

func (c *stepClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

type fixture struct {
	svc        *mesaService
	grupos     *grupoMesaService
	mesas      *stubMesaRepo
	productos  *stubProductoRepo
	reservas   *stubReservaRepo
	metodos    *stubMetodoPagoRepo
	dispatcher *stubDispatcher
	clock      *stepClock
	actor      Actor
	sucursalID uuid.UUID
}

func newFixture() *fixture {
	mesas := newStubMesaRepo()
	f := &fixture{
		mesas:      mesas,
		productos:  &stubProductoRepo{productos: mesas.productos},
		reservas:   newStubReservaRepo(),
		metodos:    newStubMetodoPagoRepo(),
		dispatcher: &stubDispatcher{},
		clock:      &stepClock{t: time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)},
		sucursalID: uuid.New(),
	}
	f.actor = Actor{VendedorID: uuid.New(), RestauranteID: uuid.New(), Rol: model.RolMesero}
	mesas.sucursales[f.sucursalID] = f.actor.RestauranteID
	mesas.vendedores[f.actor.VendedorID] = model.Vendedor{ID: f.actor.VendedorID, Nombre: "Ana"}

	svc := NewMesaService(f.mesas, f.productos, f.reservas, f.metodos, f.dispatcher).(*mesaService)
	svc.now = f.clock.now
	f.svc = svc

	grupos := NewGrupoMesaService(f.mesas, f.metodos).(*grupoMesaService)
	grupos.now = f.clock.now
	f.grupos = grupos
	return f
}

func (f *fixture) producto(nombre string, precio int64) model.Producto {
	p := model.Producto{
		ID:            uuid.New(),
		RestauranteID: f.actor.RestauranteID,
		Nombre:        nombre,
		Categoria:     "general",
		Precio:        decimal.NewFromInt(precio),
		Activo:        true,
	}
	f.productos.productos[p.ID] = p
	return p
}

func (f *fixture) crearMesa(numero int) uuid.UUID {
	resp, err := f.svc.Crear(context.Background(), f.actor, dto.CrearMesaRequest{
		SucursalID: f.sucursalID.String(),
		Numero:     numero,
	})
	if err != nil {
		panic(err)
	}
	return uuid.MustParse(resp.ID)
}

func (f *fixture) abrir(numero int) error {
	_, err := f.svc.Abrir(context.Background(), f.actor, dto.AbrirMesaRequest{
		SucursalID: f.sucursalID.String(),
		Numero:     numero,
	})
	return err
}

func item(p model.Producto, cantidad int) dto.ItemVentaRequest {
	return dto.ItemVentaRequest{ProductoID: p.ID.String(), Cantidad: cantidad}
}

func (f *fixture) prefacturasAbiertas(mesaID uuid.UUID) int {
	return f.mesas.abiertas(mesaID, uuid.Nil)
}
