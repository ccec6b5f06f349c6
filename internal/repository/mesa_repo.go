package repository

import (
	"context"
	"errors"
	"time"

	"restopos/internal/dto"
	"restopos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MesaRepository is the data access contract for mesas and everything that
// hangs off a mesa session (prefacturas, ventas, detalle_ventas).
//
// Lookups are tenant-scoped: a row of another restaurante is reported as
// gorm.ErrRecordNotFound.
type MesaRepository interface {
	// WithTx returns a repository bound to tx. Fakes may return themselves.
	WithTx(tx *gorm.DB) MesaRepository
	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB

	// Mesas
	Create(ctx context.Context, m *model.Mesa) error
	Save(ctx context.Context, m *model.Mesa) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, restauranteID, id uuid.UUID) (*model.Mesa, error)
	List(ctx context.Context, restauranteID uuid.UUID, filter dto.MesaFilter) ([]model.Mesa, error)
	// LockByID / LockByNumero read the mesa row with SELECT … FOR UPDATE.
	// Only meaningful inside a transaction.
	LockByID(ctx context.Context, restauranteID, id uuid.UUID) (*model.Mesa, error)
	LockByNumero(ctx context.Context, restauranteID, sucursalID uuid.UUID, numero int) (*model.Mesa, error)
	NumeroOcupado(ctx context.Context, restauranteID, sucursalID uuid.UUID, numero int, excluir *uuid.UUID) (bool, error)
	SucursalDeRestaurante(ctx context.Context, restauranteID, sucursalID uuid.UUID) (bool, error)
	SetTotal(ctx context.Context, mesaID uuid.UUID, total decimal.Decimal) error

	// Prefacturas. FindPrefacturaAbierta returns (nil, nil) when none exists.
	FindPrefacturaAbierta(ctx context.Context, mesaID uuid.UUID) (*model.Prefactura, error)
	CreatePrefactura(ctx context.Context, p *model.Prefactura) error
	SavePrefactura(ctx context.Context, p *model.Prefactura) error

	// Ventas
	CreateVenta(ctx context.Context, v *model.Venta) error
	FindVenta(ctx context.Context, restauranteID, id uuid.UUID) (*model.Venta, error)
	UpdateVentaEstado(ctx context.Context, id uuid.UUID, estado string) error
	SumDetalles(ctx context.Context, ventaID uuid.UUID) (decimal.Decimal, error)
	SetVentaTotal(ctx context.Context, ventaID uuid.UUID, total decimal.Decimal) error
	// Session queries match ventas on the mesa's id, sucursal and restaurante,
	// so a venta whose tenant columns disagree with its mesa is never billed.

	// SumVentasActivas is Σ venta.total of the mesa's ventas in the active
	// estado set with fecha >= desde.
	SumVentasActivas(ctx context.Context, m *model.Mesa, desde time.Time) (decimal.Decimal, error)
	// ListVentasSesion returns every venta of the mesa with fecha >= desde,
	// ordered by (fecha, id), with detalles, productos and vendedor loaded.
	ListVentasSesion(ctx context.Context, m *model.Mesa, desde time.Time) ([]model.Venta, error)
	AsignarMetodoPago(ctx context.Context, m *model.Mesa, desde time.Time, metodoPagoID uuid.UUID) error

	// Grupos. ListByGrupo returns the members ordered by numero.
	CreateGrupo(ctx context.Context, g *model.GrupoMesa) error
	SaveGrupo(ctx context.Context, g *model.GrupoMesa) error
	FindGrupo(ctx context.Context, restauranteID, id uuid.UUID) (*model.GrupoMesa, error)
	LockGrupo(ctx context.Context, restauranteID, id uuid.UUID) (*model.GrupoMesa, error)
	ListGrupos(ctx context.Context, restauranteID uuid.UUID, filter dto.GrupoMesaFilter) ([]model.GrupoMesa, error)
	ListByGrupo(ctx context.Context, grupoID uuid.UUID) ([]model.Mesa, error)
}

type mesaRepo struct{ db *gorm.DB }

func NewMesaRepository(db *gorm.DB) MesaRepository { return &mesaRepo{db: db} }

func (r *mesaRepo) WithTx(tx *gorm.DB) MesaRepository {
	if tx == nil {
		return r
	}
	return &mesaRepo{db: tx}
}

func (r *mesaRepo) DB() *gorm.DB { return r.db }

// ── Mesas ─────────────────────────────────────────────────────────────────────

func (r *mesaRepo) Create(ctx context.Context, m *model.Mesa) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *mesaRepo) Save(ctx context.Context, m *model.Mesa) error {
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *mesaRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Mesa{}, "id = ?", id).Error
}

func (r *mesaRepo) FindByID(ctx context.Context, restauranteID, id uuid.UUID) (*model.Mesa, error) {
	var m model.Mesa
	err := r.db.WithContext(ctx).
		Where("id = ? AND restaurante_id = ?", id, restauranteID).
		First(&m).Error
	return &m, err
}

func (r *mesaRepo) List(ctx context.Context, restauranteID uuid.UUID, filter dto.MesaFilter) ([]model.Mesa, error) {
	var mesas []model.Mesa
	q := r.db.WithContext(ctx).Where("restaurante_id = ?", restauranteID)
	if filter.SucursalID != "" {
		q = q.Where("sucursal_id = ?", filter.SucursalID)
	}
	if filter.Estado != "" {
		q = q.Where("estado = ?", filter.Estado)
	}
	err := q.Order("numero ASC").Find(&mesas).Error
	return mesas, err
}

func (r *mesaRepo) LockByID(ctx context.Context, restauranteID, id uuid.UUID) (*model.Mesa, error) {
	var m model.Mesa
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND restaurante_id = ?", id, restauranteID).
		First(&m).Error
	return &m, err
}

func (r *mesaRepo) LockByNumero(ctx context.Context, restauranteID, sucursalID uuid.UUID, numero int) (*model.Mesa, error) {
	var m model.Mesa
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("restaurante_id = ? AND sucursal_id = ? AND numero = ?", restauranteID, sucursalID, numero).
		First(&m).Error
	return &m, err
}

func (r *mesaRepo) NumeroOcupado(ctx context.Context, restauranteID, sucursalID uuid.UUID, numero int, excluir *uuid.UUID) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&model.Mesa{}).
		Where("restaurante_id = ? AND sucursal_id = ? AND numero = ?", restauranteID, sucursalID, numero)
	if excluir != nil {
		q = q.Where("id <> ?", *excluir)
	}
	err := q.Count(&count).Error
	return count > 0, err
}

func (r *mesaRepo) SucursalDeRestaurante(ctx context.Context, restauranteID, sucursalID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Sucursal{}).
		Where("id = ? AND restaurante_id = ? AND activo = true", sucursalID, restauranteID).
		Count(&count).Error
	return count > 0, err
}

func (r *mesaRepo) SetTotal(ctx context.Context, mesaID uuid.UUID, total decimal.Decimal) error {
	return r.db.WithContext(ctx).Model(&model.Mesa{}).
		Where("id = ?", mesaID).
		Updates(map[string]interface{}{"total_acumulado": total, "updated_at": time.Now()}).Error
}

// ── Prefacturas ───────────────────────────────────────────────────────────────

func (r *mesaRepo) FindPrefacturaAbierta(ctx context.Context, mesaID uuid.UUID) (*model.Prefactura, error) {
	var p model.Prefactura
	err := r.db.WithContext(ctx).
		Where("mesa_id = ? AND estado = ?", mesaID, model.PrefacturaAbierta).
		Order("fecha_apertura DESC").
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *mesaRepo) CreatePrefactura(ctx context.Context, p *model.Prefactura) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *mesaRepo) SavePrefactura(ctx context.Context, p *model.Prefactura) error {
	return r.db.WithContext(ctx).Save(p).Error
}

// ── Ventas ────────────────────────────────────────────────────────────────────

func (r *mesaRepo) CreateVenta(ctx context.Context, v *model.Venta) error {
	return r.db.WithContext(ctx).Create(v).Error
}

func (r *mesaRepo) FindVenta(ctx context.Context, restauranteID, id uuid.UUID) (*model.Venta, error) {
	var v model.Venta
	err := r.db.WithContext(ctx).
		Preload("Detalles", func(db *gorm.DB) *gorm.DB { return db.Order("orden ASC, id ASC") }).
		Preload("Detalles.Producto").
		Where("id = ? AND restaurante_id = ?", id, restauranteID).
		First(&v).Error
	return &v, err
}

func (r *mesaRepo) UpdateVentaEstado(ctx context.Context, id uuid.UUID, estado string) error {
	return r.db.WithContext(ctx).Model(&model.Venta{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"estado": estado, "updated_at": time.Now()}).Error
}

func (r *mesaRepo) SumDetalles(ctx context.Context, ventaID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.WithContext(ctx).Model(&model.DetalleVenta{}).
		Select("COALESCE(SUM(subtotal), 0)").
		Where("venta_id = ?", ventaID).
		Row().Scan(&total)
	return total, err
}

func (r *mesaRepo) SetVentaTotal(ctx context.Context, ventaID uuid.UUID, total decimal.Decimal) error {
	return r.db.WithContext(ctx).Model(&model.Venta{}).
		Where("id = ?", ventaID).
		Update("total", total).Error
}

// sesion selects the ventas of m's current session.
func (r *mesaRepo) sesion(ctx context.Context, m *model.Mesa, desde time.Time) *gorm.DB {
	return r.db.WithContext(ctx).Model(&model.Venta{}).
		Where("mesa_id = ? AND sucursal_id = ? AND restaurante_id = ? AND fecha >= ?",
			m.ID, m.SucursalID, m.RestauranteID, desde)
}

func (r *mesaRepo) SumVentasActivas(ctx context.Context, m *model.Mesa, desde time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.sesion(ctx, m, desde).
		Select("COALESCE(SUM(total), 0)").
		Where("estado IN ?", model.EstadosVentaActivos).
		Row().Scan(&total)
	return total, err
}

func (r *mesaRepo) ListVentasSesion(ctx context.Context, m *model.Mesa, desde time.Time) ([]model.Venta, error) {
	var ventas []model.Venta
	err := r.sesion(ctx, m, desde).
		Preload("Detalles", func(db *gorm.DB) *gorm.DB { return db.Order("orden ASC, id ASC") }).
		Preload("Detalles.Producto").
		Preload("Vendedor").
		Order("fecha ASC, id ASC").
		Find(&ventas).Error
	return ventas, err
}

func (r *mesaRepo) AsignarMetodoPago(ctx context.Context, m *model.Mesa, desde time.Time, metodoPagoID uuid.UUID) error {
	return r.sesion(ctx, m, desde).
		Where("estado IN ?", model.EstadosVentaActivos).
		Updates(map[string]interface{}{"metodo_pago_id": metodoPagoID, "updated_at": time.Now()}).Error
}

// ── Grupos ────────────────────────────────────────────────────────────────────

func (r *mesaRepo) CreateGrupo(ctx context.Context, g *model.GrupoMesa) error {
	return r.db.WithContext(ctx).Create(g).Error
}

func (r *mesaRepo) SaveGrupo(ctx context.Context, g *model.GrupoMesa) error {
	return r.db.WithContext(ctx).Save(g).Error
}

func (r *mesaRepo) FindGrupo(ctx context.Context, restauranteID, id uuid.UUID) (*model.GrupoMesa, error) {
	var g model.GrupoMesa
	err := r.db.WithContext(ctx).
		Where("id = ? AND restaurante_id = ?", id, restauranteID).
		First(&g).Error
	return &g, err
}

func (r *mesaRepo) LockGrupo(ctx context.Context, restauranteID, id uuid.UUID) (*model.GrupoMesa, error) {
	var g model.GrupoMesa
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND restaurante_id = ?", id, restauranteID).
		First(&g).Error
	return &g, err
}

func (r *mesaRepo) ListGrupos(ctx context.Context, restauranteID uuid.UUID, filter dto.GrupoMesaFilter) ([]model.GrupoMesa, error) {
	var grupos []model.GrupoMesa
	q := r.db.WithContext(ctx).Where("restaurante_id = ?", restauranteID)
	if filter.SucursalID != "" {
		q = q.Where("sucursal_id = ?", filter.SucursalID)
	}
	estado := filter.Estado
	if estado == "" {
		estado = model.GrupoAbierto
	}
	err := q.Where("estado = ?", estado).Order("created_at ASC, id ASC").Find(&grupos).Error
	return grupos, err
}

func (r *mesaRepo) ListByGrupo(ctx context.Context, grupoID uuid.UUID) ([]model.Mesa, error) {
	var mesas []model.Mesa
	err := r.db.WithContext(ctx).
		Where("grupo_mesa_id = ?", grupoID).
		Order("numero ASC").
		Find(&mesas).Error
	return mesas, err
}
