package repository

import (
	"context"
	"fmt"

	"restopos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MesaDesfasada is a mesa whose cached total differs from the recomputed one.
type MesaDesfasada struct {
	MesaID        uuid.UUID
	RestauranteID uuid.UUID
	Numero        int
	Actual        decimal.Decimal
	Esperado      decimal.Decimal
}

// VentaDesfasada is a venta whose total differs from Σ of its lines.
type VentaDesfasada struct {
	VentaID  uuid.UUID
	Actual   decimal.Decimal
	Esperado decimal.Decimal
}

// NumeroDuplicado is a mesa numero used more than once in a sucursal.
type NumeroDuplicado struct {
	RestauranteID uuid.UUID
	SucursalID    uuid.UUID
	Numero        int
	Cantidad      int
}

// VentaFueraDeMesa is a venta whose tenant columns disagree with its mesa.
type VentaFueraDeMesa struct {
	VentaID uuid.UUID
	MesaID  uuid.UUID
}

// VentaEstadoInvalido is a venta whose estado is outside the known enum.
type VentaEstadoInvalido struct {
	VentaID uuid.UUID
	Estado  string
}

// MesaPrefacturas is a mesa with a number of abierta prefacturas other than one.
type MesaPrefacturas struct {
	MesaID        uuid.UUID
	RestauranteID uuid.UUID
	Numero        int
	Abiertas      int
}

// IntegridadRepository runs the read-only consistency queries and the
// non-destructive venta total repair.
//
// Every method takes the restaurante to inspect; nil scans every tenant.
type IntegridadRepository interface {
	MesasDesfasadas(ctx context.Context, restauranteID *uuid.UUID) ([]MesaDesfasada, error)
	VentasDesfasadas(ctx context.Context, restauranteID *uuid.UUID) ([]VentaDesfasada, error)
	NumerosDuplicados(ctx context.Context, restauranteID *uuid.UUID) ([]NumeroDuplicado, error)
	VentasFueraDeMesa(ctx context.Context, restauranteID *uuid.UUID) ([]VentaFueraDeMesa, error)
	VentasEstadoInvalido(ctx context.Context, restauranteID *uuid.UUID) ([]VentaEstadoInvalido, error)
	MesasPrefacturasInvalidas(ctx context.Context, restauranteID *uuid.UUID) ([]MesaPrefacturas, error)
	// RecalcularVentas rewrites venta.total where it differs from Σ lines and
	// returns the number of ventas touched.
	RecalcularVentas(ctx context.Context, restauranteID *uuid.UUID) (int64, error)
}

type integridadRepo struct{ db *gorm.DB }

func NewIntegridadRepository(db *gorm.DB) IntegridadRepository { return &integridadRepo{db: db} }

// porRestaurante renders the tenant predicate on col and its arguments.
func porRestaurante(col string, restauranteID *uuid.UUID) (string, []interface{}) {
	if restauranteID == nil {
		return "TRUE", nil
	}
	return col + " = ?", []interface{}{*restauranteID}
}

const sqlMesasDesfasadas = `
SELECT m.id AS mesa_id, m.restaurante_id, m.numero, m.total_acumulado AS actual, COALESCE(SUM(v.total), 0) AS esperado
FROM mesas m
LEFT JOIN LATERAL (
    SELECT p.fecha_apertura FROM prefacturas p
    WHERE p.mesa_id = m.id AND p.estado = 'abierta'
    ORDER BY p.fecha_apertura DESC LIMIT 1
) pf ON TRUE
LEFT JOIN ventas v
       ON v.mesa_id = m.id
      AND v.sucursal_id = m.sucursal_id
      AND v.restaurante_id = m.restaurante_id
      AND v.estado IN ?
      AND v.fecha >= COALESCE(pf.fecha_apertura, m.hora_apertura, '-infinity'::timestamptz)
WHERE %s
GROUP BY m.id, m.restaurante_id, m.numero, m.total_acumulado
HAVING m.total_acumulado <> COALESCE(SUM(v.total), 0)
ORDER BY m.numero`

func (r *integridadRepo) MesasDesfasadas(ctx context.Context, restauranteID *uuid.UUID) ([]MesaDesfasada, error) {
	var out []MesaDesfasada
	where, args := porRestaurante("m.restaurante_id", restauranteID)
	args = append([]interface{}{model.EstadosVentaActivos}, args...)
	err := r.db.WithContext(ctx).Raw(fmt.Sprintf(sqlMesasDesfasadas, where), args...).Scan(&out).Error
	return out, err
}

const sqlVentasDesfasadas = `
SELECT v.id AS venta_id, v.total AS actual, COALESCE(SUM(d.subtotal), 0) AS esperado
FROM ventas v
LEFT JOIN detalle_ventas d ON d.venta_id = v.id
WHERE %s
GROUP BY v.id, v.total
HAVING v.total <> COALESCE(SUM(d.subtotal), 0)`

func (r *integridadRepo) VentasDesfasadas(ctx context.Context, restauranteID *uuid.UUID) ([]VentaDesfasada, error) {
	var out []VentaDesfasada
	where, args := porRestaurante("v.restaurante_id", restauranteID)
	err := r.db.WithContext(ctx).Raw(fmt.Sprintf(sqlVentasDesfasadas, where), args...).Scan(&out).Error
	return out, err
}

func (r *integridadRepo) NumerosDuplicados(ctx context.Context, restauranteID *uuid.UUID) ([]NumeroDuplicado, error) {
	var out []NumeroDuplicado
	where, args := porRestaurante("restaurante_id", restauranteID)
	err := r.db.WithContext(ctx).Raw(fmt.Sprintf(`
SELECT restaurante_id, sucursal_id, numero, COUNT(*) AS cantidad
FROM mesas
WHERE %s
GROUP BY restaurante_id, sucursal_id, numero
HAVING COUNT(*) > 1`, where), args...).Scan(&out).Error
	return out, err
}

// VentasFueraDeMesa is scoped by the mesa's owner: a foreign venta attached
// to one of the tenant's mesas is the tenant's problem.
func (r *integridadRepo) VentasFueraDeMesa(ctx context.Context, restauranteID *uuid.UUID) ([]VentaFueraDeMesa, error) {
	var out []VentaFueraDeMesa
	where, args := porRestaurante("m.restaurante_id", restauranteID)
	err := r.db.WithContext(ctx).Raw(fmt.Sprintf(`
SELECT v.id AS venta_id, m.id AS mesa_id
FROM ventas v
JOIN mesas m ON m.id = v.mesa_id
WHERE (v.restaurante_id <> m.restaurante_id OR v.sucursal_id <> m.sucursal_id) AND %s`, where), args...).Scan(&out).Error
	return out, err
}

func (r *integridadRepo) VentasEstadoInvalido(ctx context.Context, restauranteID *uuid.UUID) ([]VentaEstadoInvalido, error) {
	var out []VentaEstadoInvalido
	where, args := porRestaurante("restaurante_id", restauranteID)
	args = append([]interface{}{model.EstadosVenta()}, args...)
	err := r.db.WithContext(ctx).Raw(fmt.Sprintf(`
SELECT id AS venta_id, estado FROM ventas WHERE estado NOT IN ? AND %s`, where), args...).Scan(&out).Error
	return out, err
}

func (r *integridadRepo) MesasPrefacturasInvalidas(ctx context.Context, restauranteID *uuid.UUID) ([]MesaPrefacturas, error) {
	var out []MesaPrefacturas
	where, args := porRestaurante("m.restaurante_id", restauranteID)
	err := r.db.WithContext(ctx).Raw(fmt.Sprintf(`
SELECT m.id AS mesa_id, m.restaurante_id, m.numero, COUNT(p.id) AS abiertas
FROM mesas m
LEFT JOIN prefacturas p ON p.mesa_id = m.id AND p.estado = 'abierta'
WHERE %s
GROUP BY m.id, m.restaurante_id, m.numero
HAVING COUNT(p.id) <> 1
ORDER BY m.numero`, where), args...).Scan(&out).Error
	return out, err
}

func (r *integridadRepo) RecalcularVentas(ctx context.Context, restauranteID *uuid.UUID) (int64, error) {
	where, args := porRestaurante("v.restaurante_id", restauranteID)
	res := r.db.WithContext(ctx).Exec(fmt.Sprintf(`
UPDATE ventas v
SET total = s.esperado, updated_at = NOW()
FROM (
    SELECT v2.id, COALESCE(SUM(d.subtotal), 0) AS esperado
    FROM ventas v2
    LEFT JOIN detalle_ventas d ON d.venta_id = v2.id
    GROUP BY v2.id
) s
WHERE s.id = v.id AND v.total <> s.esperado AND %s`, where), args...)
	return res.RowsAffected, res.Error
}
