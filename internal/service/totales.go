package service

import (
	"context"
	"time"

	"restopos/internal/model"
	"restopos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ── Totales ───────────────────────────────────────────────────────────────────
// Three representations of the same number are kept in sync here, inside the
// caller's transaction and after the mesa row has been locked:
//
//	detalle_ventas.subtotal (generated column)
//	  → ventas.total           = Σ subtotal
//	  → mesas.total_acumulado  = Σ venta.total of active ventas since the watermark
//
// The abierta prefactura mirrors the mesa total.

// Watermark returns the instant since which ventas belong to the mesa's
// current session: the abierta prefactura's fecha_apertura, else
// hora_apertura, else the zero time.
func Watermark(m *model.Mesa, pf *model.Prefactura) time.Time {
	if pf != nil && !pf.FechaApertura.IsZero() {
		return pf.FechaApertura
	}
	if m.HoraApertura != nil {
		return *m.HoraApertura
	}
	return time.Time{}
}

// recalcularVenta rewrites venta.total from its lines and returns it.
func recalcularVenta(ctx context.Context, repo repository.MesaRepository, ventaID uuid.UUID) (decimal.Decimal, error) {
	total, err := repo.SumDetalles(ctx, ventaID)
	if err != nil {
		return decimal.Zero, err
	}
	if err := repo.SetVentaTotal(ctx, ventaID, total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// recalcularMesa rewrites mesa.total_acumulado (and the abierta prefactura's
// total) from the session's active ventas. m is updated in place and the
// abierta prefactura, if any, is returned. It never changes m.Estado.
func recalcularMesa(ctx context.Context, repo repository.MesaRepository, m *model.Mesa) (*model.Prefactura, error) {
	pf, err := repo.FindPrefacturaAbierta(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	total, err := repo.SumVentasActivas(ctx, m, Watermark(m, pf))
	if err != nil {
		return nil, err
	}
	if err := repo.SetTotal(ctx, m.ID, total); err != nil {
		return nil, err
	}
	m.TotalAcumulado = total

	if pf != nil && !pf.TotalAcumulado.Equal(total) {
		pf.TotalAcumulado = total
		if err := repo.SavePrefactura(ctx, pf); err != nil {
			return nil, err
		}
	}
	return pf, nil
}
