package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// PrefacturaVenta is one session sale in chronological order.
type PrefacturaVenta struct {
	ID             string          `json:"id"`
	MesaNumero     int             `json:"mesa_numero"`
	Fecha          time.Time       `json:"fecha"`
	Estado         string          `json:"estado"`
	Total          decimal.Decimal `json:"total"`
	VendedorID     string          `json:"vendedor_id"`
	Vendedor       string          `json:"vendedor"`
	CantidadLineas int             `json:"cantidad_lineas"`
}

// PrefacturaItem groups every line of one producto across the session.
type PrefacturaItem struct {
	ProductoID     string          `json:"producto_id"`
	Producto       string          `json:"producto"`
	Cantidad       int             `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Observaciones  string          `json:"observaciones"`
}

// PrefacturaResponse is the itemized running bill of a mesa.
type PrefacturaResponse struct {
	MesaID       string            `json:"mesa_id"`
	MesaNumero   int               `json:"mesa_numero"`
	SucursalID   string            `json:"sucursal_id"`
	EstadoMesa   string            `json:"estado_mesa"`
	PrefacturaID *string           `json:"prefactura_id"`
	Desde        time.Time         `json:"desde"`
	Ventas       []PrefacturaVenta `json:"ventas"`
	Items        []PrefacturaItem  `json:"items"`
	Total        decimal.Decimal   `json:"total"`
	// TotalVentas is Σ venta.total and TotalMesa the mesa's cached total;
	// Consistente is true when both equal Total.
	TotalVentas decimal.Decimal `json:"total_ventas"`
	TotalMesa   decimal.Decimal `json:"total_mesa"`
	Consistente bool            `json:"consistente"`
	GeneradaEn  time.Time       `json:"generada_en"`
}

// PrefacturaGrupoResponse is the joint bill of a grupo: every member's
// ventas in one chronology and items regrouped across mesas.
type PrefacturaGrupoResponse struct {
	GrupoID     string            `json:"grupo_id"`
	SucursalID  string            `json:"sucursal_id"`
	EstadoGrupo string            `json:"estado_grupo"`
	Mesas       []int             `json:"mesas"`
	Ventas      []PrefacturaVenta `json:"ventas"`
	Items       []PrefacturaItem  `json:"items"`
	Total       decimal.Decimal   `json:"total"`
	TotalVentas decimal.Decimal   `json:"total_ventas"`
	// TotalMesas is Σ of the members' cached totals.
	TotalMesas  decimal.Decimal      `json:"total_mesas"`
	Consistente bool                 `json:"consistente"`
	GeneradaEn  time.Time            `json:"generada_en"`
	PorMesa     []PrefacturaResponse `json:"por_mesa"`
}
