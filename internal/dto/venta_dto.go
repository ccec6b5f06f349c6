package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// ItemVentaRequest is one line of a sale. PrecioUnitario defaults to the
// producto's current price when omitted. Cantidad is checked by the service
// (400), not by the validator.
type ItemVentaRequest struct {
	ProductoID     string           `json:"producto_id"     validate:"required,uuid"`
	Cantidad       int              `json:"cantidad"`
	PrecioUnitario *decimal.Decimal `json:"precio_unitario"`
	Observaciones  *string          `json:"observaciones"   validate:"omitempty,max=500"`
}

type RegistrarVentaRequest struct {
	Items         []ItemVentaRequest `json:"items"         validate:"required,min=1,dive"`
	TipoServicio  string             `json:"tipo_servicio" validate:"omitempty,oneof=mesa llevar domicilio"`
	Observaciones *string            `json:"observaciones" validate:"omitempty,max=500"`
}

type CambiarEstadoVentaRequest struct {
	Estado string `json:"estado" validate:"required"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type DetalleVentaResponse struct {
	ID             string          `json:"id"`
	ProductoID     string          `json:"producto_id"`
	Producto       string          `json:"producto"`
	Cantidad       int             `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Observaciones  *string         `json:"observaciones"`
}

type VentaResponse struct {
	ID            string                 `json:"id"`
	MesaID        *string                `json:"mesa_id"`
	MesaNumero    *int                   `json:"mesa_numero"`
	SucursalID    string                 `json:"sucursal_id"`
	VendedorID    string                 `json:"vendedor_id"`
	MetodoPagoID  *string                `json:"metodo_pago_id"`
	TipoServicio  string                 `json:"tipo_servicio"`
	Estado        string                 `json:"estado"`
	Total         decimal.Decimal        `json:"total"`
	Fecha         string                 `json:"fecha"`
	Observaciones *string                `json:"observaciones"`
	Detalles      []DetalleVentaResponse `json:"detalles"`
	// TotalMesa is the mesa's cached balance after the write.
	TotalMesa decimal.Decimal `json:"total_mesa"`
}
