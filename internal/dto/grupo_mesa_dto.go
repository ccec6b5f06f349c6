package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// CrearGrupoMesaRequest joins MesaIDs into one party. Duplicates and the
// two-mesa minimum are checked by the service (400).
type CrearGrupoMesaRequest struct {
	SucursalID string   `json:"sucursal_id" validate:"required,uuid"`
	MesaIDs    []string `json:"mesa_ids"    validate:"required,dive,uuid"`
}

type AgregarMesaGrupoRequest struct {
	MesaID string `json:"mesa_id" validate:"required,uuid"`
}

type CerrarGrupoRequest struct {
	MetodoPagoID *string `json:"metodo_pago_id" validate:"omitempty,uuid"`
	Facturar     bool    `json:"facturar"`
}

// GrupoMesaFilter lists abierto grupos unless Estado says otherwise.
type GrupoMesaFilter struct {
	SucursalID string `form:"sucursal_id" validate:"omitempty,uuid"`
	Estado     string `form:"estado"      validate:"omitempty,oneof=abierto cerrado disuelto"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type GrupoMesaResponse struct {
	ID          string          `json:"id"`
	SucursalID  string          `json:"sucursal_id"`
	Estado      string          `json:"estado"`
	MeseroID    *string         `json:"mesero_id"`
	Mesas       []MesaResponse  `json:"mesas"`
	Total       decimal.Decimal `json:"total"`
	CreatedAt   string          `json:"created_at"`
	FechaCierre *string         `json:"fecha_cierre"`
}

type CerrarGrupoResponse struct {
	Grupo         GrupoMesaResponse        `json:"grupo"`
	Estado        string                   `json:"estado"`
	Total         decimal.Decimal          `json:"total"`
	PrefacturaIDs []string                 `json:"prefactura_ids"`
	Prefactura    *PrefacturaGrupoResponse `json:"prefactura"`
}
