package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CrearMesaRequest struct {
	SucursalID string `json:"sucursal_id" validate:"required,uuid"`
	Numero     int    `json:"numero"      validate:"required,min=1"`
	Capacidad  int    `json:"capacidad"   validate:"omitempty,min=1,max=50"`
}

type ActualizarMesaRequest struct {
	Numero    *int    `json:"numero"    validate:"omitempty,min=1"`
	Capacidad *int    `json:"capacidad" validate:"omitempty,min=1,max=50"`
	Estado    *string `json:"estado"    validate:"omitempty,oneof=libre en_uso pendiente_cobro reservada mantenimiento"`
}

type AbrirMesaRequest struct {
	SucursalID string `json:"sucursal_id" validate:"required,uuid"`
	Numero     int    `json:"numero"      validate:"required,min=1"`
}

type CerrarMesaRequest struct {
	MetodoPagoID *string `json:"metodo_pago_id" validate:"omitempty,uuid"`
	Email        *string `json:"email"          validate:"omitempty,email"`
	Facturar     bool    `json:"facturar"`
}

type MesaFilter struct {
	SucursalID string `form:"sucursal_id" validate:"omitempty,uuid"`
	Estado     string `form:"estado"      validate:"omitempty,oneof=libre en_uso pendiente_cobro reservada mantenimiento"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type MesaResponse struct {
	ID             string          `json:"id"`
	SucursalID     string          `json:"sucursal_id"`
	Numero         int             `json:"numero"`
	Capacidad      int             `json:"capacidad"`
	Estado         string          `json:"estado"`
	TotalAcumulado decimal.Decimal `json:"total_acumulado"`
	HoraApertura   *string         `json:"hora_apertura"`
	HoraCierre     *string         `json:"hora_cierre"`
	VentaActualID  *string         `json:"venta_actual_id"`
	MeseroActualID *string         `json:"mesero_actual_id"`
	GrupoMesaID    *string         `json:"grupo_mesa_id"`
}

type MesaEstadisticasResponse struct {
	Total                 int             `json:"total"`
	PorEstado             map[string]int  `json:"por_estado"`
	TotalAcumuladoGeneral decimal.Decimal `json:"total_acumulado_general"`
}

type CerrarMesaResponse struct {
	Mesa         MesaResponse        `json:"mesa"`
	PrefacturaID string              `json:"prefactura_id"`
	Estado       string              `json:"estado"`
	Total        decimal.Decimal     `json:"total"`
	Prefactura   *PrefacturaResponse `json:"prefactura"`
	EmailEnCola  bool                `json:"email_en_cola"`
}
