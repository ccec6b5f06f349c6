package dto

import "github.com/shopspring/decimal"

// Inconsistencia is one finding of the integrity check.
type Inconsistencia struct {
	Tipo     string          `json:"tipo"`
	ID       string          `json:"id"`
	Detalle  string          `json:"detalle"`
	Esperado decimal.Decimal `json:"esperado,omitempty"`
	Actual   decimal.Decimal `json:"actual,omitempty"`
}

type IntegridadResponse struct {
	Consistente     bool             `json:"consistente"`
	Total           int              `json:"total"`
	PorTipo         map[string]int   `json:"por_tipo"`
	Inconsistencias []Inconsistencia `json:"inconsistencias"`
}

type ReconciliacionResponse struct {
	VentasCorregidas   int `json:"ventas_corregidas"`
	MesasCorregidas    int `json:"mesas_corregidas"`
	PrefacturasCreadas int `json:"prefacturas_creadas"`
}
