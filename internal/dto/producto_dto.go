package dto

import "github.com/shopspring/decimal"

type CrearProductoRequest struct {
	Nombre    string          `json:"nombre"    validate:"required,min=2,max=150"`
	Categoria string          `json:"categoria" validate:"omitempty,max=80"`
	Precio    decimal.Decimal `json:"precio"    validate:"min=0"`
}

type ProductoFilter struct {
	Nombre      string `form:"nombre"`
	Categoria   string `form:"categoria"`
	SoloActivos bool   `form:"activos"`
}

type ProductoResponse struct {
	ID        string          `json:"id"`
	Nombre    string          `json:"nombre"`
	Categoria string          `json:"categoria"`
	Precio    decimal.Decimal `json:"precio"`
	Activo    bool            `json:"activo"`
}
