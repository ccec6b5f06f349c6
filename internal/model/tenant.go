package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Restaurante is the tenant root.
type Restaurante struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Nombre    string    `gorm:"not null"`
	Activo    bool      `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Restaurante) TableName() string { return "restaurantes" }

// Sucursal is a branch of exactly one restaurante.
type Sucursal struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RestauranteID uuid.UUID `gorm:"type:uuid;not null;index"`
	Nombre        string    `gorm:"not null"`
	Direccion     *string
	Activo        bool `gorm:"not null;default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (Sucursal) TableName() string { return "sucursales" }

// Vendedor is a staff member. SucursalID nil means every sucursal.
// Rol: "admin" | "cajero" | "mesero"
type Vendedor struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RestauranteID uuid.UUID  `gorm:"type:uuid;not null;index"`
	SucursalID    *uuid.UUID `gorm:"type:uuid"`
	Username      string     `gorm:"uniqueIndex;not null"`
	Nombre        string     `gorm:"not null"`
	PasswordHash  string     `gorm:"not null"`
	Rol           string     `gorm:"type:varchar(20);not null"`
	Activo        bool       `gorm:"not null;default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (Vendedor) TableName() string { return "vendedores" }

// Producto is sellable master data of a restaurante.
type Producto struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RestauranteID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Nombre        string          `gorm:"not null"`
	Categoria     string          `gorm:"not null;default:'general'"`
	Precio        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Activo        bool            `gorm:"not null;default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (Producto) TableName() string { return "productos" }

// MetodoPago is global reference data (efectivo, tarjeta, ...).
type MetodoPago struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Descripcion string    `gorm:"not null"`
	Activo      bool      `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (MetodoPago) TableName() string { return "metodos_pago" }
