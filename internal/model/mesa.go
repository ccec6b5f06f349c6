package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Mesa is a physical table of a sucursal and the unit of session/billing state.
// Numero is unique per (restaurante, sucursal).
type Mesa struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RestauranteID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_mesas_numero,priority:1"`
	SucursalID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_mesas_numero,priority:2"`
	Numero        int       `gorm:"not null;uniqueIndex:idx_mesas_numero,priority:3"`
	Capacidad     int       `gorm:"not null;default:4"`
	Estado        string    `gorm:"type:varchar(20);not null;default:'libre'"`
	// TotalAcumulado caches SUM(venta.total) of the active ventas of the
	// current session; it is rewritten by the aggregation on every write.
	TotalAcumulado decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	HoraApertura   *time.Time
	HoraCierre     *time.Time
	VentaActualID  *uuid.UUID `gorm:"type:uuid"`
	MeseroActualID *uuid.UUID `gorm:"type:uuid"`
	GrupoMesaID    *uuid.UUID `gorm:"type:uuid"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (Mesa) TableName() string { return "mesas" }

// Prefactura is the running bill of one mesa session.
// Estado: "abierta" | "cerrada" | "facturada". At most one abierta per mesa;
// its FechaApertura is the watermark that decides which ventas belong to the
// current session.
type Prefactura struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	MesaID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	RestauranteID    uuid.UUID       `gorm:"type:uuid;not null"`
	VentaPrincipalID *uuid.UUID      `gorm:"type:uuid"`
	Estado           string          `gorm:"type:varchar(20);not null;default:'abierta'"`
	TotalAcumulado   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	FechaApertura    time.Time       `gorm:"not null"`
	FechaCierre      *time.Time
	CreatedAt        time.Time
}

func (Prefactura) TableName() string { return "prefacturas" }
