package model

import (
	"time"

	"github.com/google/uuid"
)

// GrupoMesa joins several mesas of one sucursal into a single party that is
// billed together. Members point at it through Mesa.GrupoMesaID; an abierto
// grupo has at least two of them.
type GrupoMesa struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RestauranteID uuid.UUID  `gorm:"type:uuid;not null"`
	SucursalID    uuid.UUID  `gorm:"type:uuid;not null"`
	MeseroID      *uuid.UUID `gorm:"type:uuid"`
	Estado        string     `gorm:"type:varchar(20);not null;default:'abierto'"`
	FechaCierre   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (GrupoMesa) TableName() string { return "grupos_mesas" }
