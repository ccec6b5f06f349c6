package model

import (
	"time"

	"github.com/google/uuid"
)

// Reserva books a mesa for a time window. While a confirmada or pendiente
// reserva covers the current time the mesa may be opened from "reservada".
type Reserva struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RestauranteID     uuid.UUID `gorm:"type:uuid;not null;index"`
	SucursalID        uuid.UUID `gorm:"type:uuid;not null"`
	MesaID            uuid.UUID `gorm:"type:uuid;not null;index"`
	RegistradoPor     uuid.UUID `gorm:"type:uuid;not null"`
	NombreCliente     string    `gorm:"not null"`
	TelefonoCliente   *string
	EmailCliente      *string
	FechaHoraInicio   time.Time `gorm:"not null"`
	FechaHoraFin      time.Time `gorm:"not null"`
	NumeroPersonas    int       `gorm:"not null"`
	Estado            string    `gorm:"type:varchar(20);not null;default:'confirmada'"`
	Observaciones     *string
	MotivoCancelacion *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (Reserva) TableName() string { return "reservas" }

// Vigente reports whether the reserva is active and covers t.
func (r Reserva) Vigente(t time.Time) bool {
	if r.Estado != ReservaConfirmada && r.Estado != ReservaPendiente {
		return false
	}
	return !t.Before(r.FechaHoraInicio) && t.Before(r.FechaHoraFin)
}

// Solapa reports whether the reserva's window overlaps [inicio, fin).
func (r Reserva) Solapa(inicio, fin time.Time) bool {
	return r.FechaHoraInicio.Before(fin) && inicio.Before(r.FechaHoraFin)
}
