package dto

import "time"

type CrearReservaRequest struct {
	MesaID          string    `json:"mesa_id"           validate:"required,uuid"`
	NombreCliente   string    `json:"nombre_cliente"    validate:"required,min=2,max=150"`
	TelefonoCliente *string   `json:"telefono_cliente"  validate:"omitempty,max=40"`
	EmailCliente    *string   `json:"email_cliente"     validate:"omitempty,email"`
	FechaHoraInicio time.Time `json:"fecha_hora_inicio" validate:"required"`
	FechaHoraFin    time.Time `json:"fecha_hora_fin"    validate:"required,gtfield=FechaHoraInicio"`
	NumeroPersonas  int       `json:"numero_personas"   validate:"required,min=1"`
	Observaciones   *string   `json:"observaciones"     validate:"omitempty,max=500"`
}

type CancelarReservaRequest struct {
	Motivo string `json:"motivo" validate:"required,min=3,max=500"`
}

type ReservaFilter struct {
	SucursalID string `form:"sucursal_id" validate:"omitempty,uuid"`
	Fecha      string `form:"fecha"` // YYYY-MM-DD; empty = all
}

type ReservaResponse struct {
	ID                string    `json:"id"`
	MesaID            string    `json:"mesa_id"`
	SucursalID        string    `json:"sucursal_id"`
	NombreCliente     string    `json:"nombre_cliente"`
	TelefonoCliente   *string   `json:"telefono_cliente"`
	EmailCliente      *string   `json:"email_cliente"`
	FechaHoraInicio   time.Time `json:"fecha_hora_inicio"`
	FechaHoraFin      time.Time `json:"fecha_hora_fin"`
	NumeroPersonas    int       `json:"numero_personas"`
	Estado            string    `json:"estado"`
	Observaciones     *string   `json:"observaciones"`
	MotivoCancelacion *string   `json:"motivo_cancelacion"`
}
