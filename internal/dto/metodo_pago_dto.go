package dto

type MetodoPagoRequest struct {
	Descripcion string `json:"descripcion" validate:"required,min=2,max=80"`
	Activo      *bool  `json:"activo"`
}

type MetodoPagoResponse struct {
	ID          string `json:"id"`
	Descripcion string `json:"descripcion"`
	Activo      bool   `json:"activo"`
}
