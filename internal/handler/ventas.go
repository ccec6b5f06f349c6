package handler

import (
	"net/http"

	"restopos/internal/dto"
	"restopos/internal/service"

	"github.com/gin-gonic/gin"
)

// VentasHandler exposes sale-level operations. Sales are always created
// through a mesa (MesasHandler.RegistrarVenta).
type VentasHandler struct{ svc service.MesaService }

func NewVentasHandler(svc service.MesaService) *VentasHandler { return &VentasHandler{svc: svc} }

// CambiarEstado moves a sale through the kitchen/service workflow; the
// owning mesa's totals are recomputed in the same transaction.
func (h *VentasHandler) CambiarEstado(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.CambiarEstadoVentaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CambiarEstadoVenta(c.Request.Context(), actor(c), id, req.Estado)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
