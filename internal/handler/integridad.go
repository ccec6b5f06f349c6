package handler

import (
	"net/http"

	"restopos/internal/service"

	"github.com/gin-gonic/gin"
)

type IntegridadHandler struct{ svc service.IntegridadService }

func NewIntegridadHandler(svc service.IntegridadService) *IntegridadHandler {
	return &IntegridadHandler{svc: svc}
}

// Verificar runs the read-only consistency checks over the caller's
// restaurante. Findings are reported with 200; a clean tenant answers
// consistente=true.
func (h *IntegridadHandler) Verificar(c *gin.Context) {
	restauranteID := actor(c).RestauranteID
	resp, err := h.svc.Verificar(c.Request.Context(), &restauranteID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Reconciliar repairs derived totals and missing open prefacturas of the
// caller's restaurante.
func (h *IntegridadHandler) Reconciliar(c *gin.Context) {
	restauranteID := actor(c).RestauranteID
	resp, err := h.svc.Reconciliar(c.Request.Context(), &restauranteID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
