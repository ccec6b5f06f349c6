package handler

import (
	"net/http"

	"restopos/internal/dto"
	"restopos/internal/service"

	"github.com/gin-gonic/gin"
)

type GruposMesasHandler struct {
	svc service.GrupoMesaService
}

func NewGruposMesasHandler(svc service.GrupoMesaService) *GruposMesasHandler {
	return &GruposMesasHandler{svc: svc}
}

func (h *GruposMesasHandler) Listar(c *gin.Context) {
	var filter dto.GrupoMesaFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.Listar(c.Request.Context(), actor(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *GruposMesasHandler) Obtener(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Obtener(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *GruposMesasHandler) Crear(c *gin.Context) {
	var req dto.CrearGrupoMesaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Crear(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *GruposMesasHandler) AgregarMesa(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.AgregarMesaGrupoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AgregarMesa(c.Request.Context(), actor(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *GruposMesasHandler) RemoverMesa(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	mesaID, ok := paramID(c, "mesaId")
	if !ok {
		return
	}
	resp, err := h.svc.RemoverMesa(c.Request.Context(), actor(c), id, mesaID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *GruposMesasHandler) Prefactura(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.GenerarPrefactura(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *GruposMesasHandler) Cerrar(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.CerrarGrupoRequest
	if c.Request.ContentLength != 0 {
		if !bindAndValidate(c, &req) {
			return
		}
	}
	resp, err := h.svc.Cerrar(c.Request.Context(), actor(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *GruposMesasHandler) Disolver(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Disolver(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
