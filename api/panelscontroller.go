package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"comicreel/approval"
	"comicreel/pipeline"
	"comicreel/types"

	"github.com/gin-gonic/gin"
)

func registerPanelRoutes(r *gin.Engine, h *handlers) {
	g := r.Group("/api/projects/:id/panels/:panel")
	g.POST("/audio", h.handleRegenerateAudio)
	g.PATCH("/instruction", h.handleOverride)
	g.DELETE("/instruction/override", h.handleClearOverride)
	g.POST("/approve", h.handleApprovePanel)
	g.POST("/preview", h.handlePreview)
}

func panelParam(c *gin.Context) (int, bool) {
	n, err := strconv.Atoi(c.Param("panel"))
	if err != nil || n <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "panel must be a positive integer"})
		return 0, false
	}
	return n, true
}

func (h *handlers) handleRegenerateAudio(c *gin.Context) {
	panel, ok := panelParam(c)
	if !ok {
		return
	}
	var req pipeline.AudioOverride
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	a, err := h.svc.RegenerateAudio(c.Request.Context(), c.Param("id"), panel, req)
	if err != nil {
		if a != nil {
			// provider failure: the failed record is stored and returned
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "audio": a})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"audio": a})
}

func (h *handlers) handleOverride(c *gin.Context) {
	panel, ok := panelParam(c)
	if !ok {
		return
	}
	var patch types.InstructionOverride
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	inst, err := h.svc.ApplyOverride(c.Request.Context(), c.Param("id"), panel, &patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"instruction": inst, "resolved": inst.Resolved()})
}

func (h *handlers) handleClearOverride(c *gin.Context) {
	panel, ok := panelParam(c)
	if !ok {
		return
	}
	inst, err := h.svc.ClearOverride(c.Request.Context(), c.Param("id"), panel)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"instruction": inst})
}

func (h *handlers) handleApprovePanel(c *gin.Context) {
	panel, ok := panelParam(c)
	if !ok {
		return
	}
	var req ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	facet, err := approval.ParseFacet(req.Facet)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	approved, err := h.svc.Approve(c.Request.Context(), c.Param("id"), facet, []int{panel})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"facet": facet, "approved_panels": approved})
}

func (h *handlers) handlePreview(c *gin.Context) {
	panel, ok := panelParam(c)
	if !ok {
		return
	}
	objectPath, err := h.svc.Preview(c.Request.Context(), c.Param("id"), panel)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := gin.H{"preview_path": objectPath}
	if url := h.link(c, objectPath); url != "" {
		resp["url"] = url
	}
	c.JSON(http.StatusOK, resp)
}
