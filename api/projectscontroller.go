package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"

	"comicreel/approval"
	"comicreel/pipeline"
	"comicreel/storage"
	"comicreel/store"
	"comicreel/types"

	"github.com/gin-gonic/gin"
)

// linkTTL is how long signed download links stay valid
const linkTTL = time.Hour

type handlers struct {
	svc     *pipeline.Service
	objects storage.ObjectStore
}

func registerProjectRoutes(r *gin.Engine, h *handlers) {
	g := r.Group("/api/projects")
	g.POST("", h.handleCreateProject)
	g.GET("/:id", h.handleStatus)
	g.GET("/:id/panels", h.handlePanels)
	g.POST("/:id/process", h.handleStart(pipeline.ActionProcess))
	g.POST("/:id/audio", h.handleStart(pipeline.ActionAudio))
	g.POST("/:id/direct", h.handleStart(pipeline.ActionDirect))
	g.POST("/:id/render", h.handleStart(pipeline.ActionRender))
	g.POST("/:id/cancel", h.handleCancel)
	g.POST("/:id/approve", h.handleApprove)
}

// ApproveRequest approves one facet for a set of panels; no panels means all
type ApproveRequest struct {
	Facet  string `json:"facet"`
	Panels []int  `json:"panels"`
}

// handleCreateProject accepts multipart form fields:
// image (file), metadata (JSON text or file), music (optional file),
// aspect_ratio and narrator_voice
func (h *handlers) handleCreateProject(c *gin.Context) {
	image, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	raw, err := formJSON(c, "metadata")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var meta types.ComicMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid metadata: " + err.Error()})
		return
	}

	imageFile, err := image.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer imageFile.Close()

	in := pipeline.CreateInput{
		Metadata:      meta,
		Image:         imageFile,
		ImageExt:      filepath.Ext(image.Filename),
		AspectRatio:   c.PostForm("aspect_ratio"),
		NarratorVoice: c.PostForm("narrator_voice"),
	}
	if music, err := c.FormFile("music"); err == nil {
		musicFile, err := music.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		defer musicFile.Close()
		in.Music = musicFile
		in.MusicExt = filepath.Ext(music.Filename)
	}

	p, err := h.svc.CreateProject(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// formJSON reads a JSON form value, falling back to an uploaded file of the same name
func formJSON(c *gin.Context, field string) ([]byte, error) {
	if v := c.PostForm(field); v != "" {
		return []byte(v), nil
	}
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, errors.New(field + " is required")
	}
	return readFormFile(fh)
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (h *handlers) handleStatus(c *gin.Context) {
	status, err := h.svc.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	resp := gin.H{"project": status}
	if status.FinalVideoPath != "" {
		if url := h.link(c, status.FinalVideoPath); url != "" {
			resp["final_video_url"] = url
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handlers) handlePanels(c *gin.Context) {
	panels, err := h.svc.Panels(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"panels": panels})
}

func (h *handlers) handleStart(action pipeline.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := h.svc.Start(c.Request.Context(), id, action); err != nil {
			respondError(c, err)
			return
		}
		log.Printf("Accepted %s for project %s", action, id)
		c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "action": action, "project_id": id})
	}
}

func (h *handlers) handleCancel(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.Cancel(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelling", "project_id": id})
}

func (h *handlers) handleApprove(c *gin.Context) {
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
	approved, err := h.svc.Approve(c.Request.Context(), c.Param("id"), facet, req.Panels)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"facet": facet, "approved_panels": approved})
}

// link signs a download URL when the object backend can
func (h *handlers) link(c *gin.Context, objectPath string) string {
	linker, ok := h.objects.(storage.Linker)
	if !ok {
		return ""
	}
	url, err := linker.URL(c.Request.Context(), objectPath, linkTTL)
	if err != nil {
		log.Printf("sign %s: %v", objectPath, err)
		return ""
	}
	return url
}

// respondError maps pipeline errors to HTTP statuses
func respondError(c *gin.Context, err error) {
	var unapproved *approval.UnapprovedError
	switch {
	case errors.As(err, &unapproved):
		c.JSON(http.StatusConflict, gin.H{
			"error":                         err.Error(),
			"unapproved_panels":             unapproved.Panels(),
			"unapproved_audio_panels":       unapproved.Audio,
			"unapproved_instruction_panels": unapproved.Instructions,
		})
	case errors.Is(err, store.ErrNotFound), errors.Is(err, pipeline.ErrUnknownPanel):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, pipeline.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, pipeline.ErrBusy),
		errors.Is(err, pipeline.ErrNotRunning),
		errors.Is(err, pipeline.ErrNotDirected),
		errors.Is(err, pipeline.ErrAudioFailed),
		errors.Is(err, approval.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Printf("API error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
