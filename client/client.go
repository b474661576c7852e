package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"comicreel/types"
)

// Client talks to the comic reel HTTP API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client; an empty baseURL falls back to API_URL
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = GetEnvOrDefault("API_URL", "http://localhost:8080")
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

// GetEnvOrDefault returns the value of an environment variable or a default value
func GetEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// NewProject describes the files of a project to upload
type NewProject struct {
	Metadata      types.ComicMetadata
	ImagePath     string
	MusicPath     string
	AspectRatio   string
	NarratorVoice string
}

// CreateProject uploads the comic image and metadata
func (c *Client) CreateProject(ctx context.Context, in NewProject) (*types.Project, error) {
	meta, err := json.Marshal(in.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fields := map[string]string{
		"metadata":       string(meta),
		"aspect_ratio":   in.AspectRatio,
		"narrator_voice": in.NarratorVoice,
	}
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := w.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	if err := attach(w, "image", in.ImagePath); err != nil {
		return nil, err
	}
	if in.MusicPath != "" {
		if err := attach(w, "music", in.MusicPath); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/projects", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var p types.Project
	if err := c.do(req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func attach(w *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", field, err)
	}
	defer f.Close()
	part, err := w.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(part, f)
	return err
}

// StatusResult is the project status plus a signed video link when available
type StatusResult struct {
	Project       types.StatusResponse `json:"project"`
	FinalVideoURL string               `json:"final_video_url,omitempty"`
}

func (c *Client) Status(ctx context.Context, projectID string) (*StatusResult, error) {
	var out StatusResult
	if err := c.doJSONRequest(ctx, http.MethodGet, "/api/projects/"+projectID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Panel mirrors one entry of the panels listing
type Panel struct {
	PanelNumber int                     `json:"panel_number"`
	Instruction *types.PanelInstruction `json:"instruction,omitempty"`
	Resolved    *types.PanelInstruction `json:"resolved,omitempty"`
	Audio       *types.PanelAudio       `json:"audio,omitempty"`
	Placed      bool                    `json:"placed"`
}

func (c *Client) Panels(ctx context.Context, projectID string) ([]Panel, error) {
	var out struct {
		Panels []Panel `json:"panels"`
	}
	if err := c.doJSONRequest(ctx, http.MethodGet, "/api/projects/"+projectID+"/panels", nil, &out); err != nil {
		return nil, err
	}
	return out.Panels, nil
}

// Start queues process, audio, direct or render
func (c *Client) Start(ctx context.Context, projectID, action string) error {
	return c.doJSONRequest(ctx, http.MethodPost, "/api/projects/"+projectID+"/"+action, nil, nil)
}

func (c *Client) Cancel(ctx context.Context, projectID string) error {
	return c.doJSONRequest(ctx, http.MethodPost, "/api/projects/"+projectID+"/cancel", nil, nil)
}

// Approve approves facet ("audio", "instructions" or "both") for panels; none means all
func (c *Client) Approve(ctx context.Context, projectID, facet string, panels []int) ([]int, error) {
	payload := map[string]any{"facet": facet, "panels": panels}
	var out struct {
		Approved []int `json:"approved_panels"`
	}
	if err := c.doJSONRequest(ctx, http.MethodPost, "/api/projects/"+projectID+"/approve", payload, &out); err != nil {
		return nil, err
	}
	return out.Approved, nil
}

func (c *Client) panelPath(projectID string, panel int, suffix string) string {
	return "/api/projects/" + projectID + "/panels/" + strconv.Itoa(panel) + suffix
}

// Override applies a partial instruction override
func (c *Client) Override(ctx context.Context, projectID string, panel int, patch types.InstructionOverride) (*types.PanelInstruction, error) {
	var out struct {
		Instruction *types.PanelInstruction `json:"instruction"`
	}
	if err := c.doJSONRequest(ctx, http.MethodPatch, c.panelPath(projectID, panel, "/instruction"), patch, &out); err != nil {
		return nil, err
	}
	return out.Instruction, nil
}

func (c *Client) ClearOverride(ctx context.Context, projectID string, panel int) error {
	return c.doJSONRequest(ctx, http.MethodDelete, c.panelPath(projectID, panel, "/instruction/override"), nil, nil)
}

// RegenerateAudio narrates a panel again; empty text and voice keep the defaults
func (c *Client) RegenerateAudio(ctx context.Context, projectID string, panel int, text, voiceID string) (*types.PanelAudio, error) {
	payload := map[string]string{"text": text, "voice_id": voiceID}
	var out struct {
		Audio *types.PanelAudio `json:"audio"`
	}
	if err := c.doJSONRequest(ctx, http.MethodPost, c.panelPath(projectID, panel, "/audio"), payload, &out); err != nil {
		return nil, err
	}
	return out.Audio, nil
}

// Preview renders a single panel and returns its object path
func (c *Client) Preview(ctx context.Context, projectID string, panel int) (string, error) {
	var out struct {
		Path string `json:"preview_path"`
		URL  string `json:"url"`
	}
	if err := c.doJSONRequest(ctx, http.MethodPost, c.panelPath(projectID, panel, "/preview"), nil, &out); err != nil {
		return "", err
	}
	if out.URL != "" {
		return out.URL, nil
	}
	return out.Path, nil
}

// WaitForStatus polls until the project reaches one of the given statuses or fails
func (c *Client) WaitForStatus(ctx context.Context, projectID string, interval time.Duration, want ...types.ProjectStatus) (*StatusResult, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		st, err := c.Status(ctx, projectID)
		if err != nil {
			return nil, err
		}
		for _, w := range want {
			if st.Project.Status == w {
				return st, nil
			}
		}
		if st.Project.Status == types.StatusFailed {
			return st, fmt.Errorf("project %s failed: %s", projectID, st.Project.Error)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
