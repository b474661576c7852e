package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"
)

// ErrObjectNotFound is returned by Get when nothing is stored at the path
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore addresses binary artifacts by opaque slash-separated paths
type ObjectStore interface {
	Put(ctx context.Context, path string, body io.Reader, contentType string) error
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	Exists(ctx context.Context, path string) (bool, error)
	Delete(ctx context.Context, path string) error
}

// Linker is implemented by stores that can hand out time-limited download URLs
type Linker interface {
	URL(ctx context.Context, path string, ttl time.Duration) (string, error)
}

// Content types used for stored artifacts
const (
	ContentTypeMP3 = "audio/mpeg"
	ContentTypeMP4 = "video/mp4"
	ContentTypePNG = "image/png"
	ContentTypeJPG = "image/jpeg"
)

// SourceImagePath is where a project's uploaded grid image lives
func SourceImagePath(projectID, ext string) string {
	return path.Join("projects", projectID, "source"+ext)
}

// MusicPath is where a project's background music track lives
func MusicPath(projectID, ext string) string {
	return path.Join("projects", projectID, "music"+ext)
}

// PanelAudioPath is the playable narration track of a panel
func PanelAudioPath(projectID string, panel int) string {
	return path.Join("projects", projectID, "audio", fmt.Sprintf("panel_%d.mp3", panel))
}

// SegmentAudioPath is one speaker clip of a multi-speaker panel
func SegmentAudioPath(projectID string, panel, segment int) string {
	return path.Join("projects", projectID, "audio", fmt.Sprintf("panel_%d_seg_%d.mp3", panel, segment))
}

// PreviewPath is the single-segment preview clip of a panel
func PreviewPath(projectID string, panel int) string {
	return path.Join("projects", projectID, "previews", fmt.Sprintf("panel_%d.mp4", panel))
}

// FinalVideoPath is the assembled video of a project
func FinalVideoPath(projectID string) string {
	return path.Join("projects", projectID, "final.mp4")
}

// PutFile uploads a local file
func PutFile(ctx context.Context, store ObjectStore, objectPath, localPath, contentType string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := store.Put(ctx, objectPath, f, contentType); err != nil {
		return fmt.Errorf("upload %s: %w", objectPath, err)
	}
	return nil
}

// Download copies an object into a local file, creating parent directories
func Download(ctx context.Context, store ObjectStore, objectPath, localPath string) error {
	body, err := store.Get(ctx, objectPath)
	if err != nil {
		return fmt.Errorf("download %s: %w", objectPath, err)
	}
	defer body.Close()

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return err
	}
	out, err := os.Create(localPath)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, body); err != nil {
		return fmt.Errorf("download %s: %w", objectPath, err)
	}
	return nil
}
