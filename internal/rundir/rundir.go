// Package rundir manages the per-run artifact directory: every stage writes
// its raw and parsed output here before the next stage starts, so a run can
// be audited or replayed from disk alone.
package rundir

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RunDir is one run's artifact directory.
type RunDir struct {
	root string
}

// New creates a timestamped run directory under baseDir, e.g.
// output/2026-08-30T10-15-00Z_1a2b3c4d.
func New(baseDir, experimentID string) (*RunDir, error) {
	timestamp := strings.NewReplacer(":", "-", ".", "-").Replace(time.Now().UTC().Format(time.RFC3339))
	shortID := experimentID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}

	root := filepath.Join(baseDir, fmt.Sprintf("%s_%s", timestamp, shortID))
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}
	return &RunDir{root: root}, nil
}

// Open wraps an existing directory without creating anything.
func Open(root string) *RunDir {
	return &RunDir{root: root}
}

// Root returns the absolute-or-relative root path of the run directory.
func (r *RunDir) Root() string {
	return r.root
}

// WriteJSON writes v as indented JSON at the given path relative to the run
// directory, creating parent directories as needed.
func (r *RunDir) WriteJSON(relative string, v any) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", relative, err)
	}
	return r.WriteFile(relative, append(payload, '\n'))
}

// WriteFile writes raw bytes at the given path relative to the run directory.
func (r *RunDir) WriteFile(relative string, data []byte) error {
	target := filepath.Join(r.root, relative)
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", relative, err)
	}
	if err := os.WriteFile(target, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", relative, err)
	}
	return nil
}

// Path returns the full path of a file inside the run directory.
func (r *RunDir) Path(segments ...string) string {
	return filepath.Join(append([]string{r.root}, segments...)...)
}

// Well-known artifact paths.
const (
	ContextFile    = "context.json"
	PersonasFile   = "personas.json"
	ScoresFile     = "scores.json"
	ExperimentFile = "experiment.json"
	AssetsSummary  = "assets/summary.json"
)

// PatchFile returns the artifact path for batch index i (1-based on disk).
func PatchFile(i int) string {
	return filepath.Join("patches", fmt.Sprintf("patch_%d.json", i+1))
}

// BriefFile returns the artifact path for one idea's asset brief.
func BriefFile(scriptID string) string {
	return filepath.Join("assets", "briefs", scriptID+".json")
}

// ImageFile returns the artifact path for one idea's generated image.
func ImageFile(scriptID string) string {
	return filepath.Join("assets", "images", scriptID+".png")
}

// VideoFile returns the artifact path for one idea's generated video.
func VideoFile(scriptID string) string {
	return filepath.Join("assets", "videos", scriptID+".mp4")
}
