// Package project models the on-disk layout of a voxreel project: a
// directory named after the project code holding the voice track and the
// per-stage output subdirectories.
package project

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// DefaultDirName is the default name for the voxreel home directory.
	DefaultDirName = ".voxreel"

	// ProjectsDirName is the subdirectory holding all projects.
	ProjectsDirName = "projects"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// AccountsFileName is the default FlowsLab accounts CSV.
	AccountsFileName = "accounts.csv"
)

// voiceExtensions are the audio formats accepted as a project voice track,
// in lookup order.
var voiceExtensions = []string{".mp3", ".wav"}

// Home is the voxreel home directory.
type Home struct {
	path string
}

// NewHome creates a Home at path, defaulting to ~/.voxreel when empty.
func NewHome(path string) (*Home, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}
	return &Home{path: path}, nil
}

// Path returns the root path of the home directory.
func (h *Home) Path() string { return h.path }

// ProjectsPath returns the directory holding all projects.
func (h *Home) ProjectsPath() string {
	return filepath.Join(h.path, ProjectsDirName)
}

// ConfigPath returns the path to the default config file.
func (h *Home) ConfigPath() string {
	return filepath.Join(h.path, ConfigFileName)
}

// AccountsPath returns the path to the accounts CSV.
func (h *Home) AccountsPath() string {
	return filepath.Join(h.path, AccountsFileName)
}

// ConfigExists reports whether the config file exists.
func (h *Home) ConfigExists() bool {
	_, err := os.Stat(h.ConfigPath())
	return err == nil
}

// EnsureExists creates the home directory tree.
func (h *Home) EnsureExists() error {
	if err := os.MkdirAll(h.ProjectsPath(), 0o755); err != nil {
		return fmt.Errorf("create projects directory: %w", err)
	}
	return nil
}

// Project returns the handle for the given project code (e.g. "KA1-0001").
func (h *Home) Project(code string) *Project {
	return &Project{code: code, path: filepath.Join(h.ProjectsPath(), code)}
}

// List returns the codes of all projects on disk, sorted.
func (h *Home) List() ([]string, error) {
	entries, err := os.ReadDir(h.ProjectsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read projects directory: %w", err)
	}
	var codes []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			codes = append(codes, e.Name())
		}
	}
	sort.Strings(codes)
	return codes, nil
}

// Project is one unit of work: a voice track plus everything generated
// from it.
type Project struct {
	code string
	path string
}

// Code returns the project code.
func (p *Project) Code() string { return p.code }

// Path returns the project root directory.
func (p *Project) Path() string { return p.path }

// Exists reports whether the project directory is on disk.
func (p *Project) Exists() bool {
	_, err := os.Stat(p.path)
	return err == nil
}

// SrtDir returns the subtitle directory.
func (p *Project) SrtDir() string { return filepath.Join(p.path, "srt") }

// SrtPath returns the project's subtitle file.
func (p *Project) SrtPath() string {
	return filepath.Join(p.SrtDir(), p.code+".srt")
}

// PromptsDir returns the prompt workbook directory.
func (p *Project) PromptsDir() string { return filepath.Join(p.path, "prompts") }

// WorkbookPath returns the prompt workbook file.
func (p *Project) WorkbookPath() string {
	return filepath.Join(p.PromptsDir(), p.code+"_prompts.xlsx")
}

// RefsDir returns the character reference image directory.
func (p *Project) RefsDir() string { return filepath.Join(p.path, "refs") }

// RefImagePath returns the reference image for a character id.
func (p *Project) RefImagePath(characterID string) string {
	return filepath.Join(p.RefsDir(), characterID+".png")
}

// ImagesDir returns the generated image directory.
func (p *Project) ImagesDir() string { return filepath.Join(p.path, "img") }

// ImagePath returns the output image for a scene.
func (p *Project) ImagePath(sceneID int) string {
	return filepath.Join(p.ImagesDir(), fmt.Sprintf("scene_%03d.png", sceneID))
}

// VideosDir returns the generated video directory.
func (p *Project) VideosDir() string { return filepath.Join(p.path, "vid") }

// VideoPath returns the output video for a scene.
func (p *Project) VideoPath(sceneID int) string {
	return filepath.Join(p.VideosDir(), fmt.Sprintf("scene_%03d.mp4", sceneID))
}

// LogsDir returns the per-project log directory.
func (p *Project) LogsDir() string { return filepath.Join(p.path, "logs") }

// EnsureStructure creates the project directory and all subdirectories.
func (p *Project) EnsureStructure() error {
	for _, dir := range []string{
		p.SrtDir(), p.PromptsDir(), p.RefsDir(), p.ImagesDir(), p.VideosDir(), p.LogsDir(),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// VoicePath returns the project's voice track, looking for <code>.mp3 then
// <code>.wav in the project root. Empty string when absent.
func (p *Project) VoicePath() string {
	for _, ext := range voiceExtensions {
		candidate := filepath.Join(p.path, p.code+ext)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// HasSrt reports whether the subtitle file exists.
func (p *Project) HasSrt() bool {
	_, err := os.Stat(p.SrtPath())
	return err == nil
}

// HasWorkbook reports whether the prompt workbook exists.
func (p *Project) HasWorkbook() bool {
	_, err := os.Stat(p.WorkbookPath())
	return err == nil
}
