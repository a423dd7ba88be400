package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// Job describes one site crawl. It is read from a JSON5 file or built from
// command-line flags and prompts.
type Job struct {
	URL      string `json:"url"`
	Mode     string `json:"mode"`
	Tag      string `json:"tag,omitempty"`
	Class    string `json:"class,omitempty"`
	Output   string `json:"output,omitempty"`
	MaxPages int    `json:"max_pages,omitempty"`
}

// ReadJob reads a job file. Values from <name>.local.<ext> next to it,
// if present, override the base file.
// At least one of the two files must exist.
func ReadJob(name string) (Job, error) {
	var out Job
	found := false

	base, err := os.ReadFile(name)
	if err != nil && !os.IsNotExist(err) {
		return out, fmt.Errorf("config: read job %s: %w", name, err)
	}
	if len(base) > 0 {
		if err := json5.Unmarshal(base, &out); err != nil {
			return out, fmt.Errorf("config: parse job %s: %w", name, err)
		}
		found = true
	}

	localName := localPath(name)
	local, err := os.ReadFile(localName)
	if err != nil && !os.IsNotExist(err) {
		return out, fmt.Errorf("config: read job %s: %w", localName, err)
	}
	if len(local) > 0 {
		var override Job
		if err := json5.Unmarshal(local, &override); err != nil {
			return out, fmt.Errorf("config: parse job %s: %w", localName, err)
		}
		if err := mergo.Merge(&out, override, mergo.WithOverride); err != nil {
			return out, fmt.Errorf("config: merge job overrides: %w", err)
		}
		slog.Info("merging job with local overrides", "local", localName)
		found = true
	}

	if !found {
		return out, fmt.Errorf("config: job %s: %w", name, os.ErrNotExist)
	}
	return out, nil
}

// localPath turns "dir/job.json5" into "dir/job.local.json5".
func localPath(name string) string {
	dir := filepath.Dir(name)
	base := filepath.Base(name)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return filepath.Join(dir, stem+".local"+ext)
}
