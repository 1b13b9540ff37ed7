package agent

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/gba/internal/application/port/output"
	"github.com/YoshitsuguKoike/gba/internal/embed"
)

// PromptRenderer renders prompt templates. Files under the include
// directories override the built-in prompts; the first match wins.
type PromptRenderer struct {
	fs          afero.Fs
	includeDirs []string

	mu    sync.RWMutex
	cache map[output.PromptKey]*template.Template
}

// NewPromptRenderer creates a renderer that checks includeDirs in order
func NewPromptRenderer(fs afero.Fs, includeDirs ...string) *PromptRenderer {
	return &PromptRenderer{
		fs:          fs,
		includeDirs: includeDirs,
		cache:       make(map[output.PromptKey]*template.Template),
	}
}

var promptFuncs = template.FuncMap{
	"join": strings.Join,
	"trim": strings.TrimSpace,
}

// Render executes the template for key with vars
func (r *PromptRenderer) Render(key output.PromptKey, vars map[string]interface{}) (string, error) {
	tmpl, err := r.template(key)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", key, err)
	}
	return buf.String(), nil
}

// Source reports where the template for key is loaded from
func (r *PromptRenderer) Source(key output.PromptKey) string {
	if path, ok := r.override(key); ok {
		return path
	}
	return "built-in"
}

func (r *PromptRenderer) template(key output.PromptKey) (*template.Template, error) {
	r.mu.RLock()
	tmpl, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	content, err := r.load(key)
	if err != nil {
		return nil, err
	}
	tmpl, err = template.New(string(key)).Funcs(promptFuncs).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("compile prompt %s: %w", key, err)
	}

	r.mu.Lock()
	r.cache[key] = tmpl
	r.mu.Unlock()
	return tmpl, nil
}

func (r *PromptRenderer) load(key output.PromptKey) ([]byte, error) {
	if path, ok := r.override(key); ok {
		content, err := afero.ReadFile(r.fs, path)
		if err != nil {
			return nil, fmt.Errorf("read prompt override %s: %w", path, err)
		}
		return content, nil
	}
	return embed.PromptTemplate(string(key))
}

func (r *PromptRenderer) override(key output.PromptKey) (string, bool) {
	if r.fs == nil {
		return "", false
	}
	for _, dir := range r.includeDirs {
		path := filepath.Join(dir, embed.PromptPath(string(key)))
		if ok, _ := afero.Exists(r.fs, path); ok {
			return path, true
		}
	}
	return "", false
}
