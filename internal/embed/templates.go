package embed

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

//go:embed templates/prompts/*/*
var templatesFS embed.FS

const promptRoot = "templates/prompts"

// Template represents a template file to be written
type Template struct {
	Path    string
	Content []byte
	Mode    os.FileMode
}

// PromptPath returns the file name of a prompt key relative to a prompts
// directory, e.g. "code/task" -> "code/task.md"
func PromptPath(key string) string {
	return filepath.FromSlash(key) + ".md"
}

// PromptTemplate returns the built-in template for a prompt key
func PromptTemplate(key string) ([]byte, error) {
	content, err := templatesFS.ReadFile(promptRoot + "/" + key + ".md.tmpl")
	if err != nil {
		return nil, fmt.Errorf("no built-in prompt %q: %w", key, err)
	}
	return content, nil
}

// GetTemplates returns all built-in prompts, with paths relative to a prompts directory
func GetTemplates() ([]Template, error) {
	var templates []Template

	err := fs.WalkDir(templatesFS, promptRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		content, err := templatesFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		// Remove the root prefix and ".tmpl" suffix for the destination path
		destPath := strings.TrimPrefix(path, promptRoot+"/")
		destPath = strings.TrimSuffix(destPath, ".tmpl")

		templates = append(templates, Template{
			Path:    filepath.FromSlash(destPath),
			Content: content,
			Mode:    0644,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return templates, nil
}

// WriteTemplateResult represents the result of writing a template
type WriteTemplateResult struct {
	Path   string
	Action string // "WROTE", "SKIP", "WROTE (force)"
}

// WriteTemplate writes a template file atomically and returns the action taken
func WriteTemplate(afs afero.Fs, baseDir string, tmpl Template, force bool) (*WriteTemplateResult, error) {
	fullPath := filepath.Join(baseDir, tmpl.Path)
	result := &WriteTemplateResult{Path: tmpl.Path}

	dir := filepath.Dir(fullPath)
	if err := afs.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	exists, err := afero.Exists(afs, fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", fullPath, err)
	}
	if exists && !force {
		result.Action = "SKIP"
		return result, nil
	}

	tmpFile := fullPath + ".tmp"
	if err := afero.WriteFile(afs, tmpFile, tmpl.Content, tmpl.Mode); err != nil {
		return nil, fmt.Errorf("failed to write temp file %s: %w", tmpFile, err)
	}

	if err := afs.Rename(tmpFile, fullPath); err != nil {
		_ = afs.Remove(tmpFile)
		return nil, fmt.Errorf("failed to rename %s to %s: %w", tmpFile, fullPath, err)
	}

	if force && exists {
		result.Action = "WROTE (force)"
	} else {
		result.Action = "WROTE"
	}
	return result, nil
}
