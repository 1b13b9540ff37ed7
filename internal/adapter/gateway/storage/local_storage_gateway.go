package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/gba/internal/application/port/output"
	"github.com/YoshitsuguKoike/gba/internal/infra/persistence/file"
)

const (
	contentFile  = "content"
	metadataFile = "metadata.json"
)

// LocalStorageGateway implements ArtifactGateway on a filesystem
// Directory structure: <baseDir>/<runID>/<artifactID>/
//   - content: actual artifact content
//   - metadata.json: artifact metadata
type LocalStorageGateway struct {
	fs      afero.Fs
	baseDir string // e.g. .gba/var/artifacts
}

// NewLocalStorageGateway creates a new filesystem-based artifact gateway
func NewLocalStorageGateway(fs afero.Fs, baseDir string) (*LocalStorageGateway, error) {
	if err := fs.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create artifacts directory: %w", err)
	}

	return &LocalStorageGateway{
		fs:      fs,
		baseDir: baseDir,
	}, nil
}

// SaveArtifact saves an artifact under its run directory
func (g *LocalStorageGateway) SaveArtifact(ctx context.Context, req output.SaveArtifactRequest) (*output.ArtifactMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.RunID == "" {
		return nil, fmt.Errorf("artifact run ID is required")
	}

	artifactID := newArtifactID()
	artifactDir := filepath.Join(g.baseDir, req.RunID, artifactID)
	if err := g.fs.MkdirAll(artifactDir, 0755); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}

	contentPath := filepath.Join(artifactDir, contentFile)
	if err := file.WriteFileAtomic(g.fs, contentPath, req.Content, 0644); err != nil {
		return nil, fmt.Errorf("write artifact content: %w", err)
	}

	metadata := output.ArtifactMetadata{
		ID:          artifactID,
		RunID:       req.RunID,
		Name:        req.Name,
		Type:        req.ArtifactType,
		StoragePath: contentPath,
		ContentType: req.ContentType,
		Size:        int64(len(req.Content)),
		UploadedAt:  time.Now().UTC(),
		Metadata:    req.Metadata,
	}

	metadataJSON, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	if err := file.WriteFileAtomic(g.fs, filepath.Join(artifactDir, metadataFile), metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("write metadata: %w", err)
	}

	return &metadata, nil
}

// LoadArtifact finds an artifact by ID across all runs
func (g *LocalStorageGateway) LoadArtifact(ctx context.Context, artifactID string) (*output.Artifact, error) {
	runs, err := afero.ReadDir(g.fs, g.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read artifacts directory: %w", err)
	}

	for _, run := range runs {
		if !run.IsDir() {
			continue
		}
		dir := filepath.Join(g.baseDir, run.Name(), artifactID)
		if ok, _ := afero.DirExists(g.fs, dir); !ok {
			continue
		}

		metadata, err := g.readMetadata(dir)
		if err != nil {
			return nil, err
		}
		content, err := afero.ReadFile(g.fs, filepath.Join(dir, contentFile))
		if err != nil {
			return nil, fmt.Errorf("read content: %w", err)
		}
		return &output.Artifact{ID: artifactID, Content: content, Metadata: *metadata}, nil
	}

	return nil, fmt.Errorf("artifact not found: %s", artifactID)
}

// ListArtifacts lists the artifacts of a run in creation order
func (g *LocalStorageGateway) ListArtifacts(ctx context.Context, runID string) ([]*output.ArtifactMetadata, error) {
	runDir := filepath.Join(g.baseDir, runID)
	entries, err := afero.ReadDir(g.fs, runDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*output.ArtifactMetadata{}, nil
		}
		return nil, fmt.Errorf("read run artifacts directory: %w", err)
	}

	list := make([]*output.ArtifactMetadata, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		metadata, err := g.readMetadata(filepath.Join(runDir, entry.Name()))
		if err != nil {
			// Skip artifacts with missing or invalid metadata
			continue
		}
		list = append(list, metadata)
	}

	sortByID(list)
	return list, nil
}

func (g *LocalStorageGateway) readMetadata(dir string) (*output.ArtifactMetadata, error) {
	data, err := afero.ReadFile(g.fs, filepath.Join(dir, metadataFile))
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	var metadata output.ArtifactMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return &metadata, nil
}

// newArtifactID returns a ULID; lexical order follows creation time
func newArtifactID() string {
	return ulid.Make().String()
}

func sortByID(list []*output.ArtifactMetadata) {
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
}

var _ output.ArtifactGateway = (*LocalStorageGateway)(nil)
