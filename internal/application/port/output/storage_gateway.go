package output

import (
	"context"
	"time"
)

// ArtifactGateway is the interface for storing run artifacts
// Supports both local filesystem and cloud storage (S3)
type ArtifactGateway interface {
	// SaveArtifact persists an artifact
	SaveArtifact(ctx context.Context, req SaveArtifactRequest) (*ArtifactMetadata, error)

	// LoadArtifact retrieves an artifact
	LoadArtifact(ctx context.Context, artifactID string) (*Artifact, error)

	// ListArtifacts lists artifacts for a given run
	ListArtifacts(ctx context.Context, runID string) ([]*ArtifactMetadata, error)
}

// SaveArtifactRequest represents a request to save an artifact
type SaveArtifactRequest struct {
	RunID        string            // Associated run ID
	ArtifactType ArtifactType      // Type of artifact
	Name         string            // Human readable name, e.g. "phase-1-code-task"
	Content      []byte            // Artifact content
	Metadata     map[string]string // Additional metadata
	ContentType  string            // MIME type (optional)
}

// ArtifactType represents the type of artifact
type ArtifactType string

const (
	ArtifactTypeAgentOutput ArtifactType = "agent-output" // Agent transcript
	ArtifactTypeHookLog     ArtifactType = "hook-log"     // Hook stdout/stderr
	ArtifactTypeRecord      ArtifactType = "record"       // Execution record snapshot
)

// Artifact represents a stored artifact
type Artifact struct {
	ID       string
	Content  []byte
	Metadata ArtifactMetadata
}

// ArtifactMetadata contains information about an artifact
type ArtifactMetadata struct {
	ID          string            `json:"id"`
	RunID       string            `json:"run_id"`
	Name        string            `json:"name"`
	Type        ArtifactType      `json:"type"`
	StoragePath string            `json:"storage_path"`
	ContentType string            `json:"content_type"`
	Size        int64             `json:"size"`
	UploadedAt  time.Time         `json:"uploaded_at"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}
