package run

import (
	"context"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/YoshitsuguKoike/gba/internal/application/port/output"
)

// saveArtifact stores agent output or hook logs. Storage problems never fail
// the run; they are logged and dropped.
func (uc *RunFeatureUseCase) saveArtifact(
	ctx context.Context,
	st *runState,
	kind output.ArtifactType,
	name string,
	content []byte,
	meta map[string]string,
) {
	if uc.artifacts == nil {
		return
	}
	if meta == nil {
		meta = map[string]string{}
	}
	meta["slug"] = st.slug

	_, err := uc.artifacts.SaveArtifact(context.WithoutCancel(ctx), output.SaveArtifactRequest{
		RunID:        st.runID,
		ArtifactType: kind,
		Name:         name,
		Content:      content,
		Metadata:     meta,
		ContentType:  "text/plain",
	})
	if err != nil {
		st.log.Warn("failed to save artifact", zap.String("name", name), zap.Error(err))
	}
}

// mirrorRecord copies the record just saved into the artifact store
func (uc *RunFeatureUseCase) mirrorRecord(ctx context.Context, st *runState) {
	if uc.artifacts == nil {
		return
	}
	data, err := yaml.Marshal(st.record)
	if err != nil {
		st.log.Warn("failed to marshal record snapshot", zap.Error(err))
		return
	}
	_, err = uc.artifacts.SaveArtifact(ctx, output.SaveArtifactRequest{
		RunID:        st.runID,
		ArtifactType: output.ArtifactTypeRecord,
		Name:         "phases.yaml",
		Content:      data,
		Metadata:     map[string]string{"slug": st.slug},
		ContentType:  "application/yaml",
	})
	if err != nil {
		st.log.Warn("failed to mirror record", zap.Error(err))
	}
}
