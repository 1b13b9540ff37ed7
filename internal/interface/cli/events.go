package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/gba/internal/app"
	"github.com/YoshitsuguKoike/gba/internal/application/usecase/run"
	"github.com/YoshitsuguKoike/gba/internal/infrastructure/di"
	sqliterepo "github.com/YoshitsuguKoike/gba/internal/infrastructure/persistence/sqlite"
)

func newEventsCmd(g *globalOptions) *cobra.Command {
	var feature, artifactID string

	cmd := &cobra.Command{
		Use:   "events [run-id]",
		Short: "List recorded runs, or the events of one run",
		Long: `Without arguments, events lists recorded runs, newest first; --feature limits
the list to one feature. With a run ID it prints every event of that run in order,
followed by the agent output and hook logs stored for it. --artifact prints the
content of one stored artifact.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, repo, err := g.loadSettings(nil)
			if err != nil {
				return err
			}
			if !settings.Journal.Enabled {
				return fmt.Errorf("the event journal is disabled (journal.enabled=false)")
			}

			ctx := cmd.Context()
			paths := app.ResolvePaths(repo, settings.Artifacts.Dir, settings.Journal.Path)
			db, err := sqliterepo.Open(ctx, paths.Journal)
			if err != nil {
				return err
			}
			defer db.Close()

			journal := sqliterepo.NewEventJournal(db)
			p := g.presenter(cmd.OutOrStdout())

			if len(args) == 0 && artifactID == "" {
				runs, err := journal.ListRuns(ctx, feature)
				if err != nil {
					return err
				}
				return p.PresentSuccess("", runs)
			}

			artifacts, err := di.NewArtifactGateway(ctx, settings, g.fs, paths.Artifacts)
			if err != nil {
				return err
			}
			uc := run.NewRunEventsUseCase(journal, artifacts)

			if artifactID != "" {
				artifact, err := uc.Artifact(ctx, artifactID)
				if err != nil {
					return err
				}
				if g.output == di.OutputJSON {
					return p.PresentSuccess("", artifact)
				}
				_, err = cmd.OutOrStdout().Write(artifact.Content)
				return err
			}

			events, err := uc.Execute(ctx, args[0])
			if err != nil {
				return err
			}
			return p.PresentSuccess("", events)
		},
	}

	cmd.Flags().StringVar(&feature, "feature", "", "Only list runs of this feature slug")
	cmd.Flags().StringVar(&artifactID, "artifact", "", "Print the content of a stored artifact")
	return cmd
}
