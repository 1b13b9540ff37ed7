package cli

import (
	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/gba/internal/app"
	"github.com/YoshitsuguKoike/gba/internal/application/usecase/run"
	"github.com/YoshitsuguKoike/gba/internal/infra/persistence/file"
)

func newStatusCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <feature-slug>",
		Short: "Show the recorded progress of a feature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, repo, err := g.loadSettings(nil)
			if err != nil {
				return err
			}
			logger, err := newLogger(cmd, settings)
			if err != nil {
				return err
			}

			paths := app.ResolvePaths(repo, settings.Artifacts.Dir, settings.Journal.Path)
			store := file.NewYAMLRecordStore(g.fs, paths.Home, logger)
			p := g.presenter(cmd.OutOrStdout())

			status, err := run.NewFeatureStatusUseCase(store).Execute(cmd.Context(), args[0])
			if err != nil {
				_ = p.PresentError(err)
				return &ExitError{Code: exitFailed, Err: err}
			}
			return p.PresentSuccess("", status)
		},
	}
}
