package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/gba/internal/app"
	"github.com/YoshitsuguKoike/gba/internal/embed"
)

func newPromptsCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompts",
		Short: "Manage prompt templates",
	}
	cmd.AddCommand(newPromptsExportCmd(g))
	return cmd
}

func newPromptsExportCmd(g *globalOptions) *cobra.Command {
	var (
		force bool
		dir   string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the built-in prompts to .gba/prompts for editing",
		Long: `Export writes every built-in prompt template to .gba/prompts (or --dir).
Files found there override the built-in prompts on the next run. Existing
files are kept unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := g.repoDir()
			if err != nil {
				return err
			}
			target := dir
			switch {
			case target == "":
				target = filepath.Join(repo, app.HomeDirName, "prompts")
			case !filepath.IsAbs(target):
				target = filepath.Join(repo, target)
			}

			templates, err := embed.GetTemplates()
			if err != nil {
				return err
			}

			p := g.presenter(cmd.OutOrStdout())
			for i, tmpl := range templates {
				result, err := embed.WriteTemplate(g.fs, target, tmpl, force)
				if err != nil {
					return err
				}
				if err := p.PresentProgress(fmt.Sprintf("%-14s %s", result.Action, result.Path), i+1, len(templates)); err != nil {
					return err
				}
			}
			return p.PresentSuccess(fmt.Sprintf("prompts exported to %s", target), nil)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing prompt files")
	cmd.Flags().StringVar(&dir, "dir", "", "Target directory (default .gba/prompts)")
	return cmd
}
