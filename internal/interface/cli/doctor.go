package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/gba/internal/application/dto"
	"github.com/YoshitsuguKoike/gba/internal/application/port/output"
	"github.com/YoshitsuguKoike/gba/internal/infrastructure/di"
)

var errUnhealthy = errors.New("one or more checks failed")

func newDoctorCmd(g *globalOptions) *cobra.Command {
	var skipAgent bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, repository and agent",
		Long: `Doctor loads the configuration, wires every component and reports whether the
repository, the agent, the prompts and the event journal are usable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := g.presenter(cmd.OutOrStdout())

			container, err := g.newContainer(cmd.Context(), cmd, nil)
			if err != nil {
				report := &dto.DoctorReport{Checks: []dto.DoctorCheck{{Name: "config", Detail: err.Error()}}}
				_ = p.PresentSuccess("", report)
				return &ExitError{Code: exitFailed, Err: err}
			}
			defer container.Close()

			report := runChecks(cmd.Context(), container, skipAgent)
			if err := p.PresentSuccess("", report); err != nil {
				return err
			}
			if !report.Healthy() {
				return &ExitError{Code: exitFailed, Err: errUnhealthy}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipAgent, "skip-agent", false, "Do not call the agent")
	return cmd
}

func runChecks(ctx context.Context, c *di.Container, skipAgent bool) *dto.DoctorReport {
	report := &dto.DoctorReport{}
	add := func(name string, err error, detail string) {
		check := dto.DoctorCheck{Name: name, OK: err == nil, Detail: detail}
		if err != nil {
			check.Detail = err.Error()
		}
		report.Checks = append(report.Checks, check)
	}

	paths := c.Paths()
	add("config", nil, paths.Config)

	branch, err := c.GetGitGateway().CurrentBranch(paths.Repo)
	add("repository", err, fmt.Sprintf("%s on %s", paths.Repo, branch))

	capability := c.GetAgentGateway().GetCapability()
	if skipAgent {
		add("agent", nil, capability.AgentType+" (not contacted)")
	} else {
		add("agent", c.GetAgentGateway().HealthCheck(ctx), capability.AgentType)
	}

	var overrides []string
	for _, key := range output.AllPromptKeys {
		if src := c.GetPromptRenderer().Source(key); src != "built-in" {
			overrides = append(overrides, string(key))
		}
	}
	if len(overrides) == 0 {
		add("prompts", nil, "built-in")
	} else {
		add("prompts", nil, "overridden: "+strings.Join(overrides, ", "))
	}

	if c.GetEventJournal() == nil {
		add("journal", nil, "disabled")
	} else {
		_, err := c.GetEventJournal().ListRuns(ctx, "")
		add("journal", err, paths.Journal)
	}

	if c.GetArtifactGateway() == nil {
		add("artifacts", nil, "disabled")
	} else {
		add("artifacts", nil, c.Settings().Artifacts.Backend)
	}
	return report
}
