package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrz1836/mqomctl/internal/config"
	"github.com/mrz1836/mqomctl/internal/errors"
	"github.com/mrz1836/mqomctl/internal/tui"
)

// AddDoctorCommand adds the doctor command to the root command.
func AddDoctorCommand(root *cobra.Command, flags *GlobalFlags, deps *appDeps) {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the external tools the pipelines need",
		Long: `Check that the configured build tool, a C compiler and the memory
profiler are installed. The profiler is only needed by bench --memory and
the leak check of test, so a missing profiler is reported but not fatal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadWithOverrides(cmd.Context(), flags.Config, nil)
			if err != nil {
				return err
			}

			detector := config.NewToolDetector(cfg)
			if deps.tools != nil {
				detector = config.NewToolDetectorWithExecutor(cfg, deps.tools)
			}
			result, err := detector.Detect(cmd.Context())
			if err != nil {
				return err
			}

			out := tui.NewOutput(cmd.OutOrStdout(), flags.Output)
			if isJSON(flags) {
				if err := out.JSON(result); err != nil {
					return err
				}
			} else {
				rows := make([][]string, 0, len(result.Tools))
				for _, tool := range result.Tools {
					rows = append(rows, []string{
						tui.StatusIcon(tool.Status == config.ToolStatusInstalled) + " " + tool.Name,
						tool.Status.String(),
						tool.CurrentVersion,
						requiredLabel(tool.Required),
					})
				}
				out.Table([]string{"tool", "status", "version", "need"}, rows)
			}

			if result.HasMissingRequired {
				return fmt.Errorf("%w:\n%s", errors.ErrToolsMissing, config.FormatMissingToolsError(result.MissingRequiredTools()))
			}
			return nil
		},
	}

	root.AddCommand(cmd)
}

func requiredLabel(required bool) string {
	if required {
		return "required"
	}
	return "optional"
}
