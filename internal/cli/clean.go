package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

type cleanOptions struct {
	build      bool
	workCopies bool
}

// cleanResult is the JSON form of the clean command.
type cleanResult struct {
	Source     string   `json:"source"`
	Stderr     string   `json:"stderr,omitempty"`
	BuildDir   string   `json:"build_dir,omitempty"`
	WorkCopies []string `json:"work_copies,omitempty"`
}

// AddCleanCommand adds the clean command to the root command.
func AddCleanCommand(root *cobra.Command, flags *GlobalFlags, deps *appDeps) {
	opts := &cleanOptions{}

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Clean the source tree",
		Long: `Run the build tool's clean target in the source tree. --build also removes
the build folder and --work-copies removes working copies left in the
temp directory by interrupted runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runClean(cmd, flags, deps, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.build, "build", false, "remove the build folder")
	cmd.Flags().BoolVar(&opts.workCopies, "work-copies", false, "remove stale working copies")

	root.AddCommand(cmd)
}

func runClean(cmd *cobra.Command, flags *GlobalFlags, deps *appDeps, opts *cleanOptions) error {
	ctx := cmd.Context()
	s, err := newSession(cmd, flags, deps, nil, "")
	if err != nil {
		return err
	}
	ws, err := s.workspaces()
	if err != nil {
		return err
	}
	builder := s.builder(nil, false)

	res, err := builder.Clean(ctx, ws.Source())
	if err != nil {
		return err
	}
	out := cleanResult{Source: ws.Source(), Stderr: strings.TrimSpace(res.Stderr)}

	if opts.build {
		out.BuildDir = builder.Options().OutputDir
		if err := os.RemoveAll(out.BuildDir); err != nil {
			return fmt.Errorf("failed to remove build folder: %w", err)
		}
	}
	if opts.workCopies {
		if out.WorkCopies, err = ws.RemoveStale(ctx); err != nil {
			return err
		}
	}

	if isJSON(flags) {
		return s.out.JSON(out)
	}
	if out.Stderr != "" {
		s.out.Warning(fmt.Sprintf("%s clean reported: %s", s.cfg.Build.Command, out.Stderr))
	} else {
		s.out.Success("cleaned " + out.Source)
	}
	if out.BuildDir != "" {
		s.out.Success("removed " + out.BuildDir)
	}
	for _, p := range out.WorkCopies {
		s.out.Success("removed " + p)
	}
	return nil
}
