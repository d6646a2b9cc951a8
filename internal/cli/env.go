package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/mqomctl/internal/constants"
	"github.com/mrz1836/mqomctl/internal/matrix"
)

// envResult is the JSON form of the env command.
type envResult struct {
	Variant string            `json:"variant"`
	Env     map[string]string `json:"env"`
}

// AddEnvCommand adds the env command to the root command.
func AddEnvCommand(root *cobra.Command, flags *GlobalFlags, deps *appDeps) {
	var full bool

	cmd := &cobra.Command{
		Use:   "env <label>",
		Short: "Print the compiler flags of one variant",
		Long: `Print a shell export of EXTRA_CFLAGS for one exact variant, combining the
configured base flags with the variant's four parameter definitions. With
--full the build destination and executable prefix are exported too.`,
		Example: `  eval "$(mqomctl env cat1_gf256_fast_r3)" && make bench`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := matrix.Lookup(args[0])
			if err != nil {
				return err
			}
			s, err := newSession(cmd, flags, deps, nil, "")
			if err != nil {
				return err
			}

			env := s.builder(nil, true).Env(v)
			if !full {
				env = env[:1]
			}

			if isJSON(flags) {
				res := envResult{Variant: v.Label(), Env: make(map[string]string, len(env))}
				for _, kv := range env {
					key, value, _ := strings.Cut(kv, "=")
					res.Env[key] = value
				}
				return s.out.JSON(res)
			}
			for _, kv := range env {
				key, value, _ := strings.Cut(kv, "=")
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "export %s=%q\n", key, value)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "also export "+constants.EnvDestinationPath+" and "+constants.EnvPrefixExec)

	root.AddCommand(cmd)
}
