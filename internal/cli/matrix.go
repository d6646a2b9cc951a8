package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mrz1836/mqomctl/internal/matrix"
	"github.com/mrz1836/mqomctl/internal/tui"
)

// matrixEntry describes one listed variant.
type matrixEntry struct {
	matrix.Variant `yaml:",inline"`

	Label        string   `json:"label" yaml:"label"`
	SecurityBits int      `json:"security_bits" yaml:"security_bits"`
	Defines      []string `json:"defines" yaml:"defines"`
}

// AddMatrixCommand adds the matrix command to the root command.
func AddMatrixCommand(root *cobra.Command, flags *GlobalFlags) {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "matrix [selector]...",
		Short: "List the variants a selection expands to",
		Long: `List the parameter variants matched by the given selectors, every variant
when none is given. Use --list-selectors to print the selector vocabulary.`,
		Example: `  mqomctl matrix cat1_gf256
  mqomctl matrix all -o json
  mqomctl matrix cat5 --yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listSelectors, _ := cmd.Flags().GetBool("list-selectors"); listSelectors {
				_, err := cmd.OutOrStdout().Write([]byte(strings.Join(matrix.Vocabulary(), "\n") + "\n"))
				return err
			}

			variants := matrix.All()
			if len(args) > 0 {
				var err error
				if variants, err = selectVariants(args); err != nil {
					return err
				}
			}
			entries := matrixEntries(variants)

			if asYAML {
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				if err := enc.Encode(entries); err != nil {
					return err
				}
				return enc.Close()
			}

			out := tui.NewOutput(cmd.OutOrStdout(), flags.Output)
			if isJSON(flags) {
				return out.JSON(entries)
			}
			out.Table(matrixTable(entries))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print the variants as YAML")
	cmd.Flags().Bool("list-selectors", false, "print every valid selector")

	root.AddCommand(cmd)
}

func matrixEntries(variants []matrix.Variant) []matrixEntry {
	entries := make([]matrixEntry, 0, len(variants))
	for _, v := range variants {
		entries = append(entries, matrixEntry{
			Variant:      v,
			Label:        v.Label(),
			SecurityBits: v.Category.SecurityBits(),
			Defines:      v.Defines(),
		})
	}
	return entries
}

func matrixTable(entries []matrixEntry) ([]string, [][]string) {
	headers := []string{"label", "category", "field", "trade_off", "rounds", "security_bits"}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.Label,
			string(e.Category),
			string(e.Field),
			string(e.TradeOff),
			string(e.Rounds),
			strconv.Itoa(e.SecurityBits),
		})
	}
	return headers, rows
}
