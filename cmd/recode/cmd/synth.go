package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/recode/internal/netio"
)

func newSynthCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "synth text...",
		Short: "Write a synthetic output matrix that spells text",
		Long: `Write the output matrix a confident network would produce for text.
Every code of the text's encoding peaks for --steps timesteps; the rest of
each row's probability is spread over the other classes. The result is
JSON in the form read by decode.

Examples:
  recode synth hello > hello.json
  recode synth --peak 0.6 --steps 3 -o noisy.json "cat dog"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			model, err := loadModel(cfg)
			if err != nil {
				return err
			}

			steps, _ := cmd.Flags().GetInt("steps")
			peak, _ := cmd.Flags().GetFloat32("peak")
			if peak <= 0 || peak > 1 {
				return fmt.Errorf("invalid peak: %.2f (must be in (0,1])", peak)
			}
			m, err := model.SpellMatrix(strings.Join(args, " "), steps, peak)
			if err != nil {
				return err
			}
			defer m.Release()

			if path, _ := cmd.Flags().GetString("output"); path != "" {
				return netio.SaveFile(path, m)
			}
			return netio.WriteJSON(cmd.OutOrStdout(), m)
		},
	}
	cmd.Flags().Int("steps", 2, "timesteps per code")
	cmd.Flags().Float32("peak", 0.9, "probability of the spelled code at each timestep")
	cmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	return cmd
}
