package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/recode/internal/models"
	"github.com/MeKo-Tech/recode/internal/recognizer"
)

func newModelsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the model bundle's assets and describe the loaded model",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			bundle := cfg.Bundle()
			assets := bundle.Assets()

			var info *recognizer.ModelInfo
			if bundle.Validate() == nil {
				model, err := loadModel(cfg)
				if err != nil {
					return err
				}
				mi := model.Info()
				info = &mi
			}

			out := cmd.OutOrStdout()
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Dir    string                `json:"dir"`
					Model  *recognizer.ModelInfo `json:"model,omitempty"`
					Assets []models.AssetInfo    `json:"assets"`
				}{Dir: bundle.Dir, Model: info, Assets: assets})
			}

			_, _ = fmt.Fprintf(out, "Models directory: %s\n", bundle.Dir)
			for _, asset := range assets {
				state := "missing"
				if asset.Present {
					state = "present"
				}
				if asset.Required && !asset.Present {
					state = "MISSING (required)"
				}
				_, _ = fmt.Fprintf(out, "  %-16s %-12s %s\n", asset.Filename, asset.Kind, state)
			}
			if info != nil {
				_, _ = fmt.Fprintf(out, "Model %s: %d symbols, %d codes, %d dictionaries\n",
					info.Name, info.Symbols, info.CodeRange, info.Dawgs)
			}
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "print JSON")
	return cmd
}
