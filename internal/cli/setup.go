package cli

import (
	"fmt"

	"github.com/sravani167/speech-service/internal/models"
	"github.com/spf13/cobra"
)

func newSetupCmd(app *appState) *cobra.Command {
	var (
		name  string
		force bool
		list  bool
	)

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Download and unpack a Vosk speech model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if list {
				for _, n := range models.Names() {
					fmt.Fprintln(cmd.OutOrStdout(), n)
				}
				return nil
			}

			model, err := models.Lookup(name)
			if err != nil {
				return err
			}

			installFn := app.installFn
			if installFn == nil {
				installFn = models.Install
			}

			dir := app.cfg.Recognizer.ModelPath
			installed, err := installFn(cmd.Context(), model, dir, models.InstallOptions{
				NoProgress: !app.progressEnabled(),
				Force:      force,
				Logger:     app.log(),
			})
			if err != nil {
				return fmt.Errorf("install model %s: %w", model.Name, err)
			}

			if !installed {
				fmt.Fprintf(cmd.OutOrStdout(), "Model %s already present at %s\n", model.Name, dir)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Model %s installed at %s\n", model.Name, dir)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "model", models.DefaultModel, "Model to install (see --list)")
	cmd.Flags().BoolVar(&force, "force", false, "Reinstall even if the model directory is already populated")
	cmd.Flags().BoolVar(&list, "list", false, "List installable models and exit")
	bindProgressFlag(cmd, app)

	return cmd
}
