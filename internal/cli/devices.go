package cli

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/sravani167/speech-service/internal/record"
	"github.com/spf13/cobra"
)

func newDevicesCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List recording backends and their input devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			backends := record.DefaultBackends(runtime.GOOS)
			if len(backends) == 0 {
				return fmt.Errorf("unsupported OS: %s", runtime.GOOS)
			}
			writeDeviceReport(cmd.Context(), cmd.OutOrStdout(), backends, app.cfg.Recording.Backend)
			return nil
		},
	}
}

// writeDeviceReport prints one section per backend. The backend `record`
// would pick first is marked.
func writeDeviceReport(ctx context.Context, w io.Writer, backends []record.Backend, preferred string) {
	selected := ""
	if backend, err := record.SelectBackend(backends, preferred); err == nil {
		selected = backend.Name()
	}

	for _, backend := range backends {
		marker := ""
		if backend.Name() == selected {
			marker = " (selected)"
		}
		fmt.Fprintf(w, "== %s%s ==\n", backend.Name(), marker)

		switch {
		case !backend.Available():
			fmt.Fprintln(w, "not available on PATH")
		default:
			out, err := backend.ListDevices(ctx)
			switch {
			case err != nil:
				fmt.Fprintf(w, "failed to list devices: %v\n", err)
			case out == "":
				fmt.Fprintln(w, "no output")
			default:
				fmt.Fprintln(w, out)
			}
		}
		fmt.Fprintln(w)
	}
}
