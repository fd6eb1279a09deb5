package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/rulewatch/internal/logging"
	"github.com/Dicklesworthstone/rulewatch/internal/output"
)

func newGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show current resource usage",
	}
	cmd.AddCommand(newGetDisksCmd())
	return cmd
}

func newGetDisksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disks",
		Short: "List mounted filesystems with their usage",
		Long: `List mounted physical filesystems with their size and usage.

The MOUNT column holds the target names to use in disk rule checks.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src := newMetricsSource(logging.WithComponent(logger, "probe"))
			disks, err := src.Disks(cmd.Context())
			if err != nil {
				return fmt.Errorf("reading disks: %w", err)
			}

			return formatter(cmd).OutputData(disks, func(w io.Writer) error {
				if len(disks) == 0 {
					fmt.Fprintln(w, "No mounted filesystems found.")
					return nil
				}
				output.RenderDisks(w, disks)
				return nil
			})
		},
	}
}
