package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/rulewatch/internal/output"
)

func newVersionCmd() *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			response := output.VersionResponse{
				Version:   Version,
				Commit:    Commit,
				BuiltAt:   Date,
				BuiltBy:   BuiltBy,
				GoVersion: goVersion(),
				Platform:  goPlatform(),
			}
			return formatter(cmd).OutputData(response, func(w io.Writer) error {
				if short {
					fmt.Fprintln(w, Version)
					return nil
				}
				fmt.Fprintf(w, "rulewatch version %s\n", Version)
				fmt.Fprintf(w, "  commit:    %s\n", Commit)
				fmt.Fprintf(w, "  built:     %s\n", Date)
				fmt.Fprintf(w, "  builder:   %s\n", BuiltBy)
				fmt.Fprintf(w, "  go:        %s\n", goVersion())
				fmt.Fprintf(w, "  platform:  %s\n", goPlatform())
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only version number")
	return cmd
}
