package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/rulewatch/internal/config"
	"github.com/Dicklesworthstone/rulewatch/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		Long: `Write a configuration file with every setting at its default.

The file goes to --config when given, else ~/.config/rulewatch/config.toml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.CreateDefault(cfgFile, force)
			if err != nil {
				return output.NewCLIError("failed to create config file").
					Wrap(err).
					WithHint("Use --force to overwrite an existing file").
					WithExit(output.ExitConfig)
			}
			return formatter(cmd).OutputData(output.SuccessResponse{
				Success: true,
				Message: "config file created",
				Path:    path,
			}, func(w io.Writer) error {
				fmt.Fprintf(w, "Created config file: %s\n", path)
				return nil
			})
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config file")
	cmd.AddCommand(initCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.ResolvePath(cfgFile)
			return formatter(cmd).OutputData(map[string]interface{}{
				"path":   path,
				"exists": fileExists(path),
			}, func(w io.Writer) error {
				fmt.Fprintln(w, path)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Print the effective configuration, defaults and environment overrides included. Passwords are masked.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			shown := cfg.Redacted()
			return formatter(cmd).OutputData(shown, func(w io.Writer) error {
				fmt.Fprintf(w, "# %s\n", cfg.Path)
				return config.Print(shown, w)
			})
		},
	})

	return cmd
}
