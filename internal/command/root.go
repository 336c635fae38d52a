package command

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

const AppName = "charkit"

// Version is overwritten at build time using -ldflags.
var Version = "dev"

// NewRootCmd creates the charkit command tree.
func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           AppName,
		Short:         "charkit - character card and prompt toolkit",
		Long:          "charkit imports and exports character cards, composes prompts and runs chat turns.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug})))
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.Version = version
	cmd.SetVersionTemplate(AppName + " version {{.Version}}\n")
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().String("assets", "assets", "asset directory")
	cmd.PersistentFlags().String("assets-db", "", "sqlite asset database (overrides --assets)")
	cmd.PersistentFlags().String("config", "", "settings file (.yaml, .yml or .toml)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging")

	cmd.AddCommand(
		NewImportCmd(),
		NewExportCmd(),
		NewSchemaCmd(),
		NewComposeCmd(),
		NewChatCmd(),
	)
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd(Version).Execute()
}
