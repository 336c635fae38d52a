package command

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/randalmurphal/charkit/assets"
	"github.com/randalmurphal/charkit/card"
)

// NewImportCmd creates the import command.
func NewImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <card>",
		Short: "Import a PNG or JSON character card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			dec := card.NewDecoder(store)
			mode := card.ModeNormal
			if hub, _ := cmd.Flags().GetBool("hub"); hub {
				mode = card.ModeHub
				base, _ := cmd.Flags().GetString("hub-url")
				dec.Fetcher = assets.NewHubFetcher(base)
			}
			dec.Progress = func(stage string, current, total int) {
				fmt.Fprintf(cmd.ErrOrStderr(), "\r%s %d/%d", stage, current, total)
				if current == total {
					fmt.Fprintln(cmd.ErrOrStderr())
				}
			}

			c, err := dec.Import(cmd.Context(), data, card.FormatAuto, mode)
			if err != nil {
				return err
			}

			out, _ := cmd.Flags().GetString("out")
			if err := writeRecord(cmd, out, c); err != nil {
				return err
			}
			if out != "" && out != "-" {
				fmt.Fprintf(cmd.OutOrStdout(), "imported %s from %s (%d emotions, %d assets)\n",
					c.Name, humanize.Bytes(uint64(len(data))), len(c.EmotionImages), len(c.AdditionalAssets))
			}
			return nil
		},
	}
	cmd.Flags().Bool("hub", false, "resolve asset references through the hub")
	cmd.Flags().String("hub-url", assets.DefaultHubURL, "hub base URL")
	cmd.Flags().StringP("out", "o", "", "record file (default stdout)")
	return cmd
}
