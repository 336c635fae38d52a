package command

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/randalmurphal/charkit/card"
)

// NewExportCmd creates the export command.
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <record.json>",
		Short: "Export a character record as a card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := readRecord(args[0])
			if err != nil {
				return err
			}
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			enc := card.NewEncoder(store)
			format, _ := cmd.Flags().GetString("format")
			var data []byte
			switch strings.ToLower(format) {
			case "v2":
				data, err = enc.ExportV2(cmd.Context(), c)
			case "json":
				data, err = enc.ExportV2JSON(cmd.Context(), c)
			case "risu":
				data, err = enc.ExportRisu(cmd.Context(), c)
			default:
				return fmt.Errorf("unknown export format %q (want v2, json or risu)", format)
			}
			if err != nil {
				return err
			}

			out, _ := cmd.Flags().GetString("out")
			if out == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if out == "" {
				out = card.ExportFilename(c.Name)
				if !card.IsPNG(data) {
					out = strings.TrimSuffix(out, ".png") + ".json"
				}
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s)\n", out, humanize.Bytes(uint64(len(data))))
			return nil
		},
	}
	cmd.Flags().String("format", "v2", "card format: v2, json or risu")
	cmd.Flags().StringP("out", "o", "", "output file, - for stdout")
	return cmd
}
