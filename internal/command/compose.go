package command

import (
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/randalmurphal/charkit/character"
	"github.com/randalmurphal/charkit/model"
	"github.com/randalmurphal/charkit/prompt"
	"github.com/randalmurphal/charkit/script"
	"github.com/randalmurphal/charkit/tokens"
	"github.com/randalmurphal/charkit/truncate"
)

func encoderFlag(cmd *cobra.Command) (tokens.Encoder, error) {
	name, _ := cmd.Flags().GetString("encoder")
	switch name {
	case "tiktoken":
		return tokens.NewTiktokenEncoder(tokens.DefaultEncoding), nil
	case "word":
		return tokens.WordEncoder{}, nil
	}
	return nil, fmt.Errorf("unknown encoder %q (want tiktoken or word)", name)
}

// NewComposeCmd creates the compose command.
func NewComposeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compose <record.json>",
		Short: "Print the prompt that would be sent for a character",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := readRecord(args[0])
			if err != nil {
				return err
			}
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			enc, err := encoderFlag(cmd)
			if err != nil {
				return err
			}

			session := c.CurrentChat()
			if msg, _ := cmd.Flags().GetString("message"); msg != "" {
				session.Append(character.Message{Role: character.RoleUser, Data: msg})
			}

			tk := tokens.ForModel(s.AIModel, nil, enc)
			composer := prompt.NewComposer(tk, nil)
			comp, err := composer.Compose(cmd.Context(), prompt.Input{
				Speaker: c,
				Session: session,
				Scripts: script.New(c.CustomScripts),
				Options: s.PromptOptions(),
			})
			if err != nil {
				return err
			}
			fit, err := truncate.Fit(cmd.Context(), truncate.FitRequest{
				History:    comp.History,
				Tokens:     comp.Tokens,
				MaxContext: s.MaxContext,
				Model:      s.AIModel,
				Session:    session,
				Character:  c,
				Counter:    tk,
			})
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(comp.Assemble(fit.History), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			fmt.Fprintf(cmd.ErrOrStderr(), "%s of %s tokens, %d messages evicted\n",
				humanize.Comma(int64(fit.Tokens)),
				humanize.Comma(int64(model.EffectiveContext(s.AIModel, s.MaxContext))),
				fit.Evicted)
			return nil
		},
	}
	cmd.Flags().StringP("message", "m", "", "user message to append before composing")
	cmd.Flags().String("encoder", "tiktoken", "token encoder: tiktoken or word")
	return cmd
}
