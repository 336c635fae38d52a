package command

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/randalmurphal/charkit/character"
	"github.com/randalmurphal/charkit/chat"
	"github.com/randalmurphal/charkit/provider"

	// Registers the built-in providers.
	_ "github.com/randalmurphal/charkit/providers"
)

// NewChatCmd creates the chat command.
func NewChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat <record.json> <message>",
		Short: "Send a message to a character and store the reply",
		Long: "Send a message to a character and store the reply in the record.\n" +
			"The provider is configured through CHARKIT_PROVIDER, CHARKIT_API_KEY and CHARKIT_BASE_URL.",
		Args: cobra.ExactArgs(2),
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

			cfg := provider.FromEnv()
			if cfg.Provider == "" {
				cfg.Provider = "openai"
			}
			client, err := provider.FromConfig(s.ProviderConfig(cfg))
			if err != nil {
				return err
			}
			defer client.Close()

			engine := chat.NewEngine(client, s.ChatOptions(), enc)
			engine.Processor.EmotionPrompt = s.EmotionPrompt

			c.CurrentChat().Append(character.Message{Role: character.RoleUser, Data: args[1]})
			turn, err := engine.Send(cmd.Context(), chat.SendRequest{Character: c})
			if err != nil {
				return err
			}
			if err := writeRecord(cmd, args[0], c); err != nil {
				return err
			}

			for _, r := range turn.Replies {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", r.Speaker.Name, r.Outcome.Text)
				if r.Outcome.EmotionChanged {
					fmt.Fprintf(cmd.ErrOrStderr(), "emotion: %s\n", r.Outcome.Emotion)
				}
			}
			total := engine.Usage.TotalUsage()
			fmt.Fprintf(cmd.ErrOrStderr(), "%s prompt + %s response tokens\n",
				humanize.Comma(int64(total.PromptTokens)), humanize.Comma(int64(total.ResponseTokens)))
			return nil
		},
	}
	cmd.Flags().String("encoder", "tiktoken", "token encoder: tiktoken or word")
	return cmd
}
