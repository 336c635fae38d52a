// Package charkit is a toolkit for character chat: character cards, prompt
// assembly under a token budget, and reply post-processing.
//
// Each subpackage can be used on its own:
//
//   - character: character, chat session and group records
//   - card: import and export of PNG and JSON character cards
//   - assets: content-addressed asset storage and hub resource fetch
//   - prompt: composes the prompt groups for one speaking character
//   - truncate: fits a composed history into the model context
//   - tokens: token counting, encoders and logit bias
//   - template: {{char}} and {{user}} placeholder rendering
//   - script: regex scripts applied to input, output and display text
//   - lorebook: keyword-activated lore entries
//   - reply: stores replies and runs emotion and image follow-ups
//   - chat: runs whole turns, including group rounds
//   - provider, openai: model request clients
//   - config: global settings with file, environment and watch support
//   - model: model names, context caps and usage tracking
//
// # Quick Start
//
//	settings, _ := config.Load("settings.yaml")
//	client, _ := provider.FromConfig(settings.ProviderConfig(provider.FromEnv()))
//	engine := chat.NewEngine(client, settings.ChatOptions(), nil)
//
//	c, _ := card.NewDecoder(store).Import(ctx, pngBytes, card.FormatAuto, card.ModeNormal)
//	c.CurrentChat().Append(character.Message{Role: character.RoleUser, Data: "Hi!"})
//	turn, err := engine.Send(ctx, chat.SendRequest{Character: c})
package charkit
