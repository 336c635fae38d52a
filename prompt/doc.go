// Package prompt composes the ordered message list sent to a chat backend.
//
// Composition happens in two steps. Compose builds the named groups (main
// instructions, description, lorebook, notes...) and the chat history with
// a running token estimate. After the history has been fitted to the
// context budget (see package truncate), Assemble holds out the most recent
// turn, orders the groups and coalesces adjacent single-message system
// groups into one system message.
//
//	comp, err := composer.Compose(ctx, prompt.Input{
//	    Speaker: char,
//	    Session: char.CurrentChat(),
//	    Options: settings.PromptOptions(),
//	})
//	fitted := ... // trim comp.History within the budget
//	msgs := comp.Assemble(fitted)
//
// Group order is caller-configurable; the post-everything group is always
// emitted last. Correlation memos are cleared on every emitted message.
package prompt
