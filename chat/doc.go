// Package chat runs chat turns end to end.
//
// Engine.Send composes the prompt for the speaking character, fits it into
// the model's context, merges the token bias, sends the request and stores
// the processed reply:
//
//	engine := chat.NewEngine(client, chat.Options{
//	    Model:      model.GPT35,
//	    MaxContext: 4000,
//	    Prompt:     prompt.Options{MaxResponse: 300, Username: "User"},
//	})
//	turn, err := engine.Send(ctx, chat.SendRequest{Character: c})
//
// For group rooms Send runs a round: every active member with positive
// talkativeness replies once, in room order or ordered by who the last
// message mentions. SendParticipant prompts a single member and may be
// called while a round is in progress.
//
// Only one top-level Send runs at a time; a concurrent call fails with
// ErrBusy. Failures leave earlier session changes in place (assigned
// message ids, the last-memory pointer, already stored replies).
package chat
