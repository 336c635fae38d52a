// Package template substitutes character and user names into prompt text.
//
// Card authors write placeholders in two spellings:
//
//	{{char}} / <char>   the speaking character's name ({{char_name}} is an alias)
//	{{user}} / <user>   the user's display name
//
// Unknown placeholders are left as written, so rendering never fails on
// user-authored text:
//
//	e := template.NewEngine()
//	out := e.Render("{{char}} waves at <user>.", template.Vars{Char: "Aria", User: "Sam"})
//	// "Aria waves at Sam."
//
// Override prompts embed the global text with {{original}}:
//
//	note := template.ApplyOriginal("Stay in character. {{original}}", globalNote)
//
// # Validation
//
// ExtractVariables lists the placeholders used in a piece of text and
// ValidateVariables reports the first one the engine does not know, which
// settings validation uses to catch typos like {{chr}}.
package template
