// Package script applies a character's custom regex scripts to text.
//
// Each script belongs to a phase: user input, model output, prompt
// processing or display. Apply runs the scripts of one phase in order, each
// replacing every match of its pattern. A script whose output is
// "@@emo <label>" deletes its match instead and reports an emotion
// directive in the Result.
//
//	tr := script.New(char.CustomScripts)
//	res, err := tr.Apply(ctx, reply, script.PhaseOutput)
package script
