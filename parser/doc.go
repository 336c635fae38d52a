// Package parser cleans model replies and reads labels out of them.
//
// Replies often echo the speaker's name ("Aria: Hello") and may carry inline
// directives such as <emotion>happy</emotion>. Classifier replies are single
// words, sometimes wrapped in punctuation, JSON or YAML.
//
//	text := parser.StripNameEcho(raw, "Aria")
//	clean, label, ok := parser.ExtractEmotion(text)
//	idx := parser.MatchLabel(classifierOutput, labels)
package parser
