// Package tokens counts prompt tokens and encodes text into token ids.
//
// Counting only needs an estimate, so the default Counter uses the
// rule-of-thumb that approximately 4 characters equal 1 token. Bias maps need
// real token ids, which come from an Encoder such as TiktokenEncoder.
//
// # Counter
//
//	counter := tokens.NewEstimatingCounter()
//	count := counter.Count("Hello, world!")     // ~3 tokens
//	fits := counter.FitsInLimit("text", 1000)   // true if <= 1000 tokens
//
// # ChatTokenizer
//
// ChatTokenizer counts whole role-tagged messages, adding the per-message
// overhead a chat backend charges:
//
//	tk := tokens.ForModel("gpt35", counter, encoder)
//	n := tk.CountMessage(provider.NewTextMessage(provider.RoleUser, "Hi"))
//
// # Bias
//
// BuildBias turns (text, weight) pairs into a token-id bias map. Later
// sources overwrite earlier ones on the same token:
//
//	bias, err := tokens.BuildBias(encoder, charBias, globalBias)
package tokens
