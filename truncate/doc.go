// Package truncate keeps composed prompts and auxiliary texts within token
// limits.
//
// # History fitting
//
// Fit trims a composed history so the running estimate stays within
// min(user max context, model cap). In eviction mode the oldest messages are
// dropped one at a time; when only one message remains and the estimate is
// still over the limit, Fit fails with a BudgetExceededError carrying the
// required token count. In summarization mode the history is handed to a
// Summarizer instead.
//
//	res, err := truncate.Fit(ctx, truncate.FitRequest{
//	    History:    comp.History,
//	    Tokens:     comp.Tokens,
//	    MaxContext: 8000,
//	    Model:      model.GPT35,
//	    Session:    sess,
//	    Counter:    tokenizer,
//	})
//
// # Text clipping
//
// Truncator clips a single text, used for classifier input and image
// prompts:
//
//	tr := truncate.New(truncate.FromStart)
//	tail, clipped := tr.Truncate(transcript, 500)
package truncate
