// Package model names the chat backends and their context limits, and tracks
// token usage per backend.
//
// # Context caps
//
// Each known backend has a hard context cap. The usable window is the smaller
// of the user's configured maximum and that cap:
//
//	limit := model.EffectiveContext(model.GPT35, 8000) // 4000
//
// Backends without a cap (custom endpoints, local web UIs) use the user's
// setting unchanged.
//
// # Usage Tracking
//
//	tracker := model.NewUsageTracker()
//	tracker.Record(model.GPT35, 1000, 120)  // prompt, response tokens
//	cost := tracker.EstimatedCost()
package model
