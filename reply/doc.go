// Package reply turns raw model output into stored chat turns and runs the
// per-character follow-up work: emotion selection and image generation.
//
// A reply is finalized by stripping a leading "Name:" echo, running the
// editoutput scripts and appending the result to the session as a char
// message. Streaming replies go through a Reducer, which re-runs that whole
// pipeline on the accumulated text for every chunk because scripts are not
// incremental.
//
// After the text is stored, Processor.After picks the emotion:
//
//  1. An explicit directive (provider side data, an @@emo script, or an
//     inline <emotion> tag) is matched case-sensitively against the
//     character's emotion images.
//  2. Otherwise, for characters in emotion view mode, a classifier request
//     on the submodel channel picks one label. Recently used labels are
//     biased against so the expression does not stick.
//
// Characters in imggen view mode instead get an image prompt built from the
// latest exchange. Both follow-ups are best effort: their failures are
// reported on the Outcome and never fail the turn.
package reply
