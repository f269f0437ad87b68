// Package pipeline runs the stages of a sanitize call in sequence.
//
// A sanitize run moves through decode, reconstruct, an optional
// perturbation, an optional layout conversion, encode, an optional
// timestamp rewrite and an optional verification. Each stage is a Step
// that receives the shared Run state. The pipeline checks for
// cancellation between steps, records which steps completed, and removes
// any output written by a run that later fails.
//
// BatchProcessor runs independent pipelines concurrently with a bounded
// errgroup.
package pipeline
