// Package engine implements the realtime core of the looper: per-track
// sample storage, group membership, summing mixdown with hard limiting,
// per-cycle position maintenance, and a wait-free command inbox through
// which a control surface mutates engine state between audio cycles.
//
// Architecture overview:
//
//	transport (audio callback) -> Looper.Process -> mixer/positions
//	serialctl/diag (control)   -> Looper.Submit  -> inbox -> control state machine
//
// All engine state is owned by the realtime goroutine: Process drains at
// most one pending command per cycle and applies it before touching audio
// data, so no lock is ever taken on the audio path. Sample buffers are
// allocated once in New and never grow.
package engine
