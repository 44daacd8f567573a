// Package rollback implements the rollback synchronization engine: frame
// history, hold-last prediction, and the scheduler that speculatively
// executes unknown remote inputs and rewinds on misprediction (§2, §4).
package rollback

// Frame is a simulation frame number. It starts at 0 and advances
// monotonically; it is never reused. A signed type is used so that the
// confirmed-frame watermark and per-peer receive watermarks can hold the
// sentinel value -1 ("nothing confirmed yet") without wraparound.
type Frame int64

// NoFrame is the watermark sentinel meaning "no frame confirmed yet".
const NoFrame Frame = -1
