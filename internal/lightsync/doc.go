// Package lightsync runs the screen-to-light sync loop: sample a pixel
// source at a fixed cadence, reduce each frame to representative colours,
// and emit them to devices as paced command batches.
//
// A session moves Idle → Running → Idle and is driven by two goroutines:
//
//	ticker ──► sample ──► extract ──► boost ──┐
//	  (every 1000/rate ms)                    │ 1-deep hand-off
//	                                          ▼
//	emitter ──► hold for latency compensation ──► dispatcher.SendBatch
//
// The hold delays light output by a fixed offset after sampling so the
// lights lag the picture by the measured end-to-end perception offset
// instead of racing ahead of it.
//
// Ticks and emissions deliberately overlap at high sample rates. The
// hand-off buffer holds at most one pending emission; when the emitter is
// still busy as the next tick completes, that tick is dropped and counted
// in Stats rather than queued without bound.
//
// Stopping cancels the ticker and any held-but-unsent emission. A batch
// already handed to the dispatcher always runs to completion; devices
// never receive half a batch because a session ended.
//
// Per-tick failures — a device dropping out, a sample error — never end
// the session. They accumulate in Stats and the loop keeps going.
//
// # Thread Safety
//
// Engine is safe for concurrent use. Start, Stop and Stats may be called
// from any goroutine.
package lightsync
