// Package scene stores and plays keyframe lighting scenes.
//
// A scene is an ordered timeline of keyframes, each fixing a colour and a
// brightness at an offset from scene start. The Player evaluates the
// timeline at a fixed frame rate and batch-sends the resulting commands
// through the dispatcher:
//
//	Repository (SQLite)
//	        │ load
//	        ▼
//	Scene{Keyframes} ──▶ Player frame loop
//	                          │ frameAt(elapsed)
//	                          │ changed since last frame?
//	                          ▼
//	                     dispatcher.SendBatch ──▶ devices
//
// Between two keyframes the frame value depends on the transition recorded
// on the later keyframe: "fade" interpolates colour and brightness
// linearly, "snap" holds the earlier keyframe until the later one lands.
// Looping scenes wrap with elapsed modulo total duration, so a loop is
// seamless when its last keyframe mirrors its first.
//
// Unchanged frames are not re-sent. A static scene (one keyframe, loop)
// therefore costs a single batch, and slow devices self-pace the loop
// because batches are sent synchronously between frames.
//
// Scenes persist in SQLite with the keyframe list as a JSON column. A
// fixed set of built-in scenes is seeded at startup when missing, so a
// fresh database always has something to play.
//
// # Thread Safety
//
// The Player owns at most one playback session. Play replaces a running
// session after stopping it; Stop is idempotent. The Repository is safe
// for concurrent use to the extent the underlying *sql.DB is.
package scene
