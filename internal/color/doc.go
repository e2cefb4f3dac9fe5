// Package color provides colour extraction and shaping for Lumen Sync Core.
//
// It turns frames sampled from an opaque pixel source into the small set of
// colours that get pushed to lighting devices. Extraction supports a single
// dominant colour, a frame average, or one colour per horizontal zone.
// Extracted colours can then be smoothed over time and boosted by an external
// audio feature vector before dispatch.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────────┐
//	│                        Colour Pipeline                           │
//	│                                                                  │
//	│  ┌─────────────┐   ┌──────────────┐   ┌───────────┐   ┌───────┐  │
//	│  │ PixelSource │──▶│  Extractor   │──▶│  Booster  │──▶│ Clamp │  │
//	│  │ (source.go) │   │(extractor.go)│   │(feature.go)   │       │  │
//	│  │             │   │              │   │           │   │       │  │
//	│  │ • Frame     │   │ • dominant   │   │ • energy  │   │ 0-255 │  │
//	│  │ • Region    │   │ • average    │   │ • beat    │   │ 0-100 │  │
//	│  │             │   │ • zones      │   │   edge    │   │ 2k-9k │  │
//	│  │             │   │ • smoothing  │   │           │   │       │  │
//	│  └─────────────┘   └──────────────┘   └───────────┘   └───────┘  │
//	└──────────────────────────────────────────────────────────────────┘
//
// # Key Types
//
//   - RGB: 8-bit-per-channel colour, the unit pushed to devices
//   - Frame: row-major pixel buffer with geometry, returned by sources
//   - PixelSource: anything that can be sampled for pixels
//   - Extractor: per-session extraction state machine (mode + smoothing)
//   - FeatureVector / Booster: audio-reactive brightness and saturation shaping
//
// # Thread Safety
//
// An Extractor and a Booster carry per-session state (smoothing history, beat
// edge detection) and are intended to be driven from a single goroutine, the
// sync engine's sampler. Sources must be safe for concurrent sampling.
package color
