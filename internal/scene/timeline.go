package scene

import (
	"time"

	"github.com/lumensync/lumen-core/internal/color"
)

// frame is one evaluated point on a scene timeline.
type frame struct {
	color      color.RGB
	brightness int
}

// frameAt evaluates the scene timeline at the given elapsed offset.
//
// The returned final flag is true when the timeline has run its course and
// the frame is the last one worth emitting. Looping scenes are never final:
// elapsed wraps modulo the total duration, which lands in [0, total) and so
// never revisits the last keyframe itself — a loop whose last keyframe
// mirrors its first wraps seamlessly.
//
// Before the first keyframe's offset the frame holds the first keyframe's
// values, so a scene starting at a non-zero offset still lights up
// immediately.
func frameAt(s *Scene, elapsed time.Duration) (frame, bool) {
	kfs := s.Keyframes
	if len(kfs) == 0 {
		return frame{}, true
	}

	total := s.Duration()
	if total == 0 {
		// Single keyframe: a static look. Loop keeps it on screen forever,
		// otherwise one emission is all there is.
		return keyframeValues(kfs[0]), !s.Loop
	}

	if s.Loop {
		elapsed %= total
	} else if elapsed >= total {
		return keyframeValues(kfs[len(kfs)-1]), true
	}

	if elapsed < kfs[0].offset() {
		return keyframeValues(kfs[0]), false
	}

	// Find the segment [kfs[i], kfs[i+1]) containing elapsed. The bounds
	// checks above guarantee elapsed < last offset, so i+1 always exists.
	i := 0
	for j := len(kfs) - 1; j > 0; j-- {
		if kfs[j].offset() <= elapsed {
			i = j
			break
		}
	}

	from, to := kfs[i], kfs[i+1]
	if to.Transition != TransitionFade {
		return keyframeValues(from), false
	}

	progress := float64(elapsed-from.offset()) / float64(to.offset()-from.offset())
	return frame{
		color:      color.Lerp(from.Color, to.Color, progress),
		brightness: lerpInt(from.Brightness, to.Brightness, progress),
	}, false
}

func keyframeValues(k Keyframe) frame {
	return frame{color: k.Color, brightness: k.Brightness}
}

func lerpInt(a, b int, t float64) int {
	if t <= 0 {
		return a
	}
	if t >= 1 {
		return b
	}
	return int(float64(a) + (float64(b)-float64(a))*t + 0.5)
}
