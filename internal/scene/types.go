package scene

import (
	"time"

	"github.com/lumensync/lumen-core/internal/color"
)

// Scene is an ordered keyframe timeline that can be played onto a set of
// lights. Keyframes are kept sorted by offset; validation rejects anything
// else. Built-in scenes are seeded rows the user cannot lose by accident:
// deleting one only lasts until the next startup re-seeds it.
type Scene struct {
	// Identity
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`

	// Description (optional)
	Description *string `json:"description,omitempty"`

	// Loop restarts the timeline from zero when the last keyframe is reached.
	Loop bool `json:"loop"`

	// Builtin marks seeded scenes shipped with the service.
	Builtin bool `json:"builtin"`

	// Keyframes to play (ordered by offset, ascending)
	Keyframes []Keyframe `json:"keyframes"`

	// Sort order for UI display
	SortOrder int `json:"sort_order"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Keyframe fixes the look of the lights at one point on the timeline.
//
// The transition describes how to arrive at this keyframe from the previous
// one: "fade" interpolates linearly across the segment, "snap" holds the
// previous keyframe's values until this offset is reached. The first
// keyframe's transition is irrelevant (there is nothing to arrive from).
type Keyframe struct {
	// Offset from scene start (milliseconds)
	AtMS int `json:"at_ms"`

	Color      color.RGB  `json:"color"`
	Brightness int        `json:"brightness"` // 0-100
	Transition Transition `json:"transition"`
}

// offset returns the keyframe position as a duration.
func (k Keyframe) offset() time.Duration {
	return time.Duration(k.AtMS) * time.Millisecond
}

// Transition selects how the player moves into a keyframe.
type Transition string

const (
	// TransitionSnap jumps to the keyframe's values at its offset.
	TransitionSnap Transition = "snap"

	// TransitionFade interpolates colour and brightness across the segment.
	TransitionFade Transition = "fade"
)

// AllTransitions returns all valid keyframe transitions.
func AllTransitions() []Transition {
	return []Transition{TransitionSnap, TransitionFade}
}

// Duration returns the timeline length: the offset of the last keyframe.
// A single-keyframe scene has zero duration.
func (s *Scene) Duration() time.Duration {
	if len(s.Keyframes) == 0 {
		return 0
	}
	return s.Keyframes[len(s.Keyframes)-1].offset()
}

// DeepCopy creates a complete independent copy of the Scene.
// The keyframe slice and pointer fields are cloned so modifications to the
// copy do not affect the original. This is essential for cache isolation.
func (s *Scene) DeepCopy() *Scene {
	if s == nil {
		return nil
	}

	cpy := *s // Shallow copy of value fields

	cpy.Description = cloneStringPtr(s.Description)

	if s.Keyframes != nil {
		cpy.Keyframes = make([]Keyframe, len(s.Keyframes))
		copy(cpy.Keyframes, s.Keyframes)
	}

	return &cpy
}

// cloneStringPtr creates an independent copy of a *string.
func cloneStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
