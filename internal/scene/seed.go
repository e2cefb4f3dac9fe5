package scene

import (
	"context"
	"errors"
	"fmt"

	"github.com/lumensync/lumen-core/internal/color"
)

// Builtins returns the scene set shipped with the service. Slugs are
// stable identifiers: the seeder keys on them, and remote commands may
// name them directly.
func Builtins() []Scene {
	return []Scene{
		{
			Name:        "Rainbow",
			Slug:        "rainbow",
			Description: strPtr("Full hue sweep, two seconds per segment"),
			Loop:        true,
			SortOrder:   10,
			Keyframes: []Keyframe{
				{AtMS: 0, Color: color.RGB{R: 255, G: 0, B: 0}, Brightness: 100, Transition: TransitionSnap},
				{AtMS: 2000, Color: color.RGB{R: 255, G: 255, B: 0}, Brightness: 100, Transition: TransitionFade},
				{AtMS: 4000, Color: color.RGB{R: 0, G: 255, B: 0}, Brightness: 100, Transition: TransitionFade},
				{AtMS: 6000, Color: color.RGB{R: 0, G: 255, B: 255}, Brightness: 100, Transition: TransitionFade},
				{AtMS: 8000, Color: color.RGB{R: 0, G: 0, B: 255}, Brightness: 100, Transition: TransitionFade},
				{AtMS: 10000, Color: color.RGB{R: 255, G: 0, B: 255}, Brightness: 100, Transition: TransitionFade},
				// Mirrors the first keyframe so the loop wraps seamlessly.
				{AtMS: 12000, Color: color.RGB{R: 255, G: 0, B: 0}, Brightness: 100, Transition: TransitionFade},
			},
		},
		{
			Name:        "Sunrise",
			Slug:        "sunrise",
			Description: strPtr("Five-minute warm ramp from ember to daylight"),
			Loop:        false,
			SortOrder:   20,
			Keyframes: []Keyframe{
				{AtMS: 0, Color: color.RGB{R: 32, G: 4, B: 0}, Brightness: 1, Transition: TransitionSnap},
				{AtMS: 60000, Color: color.RGB{R: 128, G: 24, B: 0}, Brightness: 10, Transition: TransitionFade},
				{AtMS: 180000, Color: color.RGB{R: 255, G: 96, B: 16}, Brightness: 45, Transition: TransitionFade},
				{AtMS: 300000, Color: color.RGB{R: 255, G: 200, B: 120}, Brightness: 100, Transition: TransitionFade},
			},
		},
		{
			Name:        "Candlelight",
			Slug:        "candlelight",
			Description: strPtr("Warm flicker"),
			Loop:        true,
			SortOrder:   30,
			Keyframes: []Keyframe{
				{AtMS: 0, Color: color.RGB{R: 255, G: 140, B: 24}, Brightness: 38, Transition: TransitionSnap},
				{AtMS: 180, Color: color.RGB{R: 255, G: 147, B: 30}, Brightness: 46, Transition: TransitionSnap},
				{AtMS: 420, Color: color.RGB{R: 255, G: 122, B: 18}, Brightness: 32, Transition: TransitionSnap},
				{AtMS: 640, Color: color.RGB{R: 255, G: 140, B: 24}, Brightness: 49, Transition: TransitionSnap},
				{AtMS: 900, Color: color.RGB{R: 255, G: 131, B: 20}, Brightness: 41, Transition: TransitionSnap},
				{AtMS: 1200, Color: color.RGB{R: 255, G: 140, B: 24}, Brightness: 38, Transition: TransitionSnap},
			},
		},
		{
			Name:        "Breathe",
			Slug:        "breathe",
			Description: strPtr("Slow brightness swell on a cool blue"),
			Loop:        true,
			SortOrder:   40,
			Keyframes: []Keyframe{
				{AtMS: 0, Color: color.RGB{R: 64, G: 156, B: 255}, Brightness: 12, Transition: TransitionSnap},
				{AtMS: 2500, Color: color.RGB{R: 64, G: 156, B: 255}, Brightness: 70, Transition: TransitionFade},
				{AtMS: 5000, Color: color.RGB{R: 64, G: 156, B: 255}, Brightness: 12, Transition: TransitionFade},
			},
		},
	}
}

// Seed inserts any built-in scene missing from the repository. Existing
// rows are left alone, so user edits to a built-in survive restarts until
// the row is deleted outright.
func Seed(ctx context.Context, repo Repository, logger Logger) error {
	if logger == nil {
		logger = noopLogger{}
	}

	for _, sc := range Builtins() {
		_, err := repo.GetBySlug(ctx, sc.Slug)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrSceneNotFound) {
			return fmt.Errorf("checking builtin scene %q: %w", sc.Slug, err)
		}

		create := sc
		create.ID = GenerateID()
		create.Builtin = true
		if err := repo.Create(ctx, &create); err != nil {
			return fmt.Errorf("seeding builtin scene %q: %w", sc.Slug, err)
		}
		logger.Info("seeded builtin scene", "slug", sc.Slug, "name", sc.Name)
	}
	return nil
}

func strPtr(s string) *string {
	return &s
}
