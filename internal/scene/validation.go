package scene

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Validation constants.
const (
	maxNameLength     = 100
	maxSlugLength     = 50
	maxDescriptionLen = 500
	maxKeyframes      = 500
	maxBrightness     = 100
	maxOffsetMS       = 3600000 // 1 hour
	slugPattern       = `^[a-z0-9]+(?:-[a-z0-9]+)*$`
)

var slugRegex = regexp.MustCompile(slugPattern)

// Pre-computed validation set for O(1) transition lookups.
var validTransitions map[Transition]struct{}

func init() {
	validTransitions = make(map[Transition]struct{}, len(AllTransitions()))
	for _, t := range AllTransitions() {
		validTransitions[t] = struct{}{}
	}
}

// ValidateScene performs comprehensive validation on a scene.
// Returns an error describing the first validation failure found.
func ValidateScene(s *Scene) error {
	if s == nil {
		return ErrInvalidScene
	}

	if err := ValidateName(s.Name); err != nil {
		return err
	}

	// Validate slug if provided (empty slug will be generated)
	if s.Slug != "" {
		if err := ValidateSlug(s.Slug); err != nil {
			return err
		}
	}

	if s.Description != nil && len(*s.Description) > maxDescriptionLen {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalidScene, maxDescriptionLen)
	}

	if len(s.Keyframes) == 0 {
		return ErrNoKeyframes
	}
	if len(s.Keyframes) > maxKeyframes {
		return fmt.Errorf("%w: exceeds maximum of %d keyframes", ErrInvalidKeyframe, maxKeyframes)
	}

	prev := -1
	for i, kf := range s.Keyframes {
		if err := ValidateKeyframe(kf); err != nil {
			return fmt.Errorf("keyframe[%d]: %w", i, err)
		}
		// Offsets must be strictly ascending so no segment has zero length.
		if kf.AtMS <= prev {
			return fmt.Errorf("keyframe[%d]: %w: offset %dms not after %dms", i, ErrInvalidKeyframe, kf.AtMS, prev)
		}
		prev = kf.AtMS
	}

	return nil
}

// ValidateName checks if a scene name is valid.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// ValidateSlug checks if a slug format is valid.
func ValidateSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("%w: slug cannot be empty", ErrInvalidSlug)
	}
	if len(slug) > maxSlugLength {
		return fmt.Errorf("%w: slug exceeds %d characters", ErrInvalidSlug, maxSlugLength)
	}
	if !slugRegex.MatchString(slug) {
		return fmt.Errorf("%w: must be lowercase alphanumeric with hyphens", ErrInvalidSlug)
	}
	return nil
}

// ValidateKeyframe checks a single keyframe's ranges and transition.
// Ordering against neighbouring keyframes is checked by ValidateScene.
func ValidateKeyframe(kf Keyframe) error {
	if kf.AtMS < 0 || kf.AtMS > maxOffsetMS {
		return fmt.Errorf("%w: offset must be 0-%dms", ErrInvalidKeyframe, maxOffsetMS)
	}
	if kf.Brightness < 0 || kf.Brightness > maxBrightness {
		return fmt.Errorf("%w: brightness must be 0-%d", ErrInvalidKeyframe, maxBrightness)
	}
	if _, ok := validTransitions[kf.Transition]; !ok {
		return fmt.Errorf("%w: unknown transition %q", ErrInvalidKeyframe, kf.Transition)
	}
	return nil
}

// GenerateSlug creates a URL-safe slug from a name.
// It lowercases, replaces spaces/underscores with hyphens, strips anything
// else, and trims to maxSlugLength.
func GenerateSlug(name string) string {
	slug := strings.ToLower(name)
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.ReplaceAll(slug, "_", "-")

	var b strings.Builder
	for _, r := range slug {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	slug = b.String()

	// Collapse runs of hyphens and trim the ends
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	slug = strings.Trim(slug, "-")

	if len(slug) > maxSlugLength {
		slug = slug[:maxSlugLength]
		slug = strings.TrimRight(slug, "-")
	}

	return slug
}

// GenerateID creates a new UUID for a scene.
func GenerateID() string {
	return uuid.New().String()
}
