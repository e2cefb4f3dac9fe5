package scene

import "errors"

// Domain errors for the scene package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, scene.ErrSceneNotFound) {
//	    // handle not found case
//	}
var (
	// ErrSceneNotFound is returned when a scene ID or slug does not exist.
	ErrSceneNotFound = errors.New("scene: not found")

	// ErrSceneExists is returned when creating a scene whose ID or slug is taken.
	ErrSceneExists = errors.New("scene: already exists")

	// ErrInvalidScene is returned when scene validation fails.
	ErrInvalidScene = errors.New("scene: invalid")

	// ErrInvalidName is returned when a scene name is empty or too long.
	ErrInvalidName = errors.New("scene: invalid name")

	// ErrInvalidSlug is returned when a slug format is invalid.
	ErrInvalidSlug = errors.New("scene: invalid slug")

	// ErrNoKeyframes is returned when a scene has no keyframes defined.
	ErrNoKeyframes = errors.New("scene: no keyframes")

	// ErrInvalidKeyframe is returned when a keyframe is out of range or out of order.
	ErrInvalidKeyframe = errors.New("scene: invalid keyframe")

	// ErrDispatcherRequired is returned when a Player is built without a dispatcher.
	ErrDispatcherRequired = errors.New("scene: dispatcher is required")

	// ErrRegistryRequired is returned when a Player is built without a registry.
	ErrRegistryRequired = errors.New("scene: device registry is required")
)
