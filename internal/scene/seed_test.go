package scene

import (
	"context"
	"testing"
)

func TestBuiltinsAreValid(t *testing.T) {
	builtins := Builtins()
	if len(builtins) == 0 {
		t.Fatal("no builtin scenes defined")
	}

	seenSlugs := make(map[string]bool)
	for _, sc := range builtins {
		sc := sc
		t.Run(sc.Slug, func(t *testing.T) {
			if err := ValidateScene(&sc); err != nil {
				t.Fatalf("ValidateScene() error = %v", err)
			}
			if seenSlugs[sc.Slug] {
				t.Fatalf("slug %q used twice", sc.Slug)
			}
			seenSlugs[sc.Slug] = true
			if sc.Slug != GenerateSlug(sc.Name) {
				t.Errorf("slug %q does not derive from name %q", sc.Slug, sc.Name)
			}
		})
	}
}

func TestBuiltinLoopsWrapSeamlessly(t *testing.T) {
	for _, sc := range Builtins() {
		if !sc.Loop || len(sc.Keyframes) < 2 {
			continue
		}
		first := sc.Keyframes[0]
		last := sc.Keyframes[len(sc.Keyframes)-1]
		if first.Color != last.Color || first.Brightness != last.Brightness {
			t.Errorf("%s: loop endpoints differ (first %+v/%d, last %+v/%d)",
				sc.Slug, first.Color, first.Brightness, last.Color, last.Brightness)
		}
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := Seed(ctx, repo, nil); err != nil {
		t.Fatalf("first Seed() error = %v", err)
	}
	if err := Seed(ctx, repo, nil); err != nil {
		t.Fatalf("second Seed() error = %v", err)
	}

	scenes, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(scenes) != len(Builtins()) {
		t.Fatalf("scene count = %d, want %d", len(scenes), len(Builtins()))
	}
	for _, sc := range scenes {
		if !sc.Builtin {
			t.Errorf("%s: builtin flag not set", sc.Slug)
		}
		if len(sc.ID) != 36 {
			t.Errorf("%s: ID %q is not a UUID", sc.Slug, sc.ID)
		}
	}
}

func TestSeedPreservesUserEdits(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	custom := Builtins()[0]
	custom.ID = GenerateID()
	custom.Name = "My Rainbow"
	custom.Builtin = true
	if err := repo.Create(ctx, &custom); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := Seed(ctx, repo, nil); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}

	got, err := repo.GetBySlug(ctx, custom.Slug)
	if err != nil {
		t.Fatalf("GetBySlug() error = %v", err)
	}
	if got.Name != "My Rainbow" {
		t.Errorf("name = %q, want user edit preserved", got.Name)
	}
}
