package idgen

import (
	"testing"
)

func TestV4_Format(t *testing.T) {
	gen := V4()
	for i := 0; i < 100; i++ {
		id := gen()
		if !Valid(id) {
			t.Fatalf("V4 produced invalid id %q", id)
		}
	}
}

func TestV4_Uniqueness(t *testing.T) {
	gen := V4()
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := gen()
		if _, ok := seen[id]; ok {
			t.Fatalf("duplicate at iteration %d: %q", i, id)
		}
		seen[id] = struct{}{}
	}
}

func TestUnique_SkipsRepeats(t *testing.T) {
	a := "11111111-1111-4111-8111-111111111111"
	b := "22222222-2222-4222-9222-222222222222"
	gen := Unique(Sequence(a, a, a, b), 16)

	if got := gen(); got != a {
		t.Fatalf("first id = %q, want %q", got, a)
	}
	if got := gen(); got != b {
		t.Fatalf("second id = %q, want %q (repeats must be skipped)", got, b)
	}
}

func TestNew_UsesDefault(t *testing.T) {
	if id := New(); !Valid(id) {
		t.Errorf("New() = %q, not a valid v4 id", id)
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"canonical", "3b241101-e2bb-4255-8caf-4136c566a962", true},
		{"wrong version", "3b241101-e2bb-1255-8caf-4136c566a962", false},
		{"wrong variant", "3b241101-e2bb-4255-ccaf-4136c566a962", false},
		{"upper case", "3B241101-E2BB-4255-8CAF-4136C566A962", false},
		{"too short", "3b241101-e2bb-4255-8caf", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Valid(tt.id); got != tt.want {
				t.Errorf("Valid(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestSequence_PanicsWhenExhausted(t *testing.T) {
	gen := Sequence("only")
	_ = gen()

	defer func() {
		if recover() == nil {
			t.Error("expected panic on exhausted sequence")
		}
	}()
	_ = gen()
}
