package id

import (
	"testing"

	"github.com/google/uuid"
)

func TestGenerate(t *testing.T) {
	seen := make(map[string]bool)
	prev := ""
	for i := 0; i < 100; i++ {
		got, err := Generate()
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		u, err := uuid.Parse(got)
		if err != nil {
			t.Fatalf("Generate() returned unparsable id %q: %v", got, err)
		}
		if u.Version() != 7 {
			t.Errorf("Expected version 7 uuid, got %d", u.Version())
		}
		if seen[got] {
			t.Fatalf("Duplicate id %q", got)
		}
		seen[got] = true
		if prev != "" && got < prev {
			t.Errorf("Expected ids to be time ordered, %q < %q", got, prev)
		}
		prev = got
	}
}
