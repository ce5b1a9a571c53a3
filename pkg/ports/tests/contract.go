package tests

import (
	"context"
	"testing"

	"github.com/aretw0/storyline/pkg/ports"
	"github.com/aretw0/storyline/pkg/tabular"
)

// StorySourceContractTest is a reusable test suite that verifies if an adapter complies with ports.StorySource.
// want is the exact text the source is expected to return.
func StorySourceContractTest(t *testing.T, src ports.StorySource, want []byte) {
	t.Helper()

	t.Run("Read", func(t *testing.T) {
		got, err := src.Read(context.Background())
		if err != nil {
			t.Fatalf("unexpected error reading %s: %v", src.Name(), err)
		}
		if string(got) != string(want) {
			t.Errorf("content mismatch for %s. got %q, want %q", src.Name(), got, want)
		}
	})

	t.Run("Read is repeatable", func(t *testing.T) {
		first, err := src.Read(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		second, err := src.Read(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if string(first) != string(second) {
			t.Error("consecutive reads differ")
		}
	})

	t.Run("Builds", func(t *testing.T) {
		got, err := src.Read(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		g, _ := tabular.Build(string(got))
		want, _ := tabular.Build(string(want))
		if g.Len() != want.Len() {
			t.Errorf("node count mismatch: got %d, want %d", g.Len(), want.Len())
		}
	})

	t.Run("Name", func(t *testing.T) {
		if src.Name() == "" {
			t.Error("expected a non-empty name")
		}
	})
}
