package embedding

import (
	"context"
	"math"
	"testing"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	ctx := context.Background()
	m := NewMockEmbedder(64)

	a, err := m.Embed(ctx, "rice needs standing water")
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.Embed(ctx, "rice needs standing water")
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != 64 {
		t.Fatalf("len = %d, want 64", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("vectors differ at %d: %f vs %f", i, a[i], b[i])
		}
	}
}

func TestMockEmbedder_Normalized(t *testing.T) {
	m := NewMockEmbedder(128)
	vec, err := m.Embed(context.Background(), "wheat prefers cool dry weather")
	if err != nil {
		t.Fatal(err)
	}
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if math.Abs(sum-1) > 1e-4 {
		t.Errorf("norm^2 = %f, want 1", sum)
	}
}

func TestMockEmbedder_WordOrderInsensitive(t *testing.T) {
	ctx := context.Background()
	m := NewMockEmbedder(128)

	// Vectors sum per-word contributions, so word order does not matter
	// but the word set does.
	a, _ := m.Embed(ctx, "rice paddy water")
	b, _ := m.Embed(ctx, "water rice paddy")
	c, _ := m.Embed(ctx, "tractor diesel maintenance")

	if dot(a, b) < 0.999 {
		t.Errorf("same word set, dot = %f, want ~1", dot(a, b))
	}
	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("disjoint word sets produced identical vectors")
	}
}

func TestMockEmbedder_Defaults(t *testing.T) {
	m := NewMockEmbedder(0)
	if m.Dimensions() != 384 {
		t.Errorf("Dimensions = %d, want default 384", m.Dimensions())
	}
	if m.Name() != "mock" {
		t.Errorf("Name = %s", m.Name())
	}
	if err := m.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestMockEmbedder_EmbedBatch(t *testing.T) {
	m := NewMockEmbedder(32)
	texts := []string{"one", "two", "three"}
	out, err := m.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	single, _ := m.Embed(context.Background(), "two")
	for i := range single {
		if out[1][i] != single[i] {
			t.Fatal("batch row differs from single embed")
		}
	}
}

func TestNormalizeL2_ZeroVector(t *testing.T) {
	vec := []float32{0, 0, 0}
	NormalizeL2(vec)
	for _, v := range vec {
		if v != 0 {
			t.Fatal("zero vector changed")
		}
	}
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}
