package match

import (
	"math"
	"testing"
)

func TestSimilarity_SelfMatch(t *testing.T) {
	vecs := [][]float32{
		{1, 0, 0, 0},
		{0.3, -0.7, 0.1, 0.9},
		{5, 5, 5, 5},
	}
	for _, v := range vecs {
		got := Similarity(v, v)
		if math.Abs(got-1.0) > 1e-9 {
			t.Errorf("Similarity(v, v) = %v, want 1.0", got)
		}
	}
}

func TestSimilarity_Orthogonal(t *testing.T) {
	a := []float32{1, 0, 0, 0}
	b := []float32{0, 1, 0, 0}
	if got := Similarity(a, b); got != 0 {
		t.Errorf("orthogonal vectors should have similarity 0, got %v", got)
	}
}

func TestSimilarity_Opposite(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{-1, 0}
	if got := Similarity(a, b); math.Abs(got+1) > 1e-9 {
		t.Errorf("opposite vectors should have similarity -1, got %v", got)
	}
}

func TestSimilarity_MagnitudeInvariant(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{10, 20, 30}
	if got := Similarity(a, b); math.Abs(got-1.0) > 1e-6 {
		t.Errorf("scaled vector should have similarity 1.0, got %v", got)
	}
}

func TestSimilarity_ZeroNorm(t *testing.T) {
	a := []float32{0, 0, 0}
	b := []float32{1, 2, 3}
	if got := Similarity(a, b); got != 0 {
		t.Errorf("zero-norm comparison should be 0, not an error, got %v", got)
	}
}

func TestSimilarity_LengthMismatch(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{1, 0, 0}
	if got := Similarity(a, b); got != 0 {
		t.Errorf("length mismatch should yield 0, got %v", got)
	}
	if got := Similarity(nil, nil); got != 0 {
		t.Errorf("empty vectors should yield 0, got %v", got)
	}
}
