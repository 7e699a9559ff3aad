package scoring

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrDimensionMismatch is returned by Cosine when the two vectors differ in
// length.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Cosine returns the cosine similarity of a and b. Vectors of differing
// length are an error; a zero-norm vector yields 0 rather than NaN.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	if len(a) == 0 {
		return 0, nil
	}
	var dot, na, nb float64
	for i := 0; i < len(a); i++ {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}

func Clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// OverlapCount counts distinct subject headings present in both sets.
func OverlapCount(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(a))
	for _, s := range a {
		seen[s] = struct{}{}
	}
	count := 0
	counted := make(map[string]struct{}, len(b))
	for _, s := range b {
		if _, dup := counted[s]; dup {
			continue
		}
		counted[s] = struct{}{}
		if _, ok := seen[s]; ok {
			count++
		}
	}
	return count
}

// Jaccard returns |a ∩ b| / |a ∪ b| over subject headings, 0 when both are
// empty.
func Jaccard(a, b []string) float64 {
	union := make(map[string]struct{}, len(a)+len(b))
	inA := make(map[string]struct{}, len(a))
	for _, s := range a {
		union[s] = struct{}{}
		inA[s] = struct{}{}
	}
	inter := 0
	seenB := make(map[string]struct{}, len(b))
	for _, s := range b {
		if _, dup := seenB[s]; dup {
			continue
		}
		seenB[s] = struct{}{}
		union[s] = struct{}{}
		if _, ok := inA[s]; ok {
			inter++
		}
	}
	if len(union) == 0 {
		return 0
	}
	return float64(inter) / float64(len(union))
}

// TaxonomyAffinity scores two classification codes: 1.0 on an exact match,
// 0.5 when only the top-level segment (before the first dot) matches, 0
// otherwise or when either code is missing.
func TaxonomyAffinity(a, b string) float64 {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1.0
	}
	if topSegment(a) == topSegment(b) {
		return 0.5
	}
	return 0
}

func topSegment(code string) string {
	if i := strings.IndexByte(code, '.'); i >= 0 {
		return code[:i]
	}
	return code
}

// HybridWeights blends the three relatedness signals into one edge weight.
// The weights must be non-negative and sum to 1.0.
type HybridWeights struct {
	Vector   float64 `yaml:"vector"`
	Subject  float64 `yaml:"subject"`
	Taxonomy float64 `yaml:"taxonomy"`
}

func (w HybridWeights) Validate() error {
	if w.Vector < 0 || w.Subject < 0 || w.Taxonomy < 0 {
		return errors.New("hybrid weights must be non-negative")
	}
	sum := w.Vector + w.Subject + w.Taxonomy
	if math.Abs(sum-1.0) > 1e-6 {
		return fmt.Errorf("hybrid weights must sum to 1.0, got %.6f", sum)
	}
	return nil
}

// Combine normalizes each signal into [0,1] and returns the weighted blend.
func (w HybridWeights) Combine(vector, subject, taxonomy float64) float64 {
	return Clamp01(w.Vector*Clamp01(vector) + w.Subject*Clamp01(subject) + w.Taxonomy*Clamp01(taxonomy))
}
