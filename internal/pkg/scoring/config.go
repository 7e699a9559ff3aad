package scoring

import (
	"embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const weightsYAMLEnv = "SCORING_WEIGHTS_YAML"

//go:embed weights.yaml
var weightsFS embed.FS

// MultihopWeights rank a traversal result from its path strength, the node's
// quality score, and its novelty (inverse degree).
type MultihopWeights struct {
	PathStrength float64 `yaml:"path_strength"`
	Quality      float64 `yaml:"quality"`
	Novelty      float64 `yaml:"novelty"`
}

// OpenDiscoveryWeights score an open A-B-C hypothesis. CommonNeighbors
// saturates at NeighborSaturation distinct bridges.
type OpenDiscoveryWeights struct {
	PathStrength       float64 `yaml:"path_strength"`
	Semantic           float64 `yaml:"semantic"`
	CommonNeighbors    float64 `yaml:"common_neighbors"`
	NeighborSaturation int     `yaml:"neighbor_saturation"`
}

// ClosedDiscoveryWeights score a path between two chosen endpoints. TwoHop
// paths start from TwoHopStrength; each hop beyond two multiplies the base by
// ExtraHopPenalty.
type ClosedDiscoveryWeights struct {
	Base            float64 `yaml:"base"`
	Semantic        float64 `yaml:"semantic"`
	TwoHopStrength  float64 `yaml:"two_hop_strength"`
	ExtraHopPenalty float64 `yaml:"extra_hop_penalty"`
}

type ValidationWeights struct {
	Reinforcement float64 `yaml:"reinforcement"`
}

type Config struct {
	Hybrid          HybridWeights          `yaml:"hybrid"`
	Multihop        MultihopWeights        `yaml:"multihop"`
	OpenDiscovery   OpenDiscoveryWeights   `yaml:"open_discovery"`
	ClosedDiscovery ClosedDiscoveryWeights `yaml:"closed_discovery"`
	Validation      ValidationWeights      `yaml:"validation"`
}

// Default returns the built-in weight set, used when the embedded YAML cannot
// be parsed.
func Default() Config {
	return Config{
		Hybrid:   HybridWeights{Vector: 0.6, Subject: 0.3, Taxonomy: 0.1},
		Multihop: MultihopWeights{PathStrength: 0.5, Quality: 0.3, Novelty: 0.2},
		OpenDiscovery: OpenDiscoveryWeights{
			PathStrength:       0.4,
			Semantic:           0.3,
			CommonNeighbors:    0.3,
			NeighborSaturation: 5,
		},
		ClosedDiscovery: ClosedDiscoveryWeights{
			Base:            0.6,
			Semantic:        0.4,
			TwoHopStrength:  0.7,
			ExtraHopPenalty: 0.5,
		},
		Validation: ValidationWeights{Reinforcement: 1.1},
	}
}

var (
	loadOnce  sync.Once
	loadedCfg Config
	loadedErr error
)

// Load parses the weight configuration once: an operator-supplied YAML file
// named by SCORING_WEIGHTS_YAML wins, otherwise the embedded defaults apply.
func Load() (Config, error) {
	loadOnce.Do(func() {
		loadedCfg, loadedErr = load()
	})
	if loadedErr != nil {
		return Default(), loadedErr
	}
	return loadedCfg, nil
}

func load() (Config, error) {
	raw, err := readWeightsYAML()
	if err != nil {
		return Default(), err
	}
	cfg := Default()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Default(), fmt.Errorf("parse scoring weights: %w", err)
	}
	if err := cfg.Hybrid.Validate(); err != nil {
		return Default(), err
	}
	return cfg, nil
}

func readWeightsYAML() ([]byte, error) {
	if path := strings.TrimSpace(os.Getenv(weightsYAMLEnv)); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", weightsYAMLEnv, err)
		}
		return raw, nil
	}
	return weightsFS.ReadFile("weights.yaml")
}

// Rank applies the multihop ranking blend.
func (w MultihopWeights) Rank(pathStrength, quality, novelty float64) float64 {
	return Clamp01(w.PathStrength*pathStrength + w.Quality*quality + w.Novelty*novelty)
}

// Plausibility scores an open hypothesis from its fixed path strength, the
// A-C semantic similarity, and the distinct bridge count.
func (w OpenDiscoveryWeights) Plausibility(pathStrength, semantic float64, commonNeighbors int) float64 {
	sat := w.NeighborSaturation
	if sat <= 0 {
		sat = 1
	}
	neighborTerm := float64(commonNeighbors) / float64(sat)
	if neighborTerm > 1 {
		neighborTerm = 1
	}
	return Clamp01(w.PathStrength*pathStrength + w.Semantic*Clamp01(semantic) + w.CommonNeighbors*neighborTerm)
}

// BaseStrength returns the fixed base strength for a path of the given hop
// count (2 or more).
func (w ClosedDiscoveryWeights) BaseStrength(hops int) float64 {
	base := w.TwoHopStrength
	for h := 2; h < hops; h++ {
		base *= w.ExtraHopPenalty
	}
	return base
}

// Plausibility scores a closed path from its base strength and the A-C
// semantic similarity.
func (w ClosedDiscoveryWeights) Plausibility(base, semantic float64) float64 {
	return Clamp01(w.Base*base + w.Semantic*Clamp01(semantic))
}
