// Package classifier scores receipt lines against a pre-trained linear
// text model shipped as a JSON artifact. Prediction happens fully locally;
// the artifact is produced offline by the training pipeline.
package classifier

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode"
)

// modelArtifact is the on-disk JSON shape: a token vocabulary mapping
// tokens to feature indices, and per-class weight rows plus intercepts over
// that feature space. Classes are external category codes.
type modelArtifact struct {
	Vocabulary map[string]int `json:"vocabulary"`
	Classes    []string       `json:"classes"`
	Weights    [][]float64    `json:"weights"`
	Intercepts []float64      `json:"intercepts"`
}

// Model predicts an external category code for a line of receipt text.
type Model struct {
	vocabulary map[string]int
	classes    []string
	weights    [][]float64
	intercepts []float64
}

// Load reads and validates the model artifact. A missing or malformed
// artifact is a constructor-time error so callers can decide whether to run
// without local classification.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read classifier artifact: %w", err)
	}

	var artifact modelArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("failed to unmarshal classifier artifact: %w", err)
	}

	if len(artifact.Classes) == 0 || len(artifact.Vocabulary) == 0 {
		return nil, fmt.Errorf("classifier artifact is empty")
	}
	if len(artifact.Weights) != len(artifact.Classes) {
		return nil, fmt.Errorf("classifier artifact has %d weight rows for %d classes",
			len(artifact.Weights), len(artifact.Classes))
	}
	if len(artifact.Intercepts) != len(artifact.Classes) {
		return nil, fmt.Errorf("classifier artifact has %d intercepts for %d classes",
			len(artifact.Intercepts), len(artifact.Classes))
	}
	featureCount := len(artifact.Vocabulary)
	for i, row := range artifact.Weights {
		if len(row) != featureCount {
			return nil, fmt.Errorf("classifier weight row %d has %d features, expected %d",
				i, len(row), featureCount)
		}
	}

	return &Model{
		vocabulary: artifact.Vocabulary,
		classes:    artifact.Classes,
		weights:    artifact.Weights,
		intercepts: artifact.Intercepts,
	}, nil
}

// Predict returns the external category code with the highest score for
// the given text.
func (m *Model) Predict(text string) string {
	counts := m.vectorize(text)

	best := 0
	bestScore := m.score(0, counts)
	for class := 1; class < len(m.classes); class++ {
		if s := m.score(class, counts); s > bestScore {
			best = class
			bestScore = s
		}
	}
	return m.classes[best]
}

func (m *Model) score(class int, counts map[int]float64) float64 {
	score := m.intercepts[class]
	row := m.weights[class]
	for feature, count := range counts {
		score += row[feature] * count
	}
	return score
}

// vectorize produces sparse term counts over the model vocabulary.
func (m *Model) vectorize(text string) map[int]float64 {
	counts := make(map[int]float64)
	for _, token := range tokenize(text) {
		if feature, ok := m.vocabulary[token]; ok {
			counts[feature]++
		}
	}
	return counts
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
