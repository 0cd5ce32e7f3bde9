package classifier

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArtifact(t *testing.T, artifact modelArtifact) string {
	t.Helper()
	data, err := json.Marshal(artifact)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLoadAndPredict(t *testing.T) {
	path := writeArtifact(t, modelArtifact{
		Vocabulary: map[string]int{"milk": 0, "whole": 1, "chips": 2, "potato": 3},
		Classes:    []string{"DAIRY_FRESH", "SNACK"},
		Weights: [][]float64{
			{2.0, 1.0, -1.0, -1.0},
			{-1.0, -0.5, 2.0, 1.5},
		},
		Intercepts: []float64{0.1, 0.0},
	})

	model, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "DAIRY_FRESH", model.Predict("Whole Milk 1L"))
	assert.Equal(t, "SNACK", model.Predict("potato chips 150g"))
}

func TestPredictUnknownTokensFallToHighestIntercept(t *testing.T) {
	path := writeArtifact(t, modelArtifact{
		Vocabulary: map[string]int{"milk": 0},
		Classes:    []string{"DAIRY_FRESH", "ETC"},
		Weights:    [][]float64{{2.0}, {0.0}},
		Intercepts: []float64{-0.5, 0.3},
	})

	model, err := Load(path)
	require.NoError(t, err)

	// No vocabulary token matches, so only intercepts decide.
	assert.Equal(t, "ETC", model.Predict("mystery item 999"))
}

func TestLoadRejectsMalformedArtifacts(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := writeArtifact(t, modelArtifact{
		Vocabulary: map[string]int{"milk": 0},
		Classes:    []string{"A", "B"},
		Weights:    [][]float64{{1.0}},
		Intercepts: []float64{0.0, 0.0},
	})
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weight rows")

	path = writeArtifact(t, modelArtifact{
		Vocabulary: map[string]int{"milk": 0, "bread": 1},
		Classes:    []string{"A"},
		Weights:    [][]float64{{1.0}},
		Intercepts: []float64{0.0},
	})
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "features")
}
