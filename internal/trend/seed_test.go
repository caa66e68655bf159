package trend

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trend-radar/internal/model"
)

func TestDefaultSeeds(t *testing.T) {
	s := MustDefaultSeeds()
	require.Greater(t, s.Len(), 3)

	now := time.Now()
	for _, c := range s.Candidates(now) {
		assert.NotEmpty(t, c.Title)
		assert.Equal(t, SourceFallback, c.SourceName)
	}
	rich := s.Rich(now)
	assert.Equal(t, "AI Agents", rich[0].Technology)
	require.NotNil(t, rich[0].StackRecommendations)
	assert.Equal(t, model.ComplexityMedium, rich[0].StackRecommendations.MigrationComplexity)
	assert.Equal(t, []string{SourceFallback}, rich[0].Sources)
}

func TestLoadSeeds_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seeds.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- technology: Bun\n  popularity: 140\n- description: no title\n"), 0o644))

	s, err := LoadSeeds(path)
	require.NoError(t, err)
	require.Equal(t, 1, s.Len())
	r := s.Rich(time.Now())[0]
	assert.Equal(t, 100.0, r.Popularity)
	assert.Equal(t, "Technology", r.Category)
}

func TestParseSeeds_Errors(t *testing.T) {
	_, err := ParseSeeds([]byte("[]"))
	assert.Error(t, err)
	_, err = ParseSeeds([]byte("not: [valid"))
	assert.Error(t, err)
	_, err = LoadSeeds(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
