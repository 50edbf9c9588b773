package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingUpdater struct {
	calls [][2]string
}

func (r *recordingUpdater) UpdateAPIKey(apiKey, language string) {
	r.calls = append(r.calls, [2]string{apiKey, language})
}

func TestMetadataReloader(t *testing.T) {
	t.Setenv("TMDB_API_KEY", "")
	t.Setenv("MOVIE_API_KEY", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	write := func(body string) {
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}

	updater := &recordingUpdater{}
	m := &metadataReloader{path: path, svc: updater, apiKey: "old-key", language: "en-US"}

	write("tmdb:\n  api_key: old-key\n  language: en-US\n")
	changed, err := m.reload()
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, updater.calls)

	write("tmdb:\n  api_key: new-key\n  language: de-DE\n")
	changed, err = m.reload()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, [][2]string{{"new-key", "de-DE"}}, updater.calls)

	write("tmdb: [not, a, map\n")
	_, err = m.reload()
	assert.Error(t, err)
	assert.Len(t, updater.calls, 1)
}
