package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `id: surrey
provider: neulion
url: http://www.surrey.ca/city-government/6993.aspx
tz: America/Vancouver
---
id: surrey-archive
provider: granicus
url: http://surrey.ca.granicus.com/ViewPublisher.php?view_id=1
audio_mono: true
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSites(t *testing.T) {
	sites, err := LoadSites(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	require.Len(t, sites, 2)

	assert.Equal(t, "surrey", sites[0].ID)
	assert.Equal(t, "neulion", sites[0].Provider)
	assert.Equal(t, "America/Vancouver", sites[0].Timezone)
	assert.False(t, sites[0].AudioMono)

	assert.Equal(t, "granicus", sites[1].Provider)
	assert.True(t, sites[1].AudioMono)
}

func TestLoadSite(t *testing.T) {
	path := writeConfig(t, sampleConfig)

	site, err := LoadSite(path, "surrey-archive")
	require.NoError(t, err)
	assert.Equal(t, "granicus", site.Provider)

	_, err = LoadSite(path, "nope")
	assert.Error(t, err)
}

func TestLoadSitesRejectsIncomplete(t *testing.T) {
	_, err := LoadSites(writeConfig(t, "id: broken\nprovider: neulion\n"))
	assert.Error(t, err)
}

func TestLoadSitesMissingFile(t *testing.T) {
	_, err := LoadSites(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
