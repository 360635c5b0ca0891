package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

const minimal = `
[Key]
PublicKey = "~/.evaluator/provider.pub"

[Probe]
URL = "http://evaluator.local"
`

func TestLoadDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, minimal))
	require.NoError(t, err)

	require.Equal(t, ":8090", c.Http.Listen)
	require.Equal(t, int64(10000), c.Probe.FreshnessWindowMs)
	require.Equal(t, 10*time.Second, c.Probe.Timeout())
	require.Equal(t, 10*time.Minute, c.Probe.Interval())
	require.Equal(t, int64(604800), c.Reward.Params().LongevityThreshold)
	require.Equal(t, "info", c.Log.Level)
}

func TestLoadFull(t *testing.T) {
	c, err := Load(writeConfig(t, minimal+`
SampleSize = 3
TimeoutSec = 5
FreshnessWindowMs = 2500

[Reward]
LongevityBonus = 0.5
[Reward.RarityRate]
"model X" = 0.1
"model Y" = 0.0
`))
	require.NoError(t, err)

	p := c.Reward.Params()
	require.Equal(t, 0.5, p.LongevityBonus)
	require.Equal(t, 0.1, p.RarityRate["model X"])
	require.Equal(t, 3, c.Probe.SampleSize)
	require.Equal(t, int64(2500), c.Probe.FreshnessWindowMs)

	require.NoError(t, InitConfig(writeConfig(t, minimal)))
	require.Equal(t, "http://evaluator.local", GetConfig().Probe.URL)
}

func TestLoadRejects(t *testing.T) {
	cases := map[string]string{
		"missing key":      "[Probe]\nURL = \"x\"\n",
		"missing url":      "[Key]\nPublicKey = \"k\"\n[Probe]\nSampleSize = 1\n",
		"negative sample":  minimal + "SampleSize = -1\n",
		"zero timeout":     minimal + "TimeoutSec = 0\n",
		"negative bonus":   minimal + "[Reward]\nLongevityBonus = -1.0\n",
		"negative rarity":  minimal + "[Reward.RarityRate]\n\"m\" = -0.1\n",
		"nan rarity":       minimal + "[Reward.RarityRate]\n\"m\" = nan\n",
		"bad toml":         "[Key\n",
		"zero freshness":   minimal + "FreshnessWindowMs = 0\n",
		"negative workers": minimal + "Concurrency = -2\n",
	}
	for name, body := range cases {
		_, err := Load(writeConfig(t, body))
		require.Error(t, err, name)
	}

	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}
