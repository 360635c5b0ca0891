package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func write(t *testing.T, body string) string {
	p := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0644))
	return p
}

func TestLoad(t *testing.T) {
	c, err := Load(write(t, `
[Key]
PrivateKey = "~/.provider/node.key"

[Node]
IP = "10.0.0.1"
Source = "none"
GPUs = ["model X", "model Y"]
`))
	require.NoError(t, err)
	require.Equal(t, ":8080", c.Http.Listen)
	require.Equal(t, SourceNone, c.Node.Source)
	require.Equal(t, []string{"model X", "model Y"}, c.Node.GPUs)

	require.NoError(t, InitConfig(write(t, "[Key]\nPrivateKey = \"k\"\n")))
	require.Equal(t, SourceDocker, GetConfig().Node.Source)
}

func TestLoadRejects(t *testing.T) {
	_, err := Load(write(t, "[Node]\nSource = \"none\"\n"))
	require.Error(t, err)

	_, err = Load(write(t, "[Key]\nPrivateKey = \"k\"\n[Node]\nSource = \"podman\"\n"))
	require.Error(t, err)
}
