package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/gridprotocol/computing-evaluator/lib/logc"
)

// inventory sources
const (
	SourceDocker = "docker"
	SourceKube   = "k8s"
	SourceNone   = "none"
)

var conf *ProviderConfig

type ProviderConfig struct {
	Http Http
	Key  Key
	Node Node
	Log  logc.Config
}

type Http struct {
	Listen string
}

type Key struct {
	// private key file, any of the supported encodings
	PrivateKey string
}

type Node struct {
	// IP is reported as is; empty omits the field.
	IP string
	// Source is docker, k8s or none.
	Source     string
	Namespace  string
	NodeName   string
	Kubeconfig string

	// GPUs lists models to report when UseNvidiaSmi is off.
	GPUs         []string
	UseNvidiaSmi bool
}

func defaults() *ProviderConfig {
	return &ProviderConfig{
		Http: Http{Listen: ":8080"},
		Node: Node{Source: SourceDocker},
		Log:  logc.Config{Level: "info"},
	}
}

func InitConfig(path string) error {
	if path == "" {
		currentDir, _ := os.Getwd()
		path = filepath.Join(currentDir, "config.toml")
	}
	c, err := Load(path)
	if err != nil {
		return err
	}
	conf = c
	return nil
}

func Load(path string) (*ProviderConfig, error) {
	c := defaults()
	metaData, err := toml.DecodeFile(path, c)
	if err != nil {
		return nil, fmt.Errorf("failed load config file, path: %s, error: %w", path, err)
	}
	if err := requiredFieldsAreGiven(metaData); err != nil {
		return nil, err
	}
	switch c.Node.Source {
	case SourceDocker, SourceKube, SourceNone:
	default:
		return nil, fmt.Errorf("Node.Source must be one of docker, k8s, none; got %q", c.Node.Source)
	}
	return c, nil
}

func GetConfig() *ProviderConfig {
	return conf
}

func requiredFieldsAreGiven(metaData toml.MetaData) error {
	requiredFields := [][]string{
		{"Key"},
		{"Key", "PrivateKey"},
	}
	for _, v := range requiredFields {
		if !metaData.IsDefined(v...) {
			return fmt.Errorf("required field %v not given", v)
		}
	}
	return nil
}
