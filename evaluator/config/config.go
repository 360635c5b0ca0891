package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gridprotocol/computing-evaluator/evaluator/reward"
	"github.com/gridprotocol/computing-evaluator/lib/attest"
	"github.com/gridprotocol/computing-evaluator/lib/logc"
)

const DefaultFile = "config.toml"

var conf *EvaluatorConfig

type EvaluatorConfig struct {
	Http   Http
	Local  Local
	Key    Key
	Probe  Probe
	Reward Reward
	Log    logc.Config
}

type Http struct {
	Listen string
	// AdminSecret enables HMAC-signed peer management over http when set.
	AdminSecret string
}

type Local struct {
	DBPath string
}

type Key struct {
	// raw 32-byte provider public key
	PublicKey string
}

type Probe struct {
	URL               string
	SampleSize        int
	TimeoutSec        int
	IntervalSec       int
	FreshnessWindowMs int64
	Concurrency       int
}

type Reward struct {
	LongevityBonus     float64
	LongevityThreshold int64
	RarityRate         map[string]float64
}

func (p Probe) Timeout() time.Duration  { return time.Duration(p.TimeoutSec) * time.Second }
func (p Probe) Interval() time.Duration { return time.Duration(p.IntervalSec) * time.Second }

func (r Reward) Params() reward.Params {
	return reward.Params{
		RarityRate:         r.RarityRate,
		LongevityBonus:     r.LongevityBonus,
		LongevityThreshold: r.LongevityThreshold,
	}
}

func defaults() *EvaluatorConfig {
	return &EvaluatorConfig{
		Http:  Http{Listen: ":8090"},
		Local: Local{DBPath: "~/.evaluator/db"},
		Probe: Probe{
			SampleSize:        0,
			TimeoutSec:        10,
			IntervalSec:       600,
			FreshnessWindowMs: attest.DefaultFreshnessWindow,
		},
		Reward: Reward{
			LongevityThreshold: reward.DefaultLongevityThreshold,
			RarityRate:         map[string]float64{},
		},
		Log: logc.Config{Level: "info"},
	}
}

// InitConfig loads path, or config.toml in the working directory when
// path is empty.
func InitConfig(path string) error {
	if path == "" {
		currentDir, _ := os.Getwd()
		path = filepath.Join(currentDir, DefaultFile)
	}

	c, err := Load(path)
	if err != nil {
		return err
	}
	conf = c
	return nil
}

// Load decodes a config file over the defaults and validates it.
func Load(path string) (*EvaluatorConfig, error) {
	c := defaults()
	metaData, err := toml.DecodeFile(path, c)
	if err != nil {
		return nil, fmt.Errorf("failed load config file, path: %s, error: %w", path, err)
	}
	if err := requiredFieldsAreGiven(metaData); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func GetConfig() *EvaluatorConfig {
	return conf
}

func requiredFieldsAreGiven(metaData toml.MetaData) error {
	requiredFields := [][]string{
		{"Key"},
		{"Probe"},

		{"Key", "PublicKey"},
		{"Probe", "URL"},
	}

	for _, v := range requiredFields {
		if !metaData.IsDefined(v...) {
			return fmt.Errorf("required field %v not given", v)
		}
	}
	return nil
}

func (c *EvaluatorConfig) Validate() error {
	p := c.Probe
	switch {
	case p.SampleSize < 0:
		return fmt.Errorf("Probe.SampleSize must not be negative")
	case p.TimeoutSec <= 0:
		return fmt.Errorf("Probe.TimeoutSec must be positive")
	case p.IntervalSec <= 0:
		return fmt.Errorf("Probe.IntervalSec must be positive")
	case p.FreshnessWindowMs <= 0:
		return fmt.Errorf("Probe.FreshnessWindowMs must be positive")
	case p.Concurrency < 0:
		return fmt.Errorf("Probe.Concurrency must not be negative")
	}

	if invalidWeight(c.Reward.LongevityBonus) {
		return fmt.Errorf("Reward.LongevityBonus must be a non-negative number")
	}
	for model, rate := range c.Reward.RarityRate {
		if invalidWeight(rate) {
			return fmt.Errorf("Reward.RarityRate[%q] must be a non-negative number", model)
		}
	}
	return nil
}

func invalidWeight(v float64) bool {
	return v < 0 || math.IsNaN(v) || math.IsInf(v, 0)
}
