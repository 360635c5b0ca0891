// Package logc hands out named zap loggers that share one swappable core,
// so package level loggers created at init pick up the configuration
// applied later by Setup.
package logc

import (
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	DefaultMaxSize    = 100 // MB
	DefaultMaxBackups = 10
	DefaultMaxAge     = 30 // days
)

type Config struct {
	Level       string
	Development bool

	// File enables rotated file output in addition to stderr.
	File       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

var (
	level   = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	current atomic.Pointer[zapcore.Core]
	closer  atomic.Pointer[lumberjack.Logger]
)

func init() {
	c := newCore(Config{}, nil)
	current.Store(&c)
}

// Logger returns a sugared logger named after a subsystem.
func Logger(name string) *zap.SugaredLogger {
	return zap.New(&proxyCore{}, zap.AddCaller()).Named(name).Sugar()
}

// Setup replaces the shared core.
func Setup(cfg Config) error {
	if cfg.Level != "" {
		if err := SetLevel(cfg.Level); err != nil {
			return err
		}
	}

	var lj *lumberjack.Logger
	if cfg.File != "" {
		lj = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    orDefault(cfg.MaxSize, DefaultMaxSize),
			MaxBackups: orDefault(cfg.MaxBackups, DefaultMaxBackups),
			MaxAge:     orDefault(cfg.MaxAge, DefaultMaxAge),
			Compress:   cfg.Compress,
		}
	}

	c := newCore(cfg, lj)
	current.Store(&c)
	if old := closer.Swap(lj); old != nil {
		old.Close()
	}
	return nil
}

// SetLevel changes the level of every logger.
func SetLevel(l string) error {
	lvl, err := zapcore.ParseLevel(l)
	if err != nil {
		return err
	}
	level.SetLevel(lvl)
	return nil
}

func Sync() {
	(*current.Load()).Sync() // nolint:errcheck
}

func newCore(cfg Config, lj *lumberjack.Logger) zapcore.Core {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if cfg.Development {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	cores := []zapcore.Core{zapcore.NewCore(enc, zapcore.Lock(os.Stderr), level)}
	if lj != nil {
		fileEnc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		cores = append(cores, zapcore.NewCore(fileEnc, zapcore.AddSync(lj), level))
	}
	return zapcore.NewTee(cores...)
}

func orDefault(v, d int) int {
	if v <= 0 {
		return d
	}
	return v
}

// proxyCore forwards to whatever core is current at write time.
type proxyCore struct {
	fields []zapcore.Field
}

func (p *proxyCore) Enabled(l zapcore.Level) bool {
	return level.Enabled(l)
}

func (p *proxyCore) With(fields []zapcore.Field) zapcore.Core {
	fs := make([]zapcore.Field, 0, len(p.fields)+len(fields))
	fs = append(fs, p.fields...)
	fs = append(fs, fields...)
	return &proxyCore{fields: fs}
}

func (p *proxyCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if p.Enabled(ent.Level) {
		return ce.AddCore(ent, p)
	}
	return ce
}

func (p *proxyCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	c := *current.Load()
	if len(p.fields) > 0 {
		c = c.With(p.fields)
	}
	return c.Write(ent, fields)
}

func (p *proxyCore) Sync() error {
	return (*current.Load()).Sync()
}
