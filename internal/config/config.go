// Package config loads server settings from an optional nightdrive.yaml file
// and NIGHTDRIVE_* environment overrides, layered over the tuning defaults the
// simulation packages export.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"nightdrive/server/internal/effects"
	"nightdrive/server/internal/rig"
	"nightdrive/server/internal/scene"
	"nightdrive/server/internal/sim"
)

const (
	configName = "nightdrive"
	envPrefix  = "NIGHTDRIVE"
)

// RecorderConfig controls the sqlite frame-trace recorder.
type RecorderConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// LogConfig controls the logging router sinks.
type LogConfig struct {
	JSONPath string `mapstructure:"jsonPath"`
}

// Config is the full server configuration. Zero or out-of-range values fall
// back to package defaults during normalization.
type Config struct {
	ListenAddr string `mapstructure:"listenAddr"`
	TickRate   int    `mapstructure:"tickRate"`

	// KeyframeInterval of zero defers to the hub default.
	KeyframeInterval int `mapstructure:"keyframeInterval"`
	// KeyframeCapacity of zero defers to the engine default.
	KeyframeCapacity int `mapstructure:"keyframeCapacity"`

	EnablePprofTrace bool `mapstructure:"enablePprofTrace"`

	Scene     scene.Config        `mapstructure:"scene"`
	Rig       rig.Tuning          `mapstructure:"rig"`
	Particles effects.FieldConfig `mapstructure:"particles"`
	Recorder  RecorderConfig      `mapstructure:"recorder"`
	Log       LogConfig           `mapstructure:"log"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		ListenAddr: ":8080",
		TickRate:   sim.DefaultLoopConfig().TickRate,
		Scene:      scene.DefaultConfig(),
		Rig:        rig.DefaultTuning(),
		Particles:  effects.DefaultFieldConfig(),
		Recorder:   RecorderConfig{DSN: "nightdrive.db"},
	}
}

// Load reads nightdrive.yaml from dir (the working directory when dir is
// empty) and applies NIGHTDRIVE_* environment overrides. A missing config
// file is not an error; a malformed one is.
func Load(dir string) (Config, error) {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	if dir == "" {
		dir = "."
	}
	v.AddConfigPath(dir)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, Default())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: read %s: %w", configName, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	return cfg.Normalized(), nil
}

// setDefaults registers every known key so environment overrides bind during
// Unmarshal even without a config file.
func setDefaults(v *viper.Viper, defaults Config) {
	v.SetDefault("listenAddr", defaults.ListenAddr)
	v.SetDefault("tickRate", defaults.TickRate)
	v.SetDefault("keyframeInterval", defaults.KeyframeInterval)
	v.SetDefault("keyframeCapacity", defaults.KeyframeCapacity)
	v.SetDefault("enablePprofTrace", defaults.EnablePprofTrace)

	v.SetDefault("scene.seed", defaults.Scene.Seed)
	v.SetDefault("scene.blocksPerSide", defaults.Scene.BlocksPerSide)
	v.SetDefault("scene.lotSize", defaults.Scene.LotSize)
	v.SetDefault("scene.streetWidth", defaults.Scene.StreetWidth)
	v.SetDefault("scene.maxFloors", defaults.Scene.MaxFloors)
	v.SetDefault("scene.windowLitChance", defaults.Scene.WindowLitChance)
	v.SetDefault("scene.lampSpacing", defaults.Scene.LampSpacing)
	v.SetDefault("scene.mergeGeometry", defaults.Scene.MergeGeometry)

	v.SetDefault("rig.maxSpeed", defaults.Rig.MaxSpeed)
	v.SetDefault("rig.acceleration", defaults.Rig.Acceleration)
	v.SetDefault("rig.unitConversion", defaults.Rig.UnitConversion)
	v.SetDefault("rig.lookahead", defaults.Rig.Lookahead)
	v.SetDefault("rig.steerEpsilon", defaults.Rig.SteerEpsilon)
	v.SetDefault("rig.steerGain", defaults.Rig.SteerGain)
	v.SetDefault("rig.shakeThreshold", defaults.Rig.ShakeThreshold)
	v.SetDefault("rig.shakeGain", defaults.Rig.ShakeGain)
	v.SetDefault("rig.eye.lateral", defaults.Rig.Eye.Lateral)
	v.SetDefault("rig.eye.vertical", defaults.Rig.Eye.Vertical)
	v.SetDefault("rig.eye.longitudinal", defaults.Rig.Eye.Longitudinal)

	v.SetDefault("particles.count", defaults.Particles.Count)
	v.SetDefault("particles.referenceSpeed", defaults.Particles.ReferenceSpeed)
	v.SetDefault("particles.driftScale", defaults.Particles.DriftScale)
	v.SetDefault("particles.despawnZ", defaults.Particles.DespawnZ)
	v.SetDefault("particles.spawnDepth", defaults.Particles.SpawnDepth)
	v.SetDefault("particles.spawnWidth", defaults.Particles.SpawnWidth)
	v.SetDefault("particles.spawnHeight", defaults.Particles.SpawnHeight)
	v.SetDefault("particles.minVelocity", defaults.Particles.MinVelocity)
	v.SetDefault("particles.maxVelocity", defaults.Particles.MaxVelocity)
	v.SetDefault("particles.opacityFloor", defaults.Particles.OpacityFloor)

	v.SetDefault("recorder.enabled", defaults.Recorder.Enabled)
	v.SetDefault("recorder.dsn", defaults.Recorder.DSN)

	v.SetDefault("log.jsonPath", defaults.Log.JSONPath)
}

// Normalized clamps out-of-range values back to defaults.
func (c Config) Normalized() Config {
	defaults := Default()
	normalized := c
	normalized.ListenAddr = strings.TrimSpace(normalized.ListenAddr)
	if normalized.ListenAddr == "" {
		normalized.ListenAddr = defaults.ListenAddr
	}
	if normalized.TickRate <= 0 {
		normalized.TickRate = defaults.TickRate
	}
	if normalized.KeyframeInterval < 0 {
		normalized.KeyframeInterval = 0
	}
	if normalized.KeyframeCapacity < 0 {
		normalized.KeyframeCapacity = 0
	}
	normalized.Scene = normalized.Scene.Normalized()
	normalized.Rig = normalized.Rig.Normalized()
	normalized.Particles = normalized.Particles.Normalized()
	if normalized.Recorder.Enabled && strings.TrimSpace(normalized.Recorder.DSN) == "" {
		normalized.Recorder.DSN = defaults.Recorder.DSN
	}
	return normalized
}

// CoreConfig maps the loaded configuration onto the engine configuration.
func (c Config) CoreConfig() sim.CoreConfig {
	return sim.CoreConfig{
		Scene:            c.Scene,
		Rig:              c.Rig,
		Particles:        c.Particles,
		KeyframeCapacity: c.KeyframeCapacity,
	}
}

// LoopConfig maps the loaded configuration onto the loop configuration.
func (c Config) LoopConfig() sim.LoopConfig {
	loop := sim.DefaultLoopConfig()
	if c.TickRate > 0 {
		loop.TickRate = c.TickRate
	}
	return loop
}
