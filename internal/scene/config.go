package scene

import (
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	DefaultSeed = "nightdrive"

	defaultBlocksPerSide   = 6
	defaultLotSize         = 22.0
	defaultStreetWidth     = 14.0
	defaultMaxFloors       = 14
	minMaxFloors           = 3
	defaultWindowLitChance = 0.35
	defaultLampSpacing     = 0.04
)

// Config drives procedural scene generation. Everything downstream of it is
// deterministic: same config, same scene.
type Config struct {
	Seed            string  `json:"seed" mapstructure:"seed"`
	BlocksPerSide   int     `json:"blocksPerSide" mapstructure:"blocksPerSide"`
	LotSize         float64 `json:"lotSize" mapstructure:"lotSize"`
	StreetWidth     float64 `json:"streetWidth" mapstructure:"streetWidth"`
	MaxFloors       int     `json:"maxFloors" mapstructure:"maxFloors"`
	WindowLitChance float64 `json:"windowLitChance" mapstructure:"windowLitChance"`
	LampSpacing     float64 `json:"lampSpacing" mapstructure:"lampSpacing"`
	MergeGeometry   bool    `json:"mergeGeometry" mapstructure:"mergeGeometry"`
}

// DefaultConfig returns the generation parameters used when configuration
// does not override them.
func DefaultConfig() Config {
	return Config{
		Seed:            DefaultSeed,
		BlocksPerSide:   defaultBlocksPerSide,
		LotSize:         defaultLotSize,
		StreetWidth:     defaultStreetWidth,
		MaxFloors:       defaultMaxFloors,
		WindowLitChance: defaultWindowLitChance,
		LampSpacing:     defaultLampSpacing,
		MergeGeometry:   true,
	}
}

// Normalized trims the seed and clamps out-of-range values back to defaults.
func (cfg Config) Normalized() Config {
	normalized := cfg
	normalized.Seed = strings.TrimSpace(normalized.Seed)
	if normalized.Seed == "" {
		normalized.Seed = DefaultSeed
	}
	if normalized.BlocksPerSide <= 0 {
		normalized.BlocksPerSide = defaultBlocksPerSide
	}
	if normalized.LotSize <= 0 {
		normalized.LotSize = defaultLotSize
	}
	if normalized.StreetWidth <= 0 {
		normalized.StreetWidth = defaultStreetWidth
	}
	if normalized.MaxFloors < 1 {
		normalized.MaxFloors = defaultMaxFloors
	} else if normalized.MaxFloors < minMaxFloors {
		// Buildings are at least minMaxFloors tall; anything lower would
		// leave the floor-count draw with an empty range.
		normalized.MaxFloors = minMaxFloors
	}
	if normalized.WindowLitChance < 0 {
		normalized.WindowLitChance = 0
	} else if normalized.WindowLitChance > 1 {
		normalized.WindowLitChance = 1
	}
	if normalized.LampSpacing <= 0 {
		normalized.LampSpacing = defaultLampSpacing
	}
	return normalized
}

// DefaultTrackPoints is the fixed road centerline: a rounded loop threading
// the city grid. The rig only requires a closed loop of at least 3 points.
func DefaultTrackPoints() []mgl64.Vec3 {
	return []mgl64.Vec3{
		{-72, 0, -72},
		{0, 0, -88},
		{72, 0, -72},
		{88, 0, 0},
		{72, 0, 72},
		{0, 0, 88},
		{-72, 0, 72},
		{-88, 0, 0},
	}
}
