package scene

import "sort"

// mergeMemberLimit bounds a single batched mesh; past it the optimizer backs
// off to the unmerged set rather than hand the client an oversized buffer.
const mergeMemberLimit = 4096

// Logger is the minimal logging surface scene builders need.
type Logger interface {
	Printf(format string, args ...any)
}

// MergeByPalette batches static box instances sharing a palette into one
// merged mesh per palette. Non-box, emissive, and already-merged instances
// pass through untouched. The optimization degrades gracefully: when a batch
// would exceed the member limit the input is returned unchanged with a
// warning, never an error.
func MergeByPalette(instances []MeshInstance, logger Logger) []MeshInstance {
	groups := make(map[Palette][]MeshInstance)
	var passthrough []MeshInstance

	for _, inst := range instances {
		if inst.Shape != ShapeBox || inst.Emissive || len(inst.Merged) > 0 {
			passthrough = append(passthrough, inst)
			continue
		}
		groups[inst.Palette] = append(groups[inst.Palette], inst)
	}

	for palette, members := range groups {
		if len(members) > mergeMemberLimit {
			if logger != nil {
				logger.Printf("scene: merge skipped, palette %s has %d members (limit %d); serving unmerged geometry", palette, len(members), mergeMemberLimit)
			}
			return instances
		}
	}

	// Deterministic output order regardless of map iteration.
	palettes := make([]Palette, 0, len(groups))
	for palette := range groups {
		palettes = append(palettes, palette)
	}
	sort.Slice(palettes, func(i, j int) bool { return palettes[i] < palettes[j] })

	merged := make([]MeshInstance, 0, len(passthrough)+len(palettes))
	merged = append(merged, passthrough...)
	for _, palette := range palettes {
		members := groups[palette]
		if len(members) == 1 {
			merged = append(merged, members[0])
			continue
		}
		merged = append(merged, MeshInstance{
			ID:      "merged-" + string(palette),
			Shape:   ShapeBox,
			Palette: palette,
			Merged:  members,
		})
	}
	return merged
}
