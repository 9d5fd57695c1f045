package composer

import (
	"fmt"
	"strconv"
	"strings"

	"reelforge/internal/workflow"
)

const defaultFadeDuration = 0.25

// buildFilterChain assembles the filter_complex string: per-clip format
// normalization, concatenation (xfade when transitions are present, plain
// concat otherwise), and an audio branch when tracks follow the clip inputs.
func buildFilterChain(clipCount int, durations []float64, transitions []workflow.Transition, audioCount int) string {
	filters := make([]string, 0, clipCount+2)
	for i := 0; i < clipCount; i++ {
		filters = append(filters, fmt.Sprintf("[%d:v]format=yuv420p[v%d]", i, i))
	}

	if len(transitions) > 0 && clipCount > 1 && len(durations) >= clipCount {
		filters = append(filters, xfadeChain(clipCount, durations, transitions)...)
	} else {
		var concat strings.Builder
		for i := 0; i < clipCount; i++ {
			fmt.Fprintf(&concat, "[v%d]", i)
		}
		fmt.Fprintf(&concat, "concat=n=%d:v=1:a=0[outv]", clipCount)
		filters = append(filters, concat.String())
	}

	switch audioCount {
	case 1:
		filters = append(filters, fmt.Sprintf("[%d:a]anull[outa]", clipCount))
	case 2:
		filters = append(filters, fmt.Sprintf("[%d:a][%d:a]amix=inputs=2:duration=longest[outa]", clipCount, clipCount+1))
	}

	return strings.Join(filters, ";")
}

// xfadeChain crossfades consecutive clips. Each xfade offset is where the
// fade begins on the accumulated timeline: the running total of clip
// durations minus the fade overlap consumed so far. Cuts without an explicit
// transition get a short default fade.
func xfadeChain(clipCount int, durations []float64, transitions []workflow.Transition) []string {
	byCut := make(map[int]workflow.Transition, len(transitions))
	for _, tr := range transitions {
		byCut[tr.After] = tr
	}

	chain := make([]string, 0, clipCount-1)
	label := "v0"
	offset := 0.0
	for i := 1; i < clipCount; i++ {
		kind := "fade"
		fade := defaultFadeDuration
		if tr, ok := byCut[i]; ok {
			kind = xfadeKind(tr.Kind)
			if tr.DurationSeconds > 0 {
				fade = tr.DurationSeconds
			}
		}
		offset += durations[i-1] - fade
		if offset < 0 {
			offset = 0
		}

		out := fmt.Sprintf("vx%d", i)
		if i == clipCount-1 {
			out = "outv"
		}
		chain = append(chain, fmt.Sprintf("[%s][v%d]xfade=transition=%s:duration=%s:offset=%s[%s]",
			label, i, kind, formatSeconds(fade), formatSeconds(offset), out))
		label = out
	}
	return chain
}

func xfadeKind(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "cut", "fade", "crossfade", "dissolve":
		return "fade"
	case "wipe":
		return "wipeleft"
	case "slide":
		return "slideleft"
	case "zoom":
		return "zoomin"
	default:
		return "fade"
	}
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
