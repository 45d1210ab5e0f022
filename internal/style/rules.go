package style

import (
	"fmt"
	"math"
	"strings"
)

// ispCeiling is the ISP value at which the gradient saturates to red.
const ispCeiling = 55.0

type rgb struct{ r, g, b float64 }

var (
	ispLow  = rgb{90, 154, 88}
	ispMid  = rgb{230, 180, 34}
	ispHigh = rgb{255, 0, 0}
)

// ISPColor maps an ISP value onto the green → amber → red gradient. A nil or
// non-finite value yields Neutral.
func ISPColor(isp *float64) string {
	if isp == nil || math.IsNaN(*isp) || math.IsInf(*isp, 0) {
		return Neutral
	}
	r, g, b := ispRGB(*isp)
	return fmt.Sprintf("rgb(%d,%d,%d)", r, g, b)
}

func ispRGB(v float64) (r, g, b int) {
	t := math.Min(v/ispCeiling, 1)
	if t < 0 {
		t = 0
	}
	if t < 0.5 {
		return lerp(ispLow, ispMid, t*2)
	}
	return lerp(ispMid, ispHigh, (t-0.5)*2)
}

func lerp(from, to rgb, t float64) (r, g, b int) {
	mix := func(a, b float64) int { return int(math.Floor(a + (b-a)*t + 0.5)) }
	return mix(from.r, to.r), mix(from.g, to.g), mix(from.b, to.b)
}

// CapacityColor buckets a utilization ratio: over 1.0 is red, over 0.8 amber,
// anything else green. Callers handle the unknown case themselves.
func CapacityColor(utilization float64) string {
	switch {
	case utilization > 1.0:
		return Red
	case utilization > 0.8:
		return Amber
	default:
		return Green
	}
}

// CapacityRadius scales a marker with enrollment, between 5 and 14 pixels.
func CapacityRadius(enrollment float64) float64 {
	r := 5 + enrollment/100
	return math.Max(5, math.Min(r, 14))
}

// UtilizationColor is the popup colour for a utilization percentage. It
// uses a 90% amber threshold, unlike the marker buckets.
func UtilizationColor(percent int) string {
	switch {
	case percent > 100:
		return Red
	case percent > 90:
		return Amber
	default:
		return Green
	}
}

// Program is one row of the ordered program table. A program label matches
// when it contains, or is contained in, any of the Match names.
type Program struct {
	Label string
	Color string
	Match []string
}

// Programs is ordered; the first matching row wins. The two dual language
// spellings share a row so they resolve to one colour and one legend swatch.
var Programs = []Program{
	{Label: "Neighborhood", Color: "#6b7280", Match: []string{"Neighborhood"}},
	{Label: "Dual Language Instruction", Color: "#4ecdc4", Match: []string{"Dual Language Instruction", "Dual Language Immersion (DLI)"}},
	{Label: "Montessori", Color: "#a78bfa", Match: []string{"Montessori"}},
	{Label: "International Baccalaureate (IB)", Color: "#f97316", Match: []string{"International Baccalaureate (IB)"}},
	{Label: "Year-Round", Color: "#e6b422", Match: []string{"Year-Round"}},
	{Label: "Arts", Color: "#ec4899", Match: []string{"Arts"}},
	{Label: "Early College", Color: "#06b6d4", Match: []string{"Early College"}},
	{Label: "STEM", Color: "#10b981", Match: []string{"STEM"}},
}

// Matches reports whether program matches this row.
func (p Program) Matches(program string) bool {
	for _, m := range p.Match {
		if strings.Contains(program, m) || strings.Contains(m, program) {
			return true
		}
	}
	return false
}

// ProgramColor returns the colour of the first table row matching program,
// or Neutral when program is empty or nothing matches.
func ProgramColor(program string) string {
	if program == "" {
		return Neutral
	}
	for _, p := range Programs {
		if p.Matches(program) {
			return p.Color
		}
	}
	return Neutral
}
