// Package legend derives the map legend from the active view mode.
package legend

import (
	"github.com/joeblew999/plat-schoolmap/internal/district"
	"github.com/joeblew999/plat-schoolmap/internal/style"
	"github.com/joeblew999/plat-schoolmap/internal/viewmode"
)

// Item is a single colour swatch with its label.
type Item struct {
	Label string `json:"label" doc:"Legend label"`
	Color string `json:"color" doc:"Legend color (CSS)"`
}

// Gradient is a continuous colour ramp labelled at both ends.
type Gradient struct {
	Stops []string `json:"stops" doc:"Colour stops, low to high"`
	Low   string   `json:"low"`
	High  string   `json:"high"`
}

// Legend is the full content of the legend panel.
type Legend struct {
	Mode       viewmode.Mode `json:"mode"`
	Title      string        `json:"title,omitempty"`
	TitleColor string        `json:"titleColor,omitempty" doc:"Set when the title names a highlighted region"`
	Hint       string        `json:"hint,omitempty"`
	Items      []Item        `json:"items,omitempty"`
	Gradient   *Gradient     `json:"gradient,omitempty"`
	Note       string        `json:"note,omitempty"`
}

// Build returns the legend for mode m. region is the feeder selection and is
// only consulted in Feeder mode.
func Build(m viewmode.Mode, region string) Legend {
	switch m {
	case viewmode.ISP:
		return Legend{
			Mode:  m,
			Title: "ISP (Free/Reduced Lunch Proxy)",
			Gradient: &Gradient{
				Stops: []string{style.Green, style.Amber, style.Red},
				Low:   "Low",
				High:  "High",
			},
			Note: "Elementary schools only",
		}

	case viewmode.Capacity:
		return Legend{
			Mode:  m,
			Title: "Utilization",
			Items: []Item{
				{Label: "Under 80%", Color: style.Green},
				{Label: "80–100%", Color: style.Amber},
				{Label: "Over 100%", Color: style.Red},
			},
			Note: "Elementary schools only. Marker size = enrollment.",
		}

	case viewmode.Programs:
		return Legend{Mode: m, Title: "Programs", Items: programItems()}

	case viewmode.Feeder:
		if region != "" && !district.IsSentinel(region) {
			color, ok := style.RegionColor(region)
			if !ok {
				color = style.White
			}
			return Legend{
				Mode:       m,
				Title:      "Showing " + region + " region schools",
				TitleColor: color,
				Hint:       "Click another school to change region",
			}
		}
		items := make([]Item, 0, len(style.Regions))
		for _, r := range style.Regions {
			items = append(items, Item{Label: r.Name, Color: r.Color})
		}
		return Legend{
			Mode:  m,
			Title: "Feeder Regions",
			Hint:  "Click any school to highlight its region",
			Items: items,
		}
	}

	items := make([]Item, 0, len(district.SchoolTypes))
	for _, t := range district.SchoolTypes {
		items = append(items, Item{Label: t.Title(), Color: style.TypeColor(t)})
	}
	return Legend{Mode: viewmode.Default, Items: items}
}

// programItems lists one swatch per distinct (colour, label) pair of the
// program table.
func programItems() []Item {
	seen := make(map[Item]bool, len(style.Programs))
	items := make([]Item, 0, len(style.Programs))
	for _, p := range style.Programs {
		it := Item{Label: p.Label, Color: p.Color}
		if seen[it] {
			continue
		}
		seen[it] = true
		items = append(items, it)
	}
	return items
}
