package dashboard

import "github.com/nerrad567/homedash/internal/telemetry"

type tileDefault struct {
	title string
	icon  string
	color string
}

var tileDefaults = map[Category]tileDefault{
	CategoryLight:     {"Lights", "lightbulb", telemetry.ColorOrange},
	CategoryClimate:   {"Climate", "thermometer", telemetry.ColorGreen},
	CategoryMusic:     {"Music", "music", "purple"},
	CategoryDocuments: {"Documents", "file-search", telemetry.ColorBlue},
	CategoryApps:      {"Apps", "grid-3x3", telemetry.ColorGreen},
	CategorySettings:  {"Settings", "settings", telemetry.ColorGray},
}

// DefaultNoData is the subtitle of a tile without data.
const DefaultNoData = "No data"

// DefaultSkeleton is used for a user whose document has no AI skeleton:
// all six tiles with standard titles and icons, no quick actions.
func DefaultSkeleton() *Skeleton {
	s := &Skeleton{
		Type:         SkeletonType,
		Tiles:        make([]Tile, 0, len(Categories)),
		QuickActions: []QuickAction{},
	}
	for _, c := range Categories {
		d := tileDefaults[c]
		s.Tiles = append(s.Tiles, Tile{
			Category:     c,
			Title:        d.title,
			Icon:         d.icon,
			StatusColor:  d.color,
			QuickActions: []string{},
		})
	}
	return s
}

// FallbackSkeleton is returned for a user with no stored document. Every
// tile reads noData in a neutral colour; three generic quick actions are
// offered so the dashboard is still usable.
func FallbackSkeleton(noData string) *Skeleton {
	if noData == "" {
		noData = DefaultNoData
	}
	s := DefaultSkeleton()
	for i := range s.Tiles {
		s.Tiles[i].Subtitle = noData
		s.Tiles[i].StatusColor = telemetry.ColorGray
	}
	s.QuickActions = []QuickAction{
		{Type: QuickActionType, Text: "Set a jazz bar mood", Style: "primary", Icon: "music",
			AssistantRequest: "Create a jazz bar atmosphere"},
		{Type: QuickActionType, Text: "Plan tomorrow", Style: "secondary", Icon: "calendar-days",
			AssistantRequest: "Help me plan tomorrow"},
		{Type: QuickActionType, Text: "Today's football results", Style: "secondary", Icon: "trophy",
			AssistantRequest: "Show today's football results"},
	}
	return s
}
