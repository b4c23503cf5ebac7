package dashboard

import "github.com/nerrad567/homedash/internal/telemetry"

// SkeletonType tags a dashboard payload.
const SkeletonType = "smarthome_dashboard"

// QuickActionType tags a button that sends a request to the assistant.
const QuickActionType = "assistant_button"

// Category identifies a tile.
type Category string

// Tile categories, in display order.
const (
	CategoryLight     Category = "light"
	CategoryClimate   Category = "climate"
	CategoryMusic     Category = "music"
	CategoryDocuments Category = "documents"
	CategoryApps      Category = "apps"
	CategorySettings  Category = "settings"
)

// Categories lists every tile category in display order.
var Categories = []Category{
	CategoryLight, CategoryClimate, CategoryMusic,
	CategoryDocuments, CategoryApps, CategorySettings,
}

// Skeleton is a whole dashboard.
type Skeleton struct {
	Type         string        `json:"type"`
	Tiles        []Tile        `json:"tiles"`
	QuickActions []QuickAction `json:"quick_actions"`
}

// Tile is one dashboard tile.
type Tile struct {
	Category     Category                  `json:"category"`
	Title        string                    `json:"title"`
	Subtitle     string                    `json:"subtitle"`
	Icon         string                    `json:"icon"`
	StatusColor  string                    `json:"status_color"`
	QuickActions []string                  `json:"quick_actions"`
	Devices      []telemetry.DeviceDisplay `json:"devices"`
}

// QuickAction is a button that sends AssistantRequest to the agent.
type QuickAction struct {
	Type             string `json:"type"`
	Text             string `json:"text"`
	Style            string `json:"style,omitempty"`
	Icon             string `json:"icon,omitempty"`
	AssistantRequest string `json:"assistant_request"`
}

// Tile returns the first tile of category c, or nil.
func (s *Skeleton) Tile(c Category) *Tile {
	for i := range s.Tiles {
		if s.Tiles[i].Category == c {
			return &s.Tiles[i]
		}
	}
	return nil
}
