// Package dashboard composes the six-tile smart-home dashboard.
//
// Ownership of a composed dashboard is split. The skeleton (tile shape,
// titles, icons, quick actions) comes from the AI agent, or from
// DefaultSkeleton when the agent has not produced one yet. Live telemetry
// owns the subtitle, status colour and device list of the light and climate
// tiles and always overwrites whatever the skeleton carried there.
package dashboard
