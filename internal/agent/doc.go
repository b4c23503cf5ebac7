// Package agent talks to the external AI agent that authors dashboards.
//
// The agent exposes a chat endpoint. Asking it for response_format
// "dashboard" returns a dashboard skeleton under content.dashboard; the
// skeleton is checked against an embedded JSON Schema before anything
// downstream trusts it.
package agent
