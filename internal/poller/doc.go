// Package poller refreshes telemetry on a fixed interval and fans it out to
// every user's state document.
//
// Each cycle runs its steps in order (lights, then climate). A step produces
// one aggregate which is merged into every target user's document under the
// step's field. Targets are the configured users plus every user that
// already has a document. Once all steps have run, listeners are notified
// so the aggregates can be published to MQTT and pushed to open dashboards.
//
// A failing step or a failing per-user write is logged and the cycle carries
// on. Run only returns when its context is cancelled.
package poller
