package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WritePoint queues one point stamped with the current time.
// Tags should be low cardinality (device id, room, category).
//
//	client.WritePoint("light", map[string]string{"device_id": "192.168.1.20:55443"},
//	    map[string]any{"power": true, "brightness": 80})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime queues one point with an explicit timestamp, e.g. the
// time a sensor reading was taken rather than the time it was recorded.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]any, ts time.Time) {
	if !c.IsConnected() || len(fields) == 0 {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, ts))
}
