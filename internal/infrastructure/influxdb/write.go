package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteReading writes one sensor reading as a point in the readings
// measurement.
//
// The write is non-blocking; points are batched and sent asynchronously.
//
// Parameters:
//   - deviceID: Board identifier the reading came from
//   - component: Component display name
//   - typ: Component type tag (e.g. "temp")
//   - units: Units string, may be empty
//   - value: The numeric reading
func (c *Client) WriteReading(deviceID, component, typ, units string, value float64) {
	if !c.IsConnected() {
		return
	}

	tags := map[string]string{
		"device_id": deviceID,
		"component": component,
		"type":      typ,
	}
	if units != "" {
		tags["units"] = units
	}

	c.writeAPI.WritePoint(write.NewPoint(
		"readings",
		tags,
		map[string]interface{}{"value": value},
		time.Now(),
	))
}

// WritePoint writes a custom point with full control over tags and
// fields. Use for measurements that don't fit WriteReading.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}
