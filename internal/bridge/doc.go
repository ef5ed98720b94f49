// Package bridge connects the hub to MQTT.
//
// It publishes every accepted sensor reading to a per-component topic,
// accepts output commands back from MQTT, and periodically publishes hub
// health. The bridge is one observer among others: the hub core has no
// idea MQTT exists, and the process runs fine with the bridge disabled.
//
//	serial boards ──▶ hub ──▶ bridge ──▶ sensaur/reading/{device}/{component}
//	sensaur/output/{component} ──▶ bridge ──▶ hub.SetOutputValue ──▶ boards
package bridge
