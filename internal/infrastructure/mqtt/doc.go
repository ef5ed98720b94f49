// Package mqtt wraps paho.mqtt.golang for the Sensaur hub.
//
// It provides connection management with auto-reconnect, tracked
// subscriptions that are restored after a reconnect, a Last Will and
// Testament on the hub status topic, and panic-safe message handlers.
//
// The topic scheme lives in topics.go; all publishers and subscribers go
// through the builders there so topic naming stays consistent.
package mqtt
