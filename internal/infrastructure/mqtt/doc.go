// Package mqtt wraps paho.mqtt.golang for SmokeSense Core.
//
// It provides connection management with automatic reconnection,
// subscription tracking (restored after reconnect), publish/subscribe
// timeouts, handler panic recovery, and builders for the building topic
// hierarchy.
package mqtt
