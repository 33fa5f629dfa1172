// Package service orchestrates SmokeSense: it feeds bus telemetry and
// operator commands through the sensor store, then fans the results out to
// WebSocket observers, the MQTT bus, and the event log.
//
// The store serializes all state changes; this package only decides what
// to apply and where to deliver the results. Delivery happens after the
// store lock is released, so a slow observer never blocks ingestion.
package service
