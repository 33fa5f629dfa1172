// Package sensor contains the domain core of SmokeSense: the static room
// registry, the per-room sensor records, the pure alarm transition
// function, and the serialized state store.
//
// The package performs no I/O. All side effects (bus publishes, WebSocket
// broadcasts, event-log writes) are described as Notification values
// returned from Transition and executed by the service layer.
package sensor
