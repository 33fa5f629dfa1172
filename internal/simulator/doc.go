// Package simulator generates smoke-sensor telemetry for development and
// demos. Each registered room gets a virtual sensor that publishes smoke
// levels, status, and heartbeats on the same bus topics physical sensors
// would use, and honours the control channels (reset, threshold, config,
// test) that Core republishes.
package simulator
