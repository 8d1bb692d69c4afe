// Package infra contains technical adapters: scenario sources (ACN-Data
// client, synthetic generator, file loader), the on-disk scenario cache,
// metrics sinks and the MQTT plan publisher. These packages depend only on
// the interfaces and types defined in the core packages.
package infra
