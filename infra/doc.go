// Package infra holds the adapters behind the core interfaces: the MQTT
// price publisher, Prometheus and InfluxDB sinks, the Postgres telemetry
// source, Sentry monitoring and the zerolog logger.
package infra
