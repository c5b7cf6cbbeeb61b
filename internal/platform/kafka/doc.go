// Package kafka groups the franz-go transport used for contract generation
// requests: consumer (group consumption with redelivery and dead-lettering),
// producer (acknowledged publishes) and admin (topic setup).
package kafka
