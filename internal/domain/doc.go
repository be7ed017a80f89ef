// Package domain defines the core data model for repovault: repository
// descriptors supplied by the provider, the durable per-repository backup
// state, snapshot records produced by the capture pipeline, retention
// decisions, and the run summary handed to alerting.
//
// Types in this package are plain values with no behavior beyond small
// derivations; they carry data between the application layer and the
// infrastructure adapters.
package domain
