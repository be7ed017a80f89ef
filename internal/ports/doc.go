// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// In Clean Architecture / Hexagonal Architecture, ports are the boundaries
// between the application core and the outside world. They define what the
// application needs from external systems without specifying how those needs
// are fulfilled.
//
// # Port Interfaces
//
//   - [Provider]: lists repositories and exports their metadata
//   - [Mirror]: mirror-clones repositories and packages them into bundles
//   - [ObjectStore]: uploads, lists and deletes snapshot artifacts
//   - [StateRepository]: persists and loads the local run state
//   - [Alerter]: delivers one run summary per run
//
// # Usage
//
// The application layer (internal/app, internal/state) depends only on these
// interfaces. Infrastructure adapters (internal/adapters) implement them with
// concrete implementations (GitHub API, git plumbing, S3, SMTP/webhooks).
//
// This separation enables:
//   - Testing application logic with fake implementations
//   - Swapping infrastructure without changing business logic
//   - Clear boundaries and dependency direction
package ports
