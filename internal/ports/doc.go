// Package ports defines the interfaces (ports) that connect the
// receiver core to injectable collaborators.
//
// In Clean Architecture / Hexagonal Architecture, ports are the
// boundaries between the application core and the outside world. They
// define what the core needs from external systems without specifying
// how those needs are fulfilled.
//
// # Port Interfaces
//
//   - [Handler]: Receives one decoded entity event
//   - [HTTPClient]: HTTP request abstraction for dependency injection
//   - [Logger]: Structured logging abstraction
//
// The worker loop depends only on [Handler]; the default diff-and-log
// implementation lives in internal/store, and alternatives (for example
// the HTTP event forwarder in internal/adapters/http) are injected, not
// branched on.
package ports
