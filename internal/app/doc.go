// Package app composes the data ledger into a running application.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Application struct, wiring, and event logging
//	├── domain/             # Domain models (pure data structures)
//	│   ├── datapoint/      # Submitted data references
//	│   ├── category/       # Category catalog and reward multipliers
//	│   └── treasury/       # Treasury stats and payout records
//	├── storage/            # Storage interfaces and implementations
//	│   ├── interfaces.go   # LedgerStore and its per-concern interfaces
//	│   ├── memory/         # In-memory implementation
//	│   ├── postgres/       # PostgreSQL implementation for production
//	│   └── storagetest/    # Conformance suite shared by both stores
//	├── services/           # Business logic
//	│   ├── registry/       # Submission, verification, categories
//	│   └── treasury/       # Funding, claims, payouts
//	├── httpapi/            # HTTP handlers and routing
//	├── auth/               # Owner authorization
//	├── events/             # In-process event bus
//	└── metrics/            # Prometheus metrics
//
// The app package wires services to their stores and the event bus; it holds
// no business rules itself. Business logic lives in internal/app/services,
// HTTP concerns in internal/app/httpapi, and persistence behind the
// interfaces in internal/app/storage.
//
// # Adding a New Domain
//
// When adding a new domain:
//
//  1. Create domain models in internal/app/domain/<name>/
//  2. Add a storage interface to internal/app/storage/interfaces.go
//  3. Implement it in internal/app/storage/postgres/ and memory/
//  4. Create the service in internal/app/services/<name>/service.go
//  5. Wire the service in internal/app/application.go
//  6. Add HTTP handlers in internal/app/httpapi/handler.go
package app
