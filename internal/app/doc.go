// Package app composes the NFT platform backend: it wires storage, domain
// services and the lifecycle manager into a single Application.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Application struct, wiring, and lifecycle
//	├── domain/             # Domain models (pure data structures)
//	│   ├── user/           # Users and sessions
//	│   ├── wallet/         # Linked wallets
//	│   ├── organization/   # Organizations and memberships
//	│   ├── collection/     # Collections and tiers
//	│   ├── chain/          # Indexed chain data (coins, contracts, transactions, assets)
//	│   ├── redeem/         # Redeem requests
//	│   └── referral/       # Referral records
//	├── storage/            # Store interfaces and implementations
//	│   ├── interfaces.go   # Store interfaces (UserStore, ChainStore, etc.)
//	│   ├── memory/         # In-memory implementation for tests and local runs
//	│   ├── postgres/       # PostgreSQL implementation
//	│   └── redis/          # Session and quote cache
//	├── services/           # Business logic, one package per domain
//	│   └── stats/          # Aggregation engine over chain data
//	├── httpapi/            # HTTP handlers and routing
//	├── system/             # Lifecycle manager for background services
//	└── metrics/            # Prometheus collectors
//
// # Dependency Direction
//
//	cmd/appserver/
//	      │
//	      ▼
//	internal/app/ (composition)
//	      │
//	      ├──► internal/app/services/ ──► internal/app/storage/ ──► internal/app/domain/
//	      │
//	      └──► internal/platform/migrations
//
// # Adding a New Domain
//
//  1. Create models in internal/app/domain/<name>/
//  2. Add the store interface to internal/app/storage/interfaces.go
//  3. Implement it in storage/memory and storage/postgres
//  4. Create the service in internal/app/services/<name>/
//  5. Wire the service in application.go
//  6. Add handlers in internal/app/httpapi/
package app
