// Package app provides the composition layer of the nodemap service.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Application struct and wiring
//	├── auth/               # Token manager and password hasher
//	├── domain/             # Domain models (pure data structures)
//	│   ├── user/           # Users and their public projection
//	│   ├── nodemap/        # Nodemaps and the graph payload codec
//	│   └── agent/          # Agent configurations
//	├── storage/            # Storage interfaces and implementations
//	│   ├── interfaces.go   # UserStore, NodemapStore, AgentStore
//	│   ├── memory/         # In-memory implementation for testing
//	│   └── sqlstore/       # SQLite and PostgreSQL implementation
//	├── services/           # Business rules
//	│   ├── accounts/       # Registration, login, identity
//	│   └── resources/      # Owner-scoped nodemaps and agents
//	├── httpapi/            # HTTP handlers and routing
//	├── runtime/            # Process lifecycle
//	└── metrics/            # Prometheus collectors
//
// # Dependency Direction
//
//	cmd/server/
//	      │
//	      ▼
//	internal/app/runtime ──► internal/app/httpapi ──► internal/app (composition)
//	                                                        │
//	                                                        ├──► services/
//	                                                        │        │
//	                                                        │        └──► storage/ ──► domain/
//	                                                        │
//	                                                        └──► internal/platform/ (drivers, schema)
//
// # Adding a New Resource Type
//
//  1. Create the domain model in internal/app/domain/<kind>/
//  2. Add a store interface to internal/app/storage/interfaces.go
//  3. Implement it in storage/sqlstore and storage/memory
//  4. Add the table to internal/platform/migrations for both dialects
//  5. Expose it from services/resources and wire routes in httpapi
package app
