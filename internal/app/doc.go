// Package app composes the console backend.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Application struct, wiring, lifecycle and reset
//	├── domain/             # Domain models (pure data plus validation helpers)
//	├── storage/            # Store interfaces, sentinels and collection keys
//	│   ├── memory/         # The entity store every service mutates
//	│   ├── kv/             # Byte-level backends (memory, bbolt, redis, postgres)
//	│   └── persist/        # Slots, bindings, date revival and the async writer
//	├── services/           # Business logic, one package per area
//	├── seed/               # Embedded demo data
//	├── timers/             # Keyed, cancelable deferred tasks
//	├── chance/             # Injectable randomness
//	├── system/             # Lifecycle manager
//	└── metrics/            # Prometheus collectors
//
// # Data Flow
//
// Services validate input and call the memory store. Every mutation replaces
// the affected collection and hands the new value to the persist writer,
// which coalesces per key and drains to the configured kv backend. On start
// each collection is read back once; a missing or unreadable key falls back
// to the seed.
//
// Simulated behaviour (deploys, domain verification, chat replies, resets)
// runs as deferred tasks in timers.Scheduler, keyed by entity so deleting the
// entity cancels its pending work. The realtime generator ticks on a cron
// schedule and only ever calls service methods.
package app
