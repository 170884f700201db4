// Package backend builds the ledger store, the event publisher and the
// sheet mirror selected by configuration.
package backend

import (
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

type CleanupFunc func() error

// Result holds what a process needs to serve the ledger. Publisher is nil
// when AMQP is not configured.
type Result struct {
	Store     storage.Store
	Publisher services.EventPublisher
	Cleanup   CleanupFunc
}

type Config struct {
	Type BackendType

	SQLiteDBPath string
	DatabaseURL  string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// DataDirectory seeds global categories for the memory backend.
	DataDirectory string
}

type BackendType string

const (
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	MemoryBackend   BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, PostgresBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
