// Package storage selects and constructs a storage backend from config.
package storage

import (
	"fmt"

	"github.com/valorafin/valora/common"
	"github.com/valorafin/valora/interfaces"
	"github.com/valorafin/valora/storage/badger"
	"github.com/valorafin/valora/storage/memory"
)

// NewManager builds the storage manager named by cfg.Storage.Backend.
func NewManager(cfg *common.Config, logger *common.Logger) (interfaces.StorageManager, error) {
	switch cfg.Storage.Backend {
	case "", "memory":
		return memory.NewManager(), nil
	case "badger":
		return badger.NewManager(logger, cfg.Storage.Badger.Path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
