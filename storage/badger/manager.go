package badger

import (
	"fmt"

	"github.com/valorafin/valora/common"
	"github.com/valorafin/valora/interfaces"
)

// Manager implements interfaces.StorageManager over a single BadgerHold
// database shared by all stores.
type Manager struct {
	store      *Store
	ledger     *ledgerStorage
	market     *marketStorage
	allocation *allocationStorage
	logger     *common.Logger
}

// NewManager opens the database at path and wires up the stores.
func NewManager(logger *common.Logger, path string) (*Manager, error) {
	store, err := NewStore(logger, path)
	if err != nil {
		return nil, err
	}

	ledger, err := NewLedgerStorage(store, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize ledger storage: %w", err)
	}

	return &Manager{
		store:      store,
		ledger:     ledger,
		market:     NewMarketStorage(store, logger),
		allocation: NewAllocationStorage(store, logger),
		logger:     logger,
	}, nil
}

func (m *Manager) LedgerStore() interfaces.LedgerStore         { return m.ledger }
func (m *Manager) MarketStore() interfaces.MarketStore         { return m.market }
func (m *Manager) AllocationStore() interfaces.AllocationStore { return m.allocation }

// Close closes the underlying database.
func (m *Manager) Close() error {
	return m.store.Close()
}
