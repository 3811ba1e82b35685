package badger

import (
	"context"
	"fmt"

	"github.com/timshannon/badgerhold/v4"

	"github.com/valorafin/valora/common"
	"github.com/valorafin/valora/models"
)

// targetRecord keys an allocation by "portfolioID/assetID".
type targetRecord struct {
	Key         string `badgerhold:"key"`
	PortfolioID string `badgerhold:"index"`
	Target      models.TargetAllocation
}

type allocationStorage struct {
	store  *Store
	logger *common.Logger
}

// NewAllocationStorage creates an AllocationStore backed by BadgerHold.
func NewAllocationStorage(store *Store, logger *common.Logger) *allocationStorage {
	return &allocationStorage{store: store, logger: logger}
}

func targetKey(portfolioID, assetID string) string {
	return portfolioID + "/" + assetID
}

func (s *allocationStorage) GetTargets(_ context.Context, portfolioID string) ([]*models.TargetAllocation, error) {
	var records []targetRecord
	if err := s.store.db.Find(&records,
		badgerhold.Where("PortfolioID").Eq(portfolioID).Index("PortfolioID")); err != nil {
		return nil, fmt.Errorf("failed to list targets for portfolio %s: %w", portfolioID, err)
	}
	out := make([]*models.TargetAllocation, len(records))
	for i := range records {
		out[i] = &records[i].Target
	}
	return out, nil
}

func (s *allocationStorage) SaveTarget(_ context.Context, target *models.TargetAllocation) error {
	record := targetRecord{
		Key:         targetKey(target.PortfolioID, target.AssetID),
		PortfolioID: target.PortfolioID,
		Target:      *target,
	}
	if err := s.store.db.Upsert(record.Key, &record); err != nil {
		return fmt.Errorf("failed to save target %s: %w", record.Key, err)
	}
	s.logger.Debug().Str("key", record.Key).Float64("weight", target.WeightPct).Msg("Target saved")
	return nil
}

func (s *allocationStorage) DeleteTarget(_ context.Context, portfolioID, assetID string) error {
	key := targetKey(portfolioID, assetID)
	err := s.store.db.Delete(key, targetRecord{})
	if err == badgerhold.ErrNotFound {
		return fmt.Errorf("target %s: %w", key, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to delete target %s: %w", key, err)
	}
	return nil
}
