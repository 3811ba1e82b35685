package badger

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/valorafin/valora/common"
	"github.com/valorafin/valora/models"
)

type ledgerStorage struct {
	store  *Store
	logger *common.Logger
	nextID atomic.Int64
}

// NewLedgerStorage creates a LedgerStore backed by BadgerHold. The
// transaction ID sequence resumes from the highest persisted ID.
func NewLedgerStorage(store *Store, logger *common.Logger) (*ledgerStorage, error) {
	s := &ledgerStorage{store: store, logger: logger}

	var txs []models.Transaction
	if err := store.db.Find(&txs, nil); err != nil {
		return nil, fmt.Errorf("failed to scan transactions: %w", err)
	}
	var max int64
	for _, tx := range txs {
		if tx.ID > max {
			max = tx.ID
		}
	}
	s.nextID.Store(max)
	return s, nil
}

func (s *ledgerStorage) GetPortfolio(_ context.Context, id string) (*models.Portfolio, error) {
	var portfolio models.Portfolio
	err := s.store.db.Get(id, &portfolio)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("portfolio %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get portfolio %s: %w", id, err)
	}
	return &portfolio, nil
}

func (s *ledgerStorage) SavePortfolio(_ context.Context, portfolio *models.Portfolio) error {
	portfolio.UpdatedAt = time.Now().UTC()
	if portfolio.CreatedAt.IsZero() {
		portfolio.CreatedAt = portfolio.UpdatedAt
	}
	if portfolio.ID == "" {
		portfolio.ID = portfolio.Name
	}

	if err := s.store.db.Upsert(portfolio.ID, portfolio); err != nil {
		return fmt.Errorf("failed to save portfolio: %w", err)
	}
	s.logger.Debug().Str("id", portfolio.ID).Msg("Portfolio saved")
	return nil
}

func (s *ledgerStorage) DeletePortfolio(ctx context.Context, id string) error {
	err := s.store.db.Delete(id, models.Portfolio{})
	if err == badgerhold.ErrNotFound {
		return fmt.Errorf("portfolio %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to delete portfolio %s: %w", id, err)
	}

	if err := s.store.db.DeleteMatching(models.Transaction{},
		badgerhold.Where("PortfolioID").Eq(id)); err != nil {
		return fmt.Errorf("failed to delete transactions for portfolio %s: %w", id, err)
	}
	s.logger.Debug().Str("id", id).Msg("Portfolio deleted")
	return nil
}

func (s *ledgerStorage) ListPortfolios(_ context.Context) ([]*models.Portfolio, error) {
	var portfolios []models.Portfolio
	if err := s.store.db.Find(&portfolios, nil); err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}
	out := make([]*models.Portfolio, len(portfolios))
	for i := range portfolios {
		out[i] = &portfolios[i]
	}
	return out, nil
}

func (s *ledgerStorage) GetTransaction(_ context.Context, id int64) (*models.Transaction, error) {
	var tx models.Transaction
	err := s.store.db.Get(id, &tx)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("transaction %d: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get transaction %d: %w", id, err)
	}
	return &tx, nil
}

func (s *ledgerStorage) SaveTransaction(_ context.Context, tx *models.Transaction) error {
	if tx.ID == 0 {
		tx.ID = s.nextID.Add(1)
	} else {
		for {
			cur := s.nextID.Load()
			if tx.ID <= cur || s.nextID.CompareAndSwap(cur, tx.ID) {
				break
			}
		}
	}

	if err := s.store.db.Upsert(tx.ID, tx); err != nil {
		return fmt.Errorf("failed to save transaction %d: %w", tx.ID, err)
	}
	return nil
}

func (s *ledgerStorage) DeleteTransaction(_ context.Context, id int64) error {
	err := s.store.db.Delete(id, models.Transaction{})
	if err == badgerhold.ErrNotFound {
		return fmt.Errorf("transaction %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to delete transaction %d: %w", id, err)
	}
	return nil
}

func (s *ledgerStorage) ListTransactions(_ context.Context, portfolioID string) ([]models.Transaction, error) {
	var txs []models.Transaction
	if err := s.store.db.Find(&txs,
		badgerhold.Where("PortfolioID").Eq(portfolioID).Index("PortfolioID")); err != nil {
		return nil, fmt.Errorf("failed to list transactions for portfolio %s: %w", portfolioID, err)
	}
	return txs, nil
}

func (s *ledgerStorage) Close() error { return nil }
