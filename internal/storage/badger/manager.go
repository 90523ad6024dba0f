package badger

import (
	"github.com/bobmcallan/marketbrief/internal/common"
	"github.com/bobmcallan/marketbrief/internal/config"
	"github.com/bobmcallan/marketbrief/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger.
type Manager struct {
	db      *BadgerDB
	reports interfaces.ReportStorage
	tickers interfaces.TickerSummaryStorage
	logger  *common.Logger
}

// NewManager creates a new Badger storage manager.
func NewManager(logger *common.Logger, cfg *config.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, cfg)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:      db,
		reports: NewReportStorage(db, logger),
		tickers: NewTickerSummaryStorage(db, logger),
		logger:  logger,
	}

	logger.Debug().Msg("Badger storage manager initialized")

	return manager, nil
}

// ReportStorage returns the daily report storage interface.
func (m *Manager) ReportStorage() interfaces.ReportStorage {
	return m.reports
}

// TickerSummaryStorage returns the ticker summary storage interface.
func (m *Manager) TickerSummaryStorage() interfaces.TickerSummaryStorage {
	return m.tickers
}

// Close closes the database connection.
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
