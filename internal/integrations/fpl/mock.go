package fpl

import (
	"context"

	"github.com/nickbutler25/FPLOptimizer/internal/models"
)

// MockClient provides a canned implementation of API for tests.
type MockClient struct {
	Bootstrap *models.Bootstrap
	Fixtures  []models.Fixture
	Entry     *models.Entry
	Picks     *models.EntryPicks
	Transfers []models.TransferRecord
	History   *models.EntryHistory
	Err       error

	BootstrapCalls int
	FixturesCalls  int
}

func (m *MockClient) GetBootstrap(ctx context.Context) (*models.Bootstrap, error) {
	m.BootstrapCalls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Bootstrap, nil
}

func (m *MockClient) GetFixtures(ctx context.Context) ([]models.Fixture, error) {
	m.FixturesCalls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Fixtures, nil
}

func (m *MockClient) GetEntry(ctx context.Context, entryID int) (*models.Entry, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Entry, nil
}

func (m *MockClient) GetEntryPicks(ctx context.Context, entryID, event int) (*models.EntryPicks, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Picks, nil
}

func (m *MockClient) GetEntryTransfers(ctx context.Context, entryID int) ([]models.TransferRecord, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Transfers, nil
}

func (m *MockClient) GetEntryHistory(ctx context.Context, entryID int) (*models.EntryHistory, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.History, nil
}
