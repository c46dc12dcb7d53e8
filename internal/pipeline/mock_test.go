package pipeline

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"

	"github.com/ugrc/lsli-skid/pkg/agol"
	"github.com/ugrc/lsli-skid/pkg/sendgrid"
)

// --- GraphQL Mock ---

type mockGraphQLClient struct {
	mock.Mock
}

func (m *mockGraphQLClient) Query(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	args := m.Called(ctx, query, variables)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

// --- Sheets Mock ---

type mockSheetsClient struct {
	mock.Mock
}

func (m *mockSheetsClient) Values(ctx context.Context, spreadsheetID, worksheet string) ([][]string, error) {
	args := m.Called(ctx, spreadsheetID, worksheet)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]string), args.Error(1)
}

// --- AGOL Mock ---

type mockAGOLClient struct {
	mock.Mock
}

func (m *mockAGOLClient) QueryLayer(ctx context.Context, layerURL string, opts agol.QueryOptions) ([]agol.Feature, error) {
	args := m.Called(ctx, layerURL, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]agol.Feature), args.Error(1)
}

func (m *mockAGOLClient) Truncate(ctx context.Context, layerURL string) error {
	args := m.Called(ctx, layerURL)
	return args.Error(0)
}

func (m *mockAGOLClient) AddFeatures(ctx context.Context, layerURL string, features []agol.Feature) (int, error) {
	args := m.Called(ctx, layerURL, features)
	return args.Int(0), args.Error(1)
}

// --- SendGrid Mock ---

type mockMailClient struct {
	mock.Mock
}

func (m *mockMailClient) Send(ctx context.Context, msg sendgrid.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}
