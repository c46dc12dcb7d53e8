package pipeline

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ugrc/lsli-skid/internal/config"
	"github.com/ugrc/lsli-skid/internal/model"
	"github.com/ugrc/lsli-skid/pkg/agol"
	"github.com/ugrc/lsli-skid/pkg/sendgrid"
)

func testConfig() *config.Config {
	return &config.Config{
		AGOL: config.AGOLConfig{
			PointsLayerURL:  "https://layers.example.com/points/0",
			AreasLayerURL:   "https://layers.example.com/areas/0",
			ServiceAreasURL: "https://layers.example.com/reference/0",
		},
		GraphQL: config.GraphQLConfig{PageSize: 100},
		Sheets: config.SheetsConfig{
			Certifications: config.SheetConfig{SpreadsheetID: "cert-sheet", Worksheet: "Form Responses 1"},
			Links:          config.SheetConfig{SpreadsheetID: "link-sheet", Worksheet: "Sheet1"},
		},
		SendGrid: config.SendGridConfig{
			FromAddress: "noreply@utah.gov",
			ToAddresses: []string{"team@utah.gov"},
			Prefix:      "lsli_skid",
		},
		PWSID:      config.PWSIDConfig{Prefix: "UTAH", Digits: 6},
		Validation: config.ValidationConfig{DuplicatePolicy: "keep-first"},
	}
}

// pointsPage has one spatializable row and one with no coordinates.
const pointsPage = `{
	"getLccrMapUGRC": [
		{
			"pws_id": "UTAH1234",
			"pws_name": "Salt Lake City",
			"serviceline_id": "SL-1",
			"latitude": 40.7608,
			"longitude": -111.891,
			"serviceline_material_cassification": "Non-Lead"
		},
		{
			"pws_id": "UTAH1234",
			"pws_name": "Salt Lake City",
			"serviceline_id": "SL-2",
			"serviceline_material_cassification": "Unknown"
		}
	]
}`

var certRows = [][]string{
	{"Lead Service Line Certifications"},
	{"Time", "PWS ID", "System Name", "Approved", "SC, LC, on NTNC"},
	{"1/2/2024 10:00:00", "Utah1234", "Salt Lake City", "Yes", "SC"},
	{"1/1/2024 9:00:00", "1234", "Salt Lake City", "Yes", "LC"},
	{"1/3/2024 8:00:00", "BAD!", "Badville", "No", "LC"},
}

var linkRows = [][]string{
	{"PWSID", "Water Systme Name", "Interactive map link"},
	{"utah1234", "Salt Lake City", "https://maps.example.com/slc"},
	{"UTAH777", "Orphan Town", "https://maps.example.com/orphan"},
}

func referenceFeature(t *testing.T, dwsysnum string) agol.Feature {
	t.Helper()
	ring := [][]float64{{0, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 0}}
	geomJSON, err := json.Marshal(map[string]any{"rings": [][][]float64{ring}})
	require.NoError(t, err)
	return agol.Feature{
		Geometry:   geomJSON,
		Attributes: map[string]any{"DWSYSNUM": dwsysnum},
	}
}

func TestRun_FullSync(t *testing.T) {
	cfg := testConfig()

	gq := &mockGraphQLClient{}
	gq.On("Query", mock.Anything, mock.Anything, mock.Anything).
		Return(json.RawMessage(pointsPage), nil).Once()

	sheets := &mockSheetsClient{}
	sheets.On("Values", mock.Anything, "cert-sheet", "Form Responses 1").Return(certRows, nil).Once()
	sheets.On("Values", mock.Anything, "link-sheet", "Sheet1").Return(linkRows, nil).Once()

	ag := &mockAGOLClient{}
	ag.On("QueryLayer", mock.Anything, cfg.AGOL.ServiceAreasURL, mock.Anything).
		Return([]agol.Feature{referenceFeature(t, "UTAH1234")}, nil).Once()
	ag.On("Truncate", mock.Anything, cfg.AGOL.PointsLayerURL).Return(nil).Once()
	ag.On("AddFeatures", mock.Anything, cfg.AGOL.PointsLayerURL, mock.Anything).Return(1, nil).Once()
	ag.On("Truncate", mock.Anything, cfg.AGOL.AreasLayerURL).Return(nil).Once()
	ag.On("AddFeatures", mock.Anything, cfg.AGOL.AreasLayerURL, mock.Anything).Return(1, nil).Once()

	var sent sendgrid.Message
	mail := &mockMailClient{}
	mail.On("Send", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).(sendgrid.Message) }).
		Return(nil).Once()

	summary, err := New(cfg, gq, sheets, ag, mail).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.PointsLoaded)
	assert.Equal(t, 1, summary.AreasLoaded)
	assert.Equal(t, 1, summary.Skips.MissingCoordinates)
	assert.Equal(t, map[string]int{"UTAH1234 Salt Lake City": 1}, summary.MissingCoordSystems)

	assert.Len(t, summary.DropsByReason(model.DropInvalidPWSID), 1)
	assert.Len(t, summary.DropsByReason(model.DropDuplicatePWSID), 1)

	// UTAH000777 has a map link but no reference polygon.
	missing := summary.DropsByReason(model.DropNoMatchingGeometry)
	require.Len(t, missing, 1)
	assert.Equal(t, "UTAH000777", missing[0].PWSID)

	assert.Equal(t, "lsli_skid Update Summary", sent.Subject)
	assert.Contains(t, sent.Body, "UTAH000777")
	assert.Contains(t, sent.Body, "BAD!")

	gq.AssertExpectations(t)
	sheets.AssertExpectations(t)
	ag.AssertExpectations(t)
	mail.AssertExpectations(t)
}

func TestRun_PointFeatureShape(t *testing.T) {
	cfg := testConfig()

	gq := &mockGraphQLClient{}
	gq.On("Query", mock.Anything, mock.Anything, mock.Anything).
		Return(json.RawMessage(pointsPage), nil)

	sheets := &mockSheetsClient{}
	sheets.On("Values", mock.Anything, "cert-sheet", mock.Anything).Return(certRows, nil)
	sheets.On("Values", mock.Anything, "link-sheet", mock.Anything).Return(linkRows, nil)

	var pointFeatures []agol.Feature
	ag := &mockAGOLClient{}
	ag.On("QueryLayer", mock.Anything, mock.Anything, mock.Anything).
		Return([]agol.Feature{referenceFeature(t, "UTAH1234")}, nil)
	ag.On("Truncate", mock.Anything, mock.Anything).Return(nil)
	ag.On("AddFeatures", mock.Anything, cfg.AGOL.PointsLayerURL, mock.Anything).
		Run(func(args mock.Arguments) { pointFeatures = args.Get(2).([]agol.Feature) }).
		Return(1, nil)
	ag.On("AddFeatures", mock.Anything, cfg.AGOL.AreasLayerURL, mock.Anything).Return(1, nil)

	mail := &mockMailClient{}
	mail.On("Send", mock.Anything, mock.Anything).Return(nil)

	_, err := New(cfg, gq, sheets, ag, mail).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, pointFeatures, 1)
	// The inventory's 34-character column name arrives truncated to the
	// hosted layer's 31-character field.
	assert.Equal(t, "Non-Lead", pointFeatures[0].Attributes["serviceline_material_cassificat"])

	var pt struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	require.NoError(t, json.Unmarshal(pointFeatures[0].Geometry, &pt))
	assert.InDelta(t, -12455649.14, pt.X, 0.5)
	assert.InDelta(t, 4977123.48, pt.Y, 0.5)
}

func TestRun_DryRunNeverWrites(t *testing.T) {
	cfg := testConfig()

	gq := &mockGraphQLClient{}
	gq.On("Query", mock.Anything, mock.Anything, mock.Anything).
		Return(json.RawMessage(pointsPage), nil)

	sheets := &mockSheetsClient{}
	sheets.On("Values", mock.Anything, "cert-sheet", mock.Anything).Return(certRows, nil)
	sheets.On("Values", mock.Anything, "link-sheet", mock.Anything).Return(linkRows, nil)

	ag := &mockAGOLClient{}
	ag.On("QueryLayer", mock.Anything, mock.Anything, mock.Anything).
		Return([]agol.Feature{referenceFeature(t, "UTAH1234")}, nil)

	mail := &mockMailClient{}

	summary, err := New(cfg, gq, sheets, ag, mail, WithDryRun()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.PointsLoaded)
	assert.Equal(t, 1, summary.AreasLoaded)
	ag.AssertNotCalled(t, "Truncate", mock.Anything, mock.Anything)
	ag.AssertNotCalled(t, "AddFeatures", mock.Anything, mock.Anything, mock.Anything)
	mail.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestRun_SourceFailureAborts(t *testing.T) {
	cfg := testConfig()

	gq := &mockGraphQLClient{}
	gq.On("Query", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, assert.AnError)

	ag := &mockAGOLClient{}

	var sent sendgrid.Message
	mail := &mockMailClient{}
	mail.On("Send", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).(sendgrid.Message) }).
		Return(nil).Once()

	_, err := New(cfg, gq, &mockSheetsClient{}, ag, mail).Run(context.Background())
	require.Error(t, err)

	// Nothing published, but the failure is emailed.
	ag.AssertNotCalled(t, "Truncate", mock.Anything, mock.Anything)
	ag.AssertNotCalled(t, "AddFeatures", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, "lsli_skid Update FAILED", sent.Subject)
	mail.AssertExpectations(t)
}

func TestRun_EmailFailureIsNotFatal(t *testing.T) {
	cfg := testConfig()

	gq := &mockGraphQLClient{}
	gq.On("Query", mock.Anything, mock.Anything, mock.Anything).
		Return(json.RawMessage(pointsPage), nil)

	sheets := &mockSheetsClient{}
	sheets.On("Values", mock.Anything, "cert-sheet", mock.Anything).Return(certRows, nil)
	sheets.On("Values", mock.Anything, "link-sheet", mock.Anything).Return(linkRows, nil)

	ag := &mockAGOLClient{}
	ag.On("QueryLayer", mock.Anything, mock.Anything, mock.Anything).
		Return([]agol.Feature{referenceFeature(t, "UTAH1234")}, nil)
	ag.On("Truncate", mock.Anything, mock.Anything).Return(nil)
	ag.On("AddFeatures", mock.Anything, mock.Anything, mock.Anything).Return(1, nil)

	mail := &mockMailClient{}
	mail.On("Send", mock.Anything, mock.Anything).Return(assert.AnError)

	summary, err := New(cfg, gq, sheets, ag, mail).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.PointsLoaded)
	mail.AssertExpectations(t)
}
