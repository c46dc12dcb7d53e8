package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPropertyRecordAttributes_RenamedField(t *testing.T) {
	attrs := PropertyRecord{MaterialClassification: "Lead"}.Attributes()

	assert.Equal(t, "Lead", attrs["serviceline_material_cassificat"])
	assert.NotContains(t, attrs, "serviceline_material_cassification")
}

func TestAreaFeatureSources(t *testing.T) {
	assert.Equal(t, "certification", AreaFeature{HasCertification: true}.Sources())
	assert.Equal(t, "link", AreaFeature{HasLink: true}.Sources())
	assert.Equal(t, "certification+link", AreaFeature{HasCertification: true, HasLink: true}.Sources())
}

func TestAreaFeatureAttributes_SubmittedTime(t *testing.T) {
	at := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	attrs := AreaFeature{PWSID: "UTAH001234", SubmittedAt: &at, HasCertification: true}.Attributes()

	assert.Equal(t, at.UnixMilli(), attrs["submitted_time"])
	assert.NotContains(t, attrs, "time")

	attrs = AreaFeature{PWSID: "UTAH000018", HasLink: true}.Attributes()
	assert.Nil(t, attrs["submitted_time"])
}

func TestDropsByReason_PreservesOrder(t *testing.T) {
	s := RunSummary{Drops: []DropEntry{
		{PWSID: "a", Reason: DropInvalidPWSID},
		{PWSID: "b", Reason: DropDuplicatePWSID},
		{PWSID: "c", Reason: DropInvalidPWSID},
	}}

	got := s.DropsByReason(DropInvalidPWSID)
	assert.Equal(t, []DropEntry{
		{PWSID: "a", Reason: DropInvalidPWSID},
		{PWSID: "c", Reason: DropInvalidPWSID},
	}, got)
}
