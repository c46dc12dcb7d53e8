package main

import (
	"github.com/spf13/cobra"

	"github.com/ugrc/lsli-skid/internal/loader"
	"github.com/ugrc/lsli-skid/internal/pipeline"
	"github.com/ugrc/lsli-skid/pkg/agol"
	"github.com/ugrc/lsli-skid/pkg/graphql"
	"github.com/ugrc/lsli-skid/pkg/gsheets"
	"github.com/ugrc/lsli-skid/pkg/sendgrid"
)

// Local source overrides shared by sync and validate. Empty means use the
// live service.
var (
	certsFile     string
	linksFile     string
	shapefilePath string
)

func addSourceFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&certsFile, "certs-file", "", "read certifications from a local .xlsx or .csv instead of Google Sheets")
	f.StringVar(&linksFile, "links-file", "", "read map links from a local .xlsx or .csv instead of Google Sheets")
	f.StringVar(&shapefilePath, "service-areas-shapefile", "", "read reference geometry from a local shapefile instead of the feature service")
}

// buildPipeline wires live clients from config, applying any local source
// overrides, then the caller's options.
func buildPipeline(extra ...pipeline.Option) *pipeline.Pipeline {
	gq := graphql.NewClient(cfg.GraphQL.URL)
	sheets := gsheets.NewClient(cfg.Sheets.APIKey)
	ag := agol.NewClient(cfg.AGOL.PortalURL, cfg.AGOL.Username, cfg.AGOL.Password,
		agol.WithRateLimit(cfg.AGOL.RequestsPerSec))
	mail := sendgrid.NewClient(cfg.SendGrid.APIKey)

	var opts []pipeline.Option
	if certsFile != "" {
		opts = append(opts, pipeline.WithCertificationsSource(loader.FileSource{Path: certsFile}))
	}
	if linksFile != "" {
		opts = append(opts, pipeline.WithLinksSource(loader.FileSource{Path: linksFile}))
	}
	if shapefilePath != "" {
		opts = append(opts, pipeline.WithShapefileGeometry(shapefilePath))
	}
	opts = append(opts, extra...)

	return pipeline.New(cfg, gq, sheets, ag, mail, opts...)
}
