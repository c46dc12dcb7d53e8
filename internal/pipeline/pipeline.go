// Package pipeline orchestrates a full sync run: load the three sources,
// validate and join, publish both layers, and send the summary email. The
// run is one linear sequence; nothing here fetches in parallel.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ugrc/lsli-skid/internal/config"
	"github.com/ugrc/lsli-skid/internal/join"
	"github.com/ugrc/lsli-skid/internal/loader"
	"github.com/ugrc/lsli-skid/internal/model"
	"github.com/ugrc/lsli-skid/internal/pwsid"
	"github.com/ugrc/lsli-skid/internal/validate"
	"github.com/ugrc/lsli-skid/pkg/agol"
	"github.com/ugrc/lsli-skid/pkg/graphql"
	"github.com/ugrc/lsli-skid/pkg/gsheets"
	"github.com/ugrc/lsli-skid/pkg/sendgrid"
)

// Pipeline runs the sync.
type Pipeline struct {
	cfg     *config.Config
	graphql graphql.Client
	sheets  gsheets.Client
	agol    agol.Client
	mail    sendgrid.Client

	certsSource   loader.SheetSource // overrides the Sheets API source
	linksSource   loader.SheetSource
	shapefilePath string // overrides the feature-service geometry source
	dryRun        bool
}

// Option adjusts pipeline construction.
type Option func(*Pipeline)

// WithCertificationsSource replaces the certification sheet with a local
// snapshot.
func WithCertificationsSource(s loader.SheetSource) Option {
	return func(p *Pipeline) { p.certsSource = s }
}

// WithLinksSource replaces the links sheet with a local snapshot.
func WithLinksSource(s loader.SheetSource) Option {
	return func(p *Pipeline) { p.linksSource = s }
}

// WithShapefileGeometry reads reference geometry from a local shapefile
// instead of the feature service.
func WithShapefileGeometry(path string) Option {
	return func(p *Pipeline) { p.shapefilePath = path }
}

// WithDryRun validates and joins but never publishes or emails.
func WithDryRun() Option {
	return func(p *Pipeline) { p.dryRun = true }
}

// New creates a Pipeline with all dependencies.
func New(cfg *config.Config, gq graphql.Client, sheets gsheets.Client, ag agol.Client, mail sendgrid.Client, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:     cfg,
		graphql: gq,
		sheets:  sheets,
		agol:    ag,
		mail:    mail,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run executes the sync. Per-row defects are dropped and reported; any
// whole-source failure aborts before the corresponding publish so a layer
// is only ever replaced with a fully-validated dataset. Fatal failures are
// emailed too: the points layer may already have been replaced by the time
// a later source fails.
func (p *Pipeline) Run(ctx context.Context) (*model.RunSummary, error) {
	summary := &model.RunSummary{
		RunID: uuid.NewString(),
		Start: time.Now(),
	}
	log := zap.L().With(zap.String("run_id", summary.RunID))
	log.Info("sync starting", zap.Bool("dry_run", p.dryRun))

	if err := p.execute(ctx, log, summary); err != nil {
		if !p.dryRun {
			p.notifyFailure(ctx, summary, err)
		}
		return nil, err
	}
	return summary, nil
}

func (p *Pipeline) execute(ctx context.Context, log *zap.Logger, summary *model.RunSummary) error {
	format := pwsid.Format{Prefix: p.cfg.PWSID.Prefix, Digits: p.cfg.PWSID.Digits}

	// Property points.
	pointsLoader, err := loader.NewPoints(p.graphql, p.cfg.GraphQL.PageSize)
	if err != nil {
		return err
	}
	points, err := pointsLoader.Load(ctx)
	if err != nil {
		return eris.Wrap(err, "pipeline: load points")
	}
	summary.Skips.MissingCoordinates = points.MissingCoords
	summary.MissingCoordSystems = points.MissingBySystem

	if !p.dryRun {
		loaded, err := p.publishPoints(ctx, points.Records)
		if err != nil {
			return eris.Wrap(err, "pipeline: publish points")
		}
		summary.PointsLoaded = loaded
	} else {
		summary.PointsLoaded = len(points.Records)
	}

	// System sheets.
	certs, err := loader.NewCertifications(p.certificationsSource(), format).Load(ctx)
	if err != nil {
		return eris.Wrap(err, "pipeline: load certifications")
	}
	links, err := loader.NewLinks(p.linksSheetSource(), format).Load(ctx)
	if err != nil {
		return eris.Wrap(err, "pipeline: load links")
	}
	summary.Skips.EmptyRows = certs.EmptyRows + links.EmptyRows
	summary.Skips.DuplicateLinks = links.Duplicates
	summary.DuplicateLinkSystems = links.DuplicateSystems

	cleaned := validate.Clean(certs.Records, links.Records, validate.ParsePolicy(p.cfg.Validation.DuplicatePolicy))
	summary.Drops = append(summary.Drops, cleaned.Drops...)

	// Reference geometry and join.
	areas, err := p.loadServiceAreas(ctx, format)
	if err != nil {
		return eris.Wrap(err, "pipeline: load service areas")
	}

	features, geometryDrops := join.Merge(cleaned.Certifications, cleaned.Links, areas)
	summary.Drops = append(summary.Drops, geometryDrops...)

	if !p.dryRun {
		loaded, err := p.publishAreas(ctx, features)
		if err != nil {
			return eris.Wrap(err, "pipeline: publish areas")
		}
		summary.AreasLoaded = loaded
	} else {
		summary.AreasLoaded = len(features)
	}

	summary.End = time.Now()
	log.Info("sync finished",
		zap.Int("points_loaded", summary.PointsLoaded),
		zap.Int("areas_loaded", summary.AreasLoaded),
		zap.Int("drops", len(summary.Drops)),
		zap.Duration("duration", summary.Duration()),
	)

	if !p.dryRun {
		p.notify(ctx, summary)
	}
	return nil
}

func (p *Pipeline) certificationsSource() loader.SheetSource {
	if p.certsSource != nil {
		return p.certsSource
	}
	return loader.GSheetSource{
		Client:        p.sheets,
		SpreadsheetID: p.cfg.Sheets.Certifications.SpreadsheetID,
		Worksheet:     p.cfg.Sheets.Certifications.Worksheet,
	}
}

func (p *Pipeline) linksSheetSource() loader.SheetSource {
	if p.linksSource != nil {
		return p.linksSource
	}
	return loader.GSheetSource{
		Client:        p.sheets,
		SpreadsheetID: p.cfg.Sheets.Links.SpreadsheetID,
		Worksheet:     p.cfg.Sheets.Links.Worksheet,
	}
}

func (p *Pipeline) loadServiceAreas(ctx context.Context, format pwsid.Format) ([]model.ServiceArea, error) {
	if p.shapefilePath != "" {
		return loader.ServiceAreasFromShapefile(p.shapefilePath, format)
	}
	return loader.NewServiceAreas(p.agol, p.cfg.AGOL.ServiceAreasURL, format).Load(ctx)
}

// notify sends the summary email. Delivery problems are logged, not fatal:
// by this point both layers are already published.
func (p *Pipeline) notify(ctx context.Context, summary *model.RunSummary) {
	if p.mail == nil || len(p.cfg.SendGrid.ToAddresses) == 0 {
		zap.L().Debug("summary email skipped: no recipients configured")
		return
	}

	msg := sendgrid.Message{
		From:    p.cfg.SendGrid.FromAddress,
		To:      p.cfg.SendGrid.ToAddresses,
		Subject: p.cfg.SendGrid.Prefix + " Update Summary",
		Body:    FormatSummary(*summary),
	}
	if err := p.mail.Send(ctx, msg); err != nil {
		zap.L().Error("summary email failed", zap.Error(err))
	}
}

// notifyFailure emails a fatal-error notice; the run may have aborted
// between the two publishes.
func (p *Pipeline) notifyFailure(ctx context.Context, summary *model.RunSummary, runErr error) {
	if p.mail == nil || len(p.cfg.SendGrid.ToAddresses) == 0 {
		return
	}

	msg := sendgrid.Message{
		From:    p.cfg.SendGrid.FromAddress,
		To:      p.cfg.SendGrid.ToAddresses,
		Subject: p.cfg.SendGrid.Prefix + " Update FAILED",
		Body:    fmt.Sprintf("Run %s failed:\n\n%s\n", summary.RunID, eris.ToString(runErr, true)),
	}
	if err := p.mail.Send(ctx, msg); err != nil {
		zap.L().Error("failure email failed", zap.Error(err))
	}
}
