package agol

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// QueryOptions shapes a layer query.
type QueryOptions struct {
	Where          string   // default "1=1"
	OutFields      []string // default all
	OutWKID        int      // output spatial reference; 0 leaves the layer default
	ReturnGeometry bool
	PageSize       int // default 1000
}

type queryResponse struct {
	Features              []Feature  `json:"features"`
	ExceededTransferLimit bool       `json:"exceededTransferLimit"`
	Error                 *esriError `json:"error"`
}

// QueryLayer pages through a layer query until the service stops reporting
// exceededTransferLimit, returning every matching feature.
func (c *httpClient) QueryLayer(ctx context.Context, layerURL string, opts QueryOptions) ([]Feature, error) {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return nil, err
	}

	where := opts.Where
	if where == "" {
		where = "1=1"
	}
	outFields := "*"
	if len(opts.OutFields) > 0 {
		outFields = strings.Join(opts.OutFields, ",")
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 1000
	}

	var features []Feature
	for offset := 0; ; offset += pageSize {
		form := url.Values{
			"where":             {where},
			"outFields":         {outFields},
			"returnGeometry":    {strconv.FormatBool(opts.ReturnGeometry)},
			"resultOffset":      {strconv.Itoa(offset)},
			"resultRecordCount": {strconv.Itoa(pageSize)},
			"f":                 {"json"},
			"token":             {token},
		}
		if opts.OutWKID != 0 {
			form.Set("outSR", strconv.Itoa(opts.OutWKID))
		}

		var page queryResponse
		if err := c.postForm(ctx, strings.TrimRight(layerURL, "/")+"/query", form, &page); err != nil {
			return nil, eris.Wrap(err, "agol: query layer")
		}
		if page.Error != nil {
			return nil, page.Error.wrap("query")
		}

		features = append(features, page.Features...)
		zap.L().Debug("agol: query page",
			zap.Int("offset", offset),
			zap.Int("returned", len(page.Features)),
			zap.Bool("more", page.ExceededTransferLimit),
		)

		if !page.ExceededTransferLimit || len(page.Features) == 0 {
			break
		}
	}

	return features, nil
}
