package agol

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// addChunkSize caps how many features go into one addFeatures call; the
// REST endpoint bogs down well before its documented limits on large
// geometry payloads.
const addChunkSize = 500

// Truncate deletes every feature in the layer. Used with AddFeatures for
// truncate-and-load publishing: the layer's contents are replaced wholesale,
// never upserted.
func (c *httpClient) Truncate(ctx context.Context, layerURL string) error {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return err
	}

	form := url.Values{
		"where":               {"1=1"},
		"returnDeleteResults": {"false"},
		"f":                   {"json"},
		"token":               {token},
	}

	var result struct {
		Success bool       `json:"success"`
		Error   *esriError `json:"error"`
	}
	if err := c.postForm(ctx, strings.TrimRight(layerURL, "/")+"/deleteFeatures", form, &result); err != nil {
		return eris.Wrap(err, "agol: truncate layer")
	}
	if result.Error != nil {
		return result.Error.wrap("deleteFeatures")
	}
	if !result.Success {
		return eris.New("agol: deleteFeatures did not report success")
	}

	zap.L().Info("agol: layer truncated", zap.String("layer", layerURL))
	return nil
}

type addResponse struct {
	AddResults []struct {
		ObjectID int64  `json:"objectId"`
		Success  bool   `json:"success"`
		Error    *struct {
			Description string `json:"description"`
		} `json:"error"`
	} `json:"addResults"`
	Error *esriError `json:"error"`
}

// AddFeatures loads features into the layer in chunks with rollback on
// failure, returning the number of features added. Any per-feature failure
// fails the call: a partially-loaded layer is worse than an aborted run.
func (c *httpClient) AddFeatures(ctx context.Context, layerURL string, features []Feature) (int, error) {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return 0, err
	}

	endpoint := strings.TrimRight(layerURL, "/") + "/addFeatures"
	added := 0

	for start := 0; start < len(features); start += addChunkSize {
		end := min(start+addChunkSize, len(features))
		chunk := features[start:end]

		payload, err := json.Marshal(chunk)
		if err != nil {
			return added, eris.Wrap(err, "agol: marshal features")
		}

		form := url.Values{
			"features":          {string(payload)},
			"rollbackOnFailure": {"true"},
			"f":                 {"json"},
			"token":             {token},
		}

		var result addResponse
		if err := c.postForm(ctx, endpoint, form, &result); err != nil {
			return added, eris.Wrap(err, "agol: add features")
		}
		if result.Error != nil {
			return added, result.Error.wrap("addFeatures")
		}

		for _, r := range result.AddResults {
			if !r.Success {
				detail := ""
				if r.Error != nil {
					detail = ": " + r.Error.Description
				}
				return added, eris.Errorf("agol: feature add rejected%s", detail)
			}
		}

		added += len(result.AddResults)
		zap.L().Debug("agol: added chunk",
			zap.String("layer", layerURL),
			zap.Int("chunk", len(chunk)),
			zap.Int("total", added),
		)
	}

	return added, nil
}
