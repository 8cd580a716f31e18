package fetcher

import (
	"context"
	"net/url"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/workbenchdata/twitter-fetch/api/types"
	"github.com/workbenchdata/twitter-fetch/internal/twitterapi"
	"github.com/workbenchdata/twitter-fetch/pkg/client"
)

// PageFetcher performs one page request against the API.
type PageFetcher interface {
	Get(ctx context.Context, endpoint string, params url.Values) (*client.APIResponse, error)
}

// paginator walks one query template page by page. Each request's max_id
// cursor derives from the previous page's oldest tweet, so pages only
// overlap at the boundary tweet; the merger deduplicates that one. Pages
// are strictly sequential because the cursor depends on the prior response.
type paginator struct {
	client  PageFetcher
	tpl     *twitterapi.RequestTemplate
	sinceID int64
	maxID   int64
	pages   int
}

func newPaginator(c PageFetcher, tpl *twitterapi.RequestTemplate, sinceID int64) *paginator {
	return &paginator{client: c, tpl: tpl, sinceID: sinceID}
}

// next fetches the next page. A nil page with nil error means the walk is
// done: either the API returned no more tweets or the page cap was reached.
func (p *paginator) next(ctx context.Context) ([]types.Tweet, *types.ErrorInfo) {
	if p.pages >= p.tpl.MaxPages {
		return nil, nil
	}

	params := cloneValues(p.tpl.Params)
	if p.sinceID > 0 {
		params.Set("since_id", formatID(p.sinceID))
	}
	if p.maxID > 0 {
		params.Set("max_id", formatID(p.maxID))
	}

	resp, err := p.client.Get(ctx, p.tpl.Endpoint, params)
	if err != nil {
		return nil, classifyTransport(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classifyResponse(p.tpl.Endpoint, params, resp)
	}

	tweets, perr := twitterapi.ParsePage(p.tpl.Endpoint, resp.Body)
	if perr != nil {
		return nil, &types.ErrorInfo{Kind: types.ApiError, Message: perr.Error()}
	}
	if len(tweets) == 0 {
		return nil, nil
	}

	p.pages++
	minID := tweets[0].ID
	for _, t := range tweets {
		if t.ID < minID {
			minID = t.ID
		}
	}
	if minID <= 1 {
		// Cannot build a smaller cursor; treat the walk as exhausted after
		// this page.
		p.pages = p.tpl.MaxPages
	} else {
		p.maxID = minID - 1
	}

	logrus.Debugf("Fetched page %d of %s: %d tweets, next max_id %d", p.pages, p.tpl.Endpoint, len(tweets), p.maxID)
	return tweets, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for key, vals := range v {
		out[key] = append([]string(nil), vals...)
	}
	return out
}
