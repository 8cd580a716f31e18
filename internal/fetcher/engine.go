package fetcher

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/workbenchdata/twitter-fetch/api/types"
	"github.com/workbenchdata/twitter-fetch/internal/twitterapi"
)

// Result is the outcome of one invocation. Err carries the classified
// failure when the invocation ended early; Rows then still holds everything
// accumulated so far, and Version stays at the last successful token.
type Result struct {
	Rows    []types.Tweet
	Version string
	Changed bool
	Err     *types.ErrorInfo
}

// Engine runs fetch invocations: it detects query changes, walks the
// paginated API, merges pages into the accumulated table, and decides
// whether the output constitutes a new version. It assumes exclusive access
// to the state for the duration of a Run; serializing invocations per state
// is the caller's job.
type Engine struct {
	client  PageFetcher
	maxRows int
}

func NewEngine(client PageFetcher, maxRows int) *Engine {
	return &Engine{client: client, maxRows: maxRows}
}

// Run executes one invocation of the fetch-accumulate-merge cycle against
// state. The state is updated page by page; a failure at page k keeps pages
// 1..k-1 merged and never touches rows from earlier invocations.
func (e *Engine) Run(ctx context.Context, state *AccumulatedState, req types.FetchRequest) Result {
	tpl, err := twitterapi.BuildRequest(req.QuerySpec)
	if err != nil {
		// Invalid parameters never touch the state: whatever table a prior
		// (possibly different) query accumulated stays intact.
		info, ok := err.(*types.ErrorInfo)
		if !ok {
			info = &types.ErrorInfo{Kind: types.ConfigError, Message: err.Error()}
		}
		return Result{Rows: state.Rows(), Version: state.LastVersion, Err: info}
	}

	// Full-refresh mode rebuilds the snapshot from scratch every run. In
	// accumulate mode, reset only when the query or the mode changed;
	// otherwise a stale since_id cursor would filter the new query with the
	// old query's newest tweet.
	if !req.Accumulate || req.Accumulate != state.Accumulate || !req.QuerySpec.Equal(state.LastQuery) {
		logrus.Debugf("Resetting accumulated state for %s=%q (accumulate=%v)", req.Type, req.Value, req.Accumulate)
		state.Reset(req.QuerySpec, req.Accumulate)
	}

	var sinceID int64
	if req.Accumulate && state.Len() > 0 {
		sinceID = state.MaxID()
	}

	pager := newPaginator(e.client, tpl, sinceID)

	// Pages arrive newest first and get older as the walk proceeds, so each
	// page's unseen tweets go right after the tweets inserted earlier in
	// this walk and before everything accumulated by prior invocations.
	insertAt := 0
	for {
		page, pageErr := pager.next(ctx)
		if pageErr != nil {
			state.LastError = pageErr
			logrus.WithField("kind", pageErr.Kind).Warnf("Fetch failed after %d merged pages: %s", pager.pages, pageErr.Message)
			return Result{Rows: state.Rows(), Version: state.LastVersion, Err: pageErr}
		}
		if page == nil {
			break
		}
		insertAt += state.merge(page, insertAt, req.Accumulate)
	}

	state.LastError = nil
	state.trim(e.maxRows)

	var token string
	if req.Accumulate {
		token = contentToken(state.Rows())
	} else {
		token = snapshotToken()
	}
	changed := token != state.LastVersion
	state.LastVersion = token

	logrus.Debugf("Fetch complete: %d rows, version %s, changed=%v", state.Len(), token, changed)
	return Result{Rows: state.Rows(), Version: token, Changed: changed}
}
