package fetcher

import (
	"github.com/workbenchdata/twitter-fetch/api/types"
)

// AccumulatedState is the table built up across invocations: an ordered
// mapping from tweet id to record, newest rows first, plus the query that
// produced it. One engine invocation owns the state exclusively; there is no
// internal locking.
type AccumulatedState struct {
	LastQuery   types.QuerySpec
	Accumulate  bool
	LastError   *types.ErrorInfo
	LastVersion string

	rows  []types.Tweet
	index map[int64]struct{}
}

// NewState returns an empty state.
func NewState() *AccumulatedState {
	return &AccumulatedState{index: make(map[int64]struct{})}
}

// RestoreState rebuilds a state from persisted fields. Rows must be in
// table order; duplicate ids are dropped.
func RestoreState(query types.QuerySpec, accumulate bool, lastErr *types.ErrorInfo, version string, rows []types.Tweet) *AccumulatedState {
	s := NewState()
	s.LastQuery = query
	s.Accumulate = accumulate
	s.LastError = lastErr
	s.LastVersion = version
	for _, t := range rows {
		if _, ok := s.index[t.ID]; ok {
			continue
		}
		s.index[t.ID] = struct{}{}
		s.rows = append(s.rows, t)
	}
	return s
}

// Rows returns a copy of the table in order.
func (s *AccumulatedState) Rows() []types.Tweet {
	out := make([]types.Tweet, len(s.rows))
	copy(out, s.rows)
	return out
}

func (s *AccumulatedState) Len() int {
	return len(s.rows)
}

// MaxID returns the highest tweet id in the table, or 0 when empty. It is
// the since_id cursor for the next accumulating walk.
func (s *AccumulatedState) MaxID() int64 {
	var max int64
	for _, t := range s.rows {
		if t.ID > max {
			max = t.ID
		}
	}
	return max
}

// Reset discards the table and stamps the state with the new query. Run
// before any fetch when the query or accumulate mode changed, so a stale
// since_id cursor can never filter an unrelated query.
func (s *AccumulatedState) Reset(query types.QuerySpec, accumulate bool) {
	s.LastQuery = query
	s.Accumulate = accumulate
	s.LastError = nil
	s.LastVersion = ""
	s.rows = nil
	s.index = make(map[int64]struct{})
}

// merge inserts the unseen tweets of one page as a contiguous block at
// insertAt, returning how many were inserted. Tweets already present are
// left untouched, so a newer observation of volatile counts never
// overwrites a stored record, and merging the same page twice is a no-op
// the second time. The rows after the insertion point keep their order.
func (s *AccumulatedState) merge(page []types.Tweet, insertAt int, stripVolatile bool) int {
	var fresh []types.Tweet
	for _, t := range page {
		if _, ok := s.index[t.ID]; ok {
			continue
		}
		if stripVolatile {
			t.StripVolatile()
		}
		s.index[t.ID] = struct{}{}
		fresh = append(fresh, t)
	}
	if len(fresh) == 0 {
		return 0
	}

	merged := make([]types.Tweet, 0, len(s.rows)+len(fresh))
	merged = append(merged, s.rows[:insertAt]...)
	merged = append(merged, fresh...)
	merged = append(merged, s.rows[insertAt:]...)
	s.rows = merged
	return len(fresh)
}

// trim drops the oldest rows (the table tail) beyond maxRows.
func (s *AccumulatedState) trim(maxRows int) {
	if maxRows <= 0 || len(s.rows) <= maxRows {
		return
	}
	for _, t := range s.rows[maxRows:] {
		delete(s.index, t.ID)
	}
	s.rows = s.rows[:maxRows]
}
