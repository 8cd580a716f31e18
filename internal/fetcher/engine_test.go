package fetcher_test

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/workbenchdata/twitter-fetch/api/types"
	"github.com/workbenchdata/twitter-fetch/internal/fetcher"
	"github.com/workbenchdata/twitter-fetch/internal/twitterapi"
	"github.com/workbenchdata/twitter-fetch/pkg/client"
)

type step struct {
	status int
	body   string
	err    error
}

// fakeTwitter replays scripted page responses and records every request's
// parameters. Once the script runs out it serves empty pages, which ends a
// walk the same way the real API does.
type fakeTwitter struct {
	steps     []step
	endpoints []string
	requests  []url.Values
}

func (f *fakeTwitter) Get(_ context.Context, endpoint string, params url.Values) (*client.APIResponse, error) {
	f.endpoints = append(f.endpoints, endpoint)
	f.requests = append(f.requests, params)

	if len(f.steps) == 0 {
		empty := "[]"
		if endpoint == twitterapi.EndpointSearch {
			empty = `{"statuses":[]}`
		}
		return &client.APIResponse{StatusCode: 200, Body: []byte(empty)}, nil
	}
	s := f.steps[0]
	f.steps = f.steps[1:]

	if s.err != nil {
		return nil, s.err
	}
	status := s.status
	if status == 0 {
		status = 200
	}
	return &client.APIResponse{StatusCode: status, Body: []byte(s.body)}, nil
}

func tweetJSON(id int64) string {
	return fmt.Sprintf(`{"id":%d,"created_at":"Mon Jan 02 15:04:05 +0000 2006",`+
		`"full_text":"tweet %d","retweet_count":2,"favorite_count":3,`+
		`"user":{"screen_name":"foo","description":"bio"},"lang":"en"}`, id, id)
}

func pageJSON(ids ...int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = tweetJSON(id)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func rowIDs(rows []types.Tweet) []int64 {
	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids
}

func timelineRequest(value string) types.FetchRequest {
	return types.FetchRequest{
		Dataset:    "d1",
		QuerySpec:  types.QuerySpec{Type: types.QueryUserTimeline, Value: value},
		Accumulate: true,
	}
}

var _ = Describe("Engine", func() {
	var (
		fake   *fakeTwitter
		engine *fetcher.Engine
		state  *fetcher.AccumulatedState
		ctx    context.Context
	)

	BeforeEach(func() {
		fake = &fakeTwitter{}
		engine = fetcher.NewEngine(fake, 100_000)
		state = fetcher.NewState()
		ctx = context.Background()
	})

	Describe("accumulating fetches", func() {
		It("builds the table from a first fetch", func() {
			fake.steps = []step{{body: pageJSON(5, 4, 3, 2, 1)}}

			result := engine.Run(ctx, state, timelineRequest("foo"))

			Expect(result.Err).To(BeNil())
			Expect(rowIDs(result.Rows)).To(Equal([]int64{5, 4, 3, 2, 1}))
			Expect(result.Changed).To(BeTrue())
			Expect(result.Version).NotTo(BeEmpty())

			// First page of a fresh walk carries no cursors.
			Expect(fake.requests[0].Get("since_id")).To(BeEmpty())
			Expect(fake.requests[0].Get("max_id")).To(BeEmpty())
		})

		It("merges an overlapping second fetch without duplicates", func() {
			fake.steps = []step{{body: pageJSON(5, 4, 3, 2, 1)}}
			first := engine.Run(ctx, state, timelineRequest("foo"))

			fake.steps = []step{{body: pageJSON(8, 7, 6, 5, 4, 3)}}
			second := engine.Run(ctx, state, timelineRequest("foo"))

			Expect(second.Err).To(BeNil())
			Expect(rowIDs(second.Rows)).To(Equal([]int64{8, 7, 6, 5, 4, 3, 2, 1}))
			Expect(second.Version).NotTo(Equal(first.Version))
			Expect(second.Changed).To(BeTrue())

			// The second walk resumes from the newest accumulated tweet.
			lastRun := fake.requests[len(fake.requests)-2]
			Expect(lastRun.Get("since_id")).To(Equal("5"))
		})

		It("is idempotent when a fetch returns nothing new", func() {
			fake.steps = []step{{body: pageJSON(5, 4, 3, 2, 1)}}
			first := engine.Run(ctx, state, timelineRequest("foo"))

			fake.steps = []step{{body: pageJSON(5, 4, 3)}}
			second := engine.Run(ctx, state, timelineRequest("foo"))

			Expect(second.Err).To(BeNil())
			Expect(rowIDs(second.Rows)).To(Equal(rowIDs(first.Rows)))
			Expect(second.Version).To(Equal(first.Version))
			Expect(second.Changed).To(BeFalse())
		})

		It("never stores two rows with the same id", func() {
			fake.steps = []step{
				{body: pageJSON(10, 9, 8)},
				{body: pageJSON(8, 7, 6, 5, 4, 3, 2, 1)},
			}

			result := engine.Run(ctx, state, timelineRequest("foo"))

			Expect(result.Err).To(BeNil())
			seen := map[int64]bool{}
			for _, id := range rowIDs(result.Rows) {
				Expect(seen[id]).To(BeFalse(), "duplicate id %d", id)
				seen[id] = true
			}
			Expect(rowIDs(result.Rows)).To(Equal([]int64{10, 9, 8, 7, 6, 5, 4, 3, 2, 1}))
		})

		It("walks multiple pages with a max_id cursor", func() {
			fake.steps = []step{
				{body: pageJSON(100, 90)},
				{body: pageJSON(80, 70)},
			}

			result := engine.Run(ctx, state, timelineRequest("foo"))

			Expect(result.Err).To(BeNil())
			Expect(rowIDs(result.Rows)).To(Equal([]int64{100, 90, 80, 70}))
			Expect(fake.requests[1].Get("max_id")).To(Equal("89"))
			Expect(fake.requests[2].Get("max_id")).To(Equal("69"))
		})

		It("strips volatile counts from accumulated rows", func() {
			fake.steps = []step{{body: pageJSON(5, 4)}}

			result := engine.Run(ctx, state, timelineRequest("foo"))

			Expect(result.Err).To(BeNil())
			for _, row := range result.Rows {
				Expect(row.RetweetCount).To(BeNil())
				Expect(row.FavoriteCount).To(BeNil())
			}
		})

		It("produces equal versions for equal content", func() {
			fake.steps = []step{{body: pageJSON(5, 4, 3)}}
			first := engine.Run(ctx, state, timelineRequest("foo"))

			otherFake := &fakeTwitter{steps: []step{{body: pageJSON(5, 4, 3)}}}
			otherEngine := fetcher.NewEngine(otherFake, 100_000)
			second := otherEngine.Run(ctx, fetcher.NewState(), timelineRequest("foo"))

			Expect(first.Err).To(BeNil())
			Expect(second.Err).To(BeNil())
			Expect(second.Version).To(Equal(first.Version))
		})

		It("trims the oldest rows past the cap", func() {
			capped := fetcher.NewEngine(fake, 3)
			fake.steps = []step{{body: pageJSON(5, 4, 3, 2, 1)}}

			result := capped.Run(ctx, state, timelineRequest("foo"))

			Expect(result.Err).To(BeNil())
			Expect(rowIDs(result.Rows)).To(Equal([]int64{5, 4, 3}))
		})
	})

	Describe("failure handling", func() {
		BeforeEach(func() {
			fake.steps = []step{{body: pageJSON(8, 7, 6, 5, 4, 3, 2, 1)}}
			result := engine.Run(ctx, state, timelineRequest("foo"))
			Expect(result.Err).To(BeNil())
		})

		It("keeps the table and version when the whole fetch fails", func() {
			before := state.Rows()
			version := state.LastVersion

			fake.steps = []step{{err: errors.New("connection reset")}}
			result := engine.Run(ctx, state, timelineRequest("foo"))

			Expect(result.Err).NotTo(BeNil())
			Expect(result.Err.Kind).To(Equal(types.NetworkError))
			Expect(rowIDs(result.Rows)).To(Equal(rowIDs(before)))
			Expect(result.Version).To(Equal(version))
			Expect(result.Changed).To(BeFalse())
			Expect(state.LastError).NotTo(BeNil())
		})

		It("keeps pages merged before a mid-walk failure", func() {
			fake.steps = []step{
				{body: pageJSON(20, 19)},
				{err: errors.New("connection reset")},
			}

			result := engine.Run(ctx, state, timelineRequest("foo"))

			Expect(result.Err).NotTo(BeNil())
			Expect(rowIDs(result.Rows)).To(Equal([]int64{20, 19, 8, 7, 6, 5, 4, 3, 2, 1}))
		})

		It("clears the recorded error on the next successful fetch", func() {
			fake.steps = []step{{err: errors.New("connection reset")}}
			engine.Run(ctx, state, timelineRequest("foo"))
			Expect(state.LastError).NotTo(BeNil())

			fake.steps = nil
			result := engine.Run(ctx, state, timelineRequest("foo"))
			Expect(result.Err).To(BeNil())
			Expect(state.LastError).To(BeNil())
		})

		It("classifies a 429 as a rate limit", func() {
			fake.steps = []step{{status: 429, body: `{"errors":[{"message":"Rate limit exceeded"}]}`}}

			result := engine.Run(ctx, state, timelineRequest("foo"))

			Expect(result.Err).NotTo(BeNil())
			Expect(result.Err.Kind).To(Equal(types.RateLimitError))
			Expect(len(result.Rows)).To(Equal(8))
		})

		It("classifies a missing user without touching the table", func() {
			fake.steps = []step{{status: 404, body: `{"errors":[{"message":"Sorry, that page does not exist."}]}`}}

			result := engine.Run(ctx, state, timelineRequest("foo"))

			Expect(result.Err).NotTo(BeNil())
			Expect(result.Err.Kind).To(Equal(types.ApiError))
			Expect(result.Err.Message).To(ContainSubstring("does not exist"))
			Expect(len(result.Rows)).To(Equal(8))
		})

		It("classifies a private timeline as an auth failure", func() {
			fake.steps = []step{{status: 401, body: `{}`}}

			result := engine.Run(ctx, state, timelineRequest("foo"))

			Expect(result.Err).NotTo(BeNil())
			Expect(result.Err.Kind).To(Equal(types.AuthError))
			Expect(result.Err.Message).To(ContainSubstring("private"))
		})
	})

	Describe("reset detection", func() {
		It("clears the table when the query value changes", func() {
			fake.steps = []step{{body: pageJSON(8, 7, 6, 5, 4, 3, 2, 1)}}
			engine.Run(ctx, state, timelineRequest("foo"))

			fake.steps = []step{{body: pageJSON(100, 99)}}
			result := engine.Run(ctx, state, timelineRequest("bar"))

			Expect(result.Err).To(BeNil())
			Expect(rowIDs(result.Rows)).To(Equal([]int64{100, 99}))

			// The new query must not inherit the old query's cursor.
			barFirst := fake.requests[len(fake.requests)-2]
			Expect(barFirst.Get("since_id")).To(BeEmpty())
		})

		It("clears the table when the query type changes", func() {
			fake.steps = []step{{body: pageJSON(5, 4, 3)}}
			engine.Run(ctx, state, timelineRequest("foo"))

			fake.steps = []step{{body: `{"statuses":[` + tweetJSON(42) + `]}`}}
			result := engine.Run(ctx, state, types.FetchRequest{
				Dataset:    "d1",
				QuerySpec:  types.QuerySpec{Type: types.QuerySearch, Value: "foo"},
				Accumulate: true,
			})

			Expect(result.Err).To(BeNil())
			Expect(rowIDs(result.Rows)).To(Equal([]int64{42}))
		})

		It("clears the table when accumulate mode is toggled", func() {
			fake.steps = []step{{body: pageJSON(5, 4, 3)}}
			engine.Run(ctx, state, timelineRequest("foo"))

			req := timelineRequest("foo")
			req.Accumulate = false
			fake.steps = []step{{body: pageJSON(9, 8)}}
			result := engine.Run(ctx, state, req)

			Expect(result.Err).To(BeNil())
			Expect(rowIDs(result.Rows)).To(Equal([]int64{9, 8}))
		})
	})

	Describe("full-refresh mode", func() {
		snapshotRequest := func() types.FetchRequest {
			req := timelineRequest("foo")
			req.Accumulate = false
			return req
		}

		It("retains volatile counts in the snapshot", func() {
			fake.steps = []step{{body: pageJSON(5, 4)}}

			result := engine.Run(ctx, state, snapshotRequest())

			Expect(result.Err).To(BeNil())
			for _, row := range result.Rows {
				Expect(row.RetweetCount).NotTo(BeNil())
				Expect(*row.RetweetCount).To(Equal(int64(2)))
			}
		})

		It("treats every successful run as a new version", func() {
			fake.steps = []step{{body: pageJSON(5, 4)}}
			first := engine.Run(ctx, state, snapshotRequest())

			fake.steps = []step{{body: pageJSON(5, 4)}}
			second := engine.Run(ctx, state, snapshotRequest())

			Expect(first.Err).To(BeNil())
			Expect(second.Err).To(BeNil())
			Expect(first.Changed).To(BeTrue())
			Expect(second.Changed).To(BeTrue())
			Expect(second.Version).NotTo(Equal(first.Version))
		})
	})

	Describe("configuration errors", func() {
		It("rejects an empty search without any network call", func() {
			fake.steps = []step{{body: pageJSON(5, 4, 3)}}
			engine.Run(ctx, state, timelineRequest("foo"))
			calls := len(fake.requests)

			result := engine.Run(ctx, state, types.FetchRequest{
				Dataset:    "d1",
				QuerySpec:  types.QuerySpec{Type: types.QuerySearch, Value: "  "},
				Accumulate: true,
			})

			Expect(result.Err).NotTo(BeNil())
			Expect(result.Err.Kind).To(Equal(types.ConfigError))
			Expect(len(fake.requests)).To(Equal(calls))

			// The table from the previous (different) query is untouched.
			Expect(rowIDs(result.Rows)).To(Equal([]int64{5, 4, 3}))
		})

		It("rejects an invalid username", func() {
			result := engine.Run(ctx, state, timelineRequest("not a username!"))

			Expect(result.Err).NotTo(BeNil())
			Expect(result.Err.Kind).To(Equal(types.ConfigError))
			Expect(fake.requests).To(BeEmpty())
		})
	})
})
