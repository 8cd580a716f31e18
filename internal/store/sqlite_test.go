package store_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/workbenchdata/twitter-fetch/api/types"
	"github.com/workbenchdata/twitter-fetch/internal/fetcher"
	"github.com/workbenchdata/twitter-fetch/internal/store"
)

var _ = Describe("Store", func() {
	var (
		tempDir string
		st      *store.Store
	)

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "twitter-fetch")
		Expect(err).NotTo(HaveOccurred())

		st, err = store.Open(filepath.Join(tempDir, "test.db"))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		st.Close()
		os.RemoveAll(tempDir)
	})

	query := types.QuerySpec{Type: types.QueryUserTimeline, Value: "nasa"}

	makeRows := func() []types.Tweet {
		retweets := int64(3)
		return []types.Tweet{
			{
				ID:         8,
				ScreenName: "nasa",
				CreatedAt:  time.Date(2020, 11, 25, 21, 12, 7, 0, time.UTC),
				Text:       "newest",
				Lang:       "en",
			},
			{
				ID:            7,
				ScreenName:    "nasa",
				CreatedAt:     time.Date(2020, 11, 24, 9, 0, 0, 0, time.UTC),
				Text:          "older",
				RetweetCount:  &retweets,
				FavoriteCount: &retweets,
			},
		}
	}

	It("reports a never-saved dataset as missing", func() {
		_, ok, err := st.Load("nope")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("round-trips a state with rows", func() {
		state := fetcher.RestoreState(query, true, nil, "v1", makeRows())
		Expect(st.Save("d1", state)).To(Succeed())

		loaded, ok, err := st.Load("d1")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(loaded.LastQuery).To(Equal(query))
		Expect(loaded.Accumulate).To(BeTrue())
		Expect(loaded.LastVersion).To(Equal("v1"))
		Expect(loaded.LastError).To(BeNil())

		rows := loaded.Rows()
		Expect(rows).To(HaveLen(2))
		Expect(rows[0].ID).To(Equal(int64(8)))
		Expect(rows[0].Text).To(Equal("newest"))
		Expect(rows[0].RetweetCount).To(BeNil())
		Expect(rows[1].ID).To(Equal(int64(7)))
		Expect(rows[1].RetweetCount).NotTo(BeNil())
		Expect(*rows[1].RetweetCount).To(Equal(int64(3)))
		Expect(rows[1].CreatedAt.UTC()).To(Equal(time.Date(2020, 11, 24, 9, 0, 0, 0, time.UTC)))
	})

	It("round-trips a recorded error", func() {
		state := fetcher.RestoreState(query, true, &types.ErrorInfo{
			Kind:    types.RateLimitError,
			Message: "try later",
		}, "v1", nil)
		Expect(st.Save("d1", state)).To(Succeed())

		loaded, ok, err := st.Load("d1")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(loaded.LastError).NotTo(BeNil())
		Expect(loaded.LastError.Kind).To(Equal(types.RateLimitError))
		Expect(loaded.LastError.Message).To(Equal("try later"))
	})

	It("replaces rows on save instead of appending", func() {
		state := fetcher.RestoreState(query, true, nil, "v1", makeRows())
		Expect(st.Save("d1", state)).To(Succeed())

		smaller := fetcher.RestoreState(query, true, nil, "v2", makeRows()[:1])
		Expect(st.Save("d1", smaller)).To(Succeed())

		loaded, _, err := st.Load("d1")
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Rows()).To(HaveLen(1))
		Expect(loaded.LastVersion).To(Equal("v2"))
	})

	It("keeps datasets independent", func() {
		Expect(st.Save("d1", fetcher.RestoreState(query, true, nil, "v1", makeRows()))).To(Succeed())
		Expect(st.Save("d2", fetcher.RestoreState(query, false, nil, "v9", nil))).To(Succeed())

		d1, _, err := st.Load("d1")
		Expect(err).NotTo(HaveOccurred())
		Expect(d1.Rows()).To(HaveLen(2))

		d2, _, err := st.Load("d2")
		Expect(err).NotTo(HaveOccurred())
		Expect(d2.Rows()).To(BeEmpty())
		Expect(d2.LastVersion).To(Equal("v9"))
	})

	It("deletes a dataset and its rows", func() {
		Expect(st.Save("d1", fetcher.RestoreState(query, true, nil, "v1", makeRows()))).To(Succeed())
		Expect(st.Delete("d1")).To(Succeed())

		_, ok, err := st.Load("d1")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})
})
