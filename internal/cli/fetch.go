package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/workbenchdata/twitter-fetch/api/types"
	"github.com/workbenchdata/twitter-fetch/internal/config"
	"github.com/workbenchdata/twitter-fetch/internal/fetcher"
	"github.com/workbenchdata/twitter-fetch/internal/store"
	"github.com/workbenchdata/twitter-fetch/pkg/client"
)

var (
	fetchDataset    string
	fetchQueryType  string
	fetchQuery      string
	fetchAccumulate bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Run one fetch invocation and print the table as JSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := config.Read()

		st, err := store.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()

		opts := []client.Option{
			client.Timeout(cfg.RequestTimeout),
			client.RequestsPerSecond(cfg.RequestsPerSec),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, client.BaseURL(cfg.BaseURL))
		}
		twitterClient, err := client.NewTwitterClient(client.NewHeaderSigner(cfg.Authorization), opts...)
		if err != nil {
			return err
		}

		req := types.FetchRequest{
			Dataset: fetchDataset,
			QuerySpec: types.QuerySpec{
				Type:  types.QueryType(fetchQueryType),
				Value: fetchQuery,
			},
			Accumulate: fetchAccumulate,
		}

		state, ok, err := st.Load(req.Dataset)
		if err != nil {
			return err
		}
		if !ok {
			state = fetcher.NewState()
		}

		engine := fetcher.NewEngine(twitterClient, cfg.MaxRows)
		result := engine.Run(cmd.Context(), state, req)

		if result.Err == nil || result.Err.Kind != types.ConfigError {
			if err := st.Save(req.Dataset, state); err != nil {
				return err
			}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(types.FetchResponse{
			Dataset:  req.Dataset,
			Rows:     result.Rows,
			RowCount: len(result.Rows),
			Version:  result.Version,
			Changed:  result.Changed,
			Error:    result.Err,
		}); err != nil {
			return err
		}

		if result.Err != nil {
			return fmt.Errorf("fetch failed: %s", result.Err.Error())
		}
		return nil
	},
}

func init() {
	fetchCmd.Flags().StringVar(&fetchDataset, "dataset", "default", "dataset id the accumulated table lives under")
	fetchCmd.Flags().StringVar(&fetchQueryType, "querytype", string(types.QueryUserTimeline), "user_timeline, search, or lists_statuses")
	fetchCmd.Flags().StringVar(&fetchQuery, "query", "", "username, search text, or list URL")
	fetchCmd.Flags().BoolVar(&fetchAccumulate, "accumulate", false, "merge new tweets into the stored table instead of replacing it")
	rootCmd.AddCommand(fetchCmd)
}
