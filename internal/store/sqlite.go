package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/workbenchdata/twitter-fetch/api/types"
	"github.com/workbenchdata/twitter-fetch/internal/fetcher"
)

// Store persists accumulated state between invocations. Each dataset id maps
// to one state: its query stamp, version token, last error, and the table
// rows in order. Saves are transactional so a state is either fully
// replaced or left as it was.
type Store struct {
	db *sql.DB
}

// Open creates or opens the sqlite database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database %s: %w", path, err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY on concurrent datasets.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error migrating database: %w", err)
	}

	logrus.Debug("Database initialized: ", path)
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS datasets (
		id TEXT PRIMARY KEY,
		query_type TEXT NOT NULL,
		query_value TEXT NOT NULL,
		accumulate INTEGER NOT NULL,
		version TEXT NOT NULL DEFAULT '',
		error_kind TEXT,
		error_message TEXT,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tweets (
		dataset_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		tweet_id INTEGER NOT NULL,
		screen_name TEXT,
		created_at DATETIME,
		text TEXT,
		retweet_count INTEGER,
		favorite_count INTEGER,
		in_reply_to_screen_name TEXT,
		retweeted_status_screen_name TEXT,
		user_description TEXT,
		source TEXT,
		lang TEXT,
		PRIMARY KEY (dataset_id, position)
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_tweets_dataset_tweet ON tweets(dataset_id, tweet_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save replaces the persisted state for a dataset in one transaction.
func (s *Store) Save(dataset string, state *fetcher.AccumulatedState) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var errKind, errMessage sql.NullString
	if state.LastError != nil {
		errKind = sql.NullString{String: string(state.LastError.Kind), Valid: true}
		errMessage = sql.NullString{String: state.LastError.Message, Valid: true}
	}

	_, err = tx.Exec(`
		INSERT INTO datasets (id, query_type, query_value, accumulate, version, error_kind, error_message, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			query_type = excluded.query_type,
			query_value = excluded.query_value,
			accumulate = excluded.accumulate,
			version = excluded.version,
			error_kind = excluded.error_kind,
			error_message = excluded.error_message,
			updated_at = excluded.updated_at
	`, dataset, string(state.LastQuery.Type), state.LastQuery.Value, state.Accumulate,
		state.LastVersion, errKind, errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("error saving dataset %s: %w", dataset, err)
	}

	if _, err := tx.Exec(`DELETE FROM tweets WHERE dataset_id = ?`, dataset); err != nil {
		return fmt.Errorf("error clearing rows for dataset %s: %w", dataset, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO tweets (dataset_id, position, tweet_id, screen_name, created_at, text,
			retweet_count, favorite_count, in_reply_to_screen_name,
			retweeted_status_screen_name, user_description, source, lang)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for position, t := range state.Rows() {
		_, err := stmt.Exec(dataset, position, t.ID, t.ScreenName, t.CreatedAt, t.Text,
			nullInt(t.RetweetCount), nullInt(t.FavoriteCount), t.InReplyToScreenName,
			t.RetweetedStatusScreenName, t.UserDescription, t.Source, t.Lang)
		if err != nil {
			return fmt.Errorf("error saving row %d of dataset %s: %w", position, dataset, err)
		}
	}

	return tx.Commit()
}

// Load returns the persisted state for a dataset, or (nil, false, nil) when
// the dataset has never been saved.
func (s *Store) Load(dataset string) (*fetcher.AccumulatedState, bool, error) {
	var (
		queryType, queryValue, version string
		accumulate                     bool
		errKind, errMessage            sql.NullString
	)
	err := s.db.QueryRow(`
		SELECT query_type, query_value, accumulate, version, error_kind, error_message
		FROM datasets WHERE id = ?
	`, dataset).Scan(&queryType, &queryValue, &accumulate, &version, &errKind, &errMessage)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("error loading dataset %s: %w", dataset, err)
	}

	rows, err := s.db.Query(`
		SELECT tweet_id, screen_name, created_at, text, retweet_count, favorite_count,
			in_reply_to_screen_name, retweeted_status_screen_name, user_description, source, lang
		FROM tweets WHERE dataset_id = ? ORDER BY position
	`, dataset)
	if err != nil {
		return nil, false, fmt.Errorf("error loading rows for dataset %s: %w", dataset, err)
	}
	defer rows.Close()

	var tweets []types.Tweet
	for rows.Next() {
		var (
			t                   types.Tweet
			retweets, favorites sql.NullInt64
		)
		err := rows.Scan(&t.ID, &t.ScreenName, &t.CreatedAt, &t.Text, &retweets, &favorites,
			&t.InReplyToScreenName, &t.RetweetedStatusScreenName, &t.UserDescription, &t.Source, &t.Lang)
		if err != nil {
			return nil, false, fmt.Errorf("error scanning row for dataset %s: %w", dataset, err)
		}
		if retweets.Valid {
			t.RetweetCount = &retweets.Int64
		}
		if favorites.Valid {
			t.FavoriteCount = &favorites.Int64
		}
		tweets = append(tweets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	var lastErr *types.ErrorInfo
	if errKind.Valid {
		lastErr = &types.ErrorInfo{Kind: types.ErrorKind(errKind.String), Message: errMessage.String}
	}

	query := types.QuerySpec{Type: types.QueryType(queryType), Value: queryValue}
	return fetcher.RestoreState(query, accumulate, lastErr, version, tweets), true, nil
}

// Delete removes a dataset and its rows.
func (s *Store) Delete(dataset string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM tweets WHERE dataset_id = ?`, dataset); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM datasets WHERE id = ?`, dataset); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Close() error {
	return s.db.Close()
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
