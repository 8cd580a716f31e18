package types

import "time"

// Tweet is one row of the output table. Identity is ID; everything else is
// data. RetweetCount and FavoriteCount are observed at fetch time and are
// nil when the volatile fields have been stripped in accumulate mode.
type Tweet struct {
	ID                        int64     `json:"id"`
	ScreenName                string    `json:"screen_name"`
	CreatedAt                 time.Time `json:"created_at"`
	Text                      string    `json:"text"`
	RetweetCount              *int64    `json:"retweet_count,omitempty"`
	FavoriteCount             *int64    `json:"favorite_count,omitempty"`
	InReplyToScreenName       string    `json:"in_reply_to_screen_name,omitempty"`
	RetweetedStatusScreenName string    `json:"retweeted_status_screen_name,omitempty"`
	UserDescription           string    `json:"user_description,omitempty"`
	Source                    string    `json:"source,omitempty"`
	Lang                      string    `json:"lang,omitempty"`
}

// StripVolatile clears the fields whose values depend on when the fetch
// happened. Observations from different fetches are not comparable, so
// accumulated records must not carry them.
func (t *Tweet) StripVolatile() {
	t.RetweetCount = nil
	t.FavoriteCount = nil
}
