package twitterapi

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/workbenchdata/twitter-fetch/api/types"
)

// createdAtLayout is Twitter's RFC-2822-ish created_at format.
const createdAtLayout = "Mon Jan 02 15:04:05 -0700 2006"

var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

type apiUser struct {
	ScreenName  string `json:"screen_name"`
	Description string `json:"description"`
}

type apiTweet struct {
	ID                  int64     `json:"id"`
	CreatedAt           string    `json:"created_at"`
	FullText            string    `json:"full_text"`
	Text                string    `json:"text"`
	RetweetCount        int64     `json:"retweet_count"`
	FavoriteCount       int64     `json:"favorite_count"`
	InReplyToScreenName string    `json:"in_reply_to_screen_name"`
	Source              string    `json:"source"`
	Lang                string    `json:"lang"`
	User                apiUser   `json:"user"`
	RetweetedStatus     *apiTweet `json:"retweeted_status"`
}

// searchEnvelope wraps 1.1/search/tweets.json responses; timeline and list
// endpoints return a bare array.
type searchEnvelope struct {
	Statuses []apiTweet `json:"statuses"`
}

// ParsePage decodes one API response body into table rows, newest first as
// Twitter returns them.
func ParsePage(endpoint string, body []byte) ([]types.Tweet, error) {
	var raw []apiTweet
	if endpoint == EndpointSearch {
		var envelope searchEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, fmt.Errorf("error decoding search response: %w", err)
		}
		raw = envelope.Statuses
	} else {
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("error decoding timeline response: %w", err)
		}
	}

	tweets := make([]types.Tweet, 0, len(raw))
	for i := range raw {
		tweets = append(tweets, convertTweet(&raw[i]))
	}
	return tweets, nil
}

func convertTweet(t *apiTweet) types.Tweet {
	createdAt, err := time.Parse(createdAtLayout, t.CreatedAt)
	if err != nil {
		createdAt = time.Time{}
	}

	retweets := t.RetweetCount
	favorites := t.FavoriteCount

	row := types.Tweet{
		ID:                  t.ID,
		ScreenName:          t.User.ScreenName,
		CreatedAt:           createdAt.UTC(),
		Text:                tweetText(t),
		RetweetCount:        &retweets,
		FavoriteCount:       &favorites,
		InReplyToScreenName: t.InReplyToScreenName,
		UserDescription:     t.User.Description,
		Source:              htmlTagRe.ReplaceAllString(t.Source, ""),
		Lang:                parseLang(t.Lang),
	}
	if t.RetweetedStatus != nil {
		row.RetweetedStatusScreenName = t.RetweetedStatus.User.ScreenName
	}
	return row
}

// tweetText renders retweets as "RT @user: <text>" using the retweeted
// status's full text, which the truncated outer tweet lacks.
func tweetText(t *apiTweet) string {
	if rt := t.RetweetedStatus; rt != nil {
		text := rt.FullText
		if text == "" {
			// Some retweeted statuses don't have full_text.
			text = rt.Text
		}
		return fmt.Sprintf("RT @%s: %s", rt.User.ScreenName, text)
	}
	if t.FullText != "" {
		return t.FullText
	}
	return t.Text
}

// parseLang maps Twitter's "und" (undetermined) to empty.
func parseLang(lang string) string {
	if lang == "und" {
		return ""
	}
	return lang
}

// ParseErrorMessage extracts a human-readable message from an API error
// body. Twitter uses both {"errors":[{"message":...}]} and {"error":...}
// shapes; fall back to the raw body when neither decodes.
func ParseErrorMessage(body []byte) string {
	var multi struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &multi); err == nil && len(multi.Errors) > 0 && multi.Errors[0].Message != "" {
		return multi.Errors[0].Message
	}

	var single struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &single); err == nil && single.Error != "" {
		return single.Error
	}

	return string(body)
}
