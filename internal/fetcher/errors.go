package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/workbenchdata/twitter-fetch/api/types"
	"github.com/workbenchdata/twitter-fetch/internal/twitterapi"
	"github.com/workbenchdata/twitter-fetch/pkg/client"
)

// classifyTransport maps a transport-level failure to an ErrorInfo. No
// response arrived, so the accumulated table is untouched by definition.
func classifyTransport(err error) *types.ErrorInfo {
	if errors.Is(err, client.ErrNoCredential) {
		return &types.ErrorInfo{Kind: types.AuthError, Message: "please sign in to Twitter"}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &types.ErrorInfo{Kind: types.NetworkError, Message: "request cancelled: " + err.Error()}
	}
	return &types.ErrorInfo{Kind: types.NetworkError, Message: err.Error()}
}

// classifyResponse maps a non-success API response to an ErrorInfo. The
// user_timeline endpoint gets specific messages because its 401/404 cases
// mean something about the target user, not about our credential.
func classifyResponse(endpoint string, params url.Values, resp *client.APIResponse) *types.ErrorInfo {
	if resp.StatusCode == 429 {
		return &types.ErrorInfo{
			Kind:    types.RateLimitError,
			Message: "Twitter API rate limit exceeded. Please wait a few minutes and try again.",
		}
	}

	if endpoint == twitterapi.EndpointUserTimeline {
		username := params.Get("screen_name")
		switch resp.StatusCode {
		case 404:
			return &types.ErrorInfo{
				Kind:    types.ApiError,
				Message: fmt.Sprintf("User %s does not exist", username),
			}
		case 401:
			return &types.ErrorInfo{
				Kind:    types.AuthError,
				Message: fmt.Sprintf("User %s's tweets are private", username),
			}
		}
	}

	message := twitterapi.ParseErrorMessage(resp.Body)
	if resp.StatusCode == 401 || resp.StatusCode == 403 {
		return &types.ErrorInfo{
			Kind:    types.AuthError,
			Message: fmt.Sprintf("Twitter rejected the credential: %d %s", resp.StatusCode, message),
		}
	}

	return &types.ErrorInfo{
		Kind:    types.ApiError,
		Message: fmt.Sprintf("Error from Twitter API: %d %s", resp.StatusCode, message),
	}
}
