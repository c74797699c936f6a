package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/slack-go/slack"
)

// slackPoster is the part of *slack.Client used for delivery.
type slackPoster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackMessenger sends messages to one Slack channel.
type SlackMessenger struct {
	client  slackPoster
	channel string
}

// NewSlackMessenger creates a messenger for the given bot token and channel.
func NewSlackMessenger(token, channel string, opts TransportOptions) (*SlackMessenger, error) {
	if strings.TrimSpace(channel) == "" {
		return nil, errors.New("slack channel is required")
	}

	clientOpts := []slack.Option{slack.OptionHTTPClient(opts.httpClient())}
	if opts.APIURL != "" {
		apiURL := opts.APIURL
		if !strings.HasSuffix(apiURL, "/") {
			apiURL += "/"
		}
		clientOpts = append(clientOpts, slack.OptionAPIURL(apiURL))
	}

	return &SlackMessenger{
		client:  slack.New(token, clientOpts...),
		channel: channel,
	}, nil
}

// Send implements [Messenger].
func (s *SlackMessenger) Send(ctx context.Context, text string) error {
	_, _, err := s.client.PostMessageContext(ctx, s.channel, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("slack chat.postMessage to %s: %w", s.channel, err)
	}
	return nil
}
