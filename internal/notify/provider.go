package notify

import "fmt"

// Provider names a messenger transport.
type Provider string

const (
	// ProviderTelegram selects [TelegramMessenger].
	ProviderTelegram Provider = "telegram"

	// ProviderSlack selects [SlackMessenger].
	ProviderSlack Provider = "slack"
)

// NewMessenger builds the transport for provider. An empty provider means
// Telegram.
func NewMessenger(provider Provider, token, chat string, opts TransportOptions) (Messenger, error) {
	switch provider {
	case "", ProviderTelegram:
		m, err := NewTelegramMessenger(token, chat, opts)
		if err != nil {
			return nil, err
		}
		return m, nil
	case ProviderSlack:
		m, err := NewSlackMessenger(token, chat, opts)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown messenger provider %q", provider)
	}
}
