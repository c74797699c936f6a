// Package notify delivers chat messages for statusbot.
//
// [Notifier] is the only component the poll loop talks to. It delegates to a
// [Messenger] transport bound to one destination chat and turns every
// transport failure into a [*SendMessageError].
//
// Two transports are provided:
//
//   - [TelegramMessenger]: Telegram Bot API via telegram-bot-api
//   - [SlackMessenger]: Slack chat.postMessage via slack-go
//
// [NewMessenger] picks one by [Provider] name.
package notify
