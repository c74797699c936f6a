package homework

import (
	"fmt"
	"sort"
)

// Status is the review state of a work item as reported by the API.
type Status string

const (
	// StatusApproved means the reviewer accepted the work.
	StatusApproved Status = "approved"

	// StatusReviewing means a reviewer picked the work up.
	StatusReviewing Status = "reviewing"

	// StatusRejected means the reviewer returned the work with remarks.
	StatusRejected Status = "rejected"
)

// Verdict is the chat message announcing a work item's status.
type Verdict string

// String returns the message text.
func (v Verdict) String() string {
	return string(v)
}

// NoWorkMessage is sent when the API reports no work items under review.
const NoWorkMessage = "Работ на проверке нет."

// verdictPhrases maps each known status to its fixed phrase.
var verdictPhrases = map[Status]string{
	StatusApproved:  "Работа проверена: ревьюеру всё понравилось. Ура!",
	StatusReviewing: "Работа взята на проверку ревьюером.",
	StatusRejected:  "Работа проверена: у ревьюера есть замечания.",
}

// Phrase returns the fixed phrase for a status and whether it is known.
func Phrase(s Status) (string, bool) {
	phrase, ok := verdictPhrases[s]
	return phrase, ok
}

// KnownStatuses returns the known status values in lexical order.
func KnownStatuses() []Status {
	statuses := make([]Status, 0, len(verdictPhrases))
	for s := range verdictPhrases {
		statuses = append(statuses, s)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i] < statuses[j] })
	return statuses
}

// formatVerdict builds the message for a named work item.
func formatVerdict(name, phrase string) Verdict {
	return Verdict(fmt.Sprintf("Изменился статус проверки работы \"%s\". %s", name, phrase))
}
