package homework

import "fmt"

// Resolve maps a work item to its [Verdict].
//
// Both "homework_name" and "status" must be present; every missing key is
// reported in a single [*MissingKeyError]. A non-string name is a
// [*TypeMismatchError]. A status outside the verdict table, including a
// non-string one, is an [*UnknownStatusError].
func Resolve(item WorkItem) (Verdict, error) {
	var missing []string
	for _, key := range []string{keyName, keyStatus} {
		if _, ok := item[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return "", &MissingKeyError{Object: "homework", Keys: missing}
	}

	name, ok := item[keyName].(string)
	if !ok {
		return "", &TypeMismatchError{Field: keyName, Want: "string", Got: jsonType(item[keyName])}
	}

	rawStatus := item[keyStatus]
	status, ok := rawStatus.(string)
	if !ok {
		return "", &UnknownStatusError{Status: fmt.Sprint(rawStatus)}
	}

	phrase, ok := Phrase(Status(status))
	if !ok {
		return "", &UnknownStatusError{Status: status}
	}

	return formatVerdict(name, phrase), nil
}

// Name returns the item's "homework_name" if it is a string.
func (w WorkItem) Name() string {
	name, _ := w[keyName].(string)
	return name
}

// Status returns the item's raw "status" if it is a string.
func (w WorkItem) Status() Status {
	status, _ := w[keyStatus].(string)
	return Status(status)
}
