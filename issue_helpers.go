package factskema

import "github.com/reoring/factskema/i18n"

// NewIssue creates an Issue with code, params and a localized default message.
// Params are rendered into the message placeholders.
func NewIssue(code string, params map[string]any) Issue {
	return Issue{Code: code, Message: i18n.T(code, messageData(params)), Params: params, Fact: -1}
}

// IssueAt creates an Issue located at predicate/arity and field.
func IssueAt(predicate string, arity int, field, code string, params map[string]any) Issue {
	it := NewIssue(code, params)
	it.Predicate = predicate
	it.Arity = arity
	it.Field = field
	return it
}

func messageData(params map[string]any) map[string]string {
	if len(params) == 0 {
		return nil
	}
	data := make(map[string]string, len(params))
	for k, v := range params {
		if s, ok := v.(string); ok && k != "value" {
			data[k] = s
			continue
		}
		data[k] = renderValue(v)
	}
	return data
}
