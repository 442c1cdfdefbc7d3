package tracker

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/loopline/trackbot/internal/flow"
	"github.com/loopline/trackbot/internal/session"
)

// Maximum input lengths per field, in runes.
const (
	maxNameLen     = 1000
	maxTaglineLen  = 2500
	maxProblemLen  = 5500
	maxStackLen    = 5000
	maxLinkLen     = 300
	maxHelpLen     = 7500
	maxProgressLen = 9000
	maxBlockersLen = 10000
)

// textField builds a validator for a required free-text field: trims,
// rejects empty input, and enforces the rune limit.
func textField(label string, max int) flow.Validator {
	return func(_ context.Context, _ *session.Session, raw string) (string, error) {
		v := strings.TrimSpace(raw)
		if v == "" {
			return "", flow.Invalidf("%s cannot be empty. Please provide some text.", label)
		}
		if utf8.RuneCountInString(v) > max {
			return "", flow.Invalidf("%s is too long (max %d characters). Please shorten it.", label, max)
		}
		return v, nil
	}
}

// optionalTextField is like textField but the literal skip word (case
// insensitive) resolves to the empty string.
func optionalTextField(label string, max int) flow.Validator {
	required := textField(label, max)
	return func(ctx context.Context, sess *session.Session, raw string) (string, error) {
		if strings.EqualFold(strings.TrimSpace(raw), SkipWord) {
			return "", nil
		}
		return required(ctx, sess, raw)
	}
}

// oneOf builds a validator for choice states with a fixed token set.
func oneOf(tokens ...string) flow.Validator {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return func(_ context.Context, _ *session.Session, raw string) (string, error) {
		if _, ok := set[raw]; !ok {
			return "", flow.Invalidf("That option is no longer valid. Please choose one of the options above.")
		}
		return raw, nil
	}
}
