package plugins

import (
	"fmt"
	"regexp"
)

// Subscription selects the commands a plugin wants to receive. Exact and
// prefix subscriptions are compiled from escaped literals and cannot fail.
type Subscription struct {
	re          *regexp.Regexp
	description string
}

// PatternError reports a subscription pattern that does not compile.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid subscription pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// Exact matches the command verbatim.
func Exact(command string) Subscription {
	return Subscription{re: regexp.MustCompile("^" + regexp.QuoteMeta(command) + "$")}
}

// Prefix matches any command starting with prefix.
func Prefix(prefix string) Subscription {
	return Subscription{re: regexp.MustCompile("^" + regexp.QuoteMeta(prefix))}
}

// Pattern matches any command the regular expression matches anywhere.
func Pattern(pattern string) (Subscription, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Subscription{}, &PatternError{Pattern: pattern, Err: err}
	}
	return Subscription{re: re}, nil
}

// Exacts builds one exact subscription per command.
func Exacts(commands ...string) []Subscription {
	subs := make([]Subscription, 0, len(commands))
	for _, c := range commands {
		subs = append(subs, Exact(c))
	}
	return subs
}

// WithDescription returns a copy of s carrying a help text.
func (s Subscription) WithDescription(description string) Subscription {
	s.description = description
	return s
}

// Matches reports whether command is selected by s.
func (s Subscription) Matches(command string) bool {
	return s.re != nil && s.re.MatchString(command)
}

// Pattern returns the compiled expression as text.
func (s Subscription) Pattern() string {
	if s.re == nil {
		return ""
	}
	return s.re.String()
}

// Description returns the help text, if any.
func (s Subscription) Description() string {
	return s.description
}

func (s Subscription) valid() bool {
	return s.re != nil
}
