package trace

import (
	"regexp"
	"strings"
)

const DefaultRedactionReplacement = "[redacted]"

var defaultSensitiveHeaders = []string{
	"authorization",
	"proxy-authorization",
	"x-api-key",
	"cookie",
	"set-cookie",
}

// GitHub OAuth and Copilot session tokens can show up in error bodies.
var defaultValuePatterns = []string{
	`gh[oupsr]_[A-Za-z0-9]{20,}`,
	`tid=[^;\s"]+`,
}

type RedactorConfig struct {
	SensitiveHeaders []string
	ValuePatterns    []string
	Replacement      string
}

type Redactor struct {
	sensitiveHeaders map[string]struct{}
	valuePatterns    []*regexp.Regexp
	replacement      string
}

func DefaultRedactor() *Redactor {
	r, err := NewRedactor(RedactorConfig{
		SensitiveHeaders: defaultSensitiveHeaders,
		ValuePatterns:    defaultValuePatterns,
	})
	if err != nil {
		panic(err)
	}
	return r
}

func NewRedactor(cfg RedactorConfig) (*Redactor, error) {
	sensitive := make(map[string]struct{}, len(cfg.SensitiveHeaders))
	for _, name := range cfg.SensitiveHeaders {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		sensitive[strings.ToLower(trimmed)] = struct{}{}
	}

	patterns := make([]*regexp.Regexp, 0, len(cfg.ValuePatterns))
	for _, pattern := range cfg.ValuePatterns {
		trimmed := strings.TrimSpace(pattern)
		if trimmed == "" {
			continue
		}
		re, err := regexp.Compile(trimmed)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, re)
	}

	replacement := strings.TrimSpace(cfg.Replacement)
	if replacement == "" {
		replacement = DefaultRedactionReplacement
	}

	return &Redactor{
		sensitiveHeaders: sensitive,
		valuePatterns:    patterns,
		replacement:      replacement,
	}, nil
}

// RedactHeaders replaces sensitive header values wholesale.
func (r *Redactor) RedactHeaders(headers map[string][]string) map[string][]string {
	if headers == nil {
		return nil
	}

	redacted := make(map[string][]string, len(headers))
	for name, values := range headers {
		if values == nil {
			redacted[name] = nil
			continue
		}
		_, sensitive := r.sensitiveHeaders[strings.ToLower(name)]
		out := make([]string, len(values))
		for i, value := range values {
			if sensitive {
				out[i] = r.replacement
			} else {
				out[i] = r.RedactText(value)
			}
		}
		redacted[name] = out
	}
	return redacted
}

// RedactText masks every value-pattern match inside text.
func (r *Redactor) RedactText(text string) string {
	for _, re := range r.valuePatterns {
		text = re.ReplaceAllString(text, r.replacement)
	}
	return text
}
