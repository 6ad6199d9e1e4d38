package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gburiasco/UneedesAI/internal/models"
)

// ErrUnparsable is returned when model output cannot be turned into a valid
// question array, either because it does not parse or because it fails
// schema validation.
var ErrUnparsable = errors.New("model output is not a valid question array")

// SanitizeQuizJSON turns raw model output into validated questions. The model
// is an untrusted producer: it wraps JSON in markdown fences, prepends prose,
// and emits raw LaTeX backslashes. The cleanup steps are, in order: strip
// fences, slice to the outermost array, escape stray backslashes, parse,
// validate.
func SanitizeQuizJSON(raw string) ([]models.GeneratedQuestion, error) {
	s := strings.ReplaceAll(raw, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("%w: no JSON array found", ErrUnparsable)
	}
	s = s[start : end+1]

	s = escapeStrayBackslashes(s)

	var questions []models.GeneratedQuestion
	if err := json.Unmarshal([]byte(s), &questions); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsable, err)
	}

	if err := ValidateQuestions(questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// ValidateQuestions enforces the schema the prompt asks for: every field
// present, options non-empty and unique, and the answer equal to one of its
// own options.
func ValidateQuestions(questions []models.GeneratedQuestion) error {
	if len(questions) == 0 {
		return fmt.Errorf("%w: empty question list", ErrUnparsable)
	}
	for i, q := range questions {
		if strings.TrimSpace(q.Question) == "" {
			return fmt.Errorf("%w: question %d has no text", ErrUnparsable, i)
		}
		if len(q.Options) == 0 {
			return fmt.Errorf("%w: question %d has no options", ErrUnparsable, i)
		}
		seen := make(map[string]bool, len(q.Options))
		answerFound := false
		for _, opt := range q.Options {
			if strings.TrimSpace(opt) == "" {
				return fmt.Errorf("%w: question %d has a blank option", ErrUnparsable, i)
			}
			if seen[opt] {
				return fmt.Errorf("%w: question %d has duplicate option %q", ErrUnparsable, i, opt)
			}
			seen[opt] = true
			if opt == q.Answer {
				answerFound = true
			}
		}
		if !answerFound {
			return fmt.Errorf("%w: question %d answer %q is not among its options", ErrUnparsable, i, q.Answer)
		}
		if strings.TrimSpace(q.Tip) == "" {
			return fmt.Errorf("%w: question %d has no tip", ErrUnparsable, i)
		}
		if strings.TrimSpace(q.Topic) == "" {
			return fmt.Errorf("%w: question %d has no topic", ErrUnparsable, i)
		}
	}
	return nil
}

// escapeStrayBackslashes doubles any backslash that does not start a legal
// JSON escape. Models writing LaTeX ("\alpha") would otherwise break the
// parse.
func escapeStrayBackslashes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if i+1 < len(s) && isJSONEscapeChar(s[i+1]) {
			b.WriteByte(c)
			b.WriteByte(s[i+1])
			i++
			continue
		}
		b.WriteString(`\\`)
	}
	return b.String()
}

func isJSONEscapeChar(c byte) bool {
	switch c {
	case '"', '\\', '/', 'b', 'f', 'n', 'r', 't', 'u':
		return true
	}
	return false
}
