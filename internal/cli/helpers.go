package cli

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/markusmobius/go-dateparser"
)

var (
	ErrInvalidDate  = errors.New("invalid date")
	ErrTaskNotFound = errors.New("task not found")
)

// relativeRegex matches relative expressions like "+5m", "+1h", "+2d".
var relativeRegex = regexp.MustCompile(`^\+(\d+)([smhdw])$`)

// ParseDate parses a natural language date relative to now. Supports
// "+2d" style offsets, "tomorrow 5pm", "next friday" and ISO dates.
func ParseDate(input string, now time.Time) (time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}

	if match := relativeRegex.FindStringSubmatch(input); match != nil {
		n, _ := strconv.Atoi(match[1])
		if n <= 0 {
			return time.Time{}, fmt.Errorf("%w: offset must be positive", ErrInvalidDate)
		}
		unit := map[string]time.Duration{
			"s": time.Second,
			"m": time.Minute,
			"h": time.Hour,
			"d": 24 * time.Hour,
			"w": 7 * 24 * time.Hour,
		}[match[2]]
		return now.Add(time.Duration(n) * unit), nil
	}

	cfg := &dateparser.Configuration{
		CurrentTime: now,
	}
	result, err := dateparser.Parse(cfg, input)
	if err != nil || result.Time.IsZero() {
		return time.Time{}, fmt.Errorf("%w: could not parse %q", ErrInvalidDate, input)
	}
	return result.Time, nil
}

// ParseDue reads a --due value. "none" clears the due date.
func ParseDue(input string, now time.Time) (due *time.Time, clear bool, err error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "none", "clear":
		return nil, true, nil
	}
	t, err := ParseDate(input, now)
	if err != nil {
		return nil, false, err
	}
	return &t, false, nil
}

// SplitList splits a comma separated flag value, dropping blanks.
func SplitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ReadText returns value, or all of stdin when value is "-".
func ReadText(value string, stdin io.Reader) (string, error) {
	if value != "-" {
		return value, nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}
