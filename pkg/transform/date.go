package transform

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Ramsey-B/trellis/pkg/models"
	"github.com/Ramsey-B/trellis/pkg/utils"
)

const DefaultDateOutputFormat = "YYYY-MM-DD"

// Common date format aliases
var formatAliases = map[string]string{
	"iso8601":   time.RFC3339,
	"rfc3339":   time.RFC3339,
	"rfc822":    time.RFC822,
	"rfc850":    time.RFC850,
	"rfc1123":   time.RFC1123,
	"unix":      time.UnixDate,
	"date":      "2006-01-02",
	"datetime":  "2006-01-02 15:04:05",
	"time":      "15:04:05",
	"timestamp": "2006-01-02T15:04:05Z07:00",
}

var commonLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	time.RFC1123,
	time.RFC1123Z,
	time.RFC822,
	time.RFC822Z,
	time.UnixDate,
}

func resolveFormat(format string) string {
	if alias, ok := formatAliases[strings.ToLower(format)]; ok {
		return alias
	}
	return format
}

// parseDate turns a value into a UTC time. Numbers are epoch milliseconds.
// With an input format only that layout is tried.
func parseDate(value any, inputFormat string) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v.UTC(), nil
	case float64, int, int64:
		ms, _ := utils.ToNumber(v)
		if math.IsInf(ms, 0) {
			return time.Time{}, fmt.Errorf("invalid timestamp %v", v)
		}
		return time.UnixMilli(int64(ms)).UTC(), nil
	}

	str := strings.TrimSpace(utils.ToString(value))

	if inputFormat != "" {
		t, err := time.Parse(resolveFormat(inputFormat), str)
		if err != nil {
			return time.Time{}, err
		}
		return t.UTC(), nil
	}

	for _, layout := range commonLayouts {
		if t, err := time.Parse(layout, str); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date '%s'", str)
}

// formatDate renders a date with the YYYY/MM/DD/HH/mm/ss tokens. Each token
// is substituted once. Falsy values yield "" and unparseable ones come back
// unchanged.
func (e *Evaluator) formatDate(value any, step models.TransformationStep) string {
	if utils.IsFalsy(value) {
		return ""
	}

	t, err := parseDate(value, step.InputFormat)
	if err != nil {
		e.logFailure(step, err)
		return utils.ToString(value)
	}

	format := step.OutputFormat
	if format == "" {
		format = DefaultDateOutputFormat
	}

	replacements := []struct {
		token string
		value string
	}{
		{"YYYY", strconv.Itoa(t.Year())},
		{"MM", pad2(int(t.Month()))},
		{"DD", pad2(t.Day())},
		{"HH", pad2(t.Hour())},
		{"mm", pad2(t.Minute())},
		{"ss", pad2(t.Second())},
	}

	for _, r := range replacements {
		format = strings.Replace(format, r.token, r.value, 1)
	}

	return format
}

func (e *Evaluator) extractDatePart(value any, step models.TransformationStep) string {
	if utils.IsFalsy(value) {
		return ""
	}

	t, err := parseDate(value, step.InputFormat)
	if err != nil {
		e.logFailure(step, err)
		return utils.ToString(value)
	}

	switch step.Type {
	case models.TransformationExtractYear:
		return strconv.Itoa(t.Year())
	case models.TransformationExtractMonth:
		return pad2(int(t.Month()))
	case models.TransformationExtractDay:
		return pad2(t.Day())
	case models.TransformationExtractHour:
		return pad2(t.Hour())
	case models.TransformationExtractMinute:
		return pad2(t.Minute())
	case models.TransformationExtractSecond:
		return pad2(t.Second())
	}

	return utils.ToString(value)
}

func pad2(n int) string {
	if n < 10 && n >= 0 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
