package storage

import (
	"fmt"
	"path"
	"regexp"
	"time"
)

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// BuildAnswerFilePath lays out exported answer artifacts as
// <conversation>/answers/date=YYYY-MM-DD/answer-<unix-nanos>.parquet.
func BuildAnswerFilePath(conversationID string, answeredAt time.Time) (string, error) {
	if err := validatePathComponent(conversationID, "conversation id"); err != nil {
		return "", err
	}
	ts := answeredAt.UTC()
	return path.Join(
		conversationID,
		"answers",
		fmt.Sprintf("date=%04d-%02d-%02d", ts.Year(), ts.Month(), ts.Day()),
		fmt.Sprintf("answer-%d.parquet", ts.UnixNano()),
	), nil
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
