package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

const timeFormat = time.RFC3339Nano

// EncodeToken builds the cursor for entry listings ordered by entry date, then creation time.
// The entry id breaks ties between entries created in the same instant.
func EncodeToken(entryDate time.Time, createdAt time.Time, entryID string) string {
	tokenStr := fmt.Sprintf("%s|%s|%s", entryDate.Format(timeFormat), createdAt.Format(timeFormat), entryID)
	return base64.StdEncoding.EncodeToString([]byte(tokenStr))
}

// DecodeToken parses a cursor produced by EncodeToken.
func DecodeToken(token string) (time.Time, time.Time, string, error) {
	decodedBytes, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return time.Time{}, time.Time{}, "", fmt.Errorf("invalid pagination token format (base64 decode): %w", err)
	}
	parts := strings.SplitN(string(decodedBytes), "|", 3)
	if len(parts) != 3 {
		return time.Time{}, time.Time{}, "", fmt.Errorf("invalid pagination token format (split)")
	}

	entryDate, err := time.Parse(timeFormat, parts[0])
	if err != nil {
		return time.Time{}, time.Time{}, "", fmt.Errorf("invalid pagination token format (entry date parse): %w", err)
	}

	createdAt, err := time.Parse(timeFormat, parts[1])
	if err != nil {
		return time.Time{}, time.Time{}, "", fmt.Errorf("invalid pagination token format (created_at parse): %w", err)
	}

	return entryDate, createdAt, parts[2], nil
}

// After reports whether the position (entryDate, createdAt, entryID) sorts after the cursor
// in descending listing order, i.e. belongs on the next page.
func After(entryDate, createdAt time.Time, entryID string, curDate, curCreated time.Time, curID string) bool {
	if !entryDate.Equal(curDate) {
		return entryDate.Before(curDate)
	}
	if !createdAt.Equal(curCreated) {
		return createdAt.Before(curCreated)
	}
	return entryID < curID
}
