package stats

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/R3E-Network/nft_platform/internal/errors"
)

// Cursors are opaque to clients: base64url of "<kind>:<sort key>:<tie breaker>".

func encodeHolderCursor(quantity int64, address string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(fmt.Sprintf("h:%d:%s", quantity, address)))
}

func decodeHolderCursor(cursor string) (int64, string, error) {
	key, tie, err := decodeCursor(cursor, "h")
	if err != nil {
		return 0, "", err
	}
	quantity, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return 0, "", apperrors.BadRequest("Invalid cursor")
	}
	return quantity, tie, nil
}

func encodeActivityCursor(at time.Time, txHash string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(fmt.Sprintf("a:%d:%s", at.UnixNano(), txHash)))
}

func decodeActivityCursor(cursor string) (time.Time, string, error) {
	key, tie, err := decodeCursor(cursor, "a")
	if err != nil {
		return time.Time{}, "", err
	}
	nanos, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return time.Time{}, "", apperrors.BadRequest("Invalid cursor")
	}
	return time.Unix(0, nanos).UTC(), tie, nil
}

func decodeCursor(cursor, kind string) (string, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return "", "", apperrors.BadRequest("Invalid cursor")
	}
	parts := strings.SplitN(string(raw), ":", 3)
	if len(parts) != 3 || parts[0] != kind {
		return "", "", apperrors.BadRequest("Invalid cursor")
	}
	return parts[1], parts[2], nil
}
