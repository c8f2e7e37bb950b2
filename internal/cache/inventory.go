package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Key formats.
const (
	PostalCodeSearchKeyPrefix = "dict:postal:%s"
	ReportTypesKey            = "dict:report_types"
	UserRatingKeyPrefix       = "user:%d:rating"
	RevokedTokenKeyPrefix     = "blacklist:%s"
)

// TTLs.
const (
	DictionaryTTL = 24 * time.Hour
	UserRatingTTL = 10 * time.Minute
)

// PostalCodeSearchKey normalizes term so "Krak" and "krak " share an entry.
func PostalCodeSearchKey(term string) string {
	return fmt.Sprintf(PostalCodeSearchKeyPrefix, strings.ToLower(strings.TrimSpace(term)))
}

func UserRatingKey(userID uint) string {
	return fmt.Sprintf(UserRatingKeyPrefix, userID)
}

func RevokedTokenKey(jti string) string {
	return fmt.Sprintf(RevokedTokenKeyPrefix, jti)
}

// Invalidate deletes key; errors are ignored because the entry expires anyway.
func Invalidate(ctx context.Context, key string) {
	if c := GetClient(); c != nil {
		c.Del(ctx, key)
	}
}

func InvalidateUserRating(ctx context.Context, userID uint) {
	Invalidate(ctx, UserRatingKey(userID))
}

func InvalidateReportTypes(ctx context.Context) {
	Invalidate(ctx, ReportTypesKey)
}

// RevokeToken stores jti on the revocation list until the token would have expired.
func RevokeToken(ctx context.Context, jti string, remaining time.Duration) error {
	c := GetClient()
	if c == nil || jti == "" || remaining <= 0 {
		return nil
	}
	return c.Set(ctx, RevokedTokenKey(jti), "1", remaining).Err()
}

// IsTokenRevoked reports whether jti is on the revocation list.
func IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	c := GetClient()
	if c == nil || jti == "" {
		return false, nil
	}
	n, err := c.Exists(ctx, RevokedTokenKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
