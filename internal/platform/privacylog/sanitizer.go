// Package privacylog wraps an slog.Handler so that party locations and raw
// identities never reach log output. Coordinates are redacted outright;
// identity attributes are replaced with a short boot-scoped hash so one
// process run can still correlate lines for the same party.
package privacylog

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
)

const redactedValue = "[REDACTED]"

var (
	bootNonce      = randomNonce()
	coordinateKeys = map[string]struct{}{
		"lat":        {},
		"lng":        {},
		"origin_lat": {},
		"origin_lng": {},
	}
	identityKeys = map[string]struct{}{
		"identity":   {},
		"helper":     {},
		"seeker":     {},
		"request_id": {},
	}
)

type SanitizingHandler struct {
	next slog.Handler
}

func WrapHandler(next slog.Handler) slog.Handler {
	if next == nil {
		return nil
	}
	return &SanitizingHandler{next: next}
}

func (h *SanitizingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *SanitizingHandler) Handle(ctx context.Context, rec slog.Record) error {
	out := slog.NewRecord(rec.Time, rec.Level, rec.Message, rec.PC)
	rec.Attrs(func(attr slog.Attr) bool {
		out.AddAttrs(SanitizeAttr(attr))
		return true
	})
	return h.next.Handle(ctx, out)
}

func (h *SanitizingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sanitized := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		sanitized = append(sanitized, SanitizeAttr(attr))
	}
	return &SanitizingHandler{next: h.next.WithAttrs(sanitized)}
}

func (h *SanitizingHandler) WithGroup(name string) slog.Handler {
	return &SanitizingHandler{next: h.next.WithGroup(name)}
}

func SanitizeAttr(attr slog.Attr) slog.Attr {
	key := strings.ToLower(attr.Key)
	if _, ok := coordinateKeys[key]; ok {
		return slog.String(attr.Key, redactedValue)
	}
	if _, ok := identityKeys[key]; ok {
		return slog.String(attr.Key, hashValue(attr.Value.String()))
	}
	return attr
}

func hashValue(v string) string {
	sum := sha256.Sum256([]byte(bootNonce + v))
	return "h:" + hex.EncodeToString(sum[:6])
}

func randomNonce() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("fallback-%p", &buf)
	}
	return hex.EncodeToString(buf)
}
