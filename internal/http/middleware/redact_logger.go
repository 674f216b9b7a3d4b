package middleware

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RedactOptions configures additional scrub behavior for RedactingLogger.
type RedactOptions struct {
	// MaskHeaders are replaced with "[REDACTED]" in addition to
	// Authorization, Cookie, Set-Cookie and apikey. Case-insensitive.
	MaskHeaders []string
	// MaskQueryParams are query parameters whose values are replaced with
	// "[REDACTED]" in addition to access_token and refresh_token.
	MaskQueryParams []string
}

var (
	// UUIDs are redacted before phones so the phone pattern cannot match
	// their digit groups.
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

// redactPII replaces UUIDs, email addresses and phone numbers in s.
func redactPII(s string) string {
	if s == "" {
		return s
	}
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

func lowerSet(base []string, extra []string) map[string]struct{} {
	m := make(map[string]struct{}, len(base)+len(extra))
	for _, s := range append(base, extra...) {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			m[s] = struct{}{}
		}
	}
	return m
}

// RedactingLogger is the API's access logger. Before the handler runs it
// attaches a request-scoped logger carrying request_id, method and path;
// afterwards it writes one "http_request" line with the status, latency,
// user and scrubbed query and headers. Contact searches put names, emails
// and phone numbers in the query string, so those never reach the logs.
//
// Level is info, warn for 4xx, and error for 5xx or when handlers recorded
// gin errors.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	maskHeaders := lowerSet([]string{"authorization", "cookie", "set-cookie", "apikey"}, opts.MaskHeaders)
	maskParams := lowerSet([]string{"access_token", "refresh_token"}, opts.MaskQueryParams)

	scrubQuery := func(raw string) string {
		if raw == "" {
			return ""
		}
		vals, err := url.ParseQuery(raw)
		if err != nil {
			return redactPII(truncate(raw, maxQueryLogLength))
		}
		for k := range vals {
			if _, ok := maskParams[strings.ToLower(k)]; ok {
				vals[k] = []string{"[REDACTED]"}
			}
		}
		// Decode once so redaction sees "a@b.co" rather than "a%40b.co".
		q, _ := url.QueryUnescape(vals.Encode())
		return redactPII(truncate(q, maxQueryLogLength))
	}

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		rid := RequestIDFrom(c)
		if rid == "" {
			rid = c.Writer.Header().Get(requestIDHeader)
		}

		base := log.With().
			Str("request_id", rid).
			Str("method", c.Request.Method).
			Str("path", path).
			Logger()
		attachLogger(c, base)

		safeQuery := scrubQuery(c.Request.URL.RawQuery)
		safeHeaders := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, ok := maskHeaders[strings.ToLower(k)]; ok {
				safeHeaders[k] = "[REDACTED]"
				continue
			}
			safeHeaders[k] = redactPII(strings.Join(vv, ", "))
		}

		c.Next()

		status := c.Writer.Status()
		ev := base.Info()
		switch {
		case len(c.Errors) > 0 || status >= 500:
			ev = base.Error()
			if len(c.Errors) > 0 {
				ev = ev.Str("errors", c.Errors.String())
			}
		case status >= 400:
			ev = base.Warn()
		}
		ev.Str("user_id", UserID(c)).
			Str("query", safeQuery).
			Str("remote_ip", c.ClientIP()).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", safeHeaders).
			Msg("http_request")
	}
}
