package httpapi

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// csrfSigner issues stateless CSRF tokens: an HMAC of the current UTC hour.
// A token stays valid through the following hour.
type csrfSigner struct {
	secret []byte
	now    func() time.Time
}

func newCSRFSigner() *csrfSigner {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		log.Error().Err(err).Msg("csrf secret generation failed, using a fixed secret")
		secret = []byte("retailhub-csrf-fallback-secret!!")
	}
	return &csrfSigner{secret: secret, now: time.Now}
}

func (c *csrfSigner) tokenFor(bucket time.Time) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(strconv.FormatInt(bucket.Unix(), 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *csrfSigner) bucket() time.Time {
	return c.now().UTC().Truncate(time.Hour)
}

func (c *csrfSigner) Issue() string {
	return c.tokenFor(c.bucket())
}

func (c *csrfSigner) Valid(token string) bool {
	token = strings.TrimSpace(token)
	if token == "" {
		return false
	}
	current := c.bucket()
	for _, bucket := range []time.Time{current, current.Add(-time.Hour)} {
		if hmac.Equal([]byte(token), []byte(c.tokenFor(bucket))) {
			return true
		}
	}
	return false
}

var csrfExemptPaths = []string{"/api/v1/auth/login"}

func requiresCSRF(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return !slices.Contains(csrfExemptPaths, r.URL.Path)
	}
	return false
}

// attemptLimiter is a sliding-window counter per client key.
type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	now     func() time.Time
	entries map[string][]time.Time
}

func newAttemptLimiter(limit int, window time.Duration) *attemptLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{
		max:     max(limit, 1),
		window:  window,
		now:     time.Now,
		entries: make(map[string][]time.Time),
	}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	recent := slices.DeleteFunc(l.entries[key], func(ts time.Time) bool { return !ts.After(cutoff) })
	if len(recent) >= l.max {
		l.entries[key] = recent
		return false
	}
	l.entries[key] = append(recent, now)
	return true
}

// clientKey is the remote IP without the port.
func clientKey(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if addr == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
