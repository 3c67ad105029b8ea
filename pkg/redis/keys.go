package redis

import "strings"

const keyNamespace = "fo"

// Key families. Every key is "fo:<family>:<parts...>".
const (
	familyIdempotency = "idempotency"
	familyRateLimit   = "rate_limit"
	familyLock        = "lock"
	familyRealtime    = "realtime"
)

func (c *Client) IdempotencyKey(scope, id string) string {
	return key(familyIdempotency, scope, id)
}

func (c *Client) RateLimitKey(scope string) string {
	return key(familyRateLimit, scope)
}

func (c *Client) LockKey(name string) string {
	return key(familyLock, name)
}

// RealtimeChannel carries one tenant's order events.
func (c *Client) RealtimeChannel(tenantID string) string {
	return key(familyRealtime, tenantID)
}

// RealtimePattern matches every tenant's realtime channel.
func (c *Client) RealtimePattern() string {
	return key(familyRealtime, "*")
}

// key joins non-blank parts under the namespace.
func key(family string, parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	b.WriteByte(':')
	b.WriteString(family)
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			b.WriteByte(':')
			b.WriteString(p)
		}
	}
	return b.String()
}
