package reconciler

import "time"

// dedupCache is the short-horizon suppression window: a key seen within
// the window is a duplicate transport delivery (reconnect storms mostly)
// and is dropped. Expired entries are swept on access, so the cache stays
// bounded by the event rate inside one window.
type dedupCache struct {
	window time.Duration
	now    func() time.Time
	expiry map[string]time.Time
}

func newDedupCache(window time.Duration, now func() time.Time) *dedupCache {
	return &dedupCache{
		window: window,
		now:    now,
		expiry: make(map[string]time.Time),
	}
}

// seenRecently reports whether key was recorded inside the window. Expired
// entries are swept as a side effect.
func (c *dedupCache) seenRecently(key string) bool {
	now := c.now()
	for k, exp := range c.expiry {
		if !exp.After(now) {
			delete(c.expiry, k)
		}
	}
	exp, ok := c.expiry[key]
	return ok && exp.After(now)
}

// record starts the suppression window for key. Kept separate from the
// check: only events that pass the identity guard may claim a key, or a
// misrouted copy of a fanned-out reminder would suppress the real one.
func (c *dedupCache) record(key string) {
	c.expiry[key] = c.now().Add(c.window)
}
