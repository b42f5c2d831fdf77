package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestCacheSetGet(t *testing.T) {
	c := New[string](DefaultConfig())

	c.Set("a", "alpha")

	got, ok := c.Get("a")
	if !ok {
		t.Fatal("Get() should find a freshly set entry")
	}
	if got != "alpha" {
		t.Errorf("Get() = %q, want alpha", got)
	}

	if _, ok := c.Get("missing"); ok {
		t.Error("Get() should miss on an unknown key")
	}
}

func TestCacheTTLExpiry(t *testing.T) {
	c := New[string](&Config{DefaultTTL: time.Hour, MaxSize: 10})

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	now := base
	c.now = func() time.Time { return now }

	c.Set("a", "alpha")

	now = base.Add(59 * time.Minute)
	if _, ok := c.Get("a"); !ok {
		t.Error("entry should still be servable just inside the TTL")
	}

	// Exactly at the TTL boundary the entry is already stale
	now = base.Add(time.Hour)
	if _, ok := c.Get("a"); ok {
		t.Error("entry should be expired at the TTL boundary")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should be purged on lookup, len = %d", c.Len())
	}
}

func TestCacheOverwriteRefreshesAge(t *testing.T) {
	c := New[string](&Config{DefaultTTL: time.Hour, MaxSize: 10})

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	now := base
	c.now = func() time.Time { return now }

	c.Set("a", "old")
	now = base.Add(50 * time.Minute)
	c.Set("a", "new")

	now = base.Add(90 * time.Minute)
	got, ok := c.Get("a")
	if !ok {
		t.Fatal("overwritten entry should date from the overwrite, not the first insert")
	}
	if got != "new" {
		t.Errorf("Get() = %q, want new", got)
	}
	if c.Len() != 1 {
		t.Errorf("overwrite should not duplicate the entry, len = %d", c.Len())
	}
}

func TestCacheMaxSizeEviction(t *testing.T) {
	c := New[int](&Config{DefaultTTL: time.Hour, MaxSize: 3})

	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}

	if c.Len() != 3 {
		t.Fatalf("len = %d, want max size 3", c.Len())
	}

	// Oldest inserted first: k0 and k1 are gone, k2..k4 remain
	for _, gone := range []string{"k0", "k1"} {
		if _, ok := c.Get(gone); ok {
			t.Errorf("%s should have been evicted", gone)
		}
	}
	for _, kept := range []string{"k2", "k3", "k4"} {
		if _, ok := c.Get(kept); !ok {
			t.Errorf("%s should still be cached", kept)
		}
	}
}

func TestCachePurge(t *testing.T) {
	c := New[string](&Config{DefaultTTL: time.Hour, MaxSize: 10})

	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	now := base
	c.now = func() time.Time { return now }

	c.Set("old", "x")
	now = base.Add(30 * time.Minute)
	c.Set("fresh", "y")

	now = base.Add(70 * time.Minute)
	if purged := c.Purge(); purged != 1 {
		t.Errorf("Purge() = %d, want 1", purged)
	}
	if _, ok := c.Get("fresh"); !ok {
		t.Error("fresh entry should survive the purge")
	}
}

func TestGenerateKeyDeterministic(t *testing.T) {
	params := map[string]any{
		"product":       "Glow Serum",
		"templateType":  "influencer_caption",
		"tone":          "friendly",
		"niche":         "skincare",
		"useSmartStyle": true,
	}

	if GenerateKey(params) != GenerateKey(params) {
		t.Error("identical params must hash to the same key")
	}
}

func TestGenerateKeyNormalizesVariants(t *testing.T) {
	base := GenerateKey(map[string]any{
		"product":      "Glow Serum",
		"templateType": "influencer_caption",
		"tone":         "friendly",
	})

	variants := []map[string]any{
		{"product": "  glow serum  ", "templateType": "influencer_caption", "tone": "friendly"},
		{"product": "GLOW SERUM", "templateType": "Influencer_Caption", "tone": "FRIENDLY"},
		{"product": "Glow   Serum", "templateType": "influencer_caption", "tone": " friendly "},
	}
	for i, v := range variants {
		if GenerateKey(v) != base {
			t.Errorf("variant %d should collapse to the same key", i)
		}
	}
}

func TestGenerateKeySeparatorSafety(t *testing.T) {
	// A value embedding separator characters must not collide with the
	// parameter set it would read as when naively joined.
	smuggled := GenerateKey(map[string]any{
		"tone": "x|niche=y",
	})
	split := GenerateKey(map[string]any{
		"tone":  "x",
		"niche": "y",
	})
	if smuggled == split {
		t.Error("separator characters in a value must not change the pair boundaries")
	}

	// Same check across the key/value boundary
	a := GenerateKey(map[string]any{"tone": "ab"})
	b := GenerateKey(map[string]any{"ton": "eab"})
	if a == b {
		t.Error("keys must not bleed into values")
	}
}

func TestGenerateKeyDistinguishesParams(t *testing.T) {
	base := GenerateKey(map[string]any{
		"product": "Glow Serum",
		"tone":    "friendly",
	})

	different := []map[string]any{
		{"product": "Glow Serum", "tone": "luxurious"},
		{"product": "Night Cream", "tone": "friendly"},
		{"product": "Glow Serum", "tone": "friendly", "useSmartStyle": true},
	}
	for i, d := range different {
		if GenerateKey(d) == base {
			t.Errorf("param set %d should hash differently", i)
		}
	}
}
