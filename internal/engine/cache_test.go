package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/anatolykoptev/go_transcript/internal/engine/transcript"
)

func TestCacheKey(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		k1 := CacheKey("transcript", "dQw4w9WgXcQ", "en")
		k2 := CacheKey("transcript", "dQw4w9WgXcQ", "en")
		if k1 != k2 {
			t.Errorf("CacheKey not deterministic: %q != %q", k1, k2)
		}
	})

	t.Run("different inputs differ", func(t *testing.T) {
		k1 := CacheKey("transcript", "a", "en")
		k2 := CacheKey("transcript", "a", "de")
		if k1 == k2 {
			t.Errorf("different inputs produced same key: %q", k1)
		}
	})

	t.Run("has prefix", func(t *testing.T) {
		k := CacheKey("test")
		if k[:3] != "yt:" {
			t.Errorf("expected yt: prefix, got %q", k[:3])
		}
	})
}

func sampleTranscript(id, lang string) CachedTranscript {
	return CachedTranscript{
		VideoID:  id,
		Language: lang,
		Method:   "direct",
		Segments: []transcript.Segment{{Start: 0, Duration: 1.5, Text: "hello"}},
	}
}

func TestCacheTranscriptRoundTrip(t *testing.T) {
	InitCache("", 1*time.Minute, 100, 5*time.Minute)
	ctx := context.Background()

	if _, ok := CacheGetTranscript(ctx, "vid1", "en"); ok {
		t.Fatal("expected cache miss on empty cache")
	}

	CacheSetTranscript(ctx, sampleTranscript("vid1", "en"))

	got, ok := CacheGetTranscript(ctx, "vid1", "EN")
	if !ok {
		t.Fatal("expected cache hit after set (language is case-insensitive)")
	}
	if got.Method != "direct" || len(got.Segments) != 1 || got.Segments[0].Text != "hello" {
		t.Errorf("unexpected cached value: %+v", got)
	}

	if _, ok := CacheGetTranscript(ctx, "vid1", "fr"); ok {
		t.Error("languages must not share entries")
	}
}

func TestCacheSkipsEmptyTranscript(t *testing.T) {
	InitCache("", 1*time.Minute, 100, 5*time.Minute)
	ctx := context.Background()

	CacheSetTranscript(ctx, CachedTranscript{VideoID: "silent", Language: "en"})
	if _, ok := CacheGetTranscript(ctx, "silent", "en"); ok {
		t.Error("empty transcripts must not be cached")
	}
}

func TestCacheExpiration(t *testing.T) {
	InitCache("", 1*time.Millisecond, 100, 5*time.Minute)
	ctx := context.Background()

	CacheSetTranscript(ctx, sampleTranscript("temp", "en"))
	time.Sleep(5 * time.Millisecond)

	if _, ok := CacheGetTranscript(ctx, "temp", "en"); ok {
		t.Error("expected cache miss after TTL expiry")
	}
}

func TestCacheEviction(t *testing.T) {
	InitCache("", 1*time.Minute, 3, 5*time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		CacheSetTranscript(ctx, sampleTranscript(fmt.Sprintf("item-%d", i), "en"))
	}

	count := 0
	transcriptCache.l1.Range(func(_, _ any) bool {
		count++
		return true
	})
	if count > 3 {
		t.Errorf("expected at most 3 entries after eviction, got %d", count)
	}
}

func TestCacheStats(t *testing.T) {
	InitCache("", 1*time.Minute, 100, 5*time.Minute)
	cacheHits.Store(0)
	cacheMisses.Store(0)

	ctx := context.Background()

	CacheGetTranscript(ctx, "stats", "en")
	_, misses := CacheStats()
	if misses != 1 {
		t.Errorf("misses = %d, want 1", misses)
	}

	CacheSetTranscript(ctx, sampleTranscript("stats", "en"))
	CacheGetTranscript(ctx, "stats", "en")

	hits, misses := CacheStats()
	if hits != 1 {
		t.Errorf("hits = %d, want 1", hits)
	}
	if misses != 1 {
		t.Errorf("misses = %d, want 1", misses)
	}
}
