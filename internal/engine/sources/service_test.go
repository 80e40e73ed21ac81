package sources

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_transcript/internal/engine"
	"github.com/anatolykoptev/go_transcript/internal/engine/transcript"
)

func countingStrategy(m transcript.Method, prio int, calls *atomic.Int32, out []transcript.Segment, err error) transcript.Strategy {
	return transcript.NewStrategy(m, prio, func(context.Context, string, string) ([]transcript.Segment, error) {
		calls.Add(1)
		return out, err
	})
}

func TestServiceCachesSuccess(t *testing.T) {
	engine.InitCache("", time.Minute, 100, time.Minute)

	var direct, mirror atomic.Int32
	svc := NewService([]transcript.Strategy{
		countingStrategy(transcript.MethodDirect, PriorityDirect, &direct, nil, errFake),
		countingStrategy(transcript.MethodInvidious, PriorityInvidious, &mirror, segs("hi"), nil),
	}, transcript.StaticPreference{Method: transcript.MethodAuto, Language: "en"}, time.Second)

	got, cached, err := svc.Transcript(context.Background(), TranscriptRequest{VideoID: "svc-cache-1"})
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "invidious", got.Method)
	assert.Equal(t, "en", got.Language)
	assert.Equal(t, segs("hi"), got.Segments)

	got, cached, err = svc.Transcript(context.Background(), TranscriptRequest{VideoID: "svc-cache-1", Lang: "EN"})
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, segs("hi"), got.Segments)
	assert.Equal(t, int32(1), direct.Load())
	assert.Equal(t, int32(1), mirror.Load())
}

func TestServiceMethodOverride(t *testing.T) {
	engine.InitCache("", time.Minute, 100, time.Minute)

	var direct, stt atomic.Int32
	svc := NewService([]transcript.Strategy{
		countingStrategy(transcript.MethodDirect, PriorityDirect, &direct, segs("direct"), nil),
		countingStrategy(transcript.MethodSTT, PrioritySTT, &stt, segs("stt"), nil),
	}, transcript.StaticPreference{Method: transcript.MethodAuto}, time.Second)

	got, _, err := svc.Transcript(context.Background(), TranscriptRequest{VideoID: "svc-override", Method: transcript.MethodSTT})
	require.NoError(t, err)
	assert.Equal(t, "stt", got.Method)
	assert.Equal(t, transcript.DefaultLanguage, got.Language)
	assert.Equal(t, int32(0), direct.Load())
}

func TestServiceExplicitMethodBypassesOtherCachedMethod(t *testing.T) {
	engine.InitCache("", time.Minute, 100, time.Minute)

	var direct, stt atomic.Int32
	svc := NewService([]transcript.Strategy{
		countingStrategy(transcript.MethodDirect, PriorityDirect, &direct, segs("direct"), nil),
		countingStrategy(transcript.MethodSTT, PrioritySTT, &stt, segs("stt"), nil),
	}, transcript.StaticPreference{Method: transcript.MethodAuto}, time.Second)
	ctx := context.Background()

	got, cached, err := svc.Transcript(ctx, TranscriptRequest{VideoID: "svc-explicit", Lang: "en"})
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "direct", got.Method)

	got, cached, err = svc.Transcript(ctx, TranscriptRequest{VideoID: "svc-explicit", Lang: "en", Method: transcript.MethodSTT})
	require.NoError(t, err)
	assert.False(t, cached, "a direct result must not answer an stt request")
	assert.Equal(t, "stt", got.Method)
	assert.Equal(t, segs("stt"), got.Segments)

	got, cached, err = svc.Transcript(ctx, TranscriptRequest{VideoID: "svc-explicit", Lang: "en", Method: transcript.MethodSTT})
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, "stt", got.Method)

	_, cached, err = svc.Transcript(ctx, TranscriptRequest{VideoID: "svc-explicit", Lang: "en"})
	require.NoError(t, err)
	assert.True(t, cached, "auto requests take whatever is cached")
	assert.Equal(t, int32(1), direct.Load())
	assert.Equal(t, int32(1), stt.Load())
}

func TestServiceFailureNotCached(t *testing.T) {
	engine.InitCache("", time.Minute, 100, time.Minute)

	var calls atomic.Int32
	svc := NewService([]transcript.Strategy{
		countingStrategy(transcript.MethodDirect, PriorityDirect, &calls, nil, errFake),
	}, nil, time.Second)

	for i := 0; i < 2; i++ {
		_, _, err := svc.Transcript(context.Background(), TranscriptRequest{VideoID: "svc-fail", Lang: "en"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, transcript.ErrAllStrategiesFailed))
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestServiceMethods(t *testing.T) {
	var n atomic.Int32
	svc := NewService([]transcript.Strategy{
		countingStrategy(transcript.MethodSTT, PrioritySTT, &n, nil, nil),
		countingStrategy(transcript.MethodDirect, PriorityDirect, &n, nil, nil),
	}, transcript.StaticPreference{Method: transcript.MethodSTT}, 0)

	assert.Equal(t, []engine.MethodInfo{
		{Name: "direct", Priority: PriorityDirect},
		{Name: "stt", Priority: PrioritySTT, Preferred: true},
	}, svc.Methods(context.Background()))
}

func TestBuildStrategies(t *testing.T) {
	ch := newFakeChannel()

	t.Run("minimal", func(t *testing.T) {
		got := BuildStrategies(&engine.Config{}, Deps{})
		assert.Equal(t, []transcript.Method{transcript.MethodDirect, transcript.MethodInvidious}, methodsOf(got))
	})

	t.Run("channel without llm or stt", func(t *testing.T) {
		got := BuildStrategies(&engine.Config{}, Deps{Pages: fakePages{}, Channel: ch})
		assert.Equal(t, []transcript.Method{transcript.MethodDirect, transcript.MethodInvidious, transcript.MethodProxy}, methodsOf(got))
	})

	t.Run("disabled", func(t *testing.T) {
		got := BuildStrategies(&engine.Config{GeminiAPIKey: "k", DisabledMethods: []string{" Invidious ", "background-proxy"}},
			Deps{Pages: fakePages{}, Channel: ch})
		assert.Equal(t, []transcript.Method{transcript.MethodDirect, transcript.MethodSTT}, methodsOf(got))
	})
}

func methodsOf(ss []transcript.Strategy) []transcript.Method {
	out := make([]transcript.Method, len(ss))
	for i, s := range ss {
		out[i] = s.Method()
	}
	return out
}

func TestConfigPreference(t *testing.T) {
	engine.Init(engine.Config{TranscriptMethod: "DOM-Automation"})
	t.Cleanup(func() { engine.Init(engine.Config{}) })

	p := ConfigPreference{}.Preference(context.Background())
	assert.Equal(t, transcript.MethodDOM, p.Method)
	assert.Equal(t, "en", p.Language)
}
