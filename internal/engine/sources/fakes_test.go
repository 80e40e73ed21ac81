package sources

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/anatolykoptev/go_transcript/internal/background"
	"github.com/anatolykoptev/go_transcript/internal/engine/transcript"
)

type fakePages struct {
	state PageState
	err   error
}

func (f fakePages) PageState(_ context.Context, videoID string) (PageState, error) {
	if f.err != nil {
		return PageState{}, f.err
	}
	ps := f.state
	ps.VideoID = videoID
	return ps, nil
}

// fakeChannel answers each action with a canned reply and records payloads.
type fakeChannel struct {
	mu       sync.Mutex
	replies  map[background.Action]background.Response
	payloads map[background.Action][]json.RawMessage
	err      error
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		replies:  make(map[background.Action]background.Response),
		payloads: make(map[background.Action][]json.RawMessage),
	}
}

func (f *fakeChannel) reply(action background.Action, data any) {
	raw, _ := json.Marshal(data)
	f.replies[action] = background.Response{Success: true, Data: raw}
}

func (f *fakeChannel) fail(action background.Action, msg string) {
	f.replies[action] = background.Response{Error: msg}
}

func (f *fakeChannel) Send(_ context.Context, req background.Request) (background.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads[req.Action] = append(f.payloads[req.Action], req.Payload)
	if f.err != nil {
		return background.Response{}, f.err
	}
	resp, ok := f.replies[req.Action]
	if !ok {
		return background.Response{ID: req.ID, Error: "unexpected action " + string(req.Action)}, nil
	}
	resp.ID = req.ID
	return resp, nil
}

func (f *fakeChannel) calls(action background.Action) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads[action])
}

// withYouTubeOrigin points the innertube and timedtext URLs at srv.
func withYouTubeOrigin(t *testing.T, srv *httptest.Server) {
	t.Helper()
	prev := youtubeOrigin
	youtubeOrigin = srv.URL
	t.Cleanup(func() { youtubeOrigin = prev })
}

var errFake = errors.New("fake failure")

func segs(texts ...string) []transcript.Segment {
	out := make([]transcript.Segment, len(texts))
	for i, tx := range texts {
		out[i] = transcript.Segment{Start: float64(i), Duration: 1, Text: tx}
	}
	return out
}
