package sources

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_transcript/internal/engine/transcript"
)

// panelResponse wraps renderer JSON fragments in a /get_transcript body.
func panelResponse(t *testing.T, renderers ...string) ytGetTranscriptResp {
	t.Helper()
	items := "["
	for i, r := range renderers {
		if i > 0 {
			items += ","
		}
		items += `{"transcriptSegmentRenderer":` + r + `}`
	}
	items += "]"
	raw := `{"actions":[{"updateEngagementPanelAction":{"content":{"transcriptRenderer":{"content":` +
		`{"transcriptSearchPanelRenderer":{"body":{"transcriptSegmentListRenderer":{"initialSegments":` + items +
		`}}}}}}}}]}`
	var resp ytGetTranscriptResp
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))
	return resp
}

func TestEngagementSegments(t *testing.T) {
	tests := []struct {
		name      string
		renderers []string
		want      []transcript.Segment
	}{
		{
			name:      "start and end",
			renderers: []string{`{"startMs":"1500","endMs":"4000","snippet":{"runs":[{"text":"Hello "},{"text":"world"}]}}`},
			want:      []transcript.Segment{{Start: 1.5, Duration: 2.5, Text: "Hello world"}},
		},
		{
			name:      "end before start",
			renderers: []string{`{"startMs":"5000","endMs":"4000","snippet":{"runs":[{"text":"late"}]}}`},
			want:      []transcript.Segment{{Start: 5, Duration: 0, Text: "late"}},
		},
		{
			name:      "end equals start",
			renderers: []string{`{"startMs":"2000","endMs":"2000","snippet":{"runs":[{"text":"tick"}]}}`},
			want:      []transcript.Segment{{Start: 2, Duration: 0, Text: "tick"}},
		},
		{
			name:      "missing end",
			renderers: []string{`{"startMs":"0","snippet":{"runs":[{"text":"intro"}]}}`},
			want:      []transcript.Segment{{Start: 0, Duration: 0, Text: "intro"}},
		},
		{
			name: "bad starts skipped",
			renderers: []string{
				`{"startMs":"abc","endMs":"1000","snippet":{"runs":[{"text":"garbled"}]}}`,
				`{"startMs":"NaN","endMs":"1000","snippet":{"runs":[{"text":"nan"}]}}`,
				`{"startMs":"-10","endMs":"1000","snippet":{"runs":[{"text":"negative"}]}}`,
				`{"startMs":"3000","endMs":"3500","snippet":{"runs":[{"text":"kept"}]}}`,
			},
			want: []transcript.Segment{{Start: 3, Duration: 0.5, Text: "kept"}},
		},
		{
			name:      "blank text skipped",
			renderers: []string{`{"startMs":"0","endMs":"1000","snippet":{"runs":[{"text":"  \n "}]}}`},
			want:      nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engagementSegments(panelResponse(t, tt.renderers...))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEngagementSegmentsSkipsOtherActions(t *testing.T) {
	var resp ytGetTranscriptResp
	require.NoError(t, json.Unmarshal([]byte(`{"actions":[{"somethingElse":{}}]}`), &resp))
	assert.Empty(t, engagementSegments(resp))
}
