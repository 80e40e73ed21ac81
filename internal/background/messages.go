// Package background hosts the privileged context: a broker goroutine
// that owns the credentials and fingerprinted clients, reachable only by
// asynchronous request/response messages.
package background

import "encoding/json"

// Action names a privileged operation.
type Action string

const (
	ActionFetchTranscript Action = "fetch-transcript-via-proxy"
	ActionFetchMetadata   Action = "fetch-video-metadata-via-proxy"
	ActionGetLyrics       Action = "get-lyrics"
	ActionTranscribeAudio Action = "transcribe-audio"
	ActionClassifyMusic   Action = "classify-music-video"
)

// Request is one message to the broker. ID is filled in by Send when empty.
type Request struct {
	ID      string          `json:"id"`
	Action  Action          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response is the broker's reply. Data is only meaningful when Success is set.
type Response struct {
	ID      string          `json:"id"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// TranscriptRequest is the payload of ActionFetchTranscript.
type TranscriptRequest struct {
	VideoID string `json:"videoId"`
	Lang    string `json:"lang"`
}

// MetadataRequest is the payload of ActionFetchMetadata.
type MetadataRequest struct {
	VideoID string `json:"videoId"`
}

// Metadata is returned by ActionFetchMetadata.
type Metadata struct {
	VideoID     string  `json:"videoId"`
	Title       string  `json:"title"`
	Channel     string  `json:"channel"`
	Description string  `json:"description,omitempty"`
	Duration    float64 `json:"duration,omitempty"`
}

// LyricsRequest is the payload of ActionGetLyrics.
type LyricsRequest struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// LyricsResult is returned by ActionGetLyrics. Lyrics is empty when
// nothing was found.
type LyricsResult struct {
	Lyrics string `json:"lyrics"`
	Source string `json:"source,omitempty"`
}

// TranscribeRequest is the payload of ActionTranscribeAudio.
type TranscribeRequest struct {
	AudioURL string `json:"audioUrl"`
	Lang     string `json:"lang"`
}

// ClassifyRequest is the payload of ActionClassifyMusic.
type ClassifyRequest struct {
	Title   string `json:"title"`
	Channel string `json:"channel"`
}

// ClassifyResult is returned by ActionClassifyMusic.
type ClassifyResult struct {
	IsMusic bool `json:"isMusic"`
}
