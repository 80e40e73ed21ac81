package engine

// LLM prompt templates. Data only, no logic.

// classifyMusicPrompt asks for a one-word verdict on whether a video is music.
// Args: title, channel.
const classifyMusicPrompt = `Decide whether this YouTube video is primarily a music recording (song, music video, live performance, lyric video).
Podcasts, talks, tutorials, reviews and reactions are NOT music.

Title: %s
Channel: %s

Answer with exactly one word: yes or no.`

// TranscribePrompt instructs the speech model to return timed segments.
// Args: language code.
const TranscribePrompt = `Transcribe the speech in this audio. The expected language is %s.

Respond with valid JSON only (no markdown wrapping): an array of segments
[{"start": 0.0, "duration": 2.5, "text": "spoken words"}]

Rules:
- start and duration are seconds as numbers
- keep segments short (one sentence or phrase each), in chronological order
- transcribe verbatim, do not translate or summarise
- if there is no speech, return []`
