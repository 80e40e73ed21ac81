package engine

import "testing"

func TestSongQuery(t *testing.T) {
	tests := []struct {
		name, title, channel  string
		wantTitle, wantArtist string
	}{
		{"dash split", "Rick Astley - Never Gonna Give You Up (Official Music Video)", "Rick Astley", "Never Gonna Give You Up", "Rick Astley"},
		{"topic channel", "Bohemian Rhapsody", "Queen - Topic", "Bohemian Rhapsody", "Queen"},
		{"vevo channel", "Hello [Lyrics]", "AdeleVEVO", "Hello", "Adele"},
		{"plain", "Some Talk", "Speaker", "Some Talk", "Speaker"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, artist := SongQuery(tt.title, tt.channel)
			if title != tt.wantTitle || artist != tt.wantArtist {
				t.Errorf("SongQuery() = (%q, %q), want (%q, %q)", title, artist, tt.wantTitle, tt.wantArtist)
			}
		})
	}
}
