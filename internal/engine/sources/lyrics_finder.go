package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"

	"github.com/anatolykoptev/go_transcript/internal/engine"
)

// Lyrics lookup, served by the background broker.
// Primary:  LRCLIB search API (plain lyrics)
// Fallback: Genius search API → song page → lyrics containers

var (
	lrclibOrigin = "https://lrclib.net"
	geniusOrigin = "https://genius.com"
)

const (
	lyricsSourceLRCLIB = "lrclib"
	lyricsSourceGenius = "genius"
	maxLyricsPage      = 4 * 1024 * 1024
)

var (
	errLyricsNotFound = errors.New("lyrics not found")
	markdownLinkRE    = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
)

type lrclibTrack struct {
	TrackName    string `json:"trackName"`
	ArtistName   string `json:"artistName"`
	PlainLyrics  string `json:"plainLyrics"`
	Instrumental bool   `json:"instrumental"`
}

type geniusSearchResp struct {
	Response struct {
		Sections []struct {
			Type string `json:"type"`
			Hits []struct {
				Result struct {
					URL           string `json:"url"`
					Title         string `json:"title"`
					PrimaryArtist struct {
						Name string `json:"name"`
					} `json:"primary_artist"`
				} `json:"result"`
			} `json:"hits"`
		} `json:"sections"`
	} `json:"response"`
}

// FindLyrics looks the song up on LRCLIB, then Genius. It returns the
// lyrics text and the source name.
func FindLyrics(ctx context.Context, title, artist string) (string, string, error) {
	if lyrics, err := lrclibLyrics(ctx, title, artist); err == nil {
		return lyrics, lyricsSourceLRCLIB, nil
	} else if ctx.Err() != nil {
		return "", "", ctx.Err()
	} else {
		slog.Debug("lyrics: lrclib miss", slog.String("title", title), slog.Any("error", err))
	}

	lyrics, err := geniusLyrics(ctx, title, artist)
	if err != nil {
		return "", "", err
	}
	return lyrics, lyricsSourceGenius, nil
}

func lrclibLyrics(ctx context.Context, title, artist string) (string, error) {
	q := url.Values{}
	q.Set("track_name", title)
	if artist != "" {
		q.Set("artist_name", artist)
	}
	res, err := engine.Fetch(ctx, lrclibOrigin+"/api/search?"+q.Encode(), engine.FetchOpts{Accept: "application/json", MaxBytes: 1 << 20})
	if err != nil {
		return "", fmt.Errorf("lrclib: %w", err)
	}
	var tracks []lrclibTrack
	if err := json.Unmarshal(res.Body, &tracks); err != nil {
		return "", fmt.Errorf("lrclib: decode: %w", err)
	}
	for _, t := range tracks {
		if t.Instrumental {
			continue
		}
		if lyrics := strings.TrimSpace(t.PlainLyrics); lyrics != "" {
			return lyrics, nil
		}
	}
	return "", fmt.Errorf("lrclib: %w", errLyricsNotFound)
}

func geniusLyrics(ctx context.Context, title, artist string) (string, error) {
	q := url.Values{}
	q.Set("q", strings.TrimSpace(title+" "+artist))
	res, err := engine.Fetch(ctx, geniusOrigin+"/api/search/multi?"+q.Encode(), engine.FetchOpts{Accept: "application/json", MaxBytes: 1 << 20})
	if err != nil {
		return "", fmt.Errorf("genius search: %w", err)
	}
	var sr geniusSearchResp
	if err := json.Unmarshal(res.Body, &sr); err != nil {
		return "", fmt.Errorf("genius search: decode: %w", err)
	}

	songURL := ""
	for _, sec := range sr.Response.Sections {
		if sec.Type != "song" || len(sec.Hits) == 0 {
			continue
		}
		songURL = sec.Hits[0].Result.URL
		break
	}
	if songURL == "" {
		return "", fmt.Errorf("genius: %w", errLyricsNotFound)
	}

	page, err := engine.Fetch(ctx, songURL, engine.FetchOpts{Accept: "text/html", MaxBytes: maxLyricsPage})
	if err != nil {
		return "", fmt.Errorf("genius page: %w", err)
	}
	lyrics, err := extractGeniusLyrics(string(page.Body))
	if err != nil {
		return "", fmt.Errorf("genius page: %w", err)
	}
	return lyrics, nil
}

// extractGeniusLyrics joins every lyrics container on a Genius song page
// and converts it to plain text lines.
func extractGeniusLyrics(page string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", err
	}
	var parts []string
	doc.Find(`[data-lyrics-container="true"]`).Each(func(_ int, s *goquery.Selection) {
		s.Find(`[data-exclude-from-selection="true"]`).Remove()
		h, err := s.Html()
		if err != nil {
			return
		}
		md, err := htmltomarkdown.ConvertString(h)
		if err != nil {
			md = s.Text()
		}
		if md = lyricsText(md); md != "" {
			parts = append(parts, md)
		}
	})
	if len(parts) == 0 {
		return "", errLyricsNotFound
	}
	return strings.Join(parts, "\n\n"), nil
}

// lyricsText strips the markdown emphasis and links Genius annotations
// leave behind.
func lyricsText(md string) string {
	r := strings.NewReplacer("**", "", "__", "", "\\[", "[", "\\]", "]", "  \n", "\n")
	lines := strings.Split(r.Replace(md), "\n")
	out := lines[:0]
	for _, l := range lines {
		l = strings.TrimSpace(markdownLinkRE.ReplaceAllString(l, "$1"))
		if l != "" {
			out = append(out, strings.Trim(l, "*_"))
		}
	}
	return strings.Join(out, "\n")
}
