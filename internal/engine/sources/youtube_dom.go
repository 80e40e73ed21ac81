package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/anatolykoptev/go_transcript/internal/engine/transcript"
)

// DOM automation strategy: opens the watch page's transcript panel and
// scrapes the rendered segment nodes.

var errElementMissing = errors.New("element not found")

const (
	panelSelector       = `ytd-engagement-panel-section-list-renderer[target-id="engagement-panel-searchable-transcript"]`
	descExpandSelector  = `tp-yt-paper-button#expand, #description-inline-expander #expand`
	segmentSelector     = `ytd-transcript-segment-renderer`
	segmentTimeSelector = `.segment-timestamp`
	segmentTextSelector = `.segment-text, yt-formatted-string.segment-text`
	buttonSelector      = `button, tp-yt-paper-button, ytd-button-renderer`

	// lastSegmentDuration is given to the final segment, which has no successor.
	lastSegmentDuration = 5.0
)

// transcriptButtonLocators are tried in order to find the "show transcript"
// control before falling back to a text search over all buttons.
var transcriptButtonLocators = []string{
	`ytd-video-description-transcript-section-renderer button`,
	`button[aria-label="Show transcript"]`,
	`#primary-button ytd-button-renderer button[aria-label*="transcript" i]`,
	`ytd-menu-service-item-renderer[aria-label*="transcript" i]`,
}

var transcriptButtonText = regexp.MustCompile(`(?i)(show\s+)?transcript`)

// domCue is one scraped transcript node.
type domCue struct {
	Time    string
	Text    string
	HasTime bool
	HasText bool
}

// domPage is the page surface the strategy drives.
type domPage interface {
	Visible(selector string) bool
	Click(selector string) error
	ClickText(selector string, pattern *regexp.Regexp) error
	Cues(nodeSelector, timeSelector, textSelector string) ([]domCue, error)
}

// DOMOptions tunes panel opening and polling.
type DOMOptions struct {
	SettleDelay  time.Duration // wait after clicking "show transcript"
	PollInterval time.Duration
	PollTimeout  time.Duration
}

func (o DOMOptions) withDefaults() DOMOptions {
	if o.SettleDelay <= 0 {
		o.SettleDelay = 1500 * time.Millisecond
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 250 * time.Millisecond
	}
	if o.PollTimeout <= 0 {
		o.PollTimeout = 10 * time.Second
	}
	return o
}

// DOMStrategy scrapes the transcript panel of a live watch page.
type DOMStrategy struct {
	open func(ctx context.Context, videoID string) (domPage, func(), error)
	opts DOMOptions
}

// NewDOMStrategy drives pages opened in the shared browser.
func NewDOMStrategy(b *Browser, opts DOMOptions) *DOMStrategy {
	return &DOMStrategy{
		open: func(ctx context.Context, videoID string) (domPage, func(), error) {
			page, err := b.OpenWatchPage(ctx, videoID)
			if err != nil {
				return nil, nil, err
			}
			return rodPage{page: page}, func() { _ = page.Close() }, nil
		},
		opts: opts.withDefaults(),
	}
}

func (s *DOMStrategy) Method() transcript.Method { return transcript.MethodDOM }
func (s *DOMStrategy) Priority() int             { return PriorityDOM }

// Fetch implements transcript.Strategy. lang is unused: the panel shows
// whatever track the player selected.
func (s *DOMStrategy) Fetch(ctx context.Context, videoID, _ string) ([]transcript.Segment, error) {
	page, closePage, err := s.open(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("dom: %w", err)
	}
	defer closePage()
	return s.scrape(ctx, page)
}

func (s *DOMStrategy) scrape(ctx context.Context, page domPage) ([]transcript.Segment, error) {
	if !page.Visible(panelSelector) {
		if err := s.openPanel(ctx, page); err != nil {
			return nil, err
		}
	}

	cues, err := s.waitForCues(ctx, page)
	if err != nil {
		return nil, err
	}

	segs := cuesToSegments(cues)
	if len(segs) == 0 {
		return nil, fmt.Errorf("dom: %w: segment nodes had no readable timestamp/text", transcript.ErrParse)
	}
	return segs, nil
}

// openPanel expands the description (best effort) and clicks the first
// transcript control found.
func (s *DOMStrategy) openPanel(ctx context.Context, page domPage) error {
	_ = page.Click(descExpandSelector)

	clicked := false
	for _, sel := range transcriptButtonLocators {
		if err := page.Click(sel); err == nil {
			clicked = true
			break
		}
	}
	if !clicked {
		if err := page.ClickText(buttonSelector, transcriptButtonText); err != nil {
			return fmt.Errorf("dom: show transcript control: %w", err)
		}
	}
	return sleepCtx(ctx, s.opts.SettleDelay)
}

// waitForCues polls at a constant interval until segment nodes render or
// the poll timeout passes.
func (s *DOMStrategy) waitForCues(ctx context.Context, page domPage) ([]domCue, error) {
	op := func() ([]domCue, error) {
		cues, err := page.Cues(segmentSelector, segmentTimeSelector, segmentTextSelector)
		if err != nil {
			return nil, err
		}
		if len(cues) == 0 {
			return nil, errElementMissing
		}
		return cues, nil
	}
	cues, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(s.opts.PollInterval)),
		backoff.WithMaxElapsedTime(s.opts.PollTimeout),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("dom: %w: no transcript segments after %s", transcript.ErrTimeout, s.opts.PollTimeout)
	}
	return cues, nil
}

// cuesToSegments parses timestamps, drops incomplete nodes and derives each
// duration from the next start.
func cuesToSegments(cues []domCue) []transcript.Segment {
	segs := make([]transcript.Segment, 0, len(cues))
	for _, c := range cues {
		if !c.HasTime || !c.HasText {
			continue
		}
		start, err := transcript.ParseTimestamp(c.Time)
		if err != nil {
			slog.Debug("dom: bad timestamp", slog.String("ts", c.Time))
			continue
		}
		text := strings.Join(strings.Fields(c.Text), " ")
		if text == "" {
			continue
		}
		segs = append(segs, transcript.Segment{Start: start, Text: text})
	}
	for i := range segs {
		if i+1 < len(segs) {
			d := segs[i+1].Start - segs[i].Start
			if d < 0 {
				d = 0
			}
			segs[i].Duration = d
		} else {
			segs[i].Duration = lastSegmentDuration
		}
	}
	return segs
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
