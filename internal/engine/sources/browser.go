package sources

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

const (
	// timedTextPattern matches caption requests issued by the player.
	timedTextPattern        = "*/api/timedtext*"
	subtitlesButtonSelector = ".ytp-subtitles-button.ytp-button"
)

// BrowserOptions configures the shared headless browser.
type BrowserOptions struct {
	Bin        string // Chromium binary; empty = launcher default
	ControlURL string // connect to a running browser instead of launching
	Headless   bool
}

// Browser is a lazily launched Chromium session shared by the DOM and
// interception strategies. Every caption response the player loads is
// copied into the capture store.
type Browser struct {
	opts     BrowserOptions
	captures *CaptureStore

	mu      sync.Mutex
	browser *rod.Browser
	router  *rod.HijackRouter
}

// NewBrowser returns an unlaunched browser session.
func NewBrowser(opts BrowserOptions, captures *CaptureStore) *Browser {
	return &Browser{opts: opts, captures: captures}
}

// connect launches (or attaches to) Chromium once and installs the caption
// hijack router.
func (b *Browser) connect() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser != nil {
		return b.browser, nil
	}

	controlURL := b.opts.ControlURL
	if controlURL == "" {
		l := launcher.New().
			Headless(b.opts.Headless).
			Set("mute-audio").
			Set("disable-blink-features", "AutomationControlled").
			Set("user-agent", b.userAgent())
		if b.opts.Bin != "" {
			l = l.Bin(b.opts.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		controlURL = u
	}

	br := rod.New().ControlURL(controlURL)
	if err := br.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}

	router := br.HijackRequests()
	if err := router.Add(timedTextPattern, "", b.captureCaption); err != nil {
		_ = br.Close()
		return nil, fmt.Errorf("browser: hijack: %w", err)
	}
	go router.Run()

	b.browser, b.router = br, router
	slog.Info("browser: session started", slog.Bool("headless", b.opts.Headless))
	return br, nil
}

func (b *Browser) userAgent() string {
	return "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
}

// captureCaption lets the caption request through and records its body.
func (b *Browser) captureCaption(h *rod.Hijack) {
	if err := h.LoadResponse(http.DefaultClient, true); err != nil {
		slog.Debug("browser: caption load failed", slog.Any("error", err))
		h.Response.Fail(proto.NetworkErrorReasonFailed)
		return
	}
	if b.captures != nil {
		b.captures.Record(h.Request.URL(), []byte(h.Response.Body()))
	}
}

// OpenWatchPage opens the watch page for videoID bound to ctx. The caller
// closes the page.
func (b *Browser) OpenWatchPage(ctx context.Context, videoID string) (*rod.Page, error) {
	br, err := b.connect()
	if err != nil {
		return nil, err
	}
	page, err := br.Context(ctx).Page(proto.TargetCreateTarget{URL: youtubeOrigin + "/watch?v=" + videoID})
	if err != nil {
		return nil, fmt.Errorf("browser: open watch page: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("browser: load watch page: %w", err)
	}
	return page, nil
}

// PrimeCaptions opens the watch page and turns captions on so the player
// requests them; the hijack router records the response. It returns once
// a capture for lang exists or wait expires.
func (b *Browser) PrimeCaptions(ctx context.Context, videoID, lang string, wait time.Duration) error {
	page, err := b.OpenWatchPage(ctx, videoID)
	if err != nil {
		return err
	}
	defer func() { _ = page.Close() }()

	// Autoplayed captions may already have been captured during load.
	if _, ok := b.captures.Lookup(videoID, lang); ok {
		return nil
	}
	p := rodPage{page: page}
	if err := p.Click(subtitlesButtonSelector); err != nil {
		return fmt.Errorf("browser: captions button: %w", err)
	}

	_, err = backoff.Retry(ctx, func() (bool, error) {
		if _, ok := b.captures.Lookup(videoID, lang); ok {
			return true, nil
		}
		return false, errElementMissing
	}, backoff.WithBackOff(backoff.NewConstantBackOff(200*time.Millisecond)), backoff.WithMaxElapsedTime(wait))
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("browser: no caption request for %q within %s", lang, wait)
	}
	return err
}

// Close stops the hijack router and the browser.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser == nil {
		return nil
	}
	if b.router != nil {
		_ = b.router.Stop()
	}
	err := b.browser.Close()
	b.browser, b.router = nil, nil
	return err
}

// rodPage adapts a rod page to the small surface the DOM strategy needs.
type rodPage struct {
	page *rod.Page
}

func (p rodPage) Visible(selector string) bool {
	has, el, err := p.page.Has(selector)
	if err != nil || !has {
		return false
	}
	visible, err := el.Visible()
	return err == nil && visible
}

func (p rodPage) Click(selector string) error {
	has, el, err := p.page.Has(selector)
	if err != nil {
		return err
	}
	if !has {
		return errElementMissing
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (p rodPage) ClickText(selector string, pattern *regexp.Regexp) error {
	has, el, err := p.page.HasR(selector, pattern.String())
	if err != nil {
		return err
	}
	if !has {
		return errElementMissing
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (p rodPage) Cues(nodeSelector, timeSelector, textSelector string) ([]domCue, error) {
	nodes, err := p.page.Elements(nodeSelector)
	if err != nil {
		return nil, err
	}
	cues := make([]domCue, 0, len(nodes))
	for _, n := range nodes {
		var cue domCue
		if has, el, err := n.Has(timeSelector); err == nil && has {
			cue.Time, _ = el.Text()
			cue.HasTime = true
		}
		if has, el, err := n.Has(textSelector); err == nil && has {
			cue.Text, _ = el.Text()
			cue.HasText = true
		}
		cues = append(cues, cue)
	}
	return cues, nil
}
