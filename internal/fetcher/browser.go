package fetcher

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"golang.org/x/time/rate"

	"github.com/blockedby/listings-os/internal/logger"
)

// BrowserConfig controls the headless-browser fetcher.
type BrowserConfig struct {
	// MaxTabs caps concurrent pages in the browser, independent of how
	// many workers the pipeline runs.
	MaxTabs int

	// RPS throttles navigations per second against the upstream.
	RPS float64

	// Timeout bounds one navigation including render.
	Timeout time.Duration

	UserAgent string
}

// DefaultBrowserConfig returns conservative settings.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		MaxTabs: 4,
		RPS:     2.0,
		Timeout: 30 * time.Second,
		UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}

// Browser fetches pages through a shared headless Chrome instance.
// Tabs are limited by a semaphore and navigations by a rate limiter,
// so the browser enforces its own ceiling even when several jobs share it.
type Browser struct {
	allocCtx context.Context
	cancel   context.CancelFunc
	tabs     chan struct{}
	limiter  *rate.Limiter
	cfg      BrowserConfig
	log      *logger.Logger
}

// NewBrowser starts a headless browser allocator.
func NewBrowser(cfg BrowserConfig, log *logger.Logger) *Browser {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(cfg.UserAgent),
	)

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Browser{
		allocCtx: allocCtx,
		cancel:   cancel,
		tabs:     make(chan struct{}, cfg.MaxTabs),
		limiter:  rate.NewLimiter(rate.Limit(cfg.RPS), 1),
		cfg:      cfg,
		log:      log,
	}
}

// Close tears down the browser and every open tab.
func (b *Browser) Close() {
	b.cancel()
}

// Fetch navigates to pageURL in a fresh tab and returns the rendered
// document. Failures are classified into the fetch error taxonomy so
// callers can decide about retries.
func (b *Browser) Fetch(ctx context.Context, pageURL string) (string, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return "", &Error{URL: pageURL, Kind: KindUnreachable, Err: err}
	}

	select {
	case b.tabs <- struct{}{}:
		defer func() { <-b.tabs }()
	case <-ctx.Done():
		return "", &Error{URL: pageURL, Kind: KindUnreachable, Err: ctx.Err()}
	}

	tabCtx, cancelTab := chromedp.NewContext(b.allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.cfg.Timeout)
	defer cancelTimeout()

	// stop when the caller's context dies, not only on timeout
	go func() {
		select {
		case <-ctx.Done():
			cancelTab()
		case <-tabCtx.Done():
		}
	}()

	var status atomic.Int64
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		resp, ok := ev.(*network.EventResponseReceived)
		if ok && resp.Type == network.ResourceTypeDocument {
			status.CompareAndSwap(0, resp.Response.Status)
		}
	})

	var html string
	err := chromedp.Run(tabCtx,
		network.Enable(),
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", classify(pageURL, err)
	}
	if code := status.Load(); code >= 400 {
		return "", &Error{URL: pageURL, Kind: KindHTTPStatus, Status: int(code)}
	}

	b.log.Debug().Str("url", pageURL).Int64("status", status.Load()).Msg("page fetched")
	return html, nil
}

func classify(pageURL string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{URL: pageURL, Kind: KindTimeout, Err: err}
	}
	return &Error{URL: pageURL, Kind: KindUnreachable, Err: err}
}
