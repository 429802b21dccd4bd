// Package mobile checks page layout at phone, tablet and desktop widths in a
// headless browser.
package mobile

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/khanhnv2901/webaudit/internal/domain/audit"
	"go.uber.org/zap"
)

// Viewport is a browser window size in CSS pixels.
type Viewport struct {
	Width  int64
	Height int64
}

func (v Viewport) String() string {
	return fmt.Sprintf("%dx%d", v.Width, v.Height)
}

// DefaultViewports are checked in order: phone, tablet, desktop.
var DefaultViewports = []Viewport{
	{Width: 375, Height: 667},
	{Width: 768, Height: 1024},
	{Width: 1920, Height: 1080},
}

// DefaultSettle is how long the page gets to reflow after a resize.
const DefaultSettle = time.Second

// Prober reports layout problems for a URL across viewports.
type Prober interface {
	Probe(ctx context.Context, rawURL string, viewports []Viewport) ([]audit.Finding, error)
}

// ChromeProber drives headless Chrome through chromedp.
type ChromeProber struct {
	UserAgent string
	Settle    time.Duration
	Timeout   time.Duration
	Logger    *zap.Logger
}

// NewChromeProber creates a prober with the default settle delay.
func NewChromeProber(userAgent string, logger *zap.Logger) *ChromeProber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChromeProber{
		UserAgent: userAgent,
		Settle:    DefaultSettle,
		Timeout:   time.Minute,
		Logger:    logger,
	}
}

// Probe loads the page once and resizes through the viewports. The first
// viewport whose body is wider than the window yields one finding.
func (p *ChromeProber) Probe(ctx context.Context, rawURL string, viewports []Viewport) ([]audit.Finding, error) {
	if len(viewports) == 0 {
		return nil, nil
	}
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
	)
	if p.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(p.UserAgent))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	first := viewports[0]
	if err := chromedp.Run(browserCtx,
		chromedp.EmulateViewport(first.Width, first.Height),
		chromedp.Navigate(rawURL),
	); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", rawURL, err)
	}

	measure := func(vp Viewport) (int64, error) {
		var width int64
		err := chromedp.Run(browserCtx,
			chromedp.EmulateViewport(vp.Width, vp.Height),
			chromedp.Sleep(p.Settle),
			chromedp.Evaluate(`document.body.scrollWidth`, &width),
		)
		return width, err
	}

	return firstOverflow(viewports, measure, p.logger())
}

func (p *ChromeProber) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

// firstOverflow measures viewports in order and stops at the first overflow.
func firstOverflow(viewports []Viewport, measure func(Viewport) (int64, error), logger *zap.Logger) ([]audit.Finding, error) {
	for _, vp := range viewports {
		width, err := measure(vp)
		if err != nil {
			return nil, fmt.Errorf("failed to measure viewport %s: %w", vp, err)
		}
		logger.Debug("viewport measured", zap.Stringer("viewport", vp), zap.Int64("scroll_width", width))
		if width > vp.Width {
			return []audit.Finding{OverflowFinding(vp)}, nil
		}
	}
	return nil, nil
}

// OverflowFinding reports horizontal scrolling at a viewport.
func OverflowFinding(vp Viewport) audit.Finding {
	return audit.Finding{
		Category:       audit.CategoryMobile,
		Severity:       audit.SeverityMedium,
		Message:        fmt.Sprintf("Horizontal scroll at %s", vp),
		Recommendation: "Ensure content fits viewport width",
	}
}
