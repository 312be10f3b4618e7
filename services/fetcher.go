package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/gocolly/colly/v2"
	"github.com/mearone/cellar-sage/shared"
	"github.com/sirupsen/logrus"
)

// FetchStrategy retrieves the raw HTML of a page. Strategies are tried in
// order by PageFetcher until one succeeds.
type FetchStrategy interface {
	Name() string
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// DirectFetchStrategy issues a plain GET with browser-like headers, following
// redirects. Any non-2xx response is an error.
type DirectFetchStrategy struct {
	timeout time.Duration
}

func NewDirectFetchStrategy(timeout time.Duration) *DirectFetchStrategy {
	return &DirectFetchStrategy{timeout: timeout}
}

func (s *DirectFetchStrategy) Name() string { return "direct" }

func (s *DirectFetchStrategy) Fetch(ctx context.Context, pageURL string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	collector := colly.NewCollector(
		colly.UserAgent(shared.BrowserUserAgent),
	)
	collector.SetRequestTimeout(s.timeout)

	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
	})

	var body []byte
	collector.OnResponse(func(r *colly.Response) {
		body = r.Body
	})

	if err := collector.Visit(pageURL); err != nil {
		return "", shared.NewServiceError(shared.ErrorCategoryNetwork, "DIRECT_FETCH_FAILED",
			fmt.Sprintf("direct fetch of %s failed: %v", pageURL, err),
			"PageFetcher", "Fetch", true, err)
	}

	if len(body) == 0 {
		return "", shared.NewServiceError(shared.ErrorCategoryNetwork, "EMPTY_RESPONSE",
			fmt.Sprintf("direct fetch of %s returned an empty body", pageURL),
			"PageFetcher", "Fetch", true, nil)
	}

	return string(body), nil
}

// RenderProxyFetchStrategy routes the URL through a JS-rendering proxy
// service with residential proxies enabled. Used when the primary fetch is
// blocked or the page needs a render pass.
type RenderProxyFetchStrategy struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

func NewRenderProxyFetchStrategy(apiKey, endpoint string, client *http.Client) *RenderProxyFetchStrategy {
	return &RenderProxyFetchStrategy{
		apiKey:   apiKey,
		endpoint: endpoint,
		client:   client,
	}
}

func (s *RenderProxyFetchStrategy) Name() string { return "render_proxy" }

func (s *RenderProxyFetchStrategy) Fetch(ctx context.Context, pageURL string) (string, error) {
	if s.apiKey == "" {
		return "", shared.NewServiceError(shared.ErrorCategoryConfiguration, "PROXY_KEY_MISSING",
			"rendering proxy API key is not configured",
			"PageFetcher", "Fetch", false, nil)
	}

	proxyURL, err := url.Parse(s.endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid proxy endpoint: %w", err)
	}

	query := proxyURL.Query()
	query.Set("url", pageURL)
	query.Set("apikey", s.apiKey)
	query.Set("js_render", "true")
	query.Set("premium_proxy", "true")
	proxyURL.RawQuery = query.Encode()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, proxyURL.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build proxy request: %w", err)
	}
	shared.SetBrowserLikeHeaders(request, "text/html,application/xhtml+xml")

	response, err := s.client.Do(request)
	if err != nil {
		return "", shared.NewServiceError(shared.ErrorCategoryNetwork, "PROXY_FETCH_FAILED",
			fmt.Sprintf("proxy fetch of %s failed: %v", pageURL, err),
			"PageFetcher", "Fetch", true, err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return "", shared.NewServiceError(shared.ErrorCategoryNetwork, "PROXY_FETCH_FAILED",
			fmt.Sprintf("proxy fetch of %s returned HTTP %d", pageURL, response.StatusCode),
			"PageFetcher", "Fetch", true, nil)
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read proxy response: %w", err)
	}

	return string(body), nil
}

// HeadlessFetchStrategy drives a headless Chrome instance and returns the
// rendered DOM. Last resort for pages that block both the direct fetch and
// the proxy; disabled unless explicitly enabled in configuration.
type HeadlessFetchStrategy struct {
	timeout time.Duration
}

func NewHeadlessFetchStrategy(timeout time.Duration) *HeadlessFetchStrategy {
	return &HeadlessFetchStrategy{timeout: timeout}
}

func (s *HeadlessFetchStrategy) Name() string { return "headless_chrome" }

func (s *HeadlessFetchStrategy) Fetch(ctx context.Context, pageURL string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-images", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserAgent(shared.BrowserUserAgent),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	chromeCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	chromeCtx, cancel = context.WithTimeout(chromeCtx, s.timeout)
	defer cancel()

	var renderedHTML string
	err := chromedp.Run(chromeCtx,
		chromedp.Navigate(pageURL),
		chromedp.OuterHTML("html", &renderedHTML, chromedp.ByQuery),
	)
	if err != nil {
		return "", shared.NewServiceError(shared.ErrorCategoryNetwork, "HEADLESS_FETCH_FAILED",
			fmt.Sprintf("headless fetch of %s failed: %v", pageURL, err),
			"PageFetcher", "Fetch", true, err)
	}

	return renderedHTML, nil
}

// PageFetcher tries an ordered list of fetch strategies until one succeeds.
// No retries happen beyond the single pass through the chain.
type PageFetcher struct {
	strategies []FetchStrategy
	limiter    *shared.HTTPRequestRateLimiter
	metrics    *shared.ServiceMetrics
	logger     *logrus.Logger
}

func NewPageFetcher(limiter *shared.HTTPRequestRateLimiter, strategies ...FetchStrategy) *PageFetcher {
	return &PageFetcher{
		strategies: strategies,
		limiter:    limiter,
		metrics:    shared.NewServiceMetrics("PageFetcher"),
		logger:     logrus.StandardLogger(),
	}
}

// Metrics exposes fetch success counters for the health endpoint.
func (f *PageFetcher) Metrics() *shared.ServiceMetrics {
	return f.metrics
}

// Fetch retrieves the raw HTML for pageURL, trying each strategy in order.
func (f *PageFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	if len(f.strategies) == 0 {
		return "", fmt.Errorf("no fetch strategies configured")
	}

	var lastErr error
	for _, strategy := range f.strategies {
		if f.limiter != nil {
			f.limiter.EnforceRateLimit()
		}

		startTime := time.Now()
		html, err := strategy.Fetch(ctx, pageURL)
		f.metrics.RecordRequest(err == nil, time.Since(startTime))

		if err == nil {
			f.logger.WithFields(logrus.Fields{
				"url":      pageURL,
				"strategy": strategy.Name(),
				"bytes":    len(html),
			}).Debug("Page fetch succeeded")
			return html, nil
		}

		lastErr = err
		retryable := true
		var svcErr *shared.ServiceError
		if errors.As(err, &svcErr) {
			retryable = svcErr.IsRetryable()
		}
		f.logger.WithFields(logrus.Fields{
			"url":       pageURL,
			"strategy":  strategy.Name(),
			"retryable": retryable,
		}).WithError(err).Warn("Fetch strategy failed, trying next")
	}

	return "", fmt.Errorf("all fetch strategies failed for %s: %w", pageURL, lastErr)
}
