package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/gocolly/colly/v2"
)

// DefaultHTTPTimeout limita a busca simples
const DefaultHTTPTimeout = 10 * time.Second

// HTTPFetcher faz uma única requisição GET com cabeçalhos de navegador
type HTTPFetcher struct {
	collector *colly.Collector
	logger    *slog.Logger
}

// NewHTTPFetcher cria o fetcher simples. timeout <= 0 usa DefaultHTTPTimeout.
func NewHTTPFetcher(timeout time.Duration, logger *slog.Logger) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
	)
	c.SetRequestTimeout(timeout)

	return &HTTPFetcher{collector: c, logger: logger}
}

// Fetch busca o HTML da URL. Status fora de 2xx, erro de rede e timeout viram *FetchError.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, newFetchError(rawURL, err)
	}

	// Clone compartilha a configuração mas não os callbacks
	c := f.collector.Clone()
	c.Context = ctx

	var (
		body   []byte
		status int
	)
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", acceptHeader)
		r.Headers.Set("Accept-Language", acceptLanguage)
	})
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
	})

	if err := c.Visit(rawURL); err != nil {
		f.logger.Debug("erro na requisição", "url", rawURL, "err", err)
		return nil, newFetchError(rawURL, err)
	}

	if status < 200 || status > 299 {
		return nil, &FetchError{URL: rawURL, Reason: ReasonStatus, StatusCode: status}
	}

	f.logger.Debug("página obtida", "url", rawURL, "status", status, "bytes", len(body))
	return body, nil
}
