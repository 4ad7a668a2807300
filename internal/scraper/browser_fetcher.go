package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Limites da busca renderizada
const (
	DefaultNavigationTimeout = 30 * time.Second
	DefaultSelectorTimeout   = 10 * time.Second
	DefaultSettleDelay       = 2 * time.Second
	requestIdleWindow        = 500 * time.Millisecond
)

// Seletores aguardados quando o perfil da loja não define os seus
var defaultWaitSelectors = []string{
	".andes-money-amount__fraction",
	".price-tag-fraction",
	".ui-pdp-price__part",
	".a-price-whole",
	".x-price-primary",
}

// BrowserOptions configura o fetcher renderizado
type BrowserOptions struct {
	Bin               string // Caminho do Chromium; vazio usa a detecção automática
	NavigationTimeout time.Duration
	SelectorTimeout   time.Duration
	SettleDelay       time.Duration
	Locale            string
	Timezone          string
}

// BrowserFetcher renderiza a página em um navegador headless isolado por chamada
type BrowserFetcher struct {
	opts     BrowserOptions
	registry *Registry
	logger   *slog.Logger
}

// NewBrowserFetcher cria o fetcher renderizado
func NewBrowserFetcher(opts BrowserOptions, registry *Registry, logger *slog.Logger) *BrowserFetcher {
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = DefaultNavigationTimeout
	}
	if opts.SelectorTimeout <= 0 {
		opts.SelectorTimeout = DefaultSelectorTimeout
	}
	if opts.SettleDelay < 0 {
		opts.SettleDelay = 0
	}
	if opts.Locale == "" {
		opts.Locale = "es-MX"
	}
	if opts.Timezone == "" {
		opts.Timezone = "America/Mexico_City"
	}
	if registry == nil {
		registry = NewDefaultRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BrowserFetcher{opts: opts, registry: registry, logger: logger}
}

// Fetch abre a URL em um contexto anônimo novo e devolve o DOM renderizado.
// Navegador, contexto e página são sempre fechados, com sucesso ou erro.
func (f *BrowserFetcher) Fetch(ctx context.Context, rawURL string) (markup []byte, err error) {
	defer func() {
		// Falhas internas do rod nunca derrubam o lote
		if r := recover(); r != nil {
			markup = nil
			err = &FetchError{URL: rawURL, Reason: ReasonBrowser, Err: fmt.Errorf("pânico no navegador: %v", r)}
		}
	}()

	l := launcher.New().
		Context(ctx).
		Headless(true).
		NoSandbox(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-dev-shm-usage")
	if f.opts.Bin != "" {
		l = l.Bin(f.opts.Bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, &FetchError{URL: rawURL, Reason: ReasonBrowser, Err: fmt.Errorf("erro ao iniciar navegador: %w", err)}
	}
	defer l.Cleanup()
	defer l.Kill()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, &FetchError{URL: rawURL, Reason: ReasonBrowser, Err: fmt.Errorf("erro ao conectar ao navegador: %w", err)}
	}
	defer func() {
		if cerr := browser.Close(); cerr != nil {
			f.logger.Debug("erro ao fechar navegador", "err", cerr)
		}
	}()

	incognito, err := browser.Incognito()
	if err != nil {
		return nil, &FetchError{URL: rawURL, Reason: ReasonBrowser, Err: fmt.Errorf("erro ao criar contexto: %w", err)}
	}
	defer func() { _ = incognito.Close() }()

	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, &FetchError{URL: rawURL, Reason: ReasonBrowser, Err: fmt.Errorf("erro ao abrir página: %w", err)}
	}
	defer func() { _ = page.Close() }()

	if err := f.preparePage(page); err != nil {
		return nil, &FetchError{URL: rawURL, Reason: ReasonBrowser, Err: err}
	}

	// Espera a rede ficar ociosa, limitada pelo timeout de navegação
	nav := page.Timeout(f.opts.NavigationTimeout)
	defer nav.CancelTimeout()
	waitIdle := nav.WaitRequestIdle(requestIdleWindow, nil, nil, nil)
	if err := nav.Navigate(rawURL); err != nil {
		return nil, newFetchError(rawURL, err)
	}
	waitIdle()
	if err := ctx.Err(); err != nil {
		return nil, newFetchError(rawURL, err)
	}
	if err := nav.GetContext().Err(); err != nil {
		return nil, &FetchError{URL: rawURL, Reason: ReasonTimeout, Err: fmt.Errorf("rede não ficou ociosa em %s: %w", f.opts.NavigationTimeout, err)}
	}

	selectors := f.registry.Resolve(rawURL).WaitSelectors
	if len(selectors) == 0 {
		selectors = defaultWaitSelectors
	}
	waitPrice := page.Timeout(f.opts.SelectorTimeout)
	_, err = waitPrice.Element(strings.Join(selectors, ", "))
	waitPrice.CancelTimeout()
	if err != nil {
		// Não é fatal: segue com o que já foi renderizado
		f.logger.Warn("timeout esperando elemento de preço", "url", rawURL)
	}

	select {
	case <-ctx.Done():
		return nil, newFetchError(rawURL, ctx.Err())
	case <-time.After(f.opts.SettleDelay):
	}

	html, err := page.HTML()
	if err != nil {
		return nil, &FetchError{URL: rawURL, Reason: ReasonBrowser, Err: fmt.Errorf("erro ao capturar HTML: %w", err)}
	}
	return []byte(html), nil
}

func (f *BrowserFetcher) preparePage(page *rod.Page) error {
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             1920,
		Height:            1080,
		DeviceScaleFactor: 1,
	}); err != nil {
		return fmt.Errorf("erro ao definir viewport: %w", err)
	}
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      userAgent,
		AcceptLanguage: f.opts.Locale,
	}); err != nil {
		return fmt.Errorf("erro ao definir user agent: %w", err)
	}
	if err := (proto.EmulationSetLocaleOverride{Locale: f.opts.Locale}).Call(page); err != nil {
		f.logger.Debug("locale não aplicado", "err", err)
	}
	if err := (proto.EmulationSetTimezoneOverride{TimezoneID: f.opts.Timezone}).Call(page); err != nil {
		f.logger.Debug("timezone não aplicado", "err", err)
	}
	return nil
}
