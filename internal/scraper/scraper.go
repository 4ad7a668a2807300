package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

const (
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	acceptHeader   = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
	acceptLanguage = "es-ES,es;q=0.9,pt-BR;q=0.8,en;q=0.7"
)

// Fetcher busca o HTML de uma página
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// Strategy escolhe como a página é buscada
type Strategy string

const (
	StrategyAuto     Strategy = "auto"
	StrategyPlain    Strategy = "plain"
	StrategyRendered Strategy = "rendered"
)

// ParseStrategy converte o nome de uma estratégia
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyAuto:
		return StrategyAuto, nil
	case StrategyPlain:
		return StrategyPlain, nil
	case StrategyRendered:
		return StrategyRendered, nil
	}
	return "", fmt.Errorf("estratégia de busca inválida: %q", s)
}

// Router escolhe a estratégia de busca por chamada ou por site
type Router struct {
	Plain    Fetcher
	Rendered Fetcher
	Registry *Registry
	Mode     Strategy
}

// Fetch busca a página usando o modo configurado
func (r *Router) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	return r.FetchWith(ctx, rawURL, r.Mode)
}

// FetchWith busca a página com a estratégia informada.
// Em modo auto usa o navegador apenas para lojas marcadas com Render.
func (r *Router) FetchWith(ctx context.Context, rawURL string, strategy Strategy) ([]byte, error) {
	if strategy == StrategyAuto || strategy == "" {
		strategy = StrategyPlain
		if r.Registry != nil && r.Registry.Resolve(rawURL).Render {
			strategy = StrategyRendered
		}
	}
	if strategy == StrategyRendered && r.Rendered != nil {
		return r.Rendered.Fetch(ctx, rawURL)
	}
	if r.Plain == nil {
		return nil, &FetchError{URL: rawURL, Reason: ReasonNetwork, Err: fmt.Errorf("nenhum fetcher configurado")}
	}
	return r.Plain.Fetch(ctx, rawURL)
}

// Scraper junta busca e extração de preço
type Scraper struct {
	fetcher   Fetcher
	extractor *Extractor
	logger    *slog.Logger
}

// New cria um scraper
func New(fetcher Fetcher, extractor *Extractor, logger *slog.Logger) *Scraper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scraper{fetcher: fetcher, extractor: extractor, logger: logger}
}

// Fetch busca o HTML da página
func (s *Scraper) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := validateURL(rawURL); err != nil {
		return nil, err
	}
	return s.fetcher.Fetch(ctx, cleanURL(rawURL))
}

// Extract extrai o preço do HTML de uma página
func (s *Scraper) Extract(markup []byte, rawURL string) (ExtractionResult, error) {
	return s.extractor.Extract(markup, rawURL)
}

// Registry devolve o registro de perfis usado pelo extrator
func (s *Scraper) Registry() *Registry {
	return s.extractor.Registry()
}

// GetPrice busca a página e extrai o preço
func (s *Scraper) GetPrice(ctx context.Context, rawURL string) (ExtractionResult, error) {
	markup, err := s.Fetch(ctx, rawURL)
	if err != nil {
		return ExtractionResult{}, err
	}
	return s.Extract(markup, rawURL)
}

// URLTestResult é o diagnóstico de uma URL antes de cadastrá-la
type URLTestResult struct {
	URL       string
	Profile   string
	Reachable bool
	Result    ExtractionResult
	Found     bool
	Error     string
}

// TestURL verifica se a URL é acessível e se o preço pode ser extraído
func (s *Scraper) TestURL(ctx context.Context, rawURL string) URLTestResult {
	res := URLTestResult{
		URL:     rawURL,
		Profile: s.Registry().Resolve(rawURL).Name,
	}

	markup, err := s.Fetch(ctx, rawURL)
	if err != nil {
		res.Error = err.Error()
		s.logger.Info("URL inacessível", "url", rawURL, "err", err)
		return res
	}
	res.Reachable = true

	result, err := s.Extract(markup, rawURL)
	if err != nil {
		res.Error = "não foi possível extrair o preço do HTML"
		return res
	}
	res.Result = result
	res.Found = true
	return res
}

func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return &FetchError{URL: rawURL, Reason: ReasonInvalidURL, Err: err}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &FetchError{URL: rawURL, Reason: ReasonInvalidURL, Err: fmt.Errorf("URL deve ser absoluta e usar http(s)")}
	}
	return nil
}

// cleanURL remove o fragmento, que nunca é enviado ao servidor
func cleanURL(rawURL string) string {
	parts := strings.Split(rawURL, "#")
	return parts[0]
}
