package scraper

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// GenericProfileName é o nome do perfil usado quando nenhuma loja é reconhecida
const GenericProfileName = "generic"

// LocatorKind identifica como uma regra localiza o elemento do preço
type LocatorKind int

const (
	ByClass LocatorKind = iota
	ByID
	ByAttr
)

// Rule é um localizador estrutural de preço
type Rule struct {
	Kind  LocatorKind
	Name  string // Classe, id ou nome do atributo
	Value string // Valor do atributo (apenas ByAttr)

	// IntegerOnly indica que o elemento contém apenas a parte inteira do preço,
	// então pontos e vírgulas nele são sempre separadores de milhar.
	IntegerOnly bool
}

// Class cria uma regra por nome de classe
func Class(name string) Rule { return Rule{Kind: ByClass, Name: name} }

// ID cria uma regra por id do elemento
func ID(id string) Rule { return Rule{Kind: ByID, Name: id} }

// Attr cria uma regra por par atributo=valor
func Attr(name, value string) Rule { return Rule{Kind: ByAttr, Name: name, Value: value} }

// Fraction cria uma regra por classe para elementos só com a parte inteira
func Fraction(name string) Rule { return Rule{Kind: ByClass, Name: name, IntegerOnly: true} }

// Selector devolve o seletor CSS equivalente à regra
func (r Rule) Selector() string {
	switch r.Kind {
	case ByID:
		return "[id=" + strconv.Quote(r.Name) + "]"
	case ByAttr:
		return "[" + r.Name + "=" + strconv.Quote(r.Value) + "]"
	default:
		// ~= compara palavra a palavra, igual à semântica de class
		return "[class~=" + strconv.Quote(r.Name) + "]"
	}
}

func (r Rule) String() string {
	switch r.Kind {
	case ByID:
		return "id=" + r.Name
	case ByAttr:
		return r.Name + "=" + r.Value
	default:
		return "class=" + r.Name
	}
}

// SiteProfile agrupa as regras de extração de uma loja
type SiteProfile struct {
	Name    string
	Domains []string // Trechos do host que identificam a loja
	Rules   []Rule   // Tentadas em ordem, a primeira que funcionar vence
	Clean   *regexp.Regexp

	// Render indica que o preço só aparece depois de executar JavaScript
	Render bool
	// WaitSelectors são aguardados pelo navegador antes de capturar o HTML
	WaitSelectors []string
}

// Registry resolve o perfil de loja de uma URL.
// É imutável depois de criado e pode ser compartilhado sem locks.
type Registry struct {
	profiles []SiteProfile
	generic  *SiteProfile
}

// NewRegistry cria um registro com os perfis informados, na ordem informada
func NewRegistry(profiles ...SiteProfile) *Registry {
	r := &Registry{
		profiles: make([]SiteProfile, len(profiles)),
		generic: &SiteProfile{
			Name:  GenericProfileName,
			Clean: defaultCleanPattern,
		},
	}
	copy(r.profiles, profiles)
	for i := range r.profiles {
		if r.profiles[i].Clean == nil {
			r.profiles[i].Clean = defaultCleanPattern
		}
	}
	return r
}

// NewDefaultRegistry cria o registro com as lojas conhecidas
func NewDefaultRegistry() *Registry {
	return NewRegistry(DefaultProfiles()...)
}

// DefaultProfiles devolve a tabela de lojas suportadas
func DefaultProfiles() []SiteProfile {
	return []SiteProfile{
		{
			Name:    "amazon",
			Domains: []string{"amazon"},
			Rules: []Rule{
				Class("a-price-whole"),
				ID("priceblock_ourprice"),
				ID("priceblock_dealprice"),
				Class("a-offscreen"),
			},
			Clean: defaultCleanPattern,
		},
		{
			Name:    "mercadolibre",
			Domains: []string{"mercadolibre", "mercadolivre"},
			Rules: []Rule{
				Fraction("andes-money-amount__fraction"),
				Fraction("price-tag-fraction"),
				Class("ui-pdp-price__second-line__main-price"),
				Class("price-tag-amount"),
				Attr("data-testid", "price-part"),
				Class("ui-pdp-price__part"),
			},
			Clean:  defaultCleanPattern,
			Render: true,
			WaitSelectors: []string{
				".andes-money-amount__fraction",
				".price-tag-fraction",
				".ui-pdp-price__part",
			},
		},
		{
			Name:    "ebay",
			Domains: []string{"ebay"},
			Rules: []Rule{
				Class("x-price-primary"),
				ID("prcIsum"),
			},
			Clean: defaultCleanPattern,
		},
	}
}

// Resolve devolve o perfil da loja da URL, ou o perfil genérico.
// Aceita também um domínio sem esquema ("www.amazon.com").
func (r *Registry) Resolve(rawURL string) *SiteProfile {
	host := hostOf(rawURL)
	if host == "" {
		return r.generic
	}

	for i := range r.profiles {
		for _, token := range r.profiles[i].Domains {
			if token != "" && strings.Contains(host, strings.ToLower(token)) {
				return &r.profiles[i]
			}
		}
	}
	return r.generic
}

// Generic devolve o perfil genérico
func (r *Registry) Generic() *SiteProfile {
	return r.generic
}

// Profiles devolve uma cópia dos perfis registrados
func (r *Registry) Profiles() []SiteProfile {
	out := make([]SiteProfile, len(r.profiles))
	copy(out, r.profiles)
	return out
}

func hostOf(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		return strings.ToLower(u.Hostname())
	}
	// Domínio sem esquema: descarta caminho e porta
	host := rawURL
	if idx := strings.IndexAny(host, "/?#"); idx >= 0 {
		host = host[:idx]
	}
	if idx := strings.LastIndex(host, ":"); idx >= 0 {
		host = host[:idx]
	}
	return strings.ToLower(host)
}
