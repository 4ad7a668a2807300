package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrPriceNotFound indica que a página foi obtida mas nenhuma regra encontrou preço
var ErrPriceNotFound = errors.New("preço não encontrado na página")

// FetchReason classifica a falha de uma busca
type FetchReason string

const (
	ReasonNetwork    FetchReason = "network"
	ReasonTimeout    FetchReason = "timeout"
	ReasonStatus     FetchReason = "status"
	ReasonBrowser    FetchReason = "browser"
	ReasonInvalidURL FetchReason = "invalid-url"
)

// FetchError é a falha estruturada de uma busca de página
type FetchError struct {
	URL        string
	Reason     FetchReason
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.Reason == ReasonStatus:
		return fmt.Sprintf("falha ao buscar %s: status code %d", e.URL, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("falha ao buscar %s (%s): %v", e.URL, e.Reason, e.Err)
	default:
		return fmt.Sprintf("falha ao buscar %s (%s)", e.URL, e.Reason)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsFetchError informa se err é (ou embrulha) uma falha de busca
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

func newFetchError(rawURL string, err error) *FetchError {
	reason := ReasonNetwork
	if isTimeout(err) {
		reason = ReasonTimeout
	}
	return &FetchError{URL: rawURL, Reason: reason, Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
