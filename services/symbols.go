package services

import (
	"fmt"
	"regexp"
	"strings"

	"span-screener/models"
	"span-screener/observability"
)

var symbolPattern = regexp.MustCompile(`^[A-Z][A-Z0-9.\-/]{0,9}$`)

// SymbolResolver normalizes user input and maps share-class spellings to one canonical symbol
type SymbolResolver struct {
	aliases map[string]string
}

// NewSymbolResolver creates a resolver over the given alias table (keys and values upper-case)
func NewSymbolResolver(aliases map[string]string) *SymbolResolver {
	table := make(map[string]string, len(aliases))
	for from, to := range aliases {
		table[strings.ToUpper(strings.TrimSpace(from))] = strings.ToUpper(strings.TrimSpace(to))
	}
	return &SymbolResolver{aliases: table}
}

// Resolve returns the canonical symbol for raw, or ErrInvalidSymbol
func (r *SymbolResolver) Resolve(raw string) (string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(raw))
	if !symbolPattern.MatchString(symbol) {
		return "", fmt.Errorf("%w: %q", models.ErrInvalidSymbol, raw)
	}
	if r == nil {
		return symbol, nil
	}
	if canonical, ok := r.aliases[symbol]; ok && canonical != symbol {
		observability.Info("resolved symbol alias", "input", symbol, "symbol", canonical)
		return canonical, nil
	}
	return symbol, nil
}
