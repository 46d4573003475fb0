package password

import (
	"strings"
	"unicode"
)

// DefaultSymbols es el set de símbolos aceptados por la política por defecto.
const DefaultSymbols = "@$!%*?&"

type Policy struct {
	MinLength     int
	RequireUpper  bool
	RequireLower  bool
	RequireDigit  bool
	RequireSymbol bool
	// Symbols restringe qué cuenta como símbolo. Vacío = cualquier
	// puntuación o símbolo unicode.
	Symbols string
	// Blacklist opcional de contraseñas comunes.
	Blacklist *Blacklist
}

// DefaultPolicy: 8+ caracteres con mayúscula, minúscula, dígito y símbolo.
func DefaultPolicy() Policy {
	return Policy{
		MinLength:     8,
		RequireUpper:  true,
		RequireLower:  true,
		RequireDigit:  true,
		RequireSymbol: true,
		Symbols:       DefaultSymbols,
		Blacklist:     DefaultBlacklist(),
	}
}

func (p Policy) isSymbol(r rune) bool {
	if p.Symbols != "" {
		return strings.ContainsRune(p.Symbols, r)
	}
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}

func (p Policy) Validate(s string) (ok bool, reasons []string) {
	if len([]rune(s)) < p.MinLength {
		reasons = append(reasons, "too_short")
	}
	if len(s) > maxBytes {
		reasons = append(reasons, "too_long")
	}
	var hasU, hasL, hasD, hasS bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			hasU = true
		case unicode.IsLower(r):
			hasL = true
		case unicode.IsDigit(r):
			hasD = true
		case p.isSymbol(r):
			hasS = true
		}
	}
	if p.RequireUpper && !hasU {
		reasons = append(reasons, "missing_upper")
	}
	if p.RequireLower && !hasL {
		reasons = append(reasons, "missing_lower")
	}
	if p.RequireDigit && !hasD {
		reasons = append(reasons, "missing_digit")
	}
	if p.RequireSymbol && !hasS {
		reasons = append(reasons, "missing_symbol")
	}
	if p.Blacklist.Contains(s) {
		reasons = append(reasons, "too_common")
	}
	return len(reasons) == 0, reasons
}
