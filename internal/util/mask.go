// Package util reúne helpers chicos sin dependencias de dominio.
package util

import "strings"

// MaskEmail deja la primera letra del usuario y del dominio:
// "john.doe@uni.edu" -> "j…@u….edu". Se usa al loguear.
func MaskEmail(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	user, dom, ok := strings.Cut(s, "@")
	if !ok || user == "" {
		return MaskSecret(s)
	}
	if len(user) > 1 {
		user = user[:1] + "…"
	}
	labels := strings.Split(dom, ".")
	if len(labels[0]) > 1 {
		labels[0] = labels[0][:1] + "…"
	}
	return user + "@" + strings.Join(labels, ".")
}

// MaskSecret conserva sólo los extremos de un valor sensible.
func MaskSecret(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 4:
		return "***"
	}
	return s[:1] + "…" + s[len(s)-1:]
}
