package config

import "strings"

// AutomationConfig controls who may call the automation trigger endpoints.
// A request is accepted when it presents one of Tokens, or an ID token issued by
// OIDCIssuerURL for OIDCAudience whose subject is allowed.
type AutomationConfig struct {
	Tokens []string `env:"TOKENS" envSeparator:","`

	OIDCIssuerURL string `env:"OIDC_ISSUER_URL"`
	OIDCAudience  string `env:"OIDC_AUDIENCE"`
	// OIDCAllowedSubjects restricts accepted subjects (service accounts); empty allows any.
	OIDCAllowedSubjects []string `env:"OIDC_ALLOWED_SUBJECTS" envSeparator:","`
}

// Sanitize trims values and drops empty tokens.
func (a *AutomationConfig) Sanitize() {
	a.Tokens = compactStrings(a.Tokens)
	a.OIDCIssuerURL = strings.TrimSpace(a.OIDCIssuerURL)
	a.OIDCAudience = strings.TrimSpace(a.OIDCAudience)
	a.OIDCAllowedSubjects = compactStrings(a.OIDCAllowedSubjects)
}

// OIDCEnabled reports whether ID-token verification is configured.
func (a *AutomationConfig) OIDCEnabled() bool {
	return a.OIDCIssuerURL != "" && a.OIDCAudience != ""
}

// Enabled reports whether any credential method is configured.
func (a *AutomationConfig) Enabled() bool {
	return len(a.Tokens) > 0 || a.OIDCEnabled()
}
