package domain

import (
	"encoding/json"
	"time"
)

// Expiry policies accepted on certificate templates. Anything else is
// treated as "never".
const (
	ExpiryNever   = "never"
	ExpiryOneYear = "1y"
	ExpiryTwoYear = "2y"
)

// CertificateTemplate is the typed form of the JSON blob stored on the
// quiz row. Every field has a named default; parse failure is a recognized
// code path that degrades to all defaults, never to an error.
type CertificateTemplate struct {
	Template     string `json:"template"`
	PrimaryColor string `json:"primaryColor"`
	Criterion    string `json:"criterion"`
	Expiry       string `json:"expiry"`
	QRCode       bool   `json:"qrCode"`
	AutoEmail    bool   `json:"autoEmail"`
}

// DefaultTemplate returns the template every field falls back to.
func DefaultTemplate() CertificateTemplate {
	return CertificateTemplate{
		Template:     "classic",
		PrimaryColor: "#6366f1",
		Criterion:    "pass",
		Expiry:       ExpiryNever,
		QRCode:       true,
		AutoEmail:    true,
	}
}

// ParseTemplate decodes raw template JSON, filling absent fields with
// defaults. Malformed or empty input yields the full default template.
func ParseTemplate(raw string) CertificateTemplate {
	tmpl := DefaultTemplate()
	if raw == "" {
		return tmpl
	}
	var blob struct {
		Template     *string `json:"template"`
		PrimaryColor *string `json:"primaryColor"`
		Criterion    *string `json:"criterion"`
		Expiry       *string `json:"expiry"`
		QRCode       *bool   `json:"qrCode"`
		AutoEmail    *bool   `json:"autoEmail"`
	}
	if err := json.Unmarshal([]byte(raw), &blob); err != nil {
		return tmpl
	}
	if blob.Template != nil {
		tmpl.Template = *blob.Template
	}
	if blob.PrimaryColor != nil {
		tmpl.PrimaryColor = *blob.PrimaryColor
	}
	if blob.Criterion != nil {
		tmpl.Criterion = *blob.Criterion
	}
	if blob.Expiry != nil {
		tmpl.Expiry = *blob.Expiry
	}
	if blob.QRCode != nil {
		tmpl.QRCode = *blob.QRCode
	}
	if blob.AutoEmail != nil {
		tmpl.AutoEmail = *blob.AutoEmail
	}
	return tmpl
}

// ExpiresAt computes the certificate expiry for an issuance date.
// "1y" and "2y" add whole calendar years; everything else never expires.
func (t CertificateTemplate) ExpiresAt(issued time.Time) *time.Time {
	switch t.Expiry {
	case ExpiryOneYear:
		exp := issued.AddDate(1, 0, 0)
		return &exp
	case ExpiryTwoYear:
		exp := issued.AddDate(2, 0, 0)
		return &exp
	default:
		return nil
	}
}
