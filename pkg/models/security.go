package models

import (
	"encoding/json"
	"strings"
	"time"
)

// MarketCapTier buckets a security by size
type MarketCapTier string

const (
	MarketCapTierLarge MarketCapTier = "large"
	MarketCapTierMid   MarketCapTier = "mid"
	MarketCapTierSmall MarketCapTier = "small"
	MarketCapTierMicro MarketCapTier = "micro"
)

// SecurityRecord is one entry of the known-securities reference set
type SecurityRecord struct {
	ID            string        `json:"id"`
	Symbol        string        `json:"symbol"`
	CanonicalName string        `json:"canonical_name,omitempty"`
	Aliases       []string      `json:"aliases"`
	Sector        string        `json:"sector,omitempty"`
	MarketCapTier MarketCapTier `json:"market_cap_tier,omitempty"`
	Active        bool          `json:"active"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`

	// AliasesJSON is the raw stored alias payload. Stores fill it and leave
	// Aliases empty; the reference loader decides what to do with bad payloads.
	AliasesJSON string `json:"-"`
}

// ParseAliases decodes AliasesJSON. An empty payload is no aliases.
func (s SecurityRecord) ParseAliases() ([]string, error) {
	payload := strings.TrimSpace(s.AliasesJSON)
	if payload == "" || payload == "null" {
		return nil, nil
	}
	var aliases []string
	if err := json.Unmarshal([]byte(payload), &aliases); err != nil {
		return nil, err
	}
	return aliases, nil
}

// EncodeAliases serializes aliases the way stores persist them.
func EncodeAliases(aliases []string) string {
	if len(aliases) == 0 {
		return "[]"
	}
	b, err := json.Marshal(aliases)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// NormalizeSymbol upper-cases and trims a symbol
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// IsValidSymbol reports whether s is 1-5 ASCII uppercase letters
func IsValidSymbol(s string) bool {
	if len(s) == 0 || len(s) > 5 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}

// CreateSecurityRequest is the request to add a security to the reference set
type CreateSecurityRequest struct {
	Symbol        string        `json:"symbol" validate:"required,min=1,max=5,alpha"`
	CanonicalName string        `json:"canonical_name"`
	Aliases       []string      `json:"aliases"`
	Sector        string        `json:"sector"`
	MarketCapTier MarketCapTier `json:"market_cap_tier" validate:"omitempty,oneof=large mid small micro"`
}

// MergeAliases appends the aliases in add that are not already present,
// comparing case-insensitively and ignoring blanks.
func MergeAliases(existing, add []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(add))
	out := make([]string, 0, len(existing)+len(add))
	for _, list := range [][]string{existing, add} {
		for _, alias := range list {
			alias = strings.TrimSpace(alias)
			if alias == "" {
				continue
			}
			key := strings.ToLower(alias)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, alias)
		}
	}
	return out
}

// NewSecurityRecord builds an active record from a create request
func NewSecurityRecord(req CreateSecurityRequest) *SecurityRecord {
	aliases := MergeAliases(nil, req.Aliases)
	return &SecurityRecord{
		Symbol:        NormalizeSymbol(req.Symbol),
		CanonicalName: strings.TrimSpace(req.CanonicalName),
		Aliases:       aliases,
		Sector:        req.Sector,
		MarketCapTier: req.MarketCapTier,
		Active:        true,
		AliasesJSON:   EncodeAliases(aliases),
	}
}

// AddAliasesRequest adds aliases to an existing security
type AddAliasesRequest struct {
	Aliases []string `json:"aliases" validate:"required,min=1,dive,required"`
}

// SetActiveRequest toggles whether a security is part of the reference set
type SetActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}
