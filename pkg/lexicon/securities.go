package lexicon

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/TomMcIver/Stock-Port/pkg/models"
)

// SecuritySeed is one entry of a securities seed file
type SecuritySeed struct {
	Symbol  string   `yaml:"symbol"`
	Name    string   `yaml:"name"`
	Sector  string   `yaml:"sector"`
	Tier    string   `yaml:"tier"`
	Aliases []string `yaml:"aliases"`
}

type securitiesFile struct {
	Securities []SecuritySeed `yaml:"securities"`
}

// DefaultSecurities is a small large-cap sample used when no seed file is given
var DefaultSecurities = []SecuritySeed{
	{Symbol: "AAPL", Name: "Apple Inc.", Sector: "Technology", Tier: "large", Aliases: []string{"Apple"}},
	{Symbol: "MSFT", Name: "Microsoft Corporation", Sector: "Technology", Tier: "large", Aliases: []string{"Microsoft"}},
	{Symbol: "GOOGL", Name: "Alphabet Inc.", Sector: "Technology", Tier: "large", Aliases: []string{"Alphabet", "Google"}},
	{Symbol: "AMZN", Name: "Amazon.com Inc.", Sector: "Consumer Discretionary", Tier: "large", Aliases: []string{"Amazon"}},
	{Symbol: "TSLA", Name: "Tesla Inc.", Sector: "Consumer Discretionary", Tier: "large", Aliases: []string{"Tesla"}},
	{Symbol: "META", Name: "Meta Platforms Inc.", Sector: "Communication Services", Tier: "large", Aliases: []string{"Meta", "Facebook"}},
	{Symbol: "NVDA", Name: "NVIDIA Corporation", Sector: "Technology", Tier: "large", Aliases: []string{"Nvidia"}},
	{Symbol: "JPM", Name: "JPMorgan Chase & Co.", Sector: "Financials", Tier: "large", Aliases: []string{"JPMorgan", "JPMorgan Chase"}},
	{Symbol: "V", Name: "Visa Inc.", Sector: "Information Technology", Tier: "large", Aliases: []string{"Visa"}},
	{Symbol: "JNJ", Name: "Johnson & Johnson", Sector: "Health Care", Tier: "large"},
}

// LoadSecurities reads a YAML seed file. An empty path returns DefaultSecurities.
func LoadSecurities(path string) ([]SecuritySeed, error) {
	if path == "" {
		return DefaultSecurities, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read securities %s: %w", path, err)
	}

	var f securitiesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse securities %s: %w", path, err)
	}
	return f.Securities, nil
}

// ToCreateRequest converts a seed entry into a store request
func (s SecuritySeed) ToCreateRequest() models.CreateSecurityRequest {
	return models.CreateSecurityRequest{
		Symbol:        models.NormalizeSymbol(s.Symbol),
		CanonicalName: s.Name,
		Aliases:       s.Aliases,
		Sector:        s.Sector,
		MarketCapTier: models.MarketCapTier(s.Tier),
	}
}
