package core

// Source tags recorded on resolved metadata.
const (
	SourceOnChain  = "onchain"
	SourceAPI      = "api"
	SourceRegistry = "registry"
	SourceJupiter  = "jupiter"
	SourceShared   = "shared"
	SourceFallback = "fallback"
)

// DefaultDecimals is used when a source cannot tell us the mint's decimals.
const DefaultDecimals = 9

// TokenMetadata is the display metadata for one token address.
type TokenMetadata struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals int    `json:"decimals"`
	LogoURI  string `json:"logoURI,omitempty"`
	URI      string `json:"uri,omitempty"`
	Source   string `json:"source,omitempty"`
}

// Clone returns a copy so callers cannot mutate cached records.
func (m *TokenMetadata) Clone() *TokenMetadata {
	if m == nil {
		return nil
	}
	c := *m
	return &c
}

// Stats is the diagnostics snapshot exposed by the resolver.
type Stats struct {
	CacheSize      int            `json:"cache_size"`
	RegistryLoaded bool           `json:"registry_loaded"`
	JupiterLoaded  bool           `json:"jupiter_loaded"`
	RegistryCount  int            `json:"registry_count"`
	JupiterCount   int            `json:"jupiter_count"`
	Hits           map[string]int `json:"hits,omitempty"`
}

// Holding is one wallet position, enriched with resolved metadata.
type Holding struct {
	Mint         string         `json:"mint"`
	Amount       float64        `json:"amount"`
	Decimals     int            `json:"decimals"`
	TokenAccount string         `json:"token_account"`
	Metadata     *TokenMetadata `json:"metadata,omitempty"`
}
