package lookup

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

type Coordinator struct {
	LongAlias  string `json:"longAlias"`
	ShortAlias string `json:"shortAlias"`
	Mainnet    struct {
		Onion    string `json:"onion"`
		Clearnet string `json:"clearnet"`
	} `json:"mainnet"`
}

// Federation is keyed by coordinator short name.
type Federation map[string]Coordinator

// CoordinatorName returns the long alias of the coordinator whose mainnet
// onion address is source, or "" when none matches.
func (f Federation) CoordinatorName(source string) string {
	origin := NormalizeOrigin(source)
	if origin == "" {
		return ""
	}
	for _, coordinator := range f {
		if NormalizeOrigin(coordinator.Mainnet.Onion) == origin {
			return coordinator.LongAlias
		}
	}
	return ""
}

// NormalizeOrigin strips an http:// or https:// prefix. It also drops a
// trailing slash, so "http://host/" and "host" normalize to the same origin.
// Comparison after normalization is exact and case sensitive.
func NormalizeOrigin(raw string) string {
	origin := strings.TrimSpace(raw)
	origin = strings.TrimPrefix(origin, "http://")
	origin = strings.TrimPrefix(origin, "https://")
	return strings.TrimSuffix(origin, "/")
}

func LoadFederation(path string) (Federation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read federation: %w", err)
	}
	var federation Federation
	if err := json.Unmarshal(data, &federation); err != nil {
		return nil, fmt.Errorf("decode federation %s: %w", path, err)
	}
	if federation == nil {
		federation = Federation{}
	}
	return federation, nil
}
