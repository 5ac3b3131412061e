// Package lookup holds the reference tables the matcher consults: the
// coordinator currency codes and the federation directory.
package lookup

import (
	"encoding/json"
	"fmt"
	"os"
)

// CurrencyTable maps a coordinator's numeric currency code, as text, to its
// symbol ("1" -> "USD").
type CurrencyTable map[string]string

func (t CurrencyTable) Resolve(code string) (string, bool) {
	symbol, ok := t[code]
	if !ok || symbol == "" {
		return "", false
	}
	return symbol, true
}

// HasSymbol reports whether symbol is a value of the table.
func (t CurrencyTable) HasSymbol(symbol string) bool {
	for _, known := range t {
		if known == symbol {
			return true
		}
	}
	return false
}

func LoadCurrencyTable(path string) (CurrencyTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read currency table: %w", err)
	}
	var table CurrencyTable
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("decode currency table %s: %w", path, err)
	}
	if table == nil {
		table = CurrencyTable{}
	}
	return table, nil
}
