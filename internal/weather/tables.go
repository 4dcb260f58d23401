package weather

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var defaultTablesYAML []byte

// RegionMapping ties one airport to the advisory regions that cover it.
type RegionMapping struct {
	Name  string   `yaml:"name"`
	ICAO  string   `yaml:"icao"`
	Upper []string `yaml:"upper"`
	Lower string   `yaml:"lower"`
}

// Tables holds the static keyword data used by the extractors.
type Tables struct {
	Icons    map[string]string `yaml:"icons"`
	Airports []RegionMapping   `yaml:"airports"`
}

// DefaultTables returns the built-in icon and region tables.
func DefaultTables() Tables {
	t, err := ParseTables(defaultTablesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded tables.yaml is invalid: %v", err))
	}
	return t
}

// LoadTables reads tables from path, or returns the built-in tables when path is empty.
func LoadTables(path string) (Tables, error) {
	if path == "" {
		return DefaultTables(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, fmt.Errorf("read region table %s: %w", path, err)
	}
	return ParseTables(raw)
}

// ParseTables decodes and validates a YAML table document.
func ParseTables(raw []byte) (Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return Tables{}, fmt.Errorf("decode region table: %w", err)
	}
	if len(t.Airports) == 0 {
		return Tables{}, errors.New("region table has no airports")
	}

	seen := make(map[string]bool, len(t.Airports))
	for _, a := range t.Airports {
		if a.Name == "" || len(a.Upper) == 0 {
			return Tables{}, fmt.Errorf("region table entry %q needs a name and at least one upper region", a.ICAO)
		}
		if seen[a.Name] {
			return Tables{}, fmt.Errorf("region table lists %q twice", a.Name)
		}
		seen[a.Name] = true
	}
	if t.Icons == nil {
		t.Icons = map[string]string{}
	}
	return t, nil
}

// ICAOCodes returns the airport codes in table order.
func (t Tables) ICAOCodes() []string {
	codes := make([]string, 0, len(t.Airports))
	for _, a := range t.Airports {
		codes = append(codes, a.ICAO)
	}
	return codes
}
