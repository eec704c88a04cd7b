// Package config loads the two configuration surfaces of a merge run:
// the column mapping file (YAML) and the runtime settings (environment).
package config

import (
	"os"
	"sort"

	"github.com/goccy/go-yaml"

	"github.com/meridianlabs/boardsync/pkg/duplicate"
	"github.com/meridianlabs/boardsync/pkg/errors"
	"github.com/meridianlabs/boardsync/pkg/merge"
	"github.com/meridianlabs/boardsync/pkg/transform"
)

// mappingEntry is one mapping rule as spelled in YAML.
type mappingEntry struct {
	SourceColumnID string            `yaml:"source_column_id"`
	TargetColumnID string            `yaml:"target_column_id"`
	MergeStrategy  string            `yaml:"merge_strategy"`
	Transform      string            `yaml:"transform"`
	Options        map[string]string `yaml:"options"`
}

// transformEntry is one transform's configuration block.
type transformEntry struct {
	Description  string            `yaml:"description"`
	ValueMapping map[string]string `yaml:"value_mapping"`
}

// identityEntry names the columns identity keys are derived from.
type identityEntry struct {
	EmailColumn       string `yaml:"email_column"`
	ReferenceColumn   string `yaml:"reference_column"`
	SecondaryIDColumn string `yaml:"secondary_id_column"`
}

// coordinates is a city coordinate pair in YAML.
type coordinates struct {
	Lat float64 `yaml:"lat"`
	Lng float64 `yaml:"lng"`
}

// tablesEntry holds the lookup tables supplied by configuration.
type tablesEntry struct {
	Countries []string               `yaml:"countries"`
	Cities    map[string]coordinates `yaml:"cities"`
	Sentinels []string               `yaml:"sentinels"`
}

// mappingFile is the full YAML document.
type mappingFile struct {
	Mappings        []mappingEntry            `yaml:"mappings"`
	SkipColumns     []string                  `yaml:"skip_columns"`
	Transformations map[string]transformEntry `yaml:"transformations"`
	Identity        identityEntry             `yaml:"identity"`
	LinkColumn      string                    `yaml:"link_column"`
	Tables          tablesEntry               `yaml:"tables"`
}

// Mapping is the parsed column mapping configuration.
type Mapping struct {
	Rules      []merge.Rule
	Transforms map[string]map[string]string
	Columns    duplicate.Columns
	LinkColumn string
	Tables     transform.Tables
}

// LoadMapping reads and validates a mapping YAML file.
func LoadMapping(path string) (*Mapping, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	return ParseMapping(raw, path)
}

// ParseMapping parses mapping YAML. The path is only used in error
// messages.
func ParseMapping(raw []byte, path string) (*Mapping, error) {
	var file mappingFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}

	skip := make(map[string]bool, len(file.SkipColumns))
	for _, id := range file.SkipColumns {
		skip[id] = true
	}

	m := &Mapping{
		Transforms: make(map[string]map[string]string, len(file.Transformations)),
		Columns: duplicate.Columns{
			Email:       file.Identity.EmailColumn,
			Reference:   file.Identity.ReferenceColumn,
			SecondaryID: file.Identity.SecondaryIDColumn,
		},
		LinkColumn: file.LinkColumn,
		Tables:     buildTables(file.Tables),
	}

	for _, entry := range file.Mappings {
		if entry.SourceColumnID == "" {
			return nil, errors.NewConfigError("mapping", "mapping entry without source_column_id", nil)
		}
		if skip[entry.SourceColumnID] {
			continue
		}

		strategy, err := merge.ParseStrategy(entry.MergeStrategy)
		if err != nil {
			return nil, errors.NewConfigError("mapping", "column "+entry.SourceColumnID, err)
		}

		m.Rules = append(m.Rules, merge.Rule{
			SourceColumn: entry.SourceColumnID,
			TargetColumn: entry.TargetColumnID,
			Strategy:     strategy,
			Transform:    entry.Transform,
			Options:      entry.Options,
		})
	}

	for name, entry := range file.Transformations {
		if len(entry.ValueMapping) > 0 {
			m.Transforms[name] = entry.ValueMapping
		}
	}

	return m, nil
}

// buildTables merges the configured tables over the deployment defaults.
func buildTables(entry tablesEntry) transform.Tables {
	tables := transform.DefaultTables()

	if len(entry.Countries) > 0 {
		countries := append([]string(nil), entry.Countries...)
		sort.Strings(countries)
		tables.Countries = countries
	}
	if len(entry.Cities) > 0 {
		tables.Cities = make(map[string]transform.Coordinates, len(entry.Cities))
		for name, coord := range entry.Cities {
			tables.Cities[name] = transform.Coordinates{Lat: coord.Lat, Lng: coord.Lng}
		}
	}
	if len(entry.Sentinels) > 0 {
		tables.Sentinels = append([]string(nil), entry.Sentinels...)
	}

	return tables
}
