package levels

import (
	"fmt"
	"strings"

	version "github.com/hashicorp/go-version"
	"gopkg.in/yaml.v3"
)

const (
	CatalogKind            = "catalog"
	SupportedSchemaVersion = 1
)

// supportedCatalogVersions bounds the catalog content versions this build can
// present.
var supportedCatalogVersions = version.MustConstraints(version.NewConstraint(">= 1.0.0, < 2.0.0"))

type Catalog struct {
	Kind          string  `yaml:"kind"`
	SchemaVersion int     `yaml:"schema_version"`
	Version       string  `yaml:"version"`
	Title         string  `yaml:"title"`
	Levels        []Level `yaml:"levels"`
}

type Level struct {
	ID           int        `yaml:"id"`
	Title        string     `yaml:"title"`
	Category     string     `yaml:"category"`
	Difficulty   Difficulty `yaml:"difficulty"`
	MasterPrompt string     `yaml:"master_prompt"`
	Focus        string     `yaml:"focus"`
	LearningGoal string     `yaml:"learning_goal"`
	Tips         []string   `yaml:"tips"`
}

// Difficulty is an ordered label; the zero value is invalid.
type Difficulty int

const (
	DifficultyEasy Difficulty = iota + 1
	DifficultyMedium
	DifficultyMediumHard
	DifficultyHard
	DifficultyExpert
)

var difficultyNames = map[Difficulty]string{
	DifficultyEasy:       "Easy",
	DifficultyMedium:     "Medium",
	DifficultyMediumHard: "Medium-Hard",
	DifficultyHard:       "Hard",
	DifficultyExpert:     "Expert",
}

func ParseDifficulty(raw string) (Difficulty, error) {
	for d, name := range difficultyNames {
		if strings.EqualFold(name, strings.TrimSpace(raw)) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown difficulty %q", raw)
}

func (d Difficulty) String() string {
	if name, ok := difficultyNames[d]; ok {
		return name
	}
	return fmt.Sprintf("Difficulty(%d)", int(d))
}

// Rank is the 1-based position of d in the ordered set.
func (d Difficulty) Rank() int { return int(d) }

func (d Difficulty) Valid() bool {
	_, ok := difficultyNames[d]
	return ok
}

func (d *Difficulty) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ParseDifficulty(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Difficulty) MarshalYAML() (any, error) {
	return d.String(), nil
}

func (c Catalog) Validate() error {
	if c.Kind != CatalogKind {
		return fmt.Errorf("kind must be %q", CatalogKind)
	}
	if c.SchemaVersion == 0 {
		return fmt.Errorf("schema_version is required")
	}
	if c.SchemaVersion > SupportedSchemaVersion {
		return fmt.Errorf("unsupported catalog schema_version %d (max supported %d)", c.SchemaVersion, SupportedSchemaVersion)
	}
	v, err := version.NewVersion(c.Version)
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", c.Version, err)
	}
	if !supportedCatalogVersions.Check(v) {
		return fmt.Errorf("catalog version %s not supported (want %s)", v, supportedCatalogVersions)
	}
	if len(c.Levels) == 0 {
		return fmt.Errorf("catalog must contain at least one level")
	}
	for i, l := range c.Levels {
		if l.ID != i+1 {
			return fmt.Errorf("levels[%d].id is %d; ids must be unique and dense from 1", i, l.ID)
		}
		if err := l.Validate(); err != nil {
			return fmt.Errorf("level %d: %w", l.ID, err)
		}
	}
	return nil
}

func (l Level) Validate() error {
	if l.ID < 1 {
		return fmt.Errorf("id must be positive")
	}
	if strings.TrimSpace(l.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if !l.Difficulty.Valid() {
		return fmt.Errorf("difficulty is required")
	}
	if strings.TrimSpace(l.MasterPrompt) == "" {
		return fmt.Errorf("master_prompt is required")
	}
	if strings.TrimSpace(l.LearningGoal) == "" {
		return fmt.Errorf("learning_goal is required")
	}
	return nil
}
