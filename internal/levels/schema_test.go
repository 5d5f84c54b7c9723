package levels

import "testing"

func validCatalog() Catalog {
	return Catalog{
		Kind:          CatalogKind,
		SchemaVersion: SupportedSchemaVersion,
		Version:       "1.0.0",
		Title:         "x",
		Levels: []Level{
			{ID: 1, Title: "a", Difficulty: DifficultyEasy, MasterPrompt: "p", LearningGoal: "g"},
			{ID: 2, Title: "b", Difficulty: DifficultyHard, MasterPrompt: "p", LearningGoal: "g"},
		},
	}
}

func TestCatalogValidateAcceptsDenseIDs(t *testing.T) {
	c := validCatalog()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected valid catalog: %v", err)
	}
}

func TestCatalogValidateRejectsUnsupportedSchemaVersion(t *testing.T) {
	c := validCatalog()
	c.SchemaVersion = SupportedSchemaVersion + 1
	if err := c.Validate(); err == nil {
		t.Fatalf("expected unsupported schema version error")
	}
}

func TestCatalogValidateRejectsFutureContentVersion(t *testing.T) {
	c := validCatalog()
	c.Version = "2.0.0"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected unsupported version error")
	}
	c.Version = "banana"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected invalid version error")
	}
}

func TestCatalogValidateRejectsGapsAndDuplicates(t *testing.T) {
	c := validCatalog()
	c.Levels[1].ID = 3
	if err := c.Validate(); err == nil {
		t.Fatalf("expected gap error")
	}
	c = validCatalog()
	c.Levels[1].ID = 1
	if err := c.Validate(); err == nil {
		t.Fatalf("expected duplicate error")
	}
}

func TestLevelValidateRequiresMasterPrompt(t *testing.T) {
	l := Level{ID: 1, Title: "x", Difficulty: DifficultyEasy, LearningGoal: "g"}
	if err := l.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestParseDifficulty(t *testing.T) {
	d, err := ParseDifficulty("medium-hard")
	if err != nil || d != DifficultyMediumHard {
		t.Fatalf("unexpected parse: %v %v", d, err)
	}
	if _, err := ParseDifficulty("impossible"); err == nil {
		t.Fatalf("expected error")
	}
	if DifficultyMediumHard.String() != "Medium-Hard" {
		t.Fatalf("unexpected name %q", DifficultyMediumHard.String())
	}
}
