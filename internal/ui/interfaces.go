package ui

type Controller interface {
	OnStart()
	OnSelectLevel(id int)
	OnSubmitPrompt(text string)
	OnFinishLevel()
	OnBack()
	OnHome()
	OnReset()
	OnRestart()
	OnExportReport()
	OnOpenStats()
	OnOpenSettings()
	OnCycleStyle()
	OnQuit()
}

type View interface {
	Run() error
	Stop()
	SetController(Controller)
	SetScreen(screen Screen)
	SetLanding(state LandingState)
	SetLevels(rows []LevelRow)
	SetGameplay(state GameplayState)
	SetReflection(state ReflectionState)
	SetStyleVariant(variant string)
	SetResetConfirmOpen(open bool)
	SetInfo(title, text string, open bool)
	FlashStatus(msg string)
}

type Screen int

const (
	ScreenLanding Screen = iota
	ScreenLevelSelect
	ScreenGameplay
	ScreenReflection
)

type LayoutMode int

const (
	LayoutWide LayoutMode = iota
	LayoutMedium
	LayoutTooSmall
)

type LandingState struct {
	Title       string
	LevelCount  int
	Completed   int
	Unlocked    int
	HasProgress bool
	Tip         string
}

type LevelRow struct {
	ID           int
	Title        string
	Category     string
	Difficulty   string
	Focus        string
	LearningGoal string
	Tips         []string
	Locked       bool
	Completed    bool
	Score        int
	HasScore     bool
}

// GameplayStatus mirrors the session status the screen renders.
type GameplayStatus int

const (
	GameplayLoading GameplayStatus = iota
	GameplayIdle
	GameplayGenerating
	GameplayError
)

type GameplayState struct {
	SessionID    string
	LevelID      int
	LevelCount   int
	Title        string
	Category     string
	Difficulty   string
	Focus        string
	LearningGoal string
	Tips         []string

	Status       GameplayStatus
	ErrorMessage string

	Reference  []byte
	UserImage  []byte
	LastPrompt string

	Score     int
	HasScore  bool
	Threshold int
	Attempts  int

	// AcceptingInput is true when a non-blank prompt would be accepted.
	AcceptingInput bool
	CanFinish      bool
}

type ReflectionState struct {
	Accuracy   int
	Rows       []RecapRow
	NoteMD     string
	ReportPath string
}

type RecapRow struct {
	ID       int
	Title    string
	Category string
	Score    int
	Played   bool
}
