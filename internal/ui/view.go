package ui

import (
	"fmt"
	"io"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"promptdojo/internal/imageview"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/progress"
	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/harmonica"
	clog "github.com/charmbracelet/log"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/reflow/wordwrap"
)

const appTitle = "Say What You See"

type applyMsg struct {
	fn func(*Root)
}

type animateMsg time.Time

type gameKeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Select   key.Binding
	Submit   key.Binding
	Finish   key.Binding
	Back     key.Binding
	Home     key.Binding
	Copy     key.Binding
	Export   key.Binding
	Reset    key.Binding
	Stats    key.Binding
	Settings key.Binding
	Style    key.Binding
	Quit     key.Binding
}

// screenKeys is the subset of bindings shown in the status bar.
type screenKeys []key.Binding

func (k screenKeys) ShortHelp() []key.Binding  { return k }
func (k screenKeys) FullHelp() [][]key.Binding { return [][]key.Binding{k} }

func (k gameKeyMap) forScreen(s Screen) screenKeys {
	switch s {
	case ScreenLevelSelect:
		return screenKeys{k.Select, k.Back, k.Stats, k.Quit}
	case ScreenGameplay:
		return screenKeys{k.Submit, k.Finish, k.Copy, k.Back, k.Home, k.Quit}
	case ScreenReflection:
		return screenKeys{k.Select, k.Export, k.Back, k.Quit}
	default:
		return screenKeys{k.Select, k.Stats, k.Settings, k.Style, k.Reset, k.Quit}
	}
}

// previewCache keeps the last rendering of one image slot. Images are
// identified by their backing array, which changes whenever the controller
// publishes a new image.
type previewCache struct {
	data  []byte
	cols  int
	rows  int
	ascii bool
	out   string
}

func (c *previewCache) render(data []byte, cols, rows int, ascii bool) string {
	if c.out != "" && c.cols == cols && c.rows == rows && c.ascii == ascii &&
		len(c.data) == len(data) && len(data) > 0 && &c.data[0] == &data[0] {
		return c.out
	}
	c.data, c.cols, c.rows, c.ascii = data, cols, rows, ascii
	c.out = imageview.RenderBytes(data, cols, rows, ascii)
	return c.out
}

type menuItem struct {
	ID    string
	Label string
}

type Root struct {
	theme        Theme
	ascii        bool
	ctrl         Controller
	styleVariant string
	motionLevel  string
	mouseScope   string

	mu      sync.Mutex
	program *tea.Program
	running bool

	screen Screen
	layout LayoutMode
	cols   int
	rows   int

	landing     LandingState
	levelRows   []LevelRow
	gameplay    GameplayState
	reflection  ReflectionState
	statusFlash string

	infoTitle string
	infoText  string
	infoOpen  bool
	resetOpen bool

	menuIndex       int
	levelIndex      int
	reflectionIndex int
	resetIndex      int

	// reflectionButtonsAt is the screen row of the first reflection button,
	// captured during render for mouse hit testing.
	reflectionButtonsAt int

	input     textinput.Model
	help      help.Model
	keymap    gameKeyMap
	mastery   progress.Model
	matchBar  progress.Model
	spin      spinner.Model
	logger    *clog.Logger
	scorePos  float64
	scoreVel  float64
	spring    harmonica.Spring
	animating bool

	markdown *glamour.TermRenderer
	mdWidth  int
	mdCache  map[string][]string

	refPreview  previewCache
	userPreview previewCache

	lastInputEvent string
}

type Options struct {
	ASCIIOnly    bool
	StyleVariant string
	MotionLevel  string
	MouseScope   string
	Logger       *clog.Logger
}

func New(opts Options) *Root {
	logger := opts.Logger
	if logger == nil {
		logger = clog.New(io.Discard)
	}

	h := help.New()
	h.Styles = help.DefaultDarkStyles()
	motionLevel := normalizeMotionLevel(opts.MotionLevel)
	styleVariant := normalizeStyleVariant(opts.StyleVariant)
	spring := harmonica.NewSpring(harmonica.FPS(60), 6.0, 0.7)
	if motionLevel == "reduced" {
		spring = harmonica.NewSpring(harmonica.FPS(30), 9.0, 0.95)
	}

	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "Describe the target image..."
	input.CharLimit = 400
	input.Focus()

	r := &Root{
		ascii:        opts.ASCIIOnly,
		styleVariant: styleVariant,
		motionLevel:  motionLevel,
		mouseScope:   normalizeMouseScope(opts.MouseScope),
		screen:       ScreenLanding,
		layout:       LayoutWide,
		cols:         120,
		rows:         30,
		input:        input,
		help:         h,
		logger:       logger,
		spring:       spring,
		mdCache:      map[string][]string{},
		spin:         spinner.New(spinner.WithSpinner(spinner.MiniDot)),
	}
	if r.ascii {
		r.spin.Spinner = spinner.Line
	}
	r.applyTheme(styleVariant)
	r.keymap = gameKeyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "Up")),
		Down:     key.NewBinding(key.WithKeys("down", "j", "tab"), key.WithHelp("↓/j", "Down")),
		Select:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("Enter", "Select")),
		Submit:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("Enter", "Generate")),
		Finish:   key.NewBinding(key.WithKeys("ctrl+f"), key.WithHelp("Ctrl+F", "Finish")),
		Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("Esc", "Back")),
		Home:     key.NewBinding(key.WithKeys("f10"), key.WithHelp("F10", "Home")),
		Copy:     key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("Ctrl+Y", "Copy prompt")),
		Export:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "Export PDF")),
		Reset:    key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("Ctrl+R", "Reset")),
		Stats:    key.NewBinding(key.WithKeys("f2"), key.WithHelp("F2", "Stats")),
		Settings: key.NewBinding(key.WithKeys("f3"), key.WithHelp("F3", "Settings")),
		Style:    key.NewBinding(key.WithKeys("f4"), key.WithHelp("F4", "Style")),
		Quit:     key.NewBinding(key.WithKeys("ctrl+q", "ctrl+c"), key.WithHelp("Ctrl+Q", "Quit")),
	}
	return r
}

func (r *Root) applyTheme(variant string) {
	r.styleVariant = normalizeStyleVariant(variant)
	r.theme = ThemeForVariant(r.styleVariant)
	r.mastery = progress.New(
		progress.WithWidth(24),
		progress.WithColors(lipgloss.Color(r.theme.MasteryStart), lipgloss.Color(r.theme.ScoreHigh)),
		progress.WithScaled(true),
		progress.WithoutPercentage(),
	)
	r.matchBar = progress.New(
		progress.WithWidth(30),
		progress.WithColors(lipgloss.Color(r.theme.ScoreLow), lipgloss.Color(r.theme.ScoreHigh)),
		progress.WithoutPercentage(),
	)
	r.spin.Style = r.theme.Accent
}

func (r *Root) Init() tea.Cmd {
	return tea.Batch(spinnerTickCmd(r.spin), r.input.Focus())
}

func (r *Root) Update(msg tea.Msg) (model tea.Model, cmd tea.Cmd) {
	defer func() {
		if rec := recover(); rec != nil {
			r.onModelPanic("update", rec, msg)
			model = r
			cmd = nil
		}
	}()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		r.cols = msg.Width
		r.rows = msg.Height
		r.layout = DetermineLayoutMode(r.cols, r.rows)
		return r, nil
	case applyMsg:
		if msg.fn != nil {
			msg.fn(r)
		}
		return r, r.animateIfNeeded()
	case animateMsg:
		target := r.scoreTarget()
		r.scorePos, r.scoreVel = r.spring.Update(r.scorePos, r.scoreVel, target)
		if r.shouldAnimate(target) {
			return r, animateTickCmd()
		}
		r.scorePos, r.scoreVel = target, 0
		r.animating = false
		return r, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		r.spin, cmd = r.spin.Update(msg)
		return r, cmd
	case tea.PasteMsg:
		return r.handlePaste(msg)
	case tea.MouseClickMsg:
		return r.handleMouseClick(msg)
	case tea.KeyPressMsg:
		return r.handleKey(msg)
	}
	if r.screen == ScreenGameplay {
		var cmd tea.Cmd
		r.input, cmd = r.input.Update(msg)
		return r, cmd
	}
	return r, nil
}

func (r *Root) View() (view tea.View) {
	defer func() {
		if rec := recover(); rec != nil {
			r.onModelPanic("view", rec, nil)
			width := max(1, r.cols)
			if r.statusFlash == "" {
				r.statusFlash = "Recovered UI panic"
			}
			view = tea.NewView(r.theme.Fail.Width(width).Render(trimForWidth("UI recovered from a rendering panic. Check logs.", max(1, width-1))))
		}
	}()

	if r.cols < 1 {
		r.cols = 120
	}
	if r.rows < 1 {
		r.rows = 30
	}

	var base string
	switch {
	case r.layout == LayoutTooSmall:
		base = r.renderTooSmall()
	case r.screen == ScreenLevelSelect:
		base = r.renderLevelSelect()
	case r.screen == ScreenGameplay:
		base = r.renderGameplay()
	case r.screen == ScreenReflection:
		base = r.renderReflection()
	default:
		base = r.renderLanding()
	}

	if overlay := r.renderOverlay(); overlay != "" {
		base = composeOverlay(base, overlay, r.cols, r.rows)
	}
	v := tea.NewView(base)
	v.AltScreen = true
	v.MouseMode = r.currentMouseMode()
	return v
}

func (r *Root) Run() error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	p := tea.NewProgram(r)
	r.program = p
	r.running = true
	r.mu.Unlock()

	_, err := p.Run()

	r.mu.Lock()
	r.program = nil
	r.running = false
	r.mu.Unlock()
	return err
}

func (r *Root) Stop() {
	r.mu.Lock()
	p := r.program
	r.mu.Unlock()
	if p != nil {
		p.Quit()
	}
}

func (r *Root) SetController(c Controller) {
	r.ctrl = c
}

func (r *Root) SetScreen(screen Screen) {
	r.apply(func(m *Root) {
		if m.screen != screen {
			m.statusFlash = ""
		}
		m.screen = screen
		if screen == ScreenReflection {
			m.reflectionIndex = 0
		}
	})
}

func (r *Root) SetLanding(state LandingState) {
	r.apply(func(m *Root) {
		m.landing = state
		m.menuIndex = wrapIndex(m.menuIndex, len(m.menuItems()))
	})
}

func (r *Root) SetLevels(rows []LevelRow) {
	r.apply(func(m *Root) {
		m.levelRows = append([]LevelRow(nil), rows...)
		m.levelIndex = wrapIndex(m.levelIndex, len(m.levelRows))
		// Land on the highest unlocked level by default.
		if m.levelIndex == 0 {
			for i, row := range m.levelRows {
				if !row.Locked {
					m.levelIndex = i
				}
			}
		}
	})
}

func (r *Root) SetGameplay(state GameplayState) {
	r.apply(func(m *Root) {
		if state.SessionID != m.gameplay.SessionID {
			m.input.SetValue("")
			m.scorePos, m.scoreVel = 0, 0
		}
		m.gameplay = state
		if m.motionLevel == "off" {
			m.scorePos = m.scoreTarget()
		}
	})
}

func (r *Root) SetReflection(state ReflectionState) {
	r.apply(func(m *Root) {
		m.reflection = state
	})
}

func (r *Root) SetStyleVariant(variant string) {
	r.apply(func(m *Root) {
		m.applyTheme(variant)
		m.mdCache = map[string][]string{}
		m.markdown = nil
	})
}

func (r *Root) SetResetConfirmOpen(open bool) {
	r.apply(func(m *Root) {
		m.resetOpen = open
		m.resetIndex = 0
	})
}

func (r *Root) SetInfo(title, text string, open bool) {
	r.apply(func(m *Root) {
		m.infoTitle = title
		m.infoText = text
		m.infoOpen = open
	})
}

func (r *Root) FlashStatus(msg string) {
	r.apply(func(m *Root) {
		m.statusFlash = msg
	})
}

func (r *Root) apply(fn func(*Root)) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	p := r.program
	running := r.running
	if !running || p == nil {
		fn(r)
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	p.Send(applyMsg{fn: fn})
}

func (r *Root) dispatchController(fn func(Controller)) {
	if fn == nil || r.ctrl == nil {
		return
	}
	ctrl := r.ctrl
	go fn(ctrl)
}

func (r *Root) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	r.recordInputEvent(fmt.Sprintf("key:%s", msg.String()))

	if key.Matches(msg, r.keymap.Quit) {
		r.dispatchController(func(c Controller) { c.OnQuit() })
		return r, nil
	}
	if r.overlayActive() {
		return r.handleOverlayKey(msg)
	}

	switch {
	case key.Matches(msg, r.keymap.Reset):
		r.resetOpen = true
		r.resetIndex = 0
		return r, nil
	case key.Matches(msg, r.keymap.Stats):
		r.dispatchController(func(c Controller) { c.OnOpenStats() })
		return r, nil
	case key.Matches(msg, r.keymap.Settings):
		r.dispatchController(func(c Controller) { c.OnOpenSettings() })
		return r, nil
	case key.Matches(msg, r.keymap.Style):
		r.dispatchController(func(c Controller) { c.OnCycleStyle() })
		return r, nil
	case key.Matches(msg, r.keymap.Home):
		r.dispatchController(func(c Controller) { c.OnHome() })
		return r, nil
	}

	switch r.screen {
	case ScreenLevelSelect:
		return r.handleLevelSelectKey(msg)
	case ScreenGameplay:
		return r.handleGameplayKey(msg)
	case ScreenReflection:
		return r.handleReflectionKey(msg)
	default:
		return r.handleLandingKey(msg)
	}
}

func (r *Root) handlePaste(msg tea.PasteMsg) (tea.Model, tea.Cmd) {
	r.recordInputEvent(fmt.Sprintf("paste:%d", len(msg.Content)))
	if r.screen != ScreenGameplay || r.overlayActive() || msg.Content == "" {
		return r, nil
	}
	var cmd tea.Cmd
	r.input, cmd = r.input.Update(msg)
	return r, cmd
}

func (r *Root) handleMouseClick(msg tea.MouseClickMsg) (tea.Model, tea.Cmd) {
	m := msg.Mouse()
	r.recordInputEvent(fmt.Sprintf("mouse_click:%d,%d button:%v", m.X, m.Y, m.Button))

	if r.mouseScope == "off" || m.Button != tea.MouseLeft {
		return r, nil
	}
	if r.overlayActive() {
		return r.handleOverlayMouseClick(m.X, m.Y)
	}
	// The header doubles as the home button.
	if m.Y == 0 && r.screen != ScreenLanding {
		r.dispatchController(func(c Controller) { c.OnHome() })
		return r, nil
	}
	switch r.screen {
	case ScreenLanding:
		return r.handleLandingMouseClick(m.X, m.Y)
	case ScreenLevelSelect:
		return r.handleLevelSelectMouseClick(m.X, m.Y)
	case ScreenReflection:
		return r.handleReflectionMouseClick(m.X, m.Y)
	}
	return r, nil
}

func (r *Root) handleLandingMouseClick(x, y int) (tea.Model, tea.Cmd) {
	items := r.menuItems()
	if x < 1 || x >= r.landingMenuWidth()-1 {
		return r, nil
	}
	idx := y - 2
	if idx < 0 || idx >= len(items) {
		return r, nil
	}
	r.menuIndex = idx
	r.activateMenuItem(items[idx])
	return r, nil
}

func (r *Root) handleLevelSelectMouseClick(x, y int) (tea.Model, tea.Cmd) {
	if x < 1 || x >= r.levelListWidth()-1 {
		return r, nil
	}
	idx := y - 2
	if idx < 0 || idx >= len(r.levelRows) {
		return r, nil
	}
	if r.levelIndex == idx {
		r.startSelectedLevel()
		return r, nil
	}
	r.levelIndex = idx
	return r, nil
}

func (r *Root) handleReflectionMouseClick(x, y int) (tea.Model, tea.Cmd) {
	if x < r.cols/2 || r.reflectionButtonsAt <= 0 {
		return r, nil
	}
	idx := y - r.reflectionButtonsAt
	buttons := reflectionButtons()
	if idx < 0 || idx >= len(buttons) {
		return r, nil
	}
	r.reflectionIndex = idx
	r.activateReflectionButton(buttons[idx])
	return r, nil
}

func (r *Root) handleOverlayMouseClick(x, y int) (tea.Model, tea.Cmd) {
	top := r.topOverlay()
	box, ok := r.overlayLayout(top)
	if !ok {
		return r, nil
	}
	if x < box.startCol+1 || x >= box.startCol+box.width-1 || y < box.startRow+1 || y >= box.startRow+box.height-1 {
		r.closeTopOverlay()
		return r, nil
	}
	contentRow := y - (box.startRow + 1)
	switch top {
	case "reset":
		row := contentRow - box.actionsAt
		if row >= 0 && row <= 1 {
			r.resetIndex = row
			r.confirmReset()
		}
	case "info":
		r.closeTopOverlay()
	}
	return r, nil
}

func (r *Root) handleOverlayKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, r.keymap.Copy) && r.topOverlay() == "info" {
		return r, r.copyText(strings.TrimSpace(r.infoTitle+"\n\n"+r.infoText), "Copied info")
	}
	if msg.Code == tea.KeyEsc || msg.Code == tea.KeyEscape ||
		(msg.Mod == 0 && (msg.Code == 'q' || msg.Code == 'Q')) {
		r.closeTopOverlay()
		return r, nil
	}

	switch r.topOverlay() {
	case "reset":
		switch msg.Code {
		case tea.KeyLeft, tea.KeyUp:
			r.resetIndex = 0
		case tea.KeyRight, tea.KeyDown, tea.KeyTab:
			r.resetIndex = 1
		case tea.KeyEnter:
			r.confirmReset()
		}
	case "info":
		if msg.Code == tea.KeyEnter {
			r.closeTopOverlay()
		}
	}
	return r, nil
}

func (r *Root) confirmReset() {
	r.resetOpen = false
	if r.resetIndex == 1 {
		r.dispatchController(func(c Controller) { c.OnReset() })
	}
}

func (r *Root) handleLandingKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	items := r.menuItems()
	switch {
	case key.Matches(msg, r.keymap.Up):
		r.menuIndex = wrapIndex(r.menuIndex-1, len(items))
	case key.Matches(msg, r.keymap.Down):
		r.menuIndex = wrapIndex(r.menuIndex+1, len(items))
	case key.Matches(msg, r.keymap.Select):
		r.activateMenuItem(items[r.menuIndex])
	case msg.Mod == 0 && msg.Code == 'q':
		r.dispatchController(func(c Controller) { c.OnQuit() })
	}
	return r, nil
}

func (r *Root) handleLevelSelectKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, r.keymap.Back):
		r.dispatchController(func(c Controller) { c.OnBack() })
	case key.Matches(msg, r.keymap.Up):
		r.levelIndex = wrapIndex(r.levelIndex-1, len(r.levelRows))
	case key.Matches(msg, r.keymap.Down):
		r.levelIndex = wrapIndex(r.levelIndex+1, len(r.levelRows))
	case key.Matches(msg, r.keymap.Select):
		r.startSelectedLevel()
	case msg.Mod == 0 && msg.Code >= '1' && msg.Code <= '9':
		idx := int(msg.Code - '1')
		if idx < len(r.levelRows) {
			r.levelIndex = idx
			r.startSelectedLevel()
		}
	}
	return r, nil
}

func (r *Root) handleGameplayKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, r.keymap.Back):
		r.dispatchController(func(c Controller) { c.OnBack() })
		return r, nil
	case key.Matches(msg, r.keymap.Submit):
		text := strings.TrimSpace(r.input.Value())
		if text == "" {
			r.statusFlash = "Type a description first"
			return r, nil
		}
		if !r.gameplay.AcceptingInput {
			return r, nil
		}
		r.dispatchController(func(c Controller) { c.OnSubmitPrompt(text) })
		return r, nil
	case key.Matches(msg, r.keymap.Finish):
		if !r.gameplay.CanFinish {
			r.statusFlash = fmt.Sprintf("Reach %d%% to finish this level", r.threshold())
			return r, nil
		}
		r.dispatchController(func(c Controller) { c.OnFinishLevel() })
		return r, nil
	case key.Matches(msg, r.keymap.Copy):
		text := strings.TrimSpace(r.input.Value())
		if text == "" {
			text = r.gameplay.LastPrompt
		}
		return r, r.copyText(text, "Prompt copied")
	}
	var cmd tea.Cmd
	r.input, cmd = r.input.Update(msg)
	return r, cmd
}

func (r *Root) handleReflectionKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	buttons := reflectionButtons()
	switch {
	case key.Matches(msg, r.keymap.Back):
		r.dispatchController(func(c Controller) { c.OnHome() })
	case key.Matches(msg, r.keymap.Export):
		r.dispatchController(func(c Controller) { c.OnExportReport() })
	case key.Matches(msg, r.keymap.Up):
		r.reflectionIndex = wrapIndex(r.reflectionIndex-1, len(buttons))
	case key.Matches(msg, r.keymap.Down):
		r.reflectionIndex = wrapIndex(r.reflectionIndex+1, len(buttons))
	case key.Matches(msg, r.keymap.Select):
		r.activateReflectionButton(buttons[r.reflectionIndex])
	}
	return r, nil
}

// copyText writes to the system clipboard and falls back to OSC 52 when no
// clipboard utility is available.
func (r *Root) copyText(text, flash string) tea.Cmd {
	if strings.TrimSpace(text) == "" {
		r.statusFlash = "Nothing to copy"
		return nil
	}
	r.statusFlash = flash
	if err := clipboard.WriteAll(text); err == nil {
		return nil
	}
	return tea.SetClipboard(text)
}

func (r *Root) menuItems() []menuItem {
	start := "Start Game"
	if r.landing.HasProgress {
		start = "Continue"
	}
	return []menuItem{
		{ID: "start", Label: start},
		{ID: "stats", Label: "Stats"},
		{ID: "settings", Label: "Settings"},
		{ID: "style", Label: "Change Style"},
		{ID: "reset", Label: "Reset Progress"},
		{ID: "quit", Label: "Quit"},
	}
}

func (r *Root) activateMenuItem(item menuItem) {
	switch item.ID {
	case "start":
		r.dispatchController(func(c Controller) { c.OnStart() })
	case "stats":
		r.dispatchController(func(c Controller) { c.OnOpenStats() })
	case "settings":
		r.dispatchController(func(c Controller) { c.OnOpenSettings() })
	case "style":
		r.dispatchController(func(c Controller) { c.OnCycleStyle() })
	case "reset":
		r.resetOpen = true
		r.resetIndex = 0
	case "quit":
		r.dispatchController(func(c Controller) { c.OnQuit() })
	}
}

func (r *Root) startSelectedLevel() {
	if len(r.levelRows) == 0 {
		return
	}
	row := r.levelRows[wrapIndex(r.levelIndex, len(r.levelRows))]
	if row.Locked {
		r.statusFlash = fmt.Sprintf("Level %d is locked. Finish level %d first.", row.ID, row.ID-1)
		return
	}
	id := row.ID
	r.dispatchController(func(c Controller) { c.OnSelectLevel(id) })
}

func reflectionButtons() []string {
	return []string{"Play Again", "Export PDF Report", "Home"}
}

func (r *Root) activateReflectionButton(label string) {
	switch label {
	case "Play Again":
		r.dispatchController(func(c Controller) { c.OnRestart() })
	case "Export PDF Report":
		r.dispatchController(func(c Controller) { c.OnExportReport() })
	default:
		r.dispatchController(func(c Controller) { c.OnHome() })
	}
}

func (r *Root) headerLine(left, right string) string {
	w := max(1, r.cols)
	logo := appTitle
	if r.screen != ScreenLanding {
		logo = "◆ " + appTitle
		if r.ascii {
			logo = "* " + appTitle
		}
	}
	text := logo
	if left != "" {
		text += "  |  " + left
	}
	if right != "" {
		gap := w - 2 - ansi.StringWidth(text) - ansi.StringWidth(right)
		if gap >= 2 {
			text += strings.Repeat(" ", gap) + right
		}
	}
	return r.theme.Header.Width(w).Render(trimForWidth(text, max(1, w-2)))
}

func (r *Root) statusLine() string {
	w := max(1, r.cols)
	text := r.help.View(r.keymap.forScreen(r.screen))
	if r.statusFlash != "" {
		text = r.statusFlash + "  ·  " + ansi.Strip(text)
	}
	return r.theme.Status.Width(w).Render(ansi.Truncate(text, max(1, w-2), "…"))
}

func (r *Root) renderTooSmall() string {
	msg := fmt.Sprintf("Terminal too small: need at least %dx%d, have %dx%d.", minCols, minRows, r.cols, r.rows)
	return lipgloss.Place(max(1, r.cols), max(1, r.rows), lipgloss.Center, lipgloss.Center, r.theme.Fail.Render(trimForWidth(msg, max(1, r.cols))))
}

func (r *Root) landingMenuWidth() int {
	return min(36, max(24, r.cols/3))
}

func (r *Root) renderLanding() string {
	w, h := r.cols, r.rows
	bodyH := max(8, h-2)

	items := r.menuItems()
	menuLines := make([]string, len(items))
	for i, item := range items {
		prefix := "  "
		if i == r.menuIndex {
			prefix = "> "
		}
		menuLines[i] = prefix + item.Label
	}
	left := r.drawPanel("Menu", menuLines, r.landingMenuWidth(), bodyH)

	rightW := max(20, w-lipgloss.Width(left))
	innerW := rightW - 4
	lines := []string{
		"",
		r.theme.Accent.Render(appTitle),
		"",
	}
	intro := "Look at the target image, describe it in words, and let the AI paint your prompt. " +
		"Reach a 70% match to unlock the next level. Five levels take you from simple objects to cinematic scenes."
	lines = append(lines, indent(wrapLines(intro, innerW), 1)...)
	lines = append(lines, "")

	l := r.landing
	if l.LevelCount > 0 {
		ratio := float64(l.Completed) / float64(l.LevelCount)
		bar := r.mastery
		bar.SetWidth(max(8, min(40, innerW-18)))
		lines = append(lines,
			" "+r.theme.PanelTitle.Render("Journey"),
			fmt.Sprintf(" %s  %d/%d levels", bar.ViewAs(ratio), l.Completed, l.LevelCount),
			fmt.Sprintf(" Unlocked up to level %d", max(1, l.Unlocked)),
			"",
		)
	}
	if l.Tip != "" {
		lines = append(lines, " "+r.theme.PanelTitle.Render("Tip"))
		lines = append(lines, indent(wrapLines(l.Tip, innerW), 1)...)
	}
	right := r.drawPanel("Welcome", lines, rightW, bodyH)

	header := r.headerLine("", "")
	return header + "\n" + lipgloss.JoinHorizontal(lipgloss.Top, left, right) + "\n" + r.statusLine()
}

func (r *Root) levelListWidth() int {
	return min(48, max(36, r.cols/3))
}

func (r *Root) renderLevelSelect() string {
	w, h := r.cols, r.rows
	bodyH := max(8, h-2)
	listW := r.levelListWidth()
	innerW := listW - 2

	check, lock := "✓", "locked"
	if r.ascii {
		check = "ok"
	}
	lines := make([]string, 0, len(r.levelRows))
	for i, row := range r.levelRows {
		prefix := "  "
		if i == r.levelIndex {
			prefix = "> "
		}
		badge := ""
		switch {
		case row.Locked:
			badge = r.theme.Muted.Render(lock)
		case row.HasScore:
			badge = r.theme.Pass.Render(fmt.Sprintf("%s %3d%%", check, row.Score))
		case row.Completed:
			badge = r.theme.Pass.Render(check)
		default:
			badge = r.theme.Pending.Render("new")
		}
		label := fmt.Sprintf("%s%d. %s", prefix, row.ID, row.Title)
		labelW := max(4, innerW-10-ansi.StringWidth(badge))
		line := padCells(label, labelW) + padCells(row.Difficulty, 10) + badge
		if row.Locked {
			line = r.theme.Muted.Render(ansi.Strip(line))
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		lines = []string{"No levels loaded."}
	}
	left := r.drawPanel("Levels", lines, listW, bodyH)

	detailW := max(20, w-listW)
	var detail []string
	if len(r.levelRows) > 0 {
		row := r.levelRows[wrapIndex(r.levelIndex, len(r.levelRows))]
		detail = r.renderMarkdown(levelMarkdown(row), max(10, detailW-4))
		if row.Locked {
			detail = append(detail, "", " "+r.theme.Fail.Render(fmt.Sprintf("Finish level %d to unlock.", row.ID-1)))
		} else {
			detail = append(detail, "", " "+r.theme.Accent.Render("Press Enter to play"))
		}
	}
	right := r.drawPanel("Details", detail, detailW, bodyH)

	header := r.headerLine("Choose a Level", "")
	return header + "\n" + lipgloss.JoinHorizontal(lipgloss.Top, left, right) + "\n" + r.statusLine()
}

func levelMarkdown(row LevelRow) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %d. %s\n\n", row.ID, row.Title)
	fmt.Fprintf(&b, "*%s · %s*\n\n", row.Category, row.Difficulty)
	if row.Focus != "" {
		fmt.Fprintf(&b, "**Focus:** %s\n\n", row.Focus)
	}
	if row.LearningGoal != "" {
		fmt.Fprintf(&b, "**Goal:** %s\n\n", row.LearningGoal)
	}
	if len(row.Tips) > 0 {
		b.WriteString("**Tips**\n\n")
		for _, tip := range row.Tips {
			fmt.Fprintf(&b, "- %s\n", tip)
		}
	}
	if row.HasScore {
		fmt.Fprintf(&b, "\nBest so far: **%d%%**\n", row.Score)
	}
	return b.String()
}

func (r *Root) threshold() int {
	if r.gameplay.Threshold > 0 {
		return r.gameplay.Threshold
	}
	return 70
}

func (r *Root) renderGameplay() string {
	w, h := r.cols, r.rows
	g := r.gameplay

	lessonW := 0
	if r.layout == LayoutWide {
		lessonW = min(40, max(30, w/4))
	}
	lower := r.promptPanelLines(w - 4)
	lowerH := len(lower) + 2
	topH := max(6, h-2-lowerH)

	imagesW := w - lessonW
	leftW := imagesW / 2
	rightW := imagesW - leftW

	refCaption := "Describe this image"
	var refBody []string
	innerH := topH - 3
	switch {
	case len(g.Reference) > 0:
		cols, rows := imageBox(leftW-2, innerH)
		refBody = strings.Split(r.refPreview.render(g.Reference, cols, rows, r.ascii), "\n")
	case g.Status == GameplayError:
		cols, rows := imageBox(leftW-2, innerH)
		refBody = strings.Split(imageview.Placeholder(cols, rows, "no image"), "\n")
		refCaption = "Press Esc and try again"
	default:
		cols, rows := imageBox(leftW-2, innerH)
		refBody = strings.Split(imageview.Placeholder(cols, rows, r.spin.View()+" loading"), "\n")
		refCaption = "Loading level content..."
	}
	userCaption := "Your image appears here"
	var userBody []string
	cols, rows := imageBox(rightW-2, innerH)
	switch {
	case g.Status == GameplayGenerating:
		userBody = strings.Split(imageview.Placeholder(cols, rows, r.spin.View()+" painting"), "\n")
		userCaption = "Generating..."
	case len(g.UserImage) > 0:
		userBody = strings.Split(r.userPreview.render(g.UserImage, cols, rows, r.ascii), "\n")
		userCaption = trimForWidth("“"+g.LastPrompt+"”", rightW-4)
	default:
		userBody = strings.Split(imageview.Placeholder(cols, rows, "?"), "\n")
	}

	refPanel := r.drawPanel("Target Image", r.imagePanelLines(refBody, refCaption, leftW-2, topH-2), leftW, topH)
	userPanel := r.drawPanel("Your Creation", r.imagePanelLines(userBody, userCaption, rightW-2, topH-2), rightW, topH)
	top := lipgloss.JoinHorizontal(lipgloss.Top, refPanel, userPanel)
	if lessonW > 0 {
		top = lipgloss.JoinHorizontal(lipgloss.Top, top, r.drawPanel("Lesson", r.lessonLines(lessonW-4), lessonW, topH))
	}
	bottom := r.drawPanel("Prompt", lower, w, lowerH)

	left := fmt.Sprintf("Level %d/%d: %s", g.LevelID, max(g.LevelCount, g.LevelID), g.Title)
	right := g.Category + " · " + g.Difficulty
	return r.headerLine(left, right) + "\n" + top + "\n" + bottom + "\n" + r.statusLine()
}

func (r *Root) imagePanelLines(body []string, caption string, innerW, innerH int) []string {
	out := make([]string, 0, innerH)
	for _, line := range body {
		if len(out) >= innerH-1 {
			break
		}
		out = append(out, lipgloss.PlaceHorizontal(innerW, lipgloss.Center, line))
	}
	for len(out) < innerH-1 {
		out = append(out, "")
	}
	return append(out, lipgloss.PlaceHorizontal(innerW, lipgloss.Center, r.theme.Muted.Render(trimForWidth(caption, innerW))))
}

func (r *Root) lessonLines(width int) []string {
	g := r.gameplay
	lines := []string{" " + r.theme.PanelTitle.Render("Focus")}
	lines = append(lines, indent(wrapLines(g.Focus, width), 1)...)
	lines = append(lines, "", " "+r.theme.PanelTitle.Render("Goal"))
	lines = append(lines, indent(wrapLines(g.LearningGoal, width), 1)...)
	if len(g.Tips) > 0 {
		lines = append(lines, "", " "+r.theme.PanelTitle.Render("Tips"))
		bullet := "• "
		if r.ascii {
			bullet = "- "
		}
		for _, tip := range g.Tips {
			lines = append(lines, indent(wrapLines(bullet+tip, width), 1)...)
		}
	}
	return lines
}

func (r *Root) promptPanelLines(width int) []string {
	g := r.gameplay
	var lines []string
	if r.layout != LayoutWide {
		if g.LearningGoal != "" {
			lines = append(lines, wrapLines("Goal: "+g.LearningGoal, width)...)
		}
		if len(g.Tips) > 0 {
			lines = append(lines, r.theme.Muted.Render(trimForWidth("Tips: "+strings.Join(g.Tips, " · "), width)))
		}
	}

	bar := r.matchBar
	bar.SetWidth(max(10, min(50, width-24)))
	label := r.theme.Muted.Render(" --")
	if g.HasScore {
		label = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(r.theme.scoreColor(g.Score))).
			Render(fmt.Sprintf("%3d%%", g.Score))
	}
	lines = append(lines, "Match  "+bar.ViewAs(r.scorePos)+"  "+label)

	threshold := r.threshold()
	switch {
	case g.Status == GameplayGenerating:
		lines = append(lines, r.spin.View()+" Painting your prompt and scoring the match...")
	case g.Status == GameplayLoading:
		lines = append(lines, r.spin.View()+" Loading level content...")
	case g.Status == GameplayError && g.ErrorMessage != "":
		lines = append(lines, r.theme.Fail.Render(trimForWidth(g.ErrorMessage, width)))
	case g.HasScore && g.CanFinish:
		lines = append(lines, r.theme.Pass.Render("Great match! Press Ctrl+F to finish the level."))
	case g.HasScore:
		lines = append(lines, r.theme.Pending.Render(fmt.Sprintf("Try to get at least %d%% match to progress!", threshold)))
	case g.CanFinish:
		lines = append(lines, r.theme.Pass.Render("Your earlier match still counts. Press Ctrl+F to finish."))
	default:
		lines = append(lines, r.theme.Muted.Render("Describe the target image, then press Enter."))
	}
	if g.Attempts > 0 {
		lines[len(lines)-1] += r.theme.Muted.Render(fmt.Sprintf("  (attempt %d)", g.Attempts))
	}

	r.input.SetWidth(max(10, width-4))
	lines = append(lines, "", r.input.View())
	return lines
}

func (r *Root) renderReflection() string {
	w, h := r.cols, r.rows
	bodyH := max(8, h-2)
	leftW := w / 2
	rightW := w - leftW
	s := r.reflection

	lines := []string{
		"",
		" " + r.theme.Muted.Render("FINAL ACCURACY SCORE"),
		" " + lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(r.theme.scoreColor(s.Accuracy))).Render(fmt.Sprintf("%d%%", s.Accuracy)),
		"",
	}
	barW := max(6, leftW-34)
	fill, empty := "█", "░"
	if r.ascii {
		fill, empty = "#", "."
	}
	for _, row := range s.Rows {
		label := padCells(fmt.Sprintf(" %d. %s", row.ID, row.Title), 22)
		if !row.Played {
			lines = append(lines, label+r.theme.Muted.Render("not played"))
			continue
		}
		n := barW * row.Score / 100
		bar := lipgloss.NewStyle().Foreground(lipgloss.Color(r.theme.scoreColor(row.Score))).Render(strings.Repeat(fill, n)) +
			r.theme.Muted.Render(strings.Repeat(empty, barW-n))
		lines = append(lines, label+bar+fmt.Sprintf(" %3d%%", row.Score))
	}
	left := r.drawPanel("Journey Complete", lines, leftW, bodyH)

	note := r.renderMarkdown(s.NoteMD, max(10, rightW-4))
	right := append([]string{}, note...)
	right = append(right, "")
	// header row, top border, then panel content.
	r.reflectionButtonsAt = 2 + len(right)
	for i, b := range reflectionButtons() {
		prefix := "  "
		if i == r.reflectionIndex {
			prefix = "> "
		}
		right = append(right, prefix+b)
	}
	if s.ReportPath != "" {
		right = append(right, "", r.theme.Info.Render(trimForWidth(" Saved "+s.ReportPath, rightW-4)))
	}
	rightPanel := r.drawPanel("Teacher's Note", right, rightW, bodyH)

	return r.headerLine("Reflection", "") + "\n" + lipgloss.JoinHorizontal(lipgloss.Top, left, rightPanel) + "\n" + r.statusLine()
}

// renderMarkdown renders md with glamour at the given wrap width and caches
// the split lines.
func (r *Root) renderMarkdown(md string, width int) []string {
	if strings.TrimSpace(md) == "" {
		return nil
	}
	cacheKey := fmt.Sprintf("%d\x00%s", width, md)
	if lines, ok := r.mdCache[cacheKey]; ok {
		return lines
	}
	if r.markdown == nil || r.mdWidth != width {
		style := "dark"
		if r.ascii {
			style = "ascii"
		}
		renderer, err := glamour.NewTermRenderer(glamour.WithStandardStyle(style), glamour.WithWordWrap(width))
		if err != nil {
			r.logger.Warn("markdown renderer unavailable", "err", err)
			renderer = nil
		}
		r.markdown, r.mdWidth = renderer, width
	}
	var lines []string
	if r.markdown != nil {
		if out, err := r.markdown.Render(md); err == nil {
			lines = strings.Split(strings.Trim(out, "\n"), "\n")
		}
	}
	if lines == nil {
		lines = wrapLines(md, width)
	}
	if len(r.mdCache) > 32 {
		r.mdCache = map[string][]string{}
	}
	r.mdCache[cacheKey] = lines
	return lines
}

func (r *Root) renderOverlay() string {
	box, ok := r.overlayLayout(r.topOverlay())
	if !ok {
		return ""
	}
	return r.drawPanel(box.title, box.lines, box.width, box.height)
}

type overlayBox struct {
	title     string
	lines     []string
	width     int
	height    int
	startRow  int
	startCol  int
	actionsAt int
}

func (r *Root) overlayLayout(top string) (overlayBox, bool) {
	if top == "" {
		return overlayBox{}, false
	}
	w := min(max(48, r.cols*2/3), r.cols)
	h := min(max(8, r.rows/3), max(8, r.rows-4))

	var title string
	var lines []string
	actionsAt := 0
	switch top {
	case "reset":
		title = "Reset Progress"
		lines = wrapLines("Reset all progress? Completed levels and scores will be erased and only level 1 stays unlocked.", w-4)
		lines = append(lines, "")
		actionsAt = len(lines)
		for i, label := range []string{"Cancel", "Reset"} {
			prefix := "  "
			if i == r.resetIndex {
				prefix = "> "
			}
			lines = append(lines, prefix+label)
		}
	case "info":
		title = firstNonEmptyStr(r.infoTitle, "Info")
		for _, para := range strings.Split(strings.TrimSuffix(r.infoText, "\n"), "\n") {
			lines = append(lines, wrapLines(para, w-4)...)
		}
		lines = append(lines, "", r.theme.Muted.Render("Ctrl+Y: Copy  Esc: Close"))
	default:
		return overlayBox{}, false
	}
	needH := len(lines) + 2
	if needH > h {
		h = min(needH, max(8, r.rows-2))
	}
	return overlayBox{
		title:     title,
		lines:     lines,
		width:     w,
		height:    h,
		startRow:  (r.rows - h) / 2,
		startCol:  (r.cols - w) / 2,
		actionsAt: actionsAt,
	}, true
}

func (r *Root) topOverlay() string {
	switch {
	case r.resetOpen:
		return "reset"
	case r.infoOpen:
		return "info"
	}
	return ""
}

func (r *Root) overlayActive() bool {
	return r.topOverlay() != ""
}

func (r *Root) closeTopOverlay() {
	switch r.topOverlay() {
	case "reset":
		r.resetOpen = false
	case "info":
		r.infoOpen = false
		r.infoText = ""
		r.infoTitle = ""
	}
}

func (r *Root) drawPanel(title string, lines []string, width, height int) string {
	width = max(4, width)
	height = max(3, height)
	innerW := width - 2
	innerH := height - 2

	h := "─"
	v := "│"
	tl := "┌"
	tr := "┐"
	bl := "└"
	br := "┘"
	if r.ascii {
		h = "-"
		v = "|"
		tl, tr, bl, br = "+", "+", "+", "+"
	}

	top := r.theme.PanelBorder.Render(tl + strings.Repeat(h, innerW) + tr)
	if title != "" && innerW > 2 {
		t := trimForWidth(" "+title+" ", innerW-1)
		rest := innerW - 1 - ansi.StringWidth(t)
		top = r.theme.PanelBorder.Render(tl+h) + r.theme.PanelTitle.Render(t) +
			r.theme.PanelBorder.Render(strings.Repeat(h, max(0, rest))+tr)
	}

	out := make([]string, 0, height)
	out = append(out, top)
	for row := 0; row < innerH; row++ {
		line := ""
		if row < len(lines) {
			line = lines[row]
		}
		out = append(out, r.theme.PanelBorder.Render(v)+r.theme.PanelBody.Render(padCells(line, innerW))+r.theme.PanelBorder.Render(v))
	}
	out = append(out, r.theme.PanelBorder.Render(bl+strings.Repeat(h, innerW)+br))
	return strings.Join(out, "\n")
}

func (r *Root) scoreTarget() float64 {
	if !r.gameplay.HasScore {
		return 0
	}
	return float64(r.gameplay.Score) / 100
}

func (r *Root) animateIfNeeded() tea.Cmd {
	if r.animating || !r.shouldAnimate(r.scoreTarget()) {
		return nil
	}
	r.animating = true
	return animateTickCmd()
}

func (r *Root) shouldAnimate(target float64) bool {
	if r.motionLevel == "off" {
		return false
	}
	return abs(r.scorePos-target) > 0.001 || abs(r.scoreVel) > 0.001
}

func animateTickCmd() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return animateMsg(t) })
}

func spinnerTickCmd(model spinner.Model) tea.Cmd {
	return func() tea.Msg {
		return model.Tick()
	}
}

func firstNonEmptyStr(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

func wrapIndex(i, n int) int {
	if n <= 0 {
		return 0
	}
	if i < 0 {
		i = n - 1
	}
	if i >= n {
		i = 0
	}
	return i
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func wrapLines(s string, width int) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Split(wordwrap.String(s, max(1, width)), "\n")
}

func indent(lines []string, n int) []string {
	pad := strings.Repeat(" ", n)
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = pad + line
	}
	return out
}

// padCells pads or truncates s to exactly width terminal cells, keeping any
// styling intact.
func padCells(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = strings.ReplaceAll(s, "\t", "    ")
	if ansi.StringWidth(s) > width {
		s = ansi.Truncate(s, width, "")
	}
	if pad := width - ansi.StringWidth(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}

func padRune(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(strings.ReplaceAll(s, "\t", "    "))
	if len(r) > width {
		r = r[:width]
	}
	if len(r) < width {
		r = append(r, []rune(strings.Repeat(" ", width-len(r)))...)
	}
	return string(r)
}

func composeOverlay(base, overlay string, cols, rows int) string {
	if cols <= 0 || rows <= 0 {
		return base
	}
	base = ansi.Strip(base)
	overlay = ansi.Strip(overlay)
	baseLines := strings.Split(base, "\n")
	if len(baseLines) < rows {
		pad := make([]string, rows-len(baseLines))
		baseLines = append(baseLines, pad...)
	}
	for i := 0; i < rows; i++ {
		baseLines[i] = padRune(baseLines[i], cols)
	}

	overlayLines := strings.Split(strings.TrimRight(overlay, "\n"), "\n")
	ow := 1
	for _, line := range overlayLines {
		ow = max(ow, len([]rune(line)))
	}
	ow = min(ow, cols)
	oh := min(len(overlayLines), rows)
	startRow := (rows - oh) / 2
	startCol := max(0, (cols-ow)/2)

	for i := 0; i < oh; i++ {
		row := startRow + i
		if row < 0 || row >= rows {
			continue
		}
		dst := []rune(baseLines[row])
		src := []rune(overlayLines[i])
		if len(src) > ow {
			src = src[:ow]
		}
		for j := 0; j < ow && startCol+j < len(dst); j++ {
			dst[startCol+j] = ' '
		}
		for j := 0; j < len(src) && startCol+j < len(dst); j++ {
			dst[startCol+j] = src[j]
		}
		baseLines[row] = string(dst)
	}
	return strings.Join(baseLines[:rows], "\n")
}

func trimForWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(strings.ReplaceAll(ansi.Strip(s), "\n", " "))
	if len(r) <= width {
		return string(r)
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}

func (r *Root) currentMouseMode() tea.MouseMode {
	switch r.mouseScope {
	case "off":
		return tea.MouseModeNone
	case "full":
		return tea.MouseModeCellMotion
	default:
		// Leave the gameplay screen to the terminal so prompts can be selected.
		if r.screen == ScreenGameplay && !r.overlayActive() {
			return tea.MouseModeNone
		}
		return tea.MouseModeCellMotion
	}
}

func normalizeStyleVariant(v string) string {
	v = strings.TrimSpace(v)
	for _, known := range StyleVariants {
		if v == known {
			return v
		}
	}
	return "modern_arcade"
}

// NextStyleVariant returns the variant after current, wrapping around.
func NextStyleVariant(current string) string {
	current = normalizeStyleVariant(current)
	for i, v := range StyleVariants {
		if v == current {
			return StyleVariants[(i+1)%len(StyleVariants)]
		}
	}
	return StyleVariants[0]
}

func normalizeMotionLevel(v string) string {
	switch strings.TrimSpace(v) {
	case "off", "reduced", "full":
		return strings.TrimSpace(v)
	default:
		return "full"
	}
}

func normalizeMouseScope(v string) string {
	switch strings.TrimSpace(v) {
	case "off", "scoped", "full":
		return strings.TrimSpace(v)
	default:
		return "scoped"
	}
}

func (r *Root) recordInputEvent(event string) {
	r.lastInputEvent = trimForWidth(strings.TrimSpace(event), 160)
}

func (r *Root) onModelPanic(where string, recovered any, msg tea.Msg) {
	if r.statusFlash == "" {
		r.statusFlash = "Recovered UI panic"
	}
	msgType := ""
	if msg != nil {
		msgType = fmt.Sprintf("%T", msg)
	}
	r.logger.Error("ui.panic_recovered",
		"where", where,
		"panic", fmt.Sprint(recovered),
		"message_type", msgType,
		"screen", int(r.screen),
		"layout", int(r.layout),
		"cols", r.cols,
		"rows", r.rows,
		"overlay", r.topOverlay(),
		"last_input", r.lastInputEvent,
		"stack", string(debug.Stack()),
	)
}

var _ tea.Model = (*Root)(nil)
var _ View = (*Root)(nil)
