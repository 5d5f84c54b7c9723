package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"promptdojo/internal/game"
	"promptdojo/internal/gameplay"
	"promptdojo/internal/gateway"
	"promptdojo/internal/imageview"
	"promptdojo/internal/levels"
	"promptdojo/internal/report"
	"promptdojo/internal/state"
	"promptdojo/internal/telemetry"
	"promptdojo/internal/ui"

	"github.com/dustin/go-humanize"
)

// DBFile is the sqlite database name under the data directory.
const DBFile = "promptdojo.db"

const styleSettingKey = "ui.style_variant"

type progressStore interface {
	state.Store
	state.Recorder
}

// settingsStore is implemented by stores that can keep UI preferences.
type settingsStore interface {
	SaveSettings(ctx context.Context, values map[string]string) error
	LoadSettings(ctx context.Context) (map[string]string, error)
}

type deps struct {
	store   progressStore
	gateway gateway.Gateway
	catalog *levels.Catalog
	view    ui.View
	logger  *telemetry.Logger
	closers []func() error
}

type App struct {
	cfg           Config
	logger        *telemetry.Logger
	store         progressStore
	writer        *state.AsyncWriter
	catalog       *levels.Catalog
	gw            gateway.Gateway
	view          ui.View
	closers       []func() error
	explicitStyle bool

	// ctx is cancelled only on Close. Navigation leaves gateway calls running
	// and the session guard drops their results.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	game       game.State
	session    *gameplay.Session
	runID      int64
	reportPath string
}

func New(ctx context.Context, cfg Config) (*App, error) {
	explicitStyle := cfg.UI.StyleVariant != ""
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := telemetry.New(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	catalog, err := levels.Builtin()
	if err != nil {
		_ = logger.Close()
		return nil, err
	}

	var store progressStore
	var closers []func() error
	if cfg.Ephemeral {
		store = state.NewMemoryStore()
	} else {
		s, err := state.NewSQLite(filepath.Join(cfg.DataDir, DBFile))
		if err != nil {
			_ = logger.Close()
			return nil, err
		}
		if err := s.EnsureSchema(ctx); err != nil {
			_ = s.Close()
			_ = logger.Close()
			return nil, err
		}
		store = s
		closers = append(closers, s.Close)
	}

	gw, err := newGateway(ctx, cfg)
	if err != nil {
		for _, c := range closers {
			_ = c()
		}
		_ = logger.Close()
		return nil, err
	}

	view := ui.New(ui.Options{
		ASCIIOnly:    cfg.ASCIIOnly,
		StyleVariant: cfg.UI.StyleVariant,
		MotionLevel:  cfg.UI.MotionLevel,
		MouseScope:   cfg.UI.MouseScope,
		Logger:       logger.WithPrefix("ui"),
	})
	a := newApp(cfg, deps{
		store:   store,
		gateway: gateway.WithLogging(gw, logger.Logger),
		catalog: catalog,
		view:    view,
		logger:  logger,
		closers: closers,
	})
	a.explicitStyle = explicitStyle
	return a, nil
}

func newGateway(ctx context.Context, cfg Config) (gateway.Gateway, error) {
	switch cfg.GatewayKind() {
	case "gemini":
		return gateway.NewGemini(ctx, gateway.GeminiConfig{
			APIKey:     cfg.Gateway.APIKey,
			ImageModel: cfg.Gateway.ImageModel,
			ScoreModel: cfg.Gateway.ScoreModel,
			Timeout:    cfg.Gateway.Timeout,
		})
	default:
		return gateway.NewMock(cfg.Gateway.MockLatency), nil
	}
}

func newApp(cfg Config, d deps) *App {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		cfg:     cfg,
		logger:  d.logger,
		store:   d.store,
		catalog: d.catalog,
		gw:      d.gateway,
		view:    d.view,
		closers: d.closers,
		ctx:     ctx,
		cancel:  cancel,
		game:    game.New(state.DefaultProgress(), d.catalog.MaxID()),
	}
	a.writer = state.NewAsyncWriter(d.store, func(err error) {
		a.logger.Error("progress.save_failed", "err", err)
		a.view.FlashStatus("Could not save progress. It will be retried on the next change.")
	})
	d.view.SetController(a)
	return a
}

func (a *App) Run(ctx context.Context) error {
	a.boot(ctx)
	return a.view.Run()
}

// boot loads progress and shows the landing screen. Read failures fall back
// to a fresh record.
func (a *App) boot(ctx context.Context) {
	p, err := a.store.Load(ctx)
	var readErr *state.PersistenceReadError
	switch {
	case errors.As(err, &readErr):
		a.logger.Warn("progress.read_failed", "err", readErr.Err)
	case err != nil:
		a.logger.Warn("progress.read_failed", "err", err)
	}
	if err := p.Validate(a.catalog.MaxID()); err != nil {
		a.logger.Warn("progress.invalid", "err", err)
		p = state.DefaultProgress()
	}
	a.restoreStyle(ctx)

	fingerprint, _ := a.catalog.Fingerprint()
	a.logger.Info("app.start",
		"gateway", a.cfg.GatewayKind(),
		"catalog_version", a.catalog.Version,
		"catalog_fingerprint", fingerprint,
		"unlocked", p.UnlockedLevel,
		"ephemeral", a.cfg.Ephemeral,
	)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.game = game.New(p, a.catalog.MaxID())
	a.showLanding()
}

func (a *App) restoreStyle(ctx context.Context) {
	ss, ok := a.store.(settingsStore)
	if !ok || a.explicitStyle {
		return
	}
	values, err := ss.LoadSettings(ctx)
	if err != nil {
		a.logger.Warn("settings.read_failed", "err", err)
		return
	}
	if v := values[styleSettingKey]; v != "" && v != a.cfg.UI.StyleVariant {
		a.cfg.UI.StyleVariant = v
		a.view.SetStyleVariant(v)
	}
}

func (a *App) Close() {
	a.cancel()
	a.wg.Wait()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.writer.Close(ctx); err != nil {
		a.logger.Error("progress.flush_failed", "err", err)
	}
	for _, c := range a.closers {
		_ = c()
	}
	_ = a.logger.Close()
}

// goAsync runs gateway work off the controller lock.
func (a *App) goAsync(fn func(ctx context.Context)) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		fn(a.ctx)
	}()
}

func (a *App) OnStart() {
	a.mu.Lock()
	defer a.mu.Unlock()
	g, err := game.Start(a.game)
	if err != nil {
		a.logger.Debug("game.rejected", "err", err)
		return
	}
	a.game = g
	a.showLevelSelect()
}

func (a *App) OnSelectLevel(id int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	g, err := game.SelectLevel(a.game, id)
	switch {
	case errors.Is(err, game.ErrLevelLocked):
		a.view.FlashStatus(fmt.Sprintf("Level %d is locked. Finish level %d first.", id, id-1))
		return
	case err != nil:
		a.logger.Debug("game.rejected", "err", err)
		a.view.FlashStatus("That level is not available.")
		return
	}
	lvl, err := a.catalog.Find(id)
	if err != nil {
		a.view.FlashStatus("That level is not available.")
		return
	}
	a.game = g

	s := gameplay.New(lvl)
	req, err := s.BeginInit()
	if err != nil {
		a.logger.Error("level.init_rejected", "level", id, "err", err)
		return
	}
	a.session = s
	a.runID = 0
	if runID, err := a.store.StartLevelRun(a.ctx, state.LevelRun{SessionID: s.ID, LevelID: id, StartTS: time.Now()}); err != nil {
		a.logger.Warn("level.run_record_failed", "level", id, "err", err)
	} else {
		a.runID = runID
	}
	a.logger.Info("level.start", "level", id, "session", s.ID)

	a.view.SetGameplay(a.gameplayState())
	a.view.SetScreen(ui.ScreenGameplay)

	a.goAsync(func(ctx context.Context) {
		a.onInitResult(gameplay.RunInit(ctx, a.gw, req))
	})
}

func (a *App) onInitResult(res gameplay.InitResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil || !a.session.ApplyInit(res) {
		a.logger.Debug("level.init_discarded", "session", res.SessionID)
		return
	}
	if res.Err != nil {
		a.logger.Warn("level.init_failed", "session", res.SessionID, "err", res.Err)
	} else {
		a.saveImage(res.SessionID+"-reference", res.Image)
	}
	a.view.SetGameplay(a.gameplayState())
}

func (a *App) OnSubmitPrompt(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil || a.game.Screen != game.ScreenGameplay {
		return
	}
	a.session.SetPrompt(text)
	at, err := a.session.BeginAttempt()
	if err != nil {
		if a.session.Status() == gameplay.StatusGenerating {
			a.view.FlashStatus("Still painting the last prompt...")
		}
		return
	}
	a.logger.Info("attempt.start", "session", at.SessionID, "seq", at.Seq, "prompt_len", len(at.Prompt))
	a.view.SetGameplay(a.gameplayState())

	runID := a.runID
	a.goAsync(func(ctx context.Context) {
		a.onAttemptResult(runID, gameplay.RunAttempt(ctx, a.gw, at))
	})
}

func (a *App) onAttemptResult(runID int64, res gameplay.AttemptResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil || !a.session.ApplyAttempt(res) {
		a.logger.Debug("attempt.discarded", "session", res.SessionID, "seq", res.Seq)
		return
	}
	if res.Image != nil {
		a.saveImage(fmt.Sprintf("%s-attempt-%d", res.SessionID, res.Seq), *res.Image)
	}
	if res.Err != nil {
		a.logger.Warn("attempt.failed", "session", res.SessionID, "seq", res.Seq, "err", res.Err)
	} else {
		passed := res.Score >= gameplay.PassThreshold
		a.logger.Info("attempt.scored", "session", res.SessionID, "seq", res.Seq, "score", res.Score, "passed", passed)
		if runID > 0 {
			if err := a.store.RecordAttempt(a.ctx, runID, res.Score, passed); err != nil {
				a.logger.Warn("attempt.record_failed", "err", err)
			}
		}
	}
	a.view.SetGameplay(a.gameplayState())
}

func (a *App) OnFinishLevel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return
	}
	c, err := a.session.Finish()
	if err != nil {
		a.view.FlashStatus(fmt.Sprintf("Reach %d%% to finish this level.", gameplay.PassThreshold))
		return
	}
	prevUnlocked := a.game.Progress.UnlockedLevel
	g, err := game.CompleteLevel(a.game, c.LevelID, c.Score)
	if err != nil {
		a.logger.Error("level.complete_rejected", "level", c.LevelID, "err", err)
		return
	}
	a.game = g
	a.writer.Submit(g.Progress)
	a.logger.Info("level.complete", "level", c.LevelID, "score", c.Score, "unlocked", g.Progress.UnlockedLevel)
	a.dropSession()

	if g.Screen == game.ScreenReflection {
		a.showReflection()
		return
	}
	a.showLevelSelect()
	msg := fmt.Sprintf("Level %d complete with %d%%.", c.LevelID, c.Score)
	if g.Progress.UnlockedLevel > prevUnlocked {
		msg += fmt.Sprintf(" Level %d unlocked!", g.Progress.UnlockedLevel)
	}
	a.view.FlashStatus(msg)
}

func (a *App) OnBack() {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch a.game.Screen {
	case game.ScreenGameplay:
		g, err := game.Back(a.game)
		if err != nil {
			return
		}
		a.game = g
		a.dropSession()
		a.showLevelSelect()
	case game.ScreenLevelSelect, game.ScreenReflection:
		a.game = game.Home(a.game)
		a.showLanding()
	}
}

func (a *App) OnHome() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.game = game.Home(a.game)
	a.dropSession()
	a.showLanding()
}

func (a *App) OnReset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.game = game.Reset(a.game)
	a.dropSession()
	a.reportPath = ""
	a.writer.Submit(a.game.Progress)
	a.logger.Info("progress.reset")
	a.showLanding()
	a.view.FlashStatus("Progress reset. Level 1 is waiting.")
}

func (a *App) OnRestart() {
	a.mu.Lock()
	defer a.mu.Unlock()
	g, err := game.Restart(a.game)
	if err != nil {
		a.logger.Debug("game.rejected", "err", err)
		return
	}
	a.game = g
	a.reportPath = ""
	a.writer.Submit(g.Progress)
	a.logger.Info("progress.restart")
	a.showLanding()
	a.view.FlashStatus("Fresh start. Good luck!")
}

func (a *App) OnExportReport() {
	a.mu.Lock()
	p := a.game.Progress.Clone()
	a.mu.Unlock()

	path := filepath.Join(a.cfg.DataDir, "reports", "recap-"+time.Now().Format("20060102-150405")+".pdf")
	if err := report.WriteFile(path, a.catalog, p, report.Options{}); err != nil {
		a.logger.Error("report.export_failed", "err", err)
		a.view.FlashStatus("Could not export the report.")
		return
	}
	a.logger.Info("report.exported", "path", path)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.reportPath = path
	if a.game.Screen == game.ScreenReflection {
		a.view.SetReflection(a.reflectionState())
	}
	a.view.FlashStatus("Report saved to " + path)
}

func (a *App) OnOpenStats() {
	a.mu.Lock()
	p := a.game.Progress.Clone()
	a.mu.Unlock()
	a.view.SetInfo("Stats", a.statsText(a.ctx, p), true)
}

func (a *App) OnOpenSettings() {
	a.view.SetInfo("Settings", a.settingsText(), true)
}

func (a *App) OnCycleStyle() {
	a.mu.Lock()
	next := ui.NextStyleVariant(a.cfg.UI.StyleVariant)
	a.cfg.UI.StyleVariant = next
	a.mu.Unlock()

	a.view.SetStyleVariant(next)
	a.view.FlashStatus("Style: " + next)
	if ss, ok := a.store.(settingsStore); ok {
		if err := ss.SaveSettings(a.ctx, map[string]string{styleSettingKey: next}); err != nil {
			a.logger.Warn("settings.save_failed", "err", err)
		}
	}
}

func (a *App) OnQuit() {
	a.view.Stop()
}

func (a *App) dropSession() {
	if a.session != nil && a.session.Status() == gameplay.StatusGenerating {
		a.logger.Info("level.abandoned", "session", a.session.ID)
	}
	a.session = nil
	a.runID = 0
}

func (a *App) saveImage(name string, img gateway.Image) {
	if a.cfg.Ephemeral || a.cfg.DataDir == "" || img.Empty() {
		return
	}
	path, err := imageview.Save(filepath.Join(a.cfg.DataDir, "images"), name, img.MIMEType, img.Data)
	if err != nil {
		a.logger.Warn("image.save_failed", "name", name, "err", err)
		return
	}
	a.logger.Debug("image.saved", "path", path)
}

func (a *App) showLanding() {
	p := a.game.Progress
	a.view.SetLanding(ui.LandingState{
		Title:       a.catalog.Title,
		LevelCount:  a.catalog.MaxID(),
		Completed:   len(p.CompletedLevels),
		Unlocked:    p.UnlockedLevel,
		HasProgress: len(p.CompletedLevels) > 0 || p.UnlockedLevel > 1,
		Tip:         a.landingTip(),
	})
	a.view.SetScreen(ui.ScreenLanding)
}

// landingTip points at the first tip of the next level to play.
func (a *App) landingTip() string {
	lvl, err := a.catalog.Find(a.game.Progress.UnlockedLevel)
	if err != nil || len(lvl.Tips) == 0 {
		return ""
	}
	return fmt.Sprintf("Level %d (%s): %s", lvl.ID, lvl.Title, lvl.Tips[0])
}

func (a *App) showLevelSelect() {
	a.view.SetLevels(a.levelRows())
	a.view.SetScreen(ui.ScreenLevelSelect)
}

func (a *App) levelRows() []ui.LevelRow {
	p := a.game.Progress
	rows := make([]ui.LevelRow, 0, len(a.catalog.Levels))
	for _, lvl := range a.catalog.Levels {
		score, ok := p.Score(lvl.ID)
		rows = append(rows, ui.LevelRow{
			ID:           lvl.ID,
			Title:        lvl.Title,
			Category:     lvl.Category,
			Difficulty:   lvl.Difficulty.String(),
			Focus:        lvl.Focus,
			LearningGoal: lvl.LearningGoal,
			Tips:         lvl.Tips,
			Locked:       !p.IsUnlocked(lvl.ID),
			Completed:    p.IsCompleted(lvl.ID),
			Score:        score,
			HasScore:     ok,
		})
	}
	return rows
}

func (a *App) gameplayState() ui.GameplayState {
	s := a.session
	if s == nil {
		return ui.GameplayState{}
	}
	st := ui.GameplayState{
		SessionID:    s.ID,
		LevelID:      s.Level.ID,
		LevelCount:   a.catalog.MaxID(),
		Title:        s.Level.Title,
		Category:     s.Level.Category,
		Difficulty:   s.Level.Difficulty.String(),
		Focus:        s.Level.Focus,
		LearningGoal: s.Level.LearningGoal,
		Tips:         s.Level.Tips,
		ErrorMessage: s.ErrorMessage(),
		LastPrompt:   s.Prompt(),
		Threshold:    gameplay.PassThreshold,
		Attempts:     s.Attempts(),
		CanFinish:    s.CanFinish(),
	}
	switch s.Status() {
	case gameplay.StatusInitializing:
		st.Status = ui.GameplayLoading
	case gameplay.StatusGenerating:
		st.Status = ui.GameplayGenerating
	case gameplay.StatusError:
		st.Status = ui.GameplayError
	default:
		st.Status = ui.GameplayIdle
	}
	if ref := s.ReferenceImage(); ref != nil {
		st.Reference = ref.Data
		st.AcceptingInput = st.Status == ui.GameplayIdle || st.Status == ui.GameplayError
	}
	if img := s.UserImage(); img != nil {
		st.UserImage = img.Data
	}
	st.Score, st.HasScore = s.Score()
	return st
}

func (a *App) showReflection() {
	a.view.SetReflection(a.reflectionState())
	a.view.SetScreen(ui.ScreenReflection)
}

func (a *App) reflectionState() ui.ReflectionState {
	p := a.game.Progress
	rows := make([]ui.RecapRow, 0, len(a.catalog.Levels))
	for _, lvl := range a.catalog.Levels {
		score, ok := p.Score(lvl.ID)
		rows = append(rows, ui.RecapRow{ID: lvl.ID, Title: lvl.Title, Category: lvl.Category, Score: score, Played: ok})
	}
	return ui.ReflectionState{
		Accuracy:   game.FinalAccuracy(p, a.catalog.MaxID()),
		Rows:       rows,
		NoteMD:     report.TeacherNote + "\n\n*Press p to save this recap as a PDF.*",
		ReportPath: a.reportPath,
	}
}

func (a *App) statsText(ctx context.Context, p state.Progress) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Levels completed: %d of %d\n", len(p.CompletedLevels), a.catalog.MaxID())
	fmt.Fprintf(&b, "Final accuracy so far: %d%%\n", game.FinalAccuracy(p, a.catalog.MaxID()))

	summary, err := a.store.GetSummary(ctx)
	if err != nil {
		a.logger.Warn("stats.read_failed", "err", err)
		b.WriteString("\nPlay history is unavailable.")
		return b.String()
	}
	fmt.Fprintf(&b, "Level runs: %s\n", humanize.Comma(int64(summary.LevelRuns)))
	fmt.Fprintf(&b, "Prompts submitted: %s (%s passed)\n", humanize.Comma(int64(summary.Attempts)), humanize.Comma(int64(summary.Passes)))
	if summary.Attempts > 0 {
		fmt.Fprintf(&b, "Best match: %d%%\n", summary.BestScore)
	}

	last, err := a.store.GetLastRun(ctx)
	if err != nil {
		a.logger.Warn("stats.read_failed", "err", err)
		return b.String()
	}
	if last != nil {
		fmt.Fprintf(&b, "Last played: level %d, %s", last.LevelID, humanize.Time(last.StartTS))
		if last.Attempts > 0 {
			verdict := "not passed"
			if last.LastPassed {
				verdict = "passed"
			}
			fmt.Fprintf(&b, " (%d%%, %s)", last.LastScore, verdict)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (a *App) settingsText() string {
	a.mu.Lock()
	cfg := a.cfg
	a.mu.Unlock()

	var b strings.Builder
	switch cfg.GatewayKind() {
	case "gemini":
		fmt.Fprintf(&b, "Gateway: Gemini (image %s, score %s, timeout %s)\n", cfg.Gateway.ImageModel, cfg.Gateway.ScoreModel, cfg.Gateway.Timeout)
	default:
		b.WriteString("Gateway: offline mock (set GEMINI_API_KEY to play with Gemini)\n")
	}
	fmt.Fprintf(&b, "Pass threshold: %d%%\n", gameplay.PassThreshold)
	fmt.Fprintf(&b, "Style: %s (F4 to change)\n", cfg.UI.StyleVariant)
	fmt.Fprintf(&b, "Motion: %s  Mouse: %s  ASCII: %t\n", cfg.UI.MotionLevel, cfg.UI.MouseScope, cfg.ASCIIOnly)
	if cfg.Ephemeral {
		b.WriteString("Progress: in memory, discarded on exit\n")
	} else {
		db := filepath.Join(cfg.DataDir, DBFile)
		size := "new"
		if info, err := os.Stat(db); err == nil {
			size = humanize.Bytes(uint64(info.Size()))
		}
		fmt.Fprintf(&b, "Progress: %s (%s)\n", db, size)
	}
	if cfg.LogPath != "" {
		fmt.Fprintf(&b, "Log: %s (%s)\n", cfg.LogPath, cfg.LogLevel)
	} else {
		b.WriteString("Log: disabled\n")
	}
	fingerprint, _ := a.catalog.Fingerprint()
	fmt.Fprintf(&b, "Catalog: %s v%s (%s)\n", a.catalog.Title, a.catalog.Version, fingerprint)
	return b.String()
}

var _ ui.Controller = (*App)(nil)
