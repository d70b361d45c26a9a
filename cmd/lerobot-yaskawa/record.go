package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/lerobot-yaskawa/pkg/record"
	"github.com/gwillem/lerobot-yaskawa/pkg/robot"
)

type RecordCommand struct {
	Dataset  string `long:"dataset" short:"d" required:"true" description:"Dataset directory"`
	Task     string `long:"task" description:"Task description stored in the dataset" default:"demonstration"`
	FPS      int    `long:"fps" description:"Capture frame rate (0 uses the config value)"`
	Episodes int    `long:"episodes" description:"Number of episodes to record" default:"10"`
}

// Joint colors - distinct colors for each joint
var jointColors = map[robot.JointName]string{
	robot.Joint1: "196", // red
	robot.Joint2: "208", // orange
	robot.Joint3: "226", // yellow
	robot.Joint4: "46",  // green
	robot.Joint5: "51",  // cyan
	robot.Joint6: "201", // magenta
}

var (
	recTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	recChartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	recStatusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const (
	recHeaderHeight = 2
	recLegendHeight = 2
	recFooterHeight = 7
	recMaxLogs      = 5
	recBorderSize   = 2
)

func (c *RecordCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fps := c.FPS
	if fps <= 0 {
		fps = cfg.RecordFPS
	}

	ds, err := openOrCreateDataset(c.Dataset, c.Task, fps, cfg.Joints)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	link, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer link.Disconnect()

	rec := record.NewRecorder(link, record.Config{FPS: fps})

	if err := rec.BeginSession(ctx); err != nil {
		return err
	}
	defer func() {
		if err := rec.EndSession(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to end teach session: %v\n", err)
		}
	}()

	fmt.Printf("Direct teach enabled. Recording %d episode(s) into %s at %d fps.\n", c.Episodes, ds.Dir(), fps)
	fmt.Println()

	for ds.Episodes() < c.Episodes {
		if !confirmStart(ds.Episodes(), c.Episodes) {
			break
		}

		ep, quit, err := recordOneEpisode(ctx, rec, link)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Episode aborted: %v\n", err)
		}
		if ep != nil && len(ep.Frames) > 0 && confirmKeep(ep) {
			if err := ds.SaveEpisode(ep); err != nil {
				return fmt.Errorf("save episode: %w", err)
			}
			fmt.Printf("Saved episode %d (%d frames, %.1fs)\n", ep.Index, len(ep.Frames), ep.Duration().Seconds())
		}
		if quit {
			break
		}
	}

	fmt.Printf("Dataset %s now holds %d episode(s).\n", ds.Dir(), ds.Episodes())
	return nil
}

func openOrCreateDataset(dir, task string, fps int, joints []robot.JointName) (*record.Dataset, error) {
	if ds, err := record.Open(dir); err == nil {
		return ds, nil
	}
	return record.Create(dir, task, fps, joints)
}

func confirmStart(done, total int) bool {
	start := true
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Record episode %d of %d?", done+1, total)).
				Affirmative("Record").
				Negative("Stop").
				Value(&start),
		),
	)
	if err := form.Run(); err != nil {
		return false
	}
	return start
}

func confirmKeep(ep *record.Episode) bool {
	keep := true
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Keep this episode? (%d frames, %.1fs)", len(ep.Frames), ep.Duration().Seconds())).
				Affirmative("Keep").
				Negative("Discard").
				Value(&keep),
		),
	)
	if err := form.Run(); err != nil {
		return false
	}
	return keep
}

// recordOneEpisode runs the live chart TUI while the recorder samples the
// arm. Returns the captured episode and whether the operator asked to
// quit the whole run.
func recordOneEpisode(ctx context.Context, rec *record.Recorder, link *robot.Link) (*record.Episode, bool, error) {
	epCtx, stop := context.WithCancel(ctx)
	defer stop()

	type result struct {
		ep  *record.Episode
		err error
	}
	done := make(chan result, 1)
	go func() {
		ep, err := rec.RecordEpisode(epCtx)
		done <- result{ep, err}
	}()

	model := initialRecordModel(rec, link, stop)
	p := tea.NewProgram(model, tea.WithAltScreen())
	finalModel, err := p.Run()
	stop()
	res := <-done

	if err != nil {
		return res.ep, true, err
	}
	rm := finalModel.(recordModel)
	if res.err != nil {
		return res.ep, rm.quitAll, res.err
	}
	return res.ep, rm.quitAll, nil
}

type recordModel struct {
	rec     *record.Recorder
	link    *robot.Link
	stop    context.CancelFunc
	chart   *streamlinechart.Model
	width   int
	height  int
	logs    []string
	frames  int
	elapsed float64
	quitAll bool
	done    bool
}

type recStateMsg record.State
type recLogMsg string

func waitForRecState(rec *record.Recorder) tea.Cmd {
	return func() tea.Msg {
		return recStateMsg(<-rec.States())
	}
}

func waitForRecLog(rec *record.Recorder) tea.Cmd {
	return func() tea.Msg {
		return recLogMsg(<-rec.Logs())
	}
}

func initialRecordModel(rec *record.Recorder, link *robot.Link, stop context.CancelFunc) recordModel {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(-200, 200),
	)

	for _, name := range link.Joints() {
		color := jointColors[name]
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(color))
		chart.SetDataSetStyles(string(name), runes.ThinLineStyle, style)
	}

	return recordModel{
		rec:   rec,
		link:  link,
		stop:  stop,
		chart: &chart,
	}
}

func (m *recordModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > recMaxLogs {
		m.logs = m.logs[len(m.logs)-recMaxLogs:]
	}
}

func (m *recordModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20
	}
	width = m.width - recBorderSize - 2
	if width < 40 {
		width = 40
	}
	height = m.height - recHeaderHeight - recLegendHeight - recFooterHeight - recBorderSize
	if height < 10 {
		height = 10
	}
	return width, height
}

func (m recordModel) Init() tea.Cmd {
	return tea.Batch(
		waitForRecState(m.rec),
		waitForRecLog(m.rec),
	)
}

func (m recordModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		w, h := m.chartSize()
		m.chart.Resize(w, h)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "enter", " ":
			m.done = true
			m.stop()
			return m, tea.Quit
		case "q", "ctrl+c":
			m.done = true
			m.quitAll = true
			m.stop()
			return m, tea.Quit
		}

	case recStateMsg:
		state := record.State(msg)
		if state.Positions != nil {
			for i, name := range m.link.Joints() {
				m.chart.PushDataSet(string(name), state.Positions[i])
			}
			m.chart.DrawAll()
		}
		m.frames = state.Frames
		m.elapsed = state.Elapsed.Seconds()
		return m, waitForRecState(m.rec)

	case recLogMsg:
		m.addLog(string(msg))
		return m, waitForRecLog(m.rec)
	}

	return m, nil
}

func (m recordModel) View() string {
	if m.done {
		return "Episode stopped.\n"
	}

	var sb strings.Builder

	sb.WriteString(recTitleStyle.Render("LeRobot Yaskawa Record"))
	sb.WriteString(fmt.Sprintf(" - %d fps - %d frames - %.1fs", m.rec.FPS(), m.frames, m.elapsed))
	sb.WriteString("\n\n")

	sb.WriteString(recChartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	sb.WriteString(renderJointLegend(m.link.Joints()))
	sb.WriteString("\n")

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(m.width - 4).
		Foreground(lipgloss.Color("9"))

	var logLines string
	if len(m.logs) == 0 {
		logLines = recStatusStyle.Render("Move the arm by hand. Enter stops the episode, 'q' quits.")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func renderJointLegend(joints []robot.JointName) string {
	var items []string
	for _, name := range joints {
		color := jointColors[name]
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(true)
		item := colorStyle.Render("━━") + " " + string(name)
		items = append(items, item)
	}
	return strings.Join(items, "  ")
}
