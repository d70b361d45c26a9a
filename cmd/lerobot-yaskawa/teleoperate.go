package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/lerobot-yaskawa/pkg/leader"
	"github.com/gwillem/lerobot-yaskawa/pkg/robot"
	"github.com/gwillem/lerobot-yaskawa/pkg/teleop"
)

type TeleoperateCommand struct {
	Hz          int    `long:"hz" default:"60" description:"Control loop frequency"`
	Port        string `long:"port" description:"Leader arm serial port (overrides config)"`
	Calibration string `long:"calibration" default:"leader-calibration.json" description:"Leader calibration file"`
}

var (
	teleTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	teleChartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	teleStatusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func (c *TeleoperateCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	port := c.Port
	if port == "" {
		port = cfg.LeaderPort
	}
	if port == "" {
		ports, err := leader.FindPorts()
		if err != nil || len(ports) == 0 {
			return fmt.Errorf("no leader port configured and none found, set leader_port in %s", opts.Config)
		}
		port = ports[0]
		fmt.Printf("Using leader arm on %s\n", port)
	}

	cal, err := leader.LoadCalibration(c.Calibration)
	if err != nil {
		return fmt.Errorf("leader arm not calibrated: %w", err)
	}

	arm, err := leader.NewArm(port, cfg.Joints, cal)
	if err != nil {
		return err
	}
	defer arm.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := arm.SetPassive(ctx); err != nil {
		return fmt.Errorf("release leader servos: %w", err)
	}

	link, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer link.Disconnect()

	ctrl := teleop.NewController(arm, link, c.Hz)

	go func() {
		if err := ctrl.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Controller error: %v", err)
		}
	}()

	p := tea.NewProgram(initialTeleopModel(ctrl, link), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("Error running program: %v", err)
	}

	return nil
}

type teleopModel struct {
	ctrl     *teleop.Controller
	link     *robot.Link
	chart    *streamlinechart.Model
	width    int
	height   int
	logs     []string
	quitting bool
}

type teleStateMsg teleop.State
type teleLogMsg string

func waitForTeleState(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return teleStateMsg(<-ctrl.States())
	}
}

func waitForTeleLog(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return teleLogMsg(<-ctrl.Logs())
	}
}

func initialTeleopModel(ctrl *teleop.Controller, link *robot.Link) teleopModel {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(-200, 200),
	)

	for _, name := range link.Joints() {
		color := jointColors[name]
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(color))
		chart.SetDataSetStyles(string(name), runes.ThinLineStyle, style)
	}

	return teleopModel{
		ctrl:  ctrl,
		link:  link,
		chart: &chart,
	}
}

func (m *teleopModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > recMaxLogs {
		m.logs = m.logs[len(m.logs)-recMaxLogs:]
	}
}

func (m *teleopModel) chartSize() (width, height int) {
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

func (m teleopModel) Init() tea.Cmd {
	return tea.Batch(
		waitForTeleState(m.ctrl),
		waitForTeleLog(m.ctrl),
	)
}

func (m teleopModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		w, h := m.chartSize()
		m.chart.Resize(w, h)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case teleStateMsg:
		state := teleop.State(msg)
		if state.Positions != nil {
			for i, name := range m.link.Joints() {
				m.chart.PushDataSet(string(name), state.Positions[i])
			}
			m.chart.DrawAll()
		}
		return m, waitForTeleState(m.ctrl)

	case teleLogMsg:
		m.addLog(string(msg))
		return m, waitForTeleLog(m.ctrl)
	}

	return m, nil
}

func (m teleopModel) View() string {
	if m.quitting {
		return "Teleoperation stopped.\n"
	}

	var sb strings.Builder

	sb.WriteString(teleTitleStyle.Render("LeRobot Yaskawa Teleoperate"))
	sb.WriteString(fmt.Sprintf(" - %d Hz", m.ctrl.Hz()))
	if m.width > 0 {
		sb.WriteString(teleStatusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n\n")

	sb.WriteString(teleChartStyle.Render(m.chart.View()))
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
		logLines = teleStatusStyle.Render("Press 'q' to quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}
