package tui

import (
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"nids-engine/cache"
	"nids-engine/models"
)

// AppState represents the current state of the application
type AppState int

const (
	StateMenu AppState = iota
	StateRulesInput
	StatePayloadInput
	StateEndpointInput
	StateExprInput
	StateQueryInput
	StateProcessing
	StateResults
	StateError
)

// Model represents the main TUI model
type Model struct {
	state  AppState
	width  int
	height int

	cfg models.Config

	// Input fields
	rulesInput   string
	payloadInput string
	srcInput     string
	dstInput     string
	exprInput    string
	queryInput   string
	activeField  int

	// Compiled engines are cached so re-scanning against the same rule
	// file skips the compile phase
	engines *cache.EngineCache

	// Processing
	progress       progress.Model
	processingDots int

	// Results
	resultLines []string
	scrollOff   int

	// Error handling
	err error

	// Menu
	cursor  int
	choices []string
}

// NewModel creates a new TUI model
func NewModel(cfg models.Config) Model {
	return Model{
		state: StateMenu,
		cfg:   cfg,
		choices: []string{
			"Scan Payload Against Rule Set",
			"Inspect Address Expression",
			"Exit",
		},
		engines:  cache.NewEngineCache(),
		progress: progress.New(progress.WithDefaultGradient()),
		srcInput: "1.2.3.4",
		dstInput: "5.6.7.8",
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return nil
}
