// Package slots implements the slot machine outcome generator: uniform
// independent reel draws evaluated against a configurable set of paylines
// and a pay table.
package slots

import (
	"strings"

	"github.com/sgarza/eldorado/pkg/entities"
	"github.com/sgarza/eldorado/pkg/games/random"
)

// RowsPerReel is fixed: every reel exposes three symbol positions.
const RowsPerReel = 3

// Config describes a slot machine. A payline holds one row index per reel;
// the pay table maps the concatenated symbols of a full line to a win
// multiplier. A line wins iff its key is present in the table.
type Config struct {
	Reels    int
	Symbols  []string
	Paylines [][]int
	PayTable map[string]int64
}

// DefaultConfig returns the classic 3-reel machine: seven symbols and five
// paylines (three rows plus both diagonals).
func DefaultConfig() Config {
	return Config{
		Reels:   3,
		Symbols: []string{"🍒", "🍋", "🍊", "🍇", "🔔", "💎", "7️⃣"},
		Paylines: [][]int{
			{0, 0, 0},
			{1, 1, 1},
			{2, 2, 2},
			{0, 1, 2},
			{2, 1, 0},
		},
		PayTable: map[string]int64{
			"🍒🍒🍒":    10,
			"🍋🍋🍋":    15,
			"🍊🍊🍊":    20,
			"🍇🍇🍇":    25,
			"🔔🔔🔔":    40,
			"💎💎💎":    100,
			"7️⃣7️⃣7️⃣": 300,
		},
	}
}

// Machine evaluates spins for one configuration. It holds no per-spin state;
// the random source is injected on every call.
type Machine struct {
	cfg Config
}

// NewMachine creates a machine, falling back to the default configuration
// when cfg is zero-valued.
func NewMachine(cfg Config) *Machine {
	def := DefaultConfig()
	if cfg.Reels == 0 {
		cfg.Reels = def.Reels
	}
	if len(cfg.Symbols) == 0 {
		cfg.Symbols = def.Symbols
	}
	if len(cfg.Paylines) == 0 {
		cfg.Paylines = def.Paylines
	}
	if len(cfg.PayTable) == 0 {
		cfg.PayTable = def.PayTable
	}
	return &Machine{cfg: cfg}
}

// Spin draws a fresh reel grid. Each position is an independent uniform draw
// from the symbol alphabet; there is no reel weighting.
func (m *Machine) Spin(src random.Source) [][]string {
	reels := make([][]string, m.cfg.Reels)
	for i := range reels {
		rows := make([]string, RowsPerReel)
		for j := range rows {
			rows[j] = m.cfg.Symbols[src.Intn(len(m.cfg.Symbols))]
		}
		reels[i] = rows
	}
	return reels
}

// Evaluate checks every configured payline against the grid and returns the
// matched lines. Line numbers are 1-based in configuration order.
func (m *Machine) Evaluate(reels [][]string) []entities.SlotLineWin {
	var wins []entities.SlotLineWin

	for idx, payline := range m.cfg.Paylines {
		line := make([]string, 0, m.cfg.Reels)
		for reel := 0; reel < m.cfg.Reels && reel < len(payline); reel++ {
			row := payline[reel]
			if reel >= len(reels) || row >= len(reels[reel]) {
				line = nil
				break
			}
			line = append(line, reels[reel][row])
		}
		if line == nil {
			continue
		}

		multiplier, ok := m.cfg.PayTable[strings.Join(line, "")]
		if !ok {
			continue
		}

		wins = append(wins, entities.SlotLineWin{
			Line:       idx + 1,
			Symbols:    line,
			Multiplier: multiplier,
		})
	}

	return wins
}

// Play spins the reels for a bet and returns the settled outcome payload.
// Every winning line pays bet x multiplier; lines accumulate independently.
func (m *Machine) Play(src random.Source, bet int64) *entities.SlotsOutcome {
	reels := m.Spin(src)
	wins := m.Evaluate(reels)

	var total int64
	for i := range wins {
		wins[i].Amount = bet * wins[i].Multiplier
		total += wins[i].Amount
	}

	return &entities.SlotsOutcome{
		Reels:     reels,
		Wins:      wins,
		Bet:       bet,
		WinAmount: total,
		Spun:      true,
	}
}

// Placeholder returns the unspun outcome recorded when a slots session is
// opened: covered reels and no wins.
func (m *Machine) Placeholder(bet int64) *entities.SlotsOutcome {
	reels := make([][]string, m.cfg.Reels)
	for i := range reels {
		reels[i] = []string{"?", "?", "?"}
	}
	return &entities.SlotsOutcome{
		Reels: reels,
		Bet:   bet,
	}
}
