package entities

// GameType identifies which outcome generator a game uses.
type GameType string

const (
	GameTypeSlots     GameType = "slots"
	GameTypeBlackjack GameType = "blackjack"
	GameTypeRoulette  GameType = "roulette"
	GameTypePoker     GameType = "poker"
	GameTypeBaccarat  GameType = "baccarat"
)

// Game is a static catalog entry. The engine reads it to validate bet ranges
// and select a generator; it is owned and edited by the admin surface, which
// is outside this module.
type Game struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Type        GameType `json:"type"`
	Description string   `json:"description,omitempty"`
	Rules       string   `json:"rules,omitempty"`
	MinBet      int64    `json:"minBet"`
	MaxBet      int64    `json:"maxBet"`
	HouseEdge   float64  `json:"houseEdge"`
	IsActive    bool     `json:"isActive"`
}
