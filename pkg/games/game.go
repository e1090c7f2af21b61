// Package games keeps the CityQuest game ledger: created games and the
// dispatch text sent to a player when their adventure starts.
package games

import (
	"strings"
	"time"
)

// AdventureType is the kind of adventure a player picked
type AdventureType string

const (
	AdventureTour   AdventureType = "tour"
	AdventureFoodie AdventureType = "foodie"
	AdventureRace   AdventureType = "race"
)

// AdventureTypes lists every accepted adventure type in display order
var AdventureTypes = []AdventureType{AdventureTour, AdventureFoodie, AdventureRace}

var adventureFlavors = map[AdventureType]string{
	AdventureTour:   "Chart the crystalline avenues of Skyhollow, guiding weary travelers across levitating bridges and whispering atriums.",
	AdventureFoodie: "Track the ember-lit food stalls of Spice Harbor, tasting enchanted dishes to learn their stories and unlock hidden routes.",
	AdventureRace:   "Sprint through the Windspindle circuits, a maze of rooftop raceways where griffin-mounted couriers test your reflexes.",
}

// ParseAdventureType accepts the exact lowercase type names
func ParseAdventureType(value string) (AdventureType, bool) {
	for _, t := range AdventureTypes {
		if string(t) == value {
			return t, true
		}
	}
	return "", false
}

// Flavor returns the dispatch flavor text. Unknown types read as a tour.
func (a AdventureType) Flavor() string {
	if flavor, ok := adventureFlavors[a]; ok {
		return flavor
	}
	return adventureFlavors[AdventureTour]
}

// Game is one entry in the ledger
type Game struct {
	ID            string        `json:"id"`
	PlayerName    string        `json:"playerName"`
	AdventureType AdventureType `json:"adventureType"`
	AvatarDataURL string        `json:"avatarDataUrl,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	WelcomePrompt string        `json:"welcomePrompt,omitempty"`
	LastPromptAt  *time.Time    `json:"lastPromptAt,omitempty"`
}

// BuildDispatch composes the Guild Dispatch welcome text for a game
func BuildDispatch(game *Game) string {
	return strings.Join([]string{
		"Guild Dispatch: " + game.PlayerName,
		"",
		"The CityQuest council inscribes your name upon the Luminous Ledger.",
		game.AdventureType.Flavor(),
		"Gather your keepsakes, steady your courage, and report your discoveries at the next moonrise.",
	}, "\n")
}
