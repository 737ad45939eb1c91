package game

// Choice is one of the three canonical moves.
type Choice string

const (
	ChoiceRock     Choice = "rock"
	ChoicePaper    Choice = "paper"
	ChoiceScissors Choice = "scissors"
)

// beats maps each choice to the choice it defeats.
var beats = map[Choice]Choice{
	ChoiceRock:     ChoiceScissors,
	ChoiceScissors: ChoicePaper,
	ChoicePaper:    ChoiceRock,
}

// IsValidChoice reports whether a client-supplied move is one of the three
// canonical choices. Resolve itself does not validate; its callers must.
func IsValidChoice(choice Choice) bool {
	_, ok := beats[choice]
	return ok
}

// Play is one team's submitted move.
type Play struct {
	Team   int    `json:"team"`
	Choice Choice `json:"choice"`
}

// Resolve returns the winning team of two opposing plays, or nil on a tie.
func Resolve(a Play, b Play) *int {
	if a.Choice == b.Choice {
		return nil
	}
	if beats[a.Choice] == b.Choice {
		return &a.Team
	}
	return &b.Team
}
