package match

import "fmt"

// The shared-store key namespace. The room's own name doubles as both its
// pub/sub channel and the key of its pending-move slot.
const (
	KEY_ROOM_PLAYERS = "players-%s"
	KEY_ROOM_TEAMS   = "teams-%s"
	KEY_TOKEN_TEAM   = "team-%s"
	KEY_ROOM_SCORE   = "score-%s-%d"
)

func roomPlayersKey(room string) string {
	return fmt.Sprintf(KEY_ROOM_PLAYERS, room)
}

func roomTeamsKey(room string) string {
	return fmt.Sprintf(KEY_ROOM_TEAMS, room)
}

func tokenTeamKey(token string) string {
	return fmt.Sprintf(KEY_TOKEN_TEAM, token)
}

func roomScoreKey(room string, team int) string {
	return fmt.Sprintf(KEY_ROOM_SCORE, room, team)
}
