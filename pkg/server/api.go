package server

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/evenyaru/evenyaru/pkg/match"

	"github.com/repeale/fp-go"
	"github.com/rs/zerolog/log"
)

type RoomStatus struct {
	Room    string      `json:"room"`
	Sockets int         `json:"sockets"`
	Score   match.Score `json:"score"`
}

type StatusResponse struct {
	Rooms []RoomStatus `json:"rooms"`
}

// ServeHTTP reports the rooms this process currently relays for. Socket
// counts are process-local; scores come from the shared store.
func (server *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/status" {
		http.NotFound(w, r)
		return
	}

	names := server.subs.Rooms()
	sort.Strings(names)

	rooms := fp.Map(func(room string) RoomStatus {
		score, err := server.scores.Snapshot(r.Context(), room)
		if err != nil {
			log.Error().Err(err).Str("room", room).Msg("failed to read score for status")
			score = match.Score{}
		}

		return RoomStatus{
			Room:    room,
			Sockets: server.subs.Count(room),
			Score:   score,
		}
	})(names)

	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(StatusResponse{Rooms: rooms})
	if err != nil {
		log.Error().Err(err).Msg("failed to write status response")
	}
}
