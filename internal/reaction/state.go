// Package reaction implements the one-emoji-per-user toggle shared by the
// transactional write path and optimistic client state.
package reaction

// State is the reaction data stored on a post or story. Counts[e] equals the
// number of users whose ReactionBy entry is e.
type State struct {
	Reactions  map[string]int64  `json:"reactions"`
	ReactionBy map[string]string `json:"reaction_by"`
}

// Toggle applies userID's reaction with emoji and returns the new state. The
// same emoji again removes the reaction, a different one switches it. Counts
// never drop below zero; emptied counts stay as explicit zeros. The input is
// never modified.
func Toggle(s State, userID, emoji string) State {
	out := s.Clone()

	current, had := out.ReactionBy[userID]
	if had && current == emoji {
		out.Reactions[emoji] = floor(out.Reactions[emoji] - 1)
		delete(out.ReactionBy, userID)
		return out
	}

	out.Reactions[emoji]++
	if had {
		out.Reactions[current] = floor(out.Reactions[current] - 1)
	}
	out.ReactionBy[userID] = emoji
	return out
}

func (s State) Clone() State {
	out := State{
		Reactions:  make(map[string]int64, len(s.Reactions)+1),
		ReactionBy: make(map[string]string, len(s.ReactionBy)+1),
	}
	for k, v := range s.Reactions {
		out.Reactions[k] = v
	}
	for k, v := range s.ReactionBy {
		out.ReactionBy[k] = v
	}
	return out
}

func floor(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
