package game

import (
	"sort"

	"github.com/ProlificLabs/captrivia-cli/internal/api"
)

// SortStandings returns leaderboard rows ordered for display: descending by
// score, with equal scores keeping their arrival order. The stable tie-break
// makes the displayed order deterministic across refreshes.
func SortStandings(rows []api.ScoreUpdate) []api.ScoreUpdate {
	out := make([]api.ScoreUpdate, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}
