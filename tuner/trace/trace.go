package trace

// EpisodeTrace collects the rounds of one tuning episode.
type EpisodeTrace struct {
	EpisodeID int
	Mode      string
	Rounds    []RoundRecord
	// Best is the committed vector; nil until the episode commits.
	Best []float64
}

// NewEpisodeTrace creates an EpisodeTrace ready for recording.
func NewEpisodeTrace(episodeID int, mode string) *EpisodeTrace {
	return &EpisodeTrace{
		EpisodeID: episodeID,
		Mode:      mode,
		Rounds:    make([]RoundRecord, 0),
	}
}

// RecordRound appends a round record.
func (et *EpisodeTrace) RecordRound(record RoundRecord) {
	et.Rounds = append(et.Rounds, record)
}

// Commit stores the committed vector.
func (et *EpisodeTrace) Commit(best []float64) {
	et.Best = append([]float64(nil), best...)
}
