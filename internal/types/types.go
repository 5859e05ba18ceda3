package types

type Transcript struct {
	Segments []Segment `json:"segments"`
}

// Segment is a span of transcribed speech. Times are seconds on the source
// video timeline.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// ScoredSegment carries a signed sentiment score: positive for positive
// sentiment, negative for negative, magnitude is model confidence.
type ScoredSegment struct {
	Segment
	Score float64
}

type Scene struct {
	Start float64
	End   float64
}

// Duration is zero for degenerate scenes.
func (s Scene) Duration() float64 {
	if s.End <= s.Start {
		return 0
	}
	return s.End - s.Start
}

type ScoredScene struct {
	Scene
	Score float64
}

type Budget struct {
	MaxTotalDuration float64
}

// Plan is the chronological list of scenes cut into the trailer.
type Plan struct {
	Scenes []Scene
}

func (p Plan) TotalDuration() float64 {
	var total float64
	for _, s := range p.Scenes {
		total += s.Duration()
	}
	return total
}

// Chunk is an audio file cut from a longer track, starting Offset seconds
// into it.
type Chunk struct {
	Path   string
	Offset float64
}

type Manifest struct {
	Input         string          `json:"input"`
	File          string          `json:"file"`
	Subtitles     string          `json:"subtitles,omitempty"`
	Strategy      string          `json:"strategy"`
	BudgetSec     float64         `json:"budget_sec"`
	TotalSec      float64         `json:"total_sec"`
	ScenesScanned int             `json:"scenes_scanned"`
	Scenes        []ManifestScene `json:"scenes"`
}

type ManifestScene struct {
	ID       string  `json:"id"`
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
	Score    float64 `json:"score"`
	Text     string  `json:"text"`
}
