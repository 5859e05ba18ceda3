package whispercpp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/forPelevin/trailercut/internal/types"
)

type Adapter struct {
	bin   string
	model string
}

func New(binPath, modelPath string) *Adapter {
	return &Adapter{bin: binPath, model: modelPath}
}

// Transcribe runs whisper.cpp on one wav file. The JSON result is written
// next to the other cache artifacts, named after the input so concurrent
// calls on different chunks do not collide.
func (a *Adapter) Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error) {
	name := strings.TrimSuffix(filepath.Base(wavPath), filepath.Ext(wavPath))
	outPrefix := filepath.Join(cacheDir, "whisper-"+name)
	args := []string{
		"-m", a.model,
		"-f", wavPath,
		"-oj",
		"-of", outPrefix,
	}
	cmd := exec.CommandContext(ctx, a.bin, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return types.Transcript{}, fmt.Errorf("whisper.cpp failed: %w\n%s", err, string(b))
	}

	jb, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return types.Transcript{}, err
	}
	return decodeTranscript(jb)
}

// whisper.cpp writes {"transcription":[{"offsets":{"from":ms,"to":ms},"text":...}]};
// some builds and wrappers emit {"segments":[{"start":s,"end":s,"text":...}]}.
// Both are accepted.
type rawOutput struct {
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
	Segments []types.Segment `json:"segments"`
}

func decodeTranscript(b []byte) (types.Transcript, error) {
	var raw rawOutput
	if err := json.Unmarshal(b, &raw); err != nil {
		return types.Transcript{}, fmt.Errorf("decode whisper.cpp json: %w", err)
	}

	var tr types.Transcript
	if len(raw.Transcription) > 0 {
		for _, t := range raw.Transcription {
			tr.Segments = append(tr.Segments, types.Segment{
				Start: float64(t.Offsets.From) / 1000,
				End:   float64(t.Offsets.To) / 1000,
				Text:  t.Text,
			})
		}
	} else {
		tr.Segments = raw.Segments
	}

	out := tr.Segments[:0]
	for _, s := range tr.Segments {
		s.Text = strings.TrimSpace(s.Text)
		if s.End <= s.Start {
			continue
		}
		out = append(out, s)
	}
	tr.Segments = out
	return tr, nil
}
