package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/forPelevin/trailercut/internal/types"
)

// DefaultSceneThreshold is the scene score above which ffmpeg reports a cut.
const DefaultSceneThreshold = 0.3

type Adapter struct {
	ffmpeg  string
	ffprobe string
	log     zerolog.Logger

	// SceneThreshold is passed to select=gt(scene,T).
	SceneThreshold float64
}

func New(ffmpegPath, ffprobePath string, logger zerolog.Logger) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{
		ffmpeg:         ffmpegPath,
		ffprobe:        ffprobePath,
		log:            logger.With().Str("component", "ffmpeg").Logger(),
		SceneThreshold: DefaultSceneThreshold,
	}
}

func (a *Adapter) ExtractAudio(ctx context.Context, inVideo, outWav string) error {
	a.log.Debug().Str("input", inVideo).Str("output", outWav).Msg("extracting audio")
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-i", inVideo,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		outWav,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w\n%s", err, string(b))
	}
	return nil
}

// SplitAudio cuts wav into consecutive pieces of at most chunk length using
// the segment muxer. Offsets come from the muxer's segment list.
func (a *Adapter) SplitAudio(ctx context.Context, wav, outDir string, chunk time.Duration) ([]types.Chunk, error) {
	if chunk <= 0 {
		return nil, fmt.Errorf("ffmpeg split audio: chunk length must be > 0")
	}
	listPath := filepath.Join(outDir, "chunks.csv")
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-i", wav,
		"-f", "segment",
		"-segment_time", fmtSeconds(chunk),
		"-segment_list", listPath,
		"-segment_list_type", "csv",
		"-c", "copy",
		filepath.Join(outDir, "chunk_%03d.wav"),
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg split audio: %w\n%s", err, string(b))
	}

	lb, err := os.ReadFile(listPath)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg split audio: read segment list: %w", err)
	}
	chunks, err := parseSegmentList(string(lb), outDir)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg split audio: %w", err)
	}
	a.log.Debug().Int("chunks", len(chunks)).Dur("chunk", chunk).Msg("audio split")
	return chunks, nil
}

func (a *Adapter) ProbeDuration(ctx context.Context, path string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w\n%s", err, string(b))
	}
	s := strings.TrimSpace(string(b))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return time.Duration(sec * float64(time.Second)), nil
}

// DetectScenes runs ffmpeg's scene-change filter and turns the reported cuts
// into contiguous scenes covering the whole video.
func (a *Adapter) DetectScenes(ctx context.Context, inVideo string) ([]types.Scene, error) {
	total, err := a.ProbeDuration(ctx, inVideo)
	if err != nil {
		return nil, err
	}

	threshold := a.SceneThreshold
	if threshold <= 0 || threshold >= 1 {
		threshold = DefaultSceneThreshold
	}
	a.log.Info().Str("input", inVideo).Float64("threshold", threshold).Msg("detecting scene changes")

	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-hide_banner",
		"-i", inVideo,
		"-an",
		"-vf", fmt.Sprintf("select='gt(scene,%s)',showinfo", strconv.FormatFloat(threshold, 'f', 3, 64)),
		"-f", "null",
		"-",
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg detect scenes: %w\n%s", err, tail(string(b), 2000))
	}

	scenes := scenesFromCuts(parseSceneOutput(string(b)), total.Seconds())
	a.log.Info().Int("scenes", len(scenes)).Msg("scene detection complete")
	return scenes, nil
}

// RenderTrailer cuts every plan scene out of inVideo and concatenates them
// into outMP4. A non-empty burnASS is burned in on the joined video.
func (a *Adapter) RenderTrailer(ctx context.Context, inVideo string, plan types.Plan, outMP4, burnASS string) error {
	if len(plan.Scenes) == 0 {
		return fmt.Errorf("ffmpeg render trailer: empty plan")
	}

	work, err := os.MkdirTemp("", "trailercut-render-*")
	if err != nil {
		return fmt.Errorf("ffmpeg render trailer: %w", err)
	}
	defer os.RemoveAll(work)

	parts := make([]string, 0, len(plan.Scenes))
	for i, sc := range plan.Scenes {
		if sc.Duration() <= 0 {
			continue
		}
		part := filepath.Join(work, fmt.Sprintf("part_%03d.mp4", i))
		if err := a.cut(ctx, inVideo, sc, part); err != nil {
			return err
		}
		parts = append(parts, part)
	}
	if len(parts) == 0 {
		return fmt.Errorf("ffmpeg render trailer: plan has no scene with positive duration")
	}

	listPath := filepath.Join(work, "concat.txt")
	if err := os.WriteFile(listPath, []byte(concatList(parts)), 0o644); err != nil {
		return fmt.Errorf("ffmpeg render trailer: %w", err)
	}

	joined := outMP4
	if burnASS != "" {
		joined = filepath.Join(work, "joined.mp4")
	}
	a.log.Info().Int("parts", len(parts)).Str("output", outMP4).Msg("concatenating scenes")
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		joined,
	)
	if b, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg concat: %w\n%s", err, string(b))
	}
	if burnASS == "" {
		return nil
	}

	cmd = exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-i", joined,
		"-vf", "subtitles="+escapeFilterPath(burnASS),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "18",
		"-c:a", "copy",
		outMP4,
	)
	if b, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg burn subtitles: %w\n%s", err, string(b))
	}
	return nil
}

func (a *Adapter) cut(ctx context.Context, inVideo string, sc types.Scene, out string) error {
	a.log.Debug().Float64("start", sc.Start).Float64("end", sc.End).Str("output", out).Msg("cutting scene")
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-ss", fmtSecondsF(sc.Start),
		"-i", inVideo,
		"-t", fmtSecondsF(sc.Duration()),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "18",
		"-c:a", "aac",
		"-b:a", "192k",
		"-ar", "48000",
		"-ac", "2",
		out,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg cut scene %.3f-%.3f: %w\n%s", sc.Start, sc.End, err, string(b))
	}
	return nil
}

// parseSceneOutput extracts the pts_time of each frame showinfo printed.
func parseSceneOutput(output string) []float64 {
	var cuts []float64
	for _, line := range strings.Split(output, "\n") {
		_, after, ok := strings.Cut(line, "pts_time:")
		if !ok {
			continue
		}
		fields := strings.Fields(after)
		if len(fields) == 0 {
			continue
		}
		if sec, err := strconv.ParseFloat(fields[0], 64); err == nil {
			cuts = append(cuts, sec)
		}
	}
	return cuts
}

// scenesFromCuts builds [0,c1), [c1,c2), ..., [cN,total). Cuts outside
// (0,total) and repeated cuts are ignored.
func scenesFromCuts(cuts []float64, total float64) []types.Scene {
	if total <= 0 {
		return nil
	}
	var scenes []types.Scene
	prev := 0.0
	for _, c := range sortedCopy(cuts) {
		if c <= prev || c >= total {
			continue
		}
		scenes = append(scenes, types.Scene{Start: prev, End: c})
		prev = c
	}
	return append(scenes, types.Scene{Start: prev, End: total})
}

// parseSegmentList reads the segment muxer's csv list:
// "file,start,end" per line, relative to dir.
func parseSegmentList(csv, dir string) ([]types.Chunk, error) {
	var out []types.Chunk
	for i, line := range strings.Split(csv, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) < 3 {
			return nil, fmt.Errorf("segment list line %d: expected file,start,end: %q", i+1, line)
		}
		start, err := strconv.ParseFloat(strings.TrimSpace(fields[len(fields)-2]), 64)
		if err != nil {
			return nil, fmt.Errorf("segment list line %d: %w", i+1, err)
		}
		name := strings.Trim(strings.Join(fields[:len(fields)-2], ","), `"`)
		out = append(out, types.Chunk{Path: filepath.Join(dir, name), Offset: start})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("segment list is empty")
	}
	return out, nil
}

func concatList(paths []string) string {
	var b strings.Builder
	for _, p := range paths {
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(p, "'", `'\''`))
		b.WriteString("'\n")
	}
	return b.String()
}

func sortedCopy(xs []float64) []float64 {
	out := append([]float64(nil), xs...)
	sort.Float64s(out)
	return out
}

func fmtSeconds(d time.Duration) string {
	return fmtSecondsF(float64(d) / float64(time.Second))
}

func fmtSecondsF(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "\\\\")
	p = strings.ReplaceAll(p, ":", "\\:")
	return p
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
