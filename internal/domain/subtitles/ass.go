package subtitles

import (
	"fmt"
	"strings"
	"time"

	"github.com/forPelevin/trailercut/internal/types"
)

// Cue is a subtitle line on the trailer timeline.
type Cue struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// TrailerCues maps transcript segments onto the concatenated trailer
// timeline. Each plan scene occupies the output right after the previous
// one; segment pieces outside a scene are dropped and pieces inside it are
// clipped to its bounds.
func TrailerCues(segs []types.Segment, plan types.Plan) []Cue {
	var out []Cue
	var offset time.Duration
	for _, sc := range plan.Scenes {
		sStart, sEnd := dur(sc.Start), dur(sc.End)
		if sEnd <= sStart {
			continue
		}
		for _, s := range segs {
			text := strings.TrimSpace(s.Text)
			if text == "" {
				continue
			}
			ss, se := dur(s.Start), dur(s.End)
			if se <= sStart || ss >= sEnd {
				continue
			}
			if ss < sStart {
				ss = sStart
			}
			if se > sEnd {
				se = sEnd
			}
			out = append(out, Cue{
				Start: offset + ss - sStart,
				End:   offset + se - sStart,
				Text:  sanitizeASS(text),
			})
		}
		offset += sEnd - sStart
	}
	return out
}

// RenderTrailerASS renders the cues of a plan as an ASS script. A plan with
// no speech still yields a valid script with no events.
func RenderTrailerASS(segs []types.Segment, plan types.Plan) (string, error) {
	if len(plan.Scenes) == 0 {
		return "", fmt.Errorf("render subtitles: empty plan")
	}
	return renderASS(TrailerCues(segs, plan)), nil
}

func renderASS(cues []Cue) string {
	var b strings.Builder
	b.WriteString(assHeader())
	b.WriteString("\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, c := range cues {
		b.WriteString("Dialogue: 0,")
		b.WriteString(assTime(c.Start))
		b.WriteString(",")
		b.WriteString(assTime(c.End))
		b.WriteString(",Trailer,,0,0,0,,")
		b.WriteString(wrapLine(c.Text, 42))
		b.WriteString("\n")
	}
	return b.String()
}

// wrapLine breaks long cues with ASS hard line breaks at word boundaries.
func wrapLine(text string, width int) string {
	words := strings.Fields(text)
	var b strings.Builder
	lineLen := 0
	for _, w := range words {
		wl := len([]rune(w))
		if lineLen > 0 && lineLen+1+wl > width {
			b.WriteString("\\N")
			lineLen = 0
		} else if lineLen > 0 {
			b.WriteByte(' ')
			lineLen++
		}
		b.WriteString(w)
		lineLen += wl
	}
	return b.String()
}

func assHeader() string {
	return strings.TrimSpace(`
[Script Info]
ScriptType: v4.00+
PlayResX: 1920
PlayResY: 1080
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Trailer, Inter, 56, &H00FFFFFF, &H00FFFFFF, &H00000000, &H64000000, 0,0,0,0,100,100,0,0,1,3,1,2, 80,80,60,1
`)
}

func assTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hs := int(d / time.Hour)
	d -= time.Duration(hs) * time.Hour
	ms := int(d / time.Minute)
	d -= time.Duration(ms) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	cs := int(d / (10 * time.Millisecond))
	return fmt.Sprintf("%d:%02d:%02d.%02d", hs, ms, s, cs)
}

func sanitizeASS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	return strings.TrimSpace(s)
}

func dur(sec float64) time.Duration { return time.Duration(sec * float64(time.Second)) }
