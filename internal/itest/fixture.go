//go:build integration

package itest

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// makeVideo renders one solid-color shot per color followed by each other,
// so ffmpeg sees a scene cut at every color change. audio is muxed in when
// set, otherwise a sine tone covers the whole clip.
func makeVideo(t *testing.T, dir string, colors []string, shotSec int, audio string) string {
	t.Helper()

	var args []string
	var labels strings.Builder
	for i, c := range colors {
		args = append(args, "-f", "lavfi", "-i", fmt.Sprintf("color=c=%s:s=640x360:r=25:d=%d", c, shotSec))
		fmt.Fprintf(&labels, "[%d:v]", i)
	}
	if audio != "" {
		args = append(args, "-i", audio)
	} else {
		args = append(args, "-f", "lavfi", "-i", fmt.Sprintf("sine=frequency=440:duration=%d", shotSec*len(colors)))
	}

	out := filepath.Join(dir, "input.mp4")
	args = append([]string{"-y"}, args...)
	args = append(args,
		"-filter_complex", fmt.Sprintf("%sconcat=n=%d:v=1:a=0[v]", labels.String(), len(colors)),
		"-map", "[v]",
		"-map", fmt.Sprintf("%d:a", len(colors)),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-t", fmt.Sprint(shotSec*len(colors)),
		out,
	)
	if b, err := exec.Command("ffmpeg", args...).CombinedOutput(); err != nil {
		t.Fatalf("ffmpeg fixture failed: %v\n%s", err, string(b))
	}
	return out
}

func writeNonMedia(t *testing.T, dir string) string {
	t.Helper()
	p := filepath.Join(dir, "not-media.txt")
	if err := os.WriteFile(p, []byte("definitely not a video\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return p
}
