package whispercpp

import "testing"

func TestDecodeTranscript(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		wantCount int
		wantFirst [2]float64
		wantText  string
		wantErr   bool
	}{
		{
			name:      "whisper.cpp offsets",
			in:        `{"transcription":[{"offsets":{"from":0,"to":2500},"text":"  Hello there."},{"offsets":{"from":2500,"to":2500},"text":"blip"}]}`,
			wantCount: 1,
			wantFirst: [2]float64{0, 2.5},
			wantText:  "Hello there.",
		},
		{
			name:      "segments shape",
			in:        `{"segments":[{"start":1.5,"end":3,"text":" hi "}]}`,
			wantCount: 1,
			wantFirst: [2]float64{1.5, 3},
			wantText:  "hi",
		},
		{
			name:      "empty",
			in:        `{}`,
			wantCount: 0,
		},
		{
			name:    "invalid json",
			in:      `{`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := decodeTranscript([]byte(tt.in))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(tr.Segments) != tt.wantCount {
				t.Fatalf("expected %d segments, got %d", tt.wantCount, len(tr.Segments))
			}
			if tt.wantCount == 0 {
				return
			}
			s := tr.Segments[0]
			if s.Start != tt.wantFirst[0] || s.End != tt.wantFirst[1] || s.Text != tt.wantText {
				t.Fatalf("unexpected first segment: %+v", s)
			}
		})
	}
}
