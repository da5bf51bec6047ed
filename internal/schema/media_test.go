package schema

import (
	"encoding/json"
	"testing"
)

func TestMediaCommand_JSON(t *testing.T) {
	tests := []struct {
		name string
		cmd  MediaCommand
		want string
	}{
		{"bare play", MediaCommand{Type: Play}, `{"type":"play"}`},
		{"play_pause", MediaCommand{Type: PlayPause}, `{"type":"play_pause"}`},
		{"seek", SeekCommand(90500), `{"type":"seek","position_ms":90500}`},
		{"set_repeat", SetRepeatCommand(RepeatAll), `{"type":"set_repeat","repeat":"all"}`},
		{"set_shuffle", SetShuffleCommand(true), `{"type":"set_shuffle","shuffle":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.cmd)
			if err != nil {
				t.Fatalf("Marshal error = %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("Marshal = %s, want %s", data, tt.want)
			}

			var got MediaCommand
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("Unmarshal(%s) error = %v", data, err)
			}
			if got != tt.cmd {
				t.Errorf("round trip = %#v, want %#v", got, tt.cmd)
			}
		})
	}

	var cmd MediaCommand
	if err := json.Unmarshal([]byte(`{"type":"rewind"}`), &cmd); err == nil {
		t.Error("Unmarshal rewind succeeded, want error")
	}
}

func TestMediaState_JSON(t *testing.T) {
	duration := uint64(215000)
	title := "Example Track"
	state := MediaState{
		Status:     Playing,
		DurationMs: &duration,
		Position:   &MediaPosition{PositionMs: 30000, TimestampMs: 1712345678000, Rate: 1},
		Repeat:     RepeatOff,
		Info:       MediaInfo{Title: &title, Artists: []string{"Example Artist"}},
	}

	data, err := json.Marshal(state)
	if err != nil {
		t.Fatalf("Marshal error = %v", err)
	}

	var got MediaState
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	if got.Status != Playing || *got.DurationMs != duration {
		t.Errorf("round trip status/duration = %v/%v", got.Status, got.DurationMs)
	}
	if got.Position == nil || *got.Position != *state.Position {
		t.Errorf("round trip position = %#v, want %#v", got.Position, state.Position)
	}
	if *got.Info.Title != title {
		t.Errorf("round trip title = %q, want %q", *got.Info.Title, title)
	}
}

func TestMediaPosition_CurrentPosition(t *testing.T) {
	tests := []struct {
		name string
		pos  MediaPosition
		now  int64
		want int64
	}{
		{"normal rate", MediaPosition{PositionMs: 1000, TimestampMs: 5000, Rate: 1}, 8000, 4000},
		{"double rate", MediaPosition{PositionMs: 1000, TimestampMs: 5000, Rate: 2}, 8000, 7000},
		{"paused", MediaPosition{PositionMs: 1000, TimestampMs: 5000, Rate: 0}, 60000, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pos.CurrentPosition(tt.now); got != tt.want {
				t.Errorf("CurrentPosition(%d) = %d, want %d", tt.now, got, tt.want)
			}
		})
	}
}
