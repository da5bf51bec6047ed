package schema

import (
	"encoding/json"
	"fmt"
)

// MediaCapabilities advertises which media commands a player supports,
// retained under the "capabilities" key.
type MediaCapabilities struct {
	Play     bool `json:"play"`
	Pause    bool `json:"pause"`
	Stop     bool `json:"stop"`
	Next     bool `json:"next"`
	Previous bool `json:"previous"`
	Seek     bool `json:"seek"`
	Repeat   bool `json:"repeat"`
	Shuffle  bool `json:"shuffle"`
}

// MediaStatus is the playback state of a player.
type MediaStatus string

const (
	Playing   MediaStatus = "playing"
	Paused    MediaStatus = "paused"
	Stopped   MediaStatus = "stopped"
	Buffering MediaStatus = "buffering"
	Idle      MediaStatus = "idle"
	Unknown   MediaStatus = "unknown"
)

// Repeat is a player's repeat mode.
type Repeat string

const (
	RepeatOff Repeat = "off"
	RepeatOne Repeat = "one"
	RepeatAll Repeat = "all"
)

// MediaPosition anchors playback progress to a wall-clock instant so
// consumers can extrapolate without a state update per tick.
type MediaPosition struct {
	PositionMs  int64   `json:"position_ms"`
	TimestampMs int64   `json:"timestamp_ms"`
	Rate        float32 `json:"rate"`
}

// CurrentPosition extrapolates the playback position at nowMs.
func (p MediaPosition) CurrentPosition(nowMs int64) int64 {
	elapsed := int64(float32(nowMs-p.TimestampMs) * p.Rate)
	return p.PositionMs + elapsed
}

// MediaState is the retained state of a tanuki.media player, under the
// "state" key. The progress anchor serialises under "position_ms" for
// wire compatibility.
type MediaState struct {
	Status     MediaStatus    `json:"status"`
	DurationMs *uint64        `json:"duration_ms,omitempty"`
	Position   *MediaPosition `json:"position_ms,omitempty"`
	Repeat     Repeat         `json:"repeat"`
	Shuffle    bool           `json:"shuffle"`
	Info       MediaInfo      `json:"info"`
	Message    *string        `json:"message,omitempty"`
}

// MediaInfo describes the current track or stream.
type MediaInfo struct {
	Title       *string  `json:"title"`
	Artists     []string `json:"artists"`
	Album       *string  `json:"album"`
	TrackNumber *uint32  `json:"track_number"`
	DiscNumber  *uint32  `json:"disc_number"`
	Genre       *string  `json:"genre"`
	ArtworkURL  *string  `json:"artwork_url"`
	URL         *string  `json:"url"`
	Live        bool     `json:"live"`
}

// MediaCommandType discriminates MediaCommand payloads.
type MediaCommandType string

const (
	Play       MediaCommandType = "play"
	Pause      MediaCommandType = "pause"
	PlayPause  MediaCommandType = "play_pause"
	Stop       MediaCommandType = "stop"
	Next       MediaCommandType = "next"
	Previous   MediaCommandType = "previous"
	Seek       MediaCommandType = "seek"
	SetRepeat  MediaCommandType = "set_repeat"
	SetShuffle MediaCommandType = "set_shuffle"
)

// MediaCommand is sent to a player under the "command" key. The JSON
// form is internally tagged: {"type": "seek", "position_ms": 1000}.
// Only the field matching the type is carried.
type MediaCommand struct {
	Type       MediaCommandType
	PositionMs uint64 // Seek
	Repeat     Repeat // SetRepeat
	Shuffle    bool   // SetShuffle
}

// SeekCommand builds a seek to an absolute position.
func SeekCommand(positionMs uint64) MediaCommand {
	return MediaCommand{Type: Seek, PositionMs: positionMs}
}

// SetRepeatCommand builds a repeat-mode change.
func SetRepeatCommand(repeat Repeat) MediaCommand {
	return MediaCommand{Type: SetRepeat, Repeat: repeat}
}

// SetShuffleCommand builds a shuffle toggle.
func SetShuffleCommand(shuffle bool) MediaCommand {
	return MediaCommand{Type: SetShuffle, Shuffle: shuffle}
}

func (c MediaCommand) MarshalJSON() ([]byte, error) {
	switch c.Type {
	case Seek:
		return json.Marshal(struct {
			Type       MediaCommandType `json:"type"`
			PositionMs uint64           `json:"position_ms"`
		}{c.Type, c.PositionMs})
	case SetRepeat:
		return json.Marshal(struct {
			Type   MediaCommandType `json:"type"`
			Repeat Repeat           `json:"repeat"`
		}{c.Type, c.Repeat})
	case SetShuffle:
		return json.Marshal(struct {
			Type    MediaCommandType `json:"type"`
			Shuffle bool             `json:"shuffle"`
		}{c.Type, c.Shuffle})
	case Play, Pause, PlayPause, Stop, Next, Previous:
		return json.Marshal(struct {
			Type MediaCommandType `json:"type"`
		}{c.Type})
	}
	return nil, fmt.Errorf("unknown media command type %q", c.Type)
}

func (c *MediaCommand) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type       MediaCommandType `json:"type"`
		PositionMs uint64           `json:"position_ms"`
		Repeat     Repeat           `json:"repeat"`
		Shuffle    bool             `json:"shuffle"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch raw.Type {
	case Play, Pause, PlayPause, Stop, Next, Previous:
		*c = MediaCommand{Type: raw.Type}
	case Seek:
		*c = MediaCommand{Type: raw.Type, PositionMs: raw.PositionMs}
	case SetRepeat:
		*c = MediaCommand{Type: raw.Type, Repeat: raw.Repeat}
	case SetShuffle:
		*c = MediaCommand{Type: raw.Type, Shuffle: raw.Shuffle}
	default:
		return fmt.Errorf("unknown media command type %q", raw.Type)
	}
	return nil
}
