// Package protocol defines the request/response messages exchanged between
// the daemon and its clients. The envelope is JSON; framing is the
// transport's business.
package protocol

import (
	"fmt"
	"time"
)

// Repeat mirrors the player's repeat mode on the wire.
type Repeat string

const (
	RepeatNone  Repeat = "none"
	RepeatTrack Repeat = "track"
	RepeatQueue Repeat = "queue"
)

// ParseRepeat converts a user-supplied repeat mode string.
func ParseRepeat(s string) (Repeat, error) {
	switch Repeat(s) {
	case RepeatNone, RepeatTrack, RepeatQueue:
		return Repeat(s), nil
	}
	return "", fmt.Errorf("invalid repeat mode: %q", s)
}

// RequestKind selects which op group a request belongs to.
type RequestKind string

const (
	KindAreYouAlive RequestKind = "are_you_alive"
	KindTerminate   RequestKind = "terminate"
	KindPlayer      RequestKind = "player"
	KindState       RequestKind = "state"
	KindTrack       RequestKind = "track"
	KindProvider    RequestKind = "provider"
)

// PlayerOp is a transport-level player operation.
type PlayerOp string

const (
	PlayerPlay             PlayerOp = "play"
	PlayerPause            PlayerOp = "pause"
	PlayerStop             PlayerOp = "stop"
	PlayerNext             PlayerOp = "next"
	PlayerPrev             PlayerOp = "prev"
	PlayerGetVolume        PlayerOp = "get_volume"
	PlayerSetVolume        PlayerOp = "set_volume"
	PlayerGetPos           PlayerOp = "get_pos"
	PlayerGetTotalDuration PlayerOp = "get_total_duration"
	PlayerJumpTo           PlayerOp = "jump_to"
)

// StateOp queries or mutates the playback-mode flags.
type StateOp string

const (
	StateGetRepeat     StateOp = "get_repeat"
	StateSetRepeat     StateOp = "set_repeat"
	StateGetShuffle    StateOp = "get_shuffle"
	StateToggleShuffle StateOp = "toggle_shuffle"
	StateGetAllState   StateOp = "get_all_state"
)

// TrackOp manipulates the queue.
type TrackOp string

const (
	TrackAdd      TrackOp = "add_track"
	TrackRemove   TrackOp = "remove_track"
	TrackClear    TrackOp = "clear_queue"
	TrackGetQueue TrackOp = "get_queue"
)

// ProviderOp manages the provider registry.
type ProviderOp string

const (
	ProviderRegister      ProviderOp = "register"
	ProviderUnregister    ProviderOp = "unregister"
	ProviderGetRegistered ProviderOp = "get_registered"
	ProviderSearchTracks  ProviderOp = "search_tracks"
)

// ProviderConfigKind tags the provider-configuration sum type.
type ProviderConfigKind string

const (
	ProviderConfigSinewave   ProviderConfigKind = "sinewave"
	ProviderConfigLocalFile  ProviderConfigKind = "local_file"
	ProviderConfigDownloader ProviderConfigKind = "downloader"
)

// ProviderConfig carries the fields needed to construct a provider.
type ProviderConfig struct {
	Kind ProviderConfigKind `json:"kind"`

	// local_file
	MusicFolder string `json:"music_folder,omitempty"`
	Recursive   bool   `json:"recursive,omitempty"`

	// downloader
	BinaryPath string   `json:"binary_path,omitempty"`
	ExtraArgs  []string `json:"extra_args,omitempty"`
}

type PlayerRequest struct {
	Op       PlayerOp      `json:"op"`
	Volume   float64       `json:"volume,omitempty"`
	Position time.Duration `json:"position,omitempty"`
}

type StateRequest struct {
	Op     StateOp `json:"op"`
	Repeat Repeat  `json:"repeat,omitempty"`
}

type TrackRequest struct {
	Op       TrackOp `json:"op"`
	Provider string  `json:"provider,omitempty"`
	TrackID  string  `json:"track_id,omitempty"`
	Index    int     `json:"index,omitempty"`
}

type ProviderRequest struct {
	Op         ProviderOp      `json:"op"`
	Config     *ProviderConfig `json:"config,omitempty"`
	Name       string          `json:"name,omitempty"`
	Query      string          `json:"query,omitempty"`
	MaxResults *int            `json:"max_results,omitempty"`
	Providers  []string        `json:"providers,omitempty"`
}

// Request is one complete client message. Exactly one op-group payload is
// set, matching Kind.
type Request struct {
	ID   string      `json:"id"`
	Kind RequestKind `json:"kind"`

	Player   *PlayerRequest   `json:"player,omitempty"`
	State    *StateRequest    `json:"state,omitempty"`
	Track    *TrackRequest    `json:"track,omitempty"`
	Provider *ProviderRequest `json:"provider,omitempty"`
}

// ResponseKind tags the payload of a response.
type ResponseKind string

const (
	RespImAlive           ResponseKind = "im_alive"
	RespOk                ResponseKind = "ok"
	RespErr               ResponseKind = "error"
	RespVolume            ResponseKind = "volume"
	RespPosition          ResponseKind = "position"
	RespTotal             ResponseKind = "total"
	RespRepeat            ResponseKind = "repeat"
	RespShuffled          ResponseKind = "shuffled"
	RespCurrentState      ResponseKind = "current_state"
	RespCurrentQueue      ResponseKind = "current_queue"
	RespTrackSearchResult ResponseKind = "track_search_result"
	RespRegisters         ResponseKind = "registers"
)

// CurrentState is the full playback snapshot.
type CurrentState struct {
	Volume   float64        `json:"volume"`
	Position time.Duration  `json:"position"`
	Total    *time.Duration `json:"total,omitempty"`
	Repeat   Repeat         `json:"repeat"`
	Shuffled bool           `json:"shuffled"`
}

// Response is one complete daemon message, correlated to its request by ID.
type Response struct {
	ID   string       `json:"id"`
	Kind ResponseKind `json:"kind"`

	Message       string                       `json:"message,omitempty"`
	Volume        float64                      `json:"volume,omitempty"`
	Position      time.Duration                `json:"position,omitempty"`
	Total         *time.Duration               `json:"total,omitempty"`
	Repeat        Repeat                       `json:"repeat,omitempty"`
	Shuffled      bool                         `json:"shuffled,omitempty"`
	State         *CurrentState                `json:"state,omitempty"`
	Queue         []string                     `json:"queue,omitempty"`
	SearchResults map[string]map[string]string `json:"search_results,omitempty"`
	Registered    []string                     `json:"registered,omitempty"`
}

func ImAlive(id string) Response {
	return Response{ID: id, Kind: RespImAlive}
}

func Ok(id string) Response {
	return Response{ID: id, Kind: RespOk}
}

func OkMessage(id, msg string) Response {
	return Response{ID: id, Kind: RespOk, Message: msg}
}

func Err(id, msg string) Response {
	return Response{ID: id, Kind: RespErr, Message: msg}
}

func Errf(id, format string, args ...interface{}) Response {
	return Response{ID: id, Kind: RespErr, Message: fmt.Sprintf(format, args...)}
}
