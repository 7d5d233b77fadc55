package daemon

import (
	"log"

	"github.com/iceice666/sunflower/internal/player"
	"github.com/iceice666/sunflower/internal/provider"
	"github.com/iceice666/sunflower/pkg/protocol"
)

// handle computes exactly one response for a request.
func (d *Daemon) handle(req protocol.Request) protocol.Response {
	d.debugLog("handling request %s kind=%s", req.ID, req.Kind)

	switch req.Kind {
	case protocol.KindAreYouAlive:
		return protocol.ImAlive(req.ID)

	case protocol.KindTerminate:
		// The response races the teardown; an undelivered Ok is acceptable.
		go d.Shutdown()
		return protocol.Ok(req.ID)

	case protocol.KindPlayer:
		if req.Player == nil {
			return protocol.Err(req.ID, "invalid request")
		}
		return d.handlePlayer(req.ID, *req.Player)

	case protocol.KindState:
		if req.State == nil {
			return protocol.Err(req.ID, "invalid request")
		}
		return d.handleState(req.ID, *req.State)

	case protocol.KindTrack:
		if req.Track == nil {
			return protocol.Err(req.ID, "invalid request")
		}
		return d.handleTrack(req.ID, *req.Track)

	case protocol.KindProvider:
		if req.Provider == nil {
			return protocol.Err(req.ID, "invalid request")
		}
		return d.handleProvider(req.ID, *req.Provider)

	default:
		return protocol.Err(req.ID, "invalid request")
	}
}

func (d *Daemon) handlePlayer(id string, req protocol.PlayerRequest) protocol.Response {
	switch req.Op {
	case protocol.PlayerPlay:
		d.sink.Play()
		d.state.SetPlaying(true)
		return protocol.Ok(id)

	case protocol.PlayerPause:
		d.sink.Pause()
		return protocol.Ok(id)

	case protocol.PlayerStop:
		d.sink.Stop()
		d.state.SetPlaying(false)
		return protocol.Ok(id)

	case protocol.PlayerNext:
		// Observed by the scheduler as the current source draining.
		d.sink.Stop()
		return protocol.Ok(id)

	case protocol.PlayerPrev:
		d.state.SetReversed(true)
		d.sink.Stop()
		return protocol.Ok(id)

	case protocol.PlayerGetVolume:
		return protocol.Response{ID: id, Kind: protocol.RespVolume, Volume: d.sink.Volume()}

	case protocol.PlayerSetVolume:
		d.sink.SetVolume(req.Volume)
		return protocol.Ok(id)

	case protocol.PlayerGetPos:
		return protocol.Response{ID: id, Kind: protocol.RespPosition, Position: d.sink.Position()}

	case protocol.PlayerGetTotalDuration:
		return protocol.Response{ID: id, Kind: protocol.RespTotal, Total: d.sink.TotalDuration()}

	case protocol.PlayerJumpTo:
		if err := d.sink.TrySeek(req.Position); err != nil {
			log.Printf("[DAEMON] seek failed: %v", err)
			return protocol.Err(id, err.Error())
		}
		return protocol.Ok(id)

	default:
		return protocol.Err(id, "invalid request")
	}
}

func (d *Daemon) handleState(id string, req protocol.StateRequest) protocol.Response {
	switch req.Op {
	case protocol.StateGetRepeat:
		return protocol.Response{ID: id, Kind: protocol.RespRepeat, Repeat: repeatToWire(d.state.RepeatMode())}

	case protocol.StateSetRepeat:
		mode, err := repeatFromWire(req.Repeat)
		if err != nil {
			return protocol.Err(id, err.Error())
		}
		d.state.SetRepeat(mode)
		return protocol.Ok(id)

	case protocol.StateGetShuffle:
		return protocol.Response{ID: id, Kind: protocol.RespShuffled, Shuffled: d.state.IsShuffled()}

	case protocol.StateToggleShuffle:
		d.state.ToggleShuffle()
		return protocol.Ok(id)

	case protocol.StateGetAllState:
		return protocol.Response{
			ID:   id,
			Kind: protocol.RespCurrentState,
			State: &protocol.CurrentState{
				Volume:   d.sink.Volume(),
				Position: d.sink.Position(),
				Total:    d.sink.TotalDuration(),
				Repeat:   repeatToWire(d.state.RepeatMode()),
				Shuffled: d.state.IsShuffled(),
			},
		}

	default:
		return protocol.Err(id, "invalid request")
	}
}

func (d *Daemon) handleTrack(id string, req protocol.TrackRequest) protocol.Response {
	switch req.Op {
	case protocol.TrackAdd:
		track, err := d.registry.GetTrack(req.Provider, req.TrackID)
		if err != nil {
			log.Printf("[DAEMON] add track failed: %v", err)
			return protocol.Err(id, err.Error())
		}
		d.state.Add(track)
		return protocol.Ok(id)

	case protocol.TrackRemove:
		if !d.state.Remove(req.Index) {
			return protocol.Errf(id, "track index out of range: %d", req.Index)
		}
		return protocol.Ok(id)

	case protocol.TrackClear:
		d.state.Clear()
		return protocol.Ok(id)

	case protocol.TrackGetQueue:
		return protocol.Response{ID: id, Kind: protocol.RespCurrentQueue, Queue: d.state.Queue()}

	default:
		return protocol.Err(id, "invalid request")
	}
}

func (d *Daemon) handleProvider(id string, req protocol.ProviderRequest) protocol.Response {
	switch req.Op {
	case protocol.ProviderRegister:
		if req.Config == nil {
			return protocol.Err(id, "missing provider config")
		}
		p, err := d.buildProvider(*req.Config)
		if err != nil {
			log.Printf("[DAEMON] provider registration failed: %v", err)
			return protocol.Err(id, err.Error())
		}
		d.registry.Register(p)
		return protocol.Ok(id)

	case protocol.ProviderUnregister:
		d.registry.Unregister(req.Name)
		return protocol.Ok(id)

	case protocol.ProviderGetRegistered:
		return protocol.Response{ID: id, Kind: protocol.RespRegisters, Registered: d.registry.AllProviders()}

	case protocol.ProviderSearchTracks:
		filter := providerFilter(req.Providers)
		max := provider.NoLimit
		if req.MaxResults != nil {
			max = *req.MaxResults
		}
		results := d.registry.Search(req.Query, max, filter)
		return protocol.Response{ID: id, Kind: protocol.RespTrackSearchResult, SearchResults: results}

	default:
		return protocol.Err(id, "invalid request")
	}
}

// providerFilter turns the request's provider set into a name predicate; an
// empty set means every registered provider.
func providerFilter(names []string) func(string) bool {
	if len(names) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return func(name string) bool {
		_, ok := set[name]
		return ok
	}
}

func (d *Daemon) buildProvider(cfg protocol.ProviderConfig) (provider.Provider, error) {
	switch cfg.Kind {
	case protocol.ProviderConfigSinewave:
		return provider.NewSineWaveProvider(), nil
	case protocol.ProviderConfigLocalFile:
		return provider.NewLocalFileProvider(cfg.MusicFolder, cfg.Recursive), nil
	case protocol.ProviderConfigDownloader:
		return provider.NewDownloaderProvider(d.cfg, cfg.BinaryPath, cfg.ExtraArgs)
	default:
		return nil, &provider.ProviderNotFoundError{Name: string(cfg.Kind)}
	}
}

func repeatToWire(r player.Repeat) protocol.Repeat {
	switch r {
	case player.RepeatTrack:
		return protocol.RepeatTrack
	case player.RepeatQueue:
		return protocol.RepeatQueue
	default:
		return protocol.RepeatNone
	}
}

func repeatFromWire(r protocol.Repeat) (player.Repeat, error) {
	switch r {
	case protocol.RepeatNone:
		return player.RepeatNone, nil
	case protocol.RepeatTrack:
		return player.RepeatTrack, nil
	case protocol.RepeatQueue:
		return player.RepeatQueue, nil
	default:
		return player.RepeatNone, &invalidRepeatError{value: string(r)}
	}
}

type invalidRepeatError struct{ value string }

func (e *invalidRepeatError) Error() string {
	return "invalid repeat mode: " + e.value
}
