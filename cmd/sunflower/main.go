// Command sunflower is the thin CLI client for the playback daemon: it maps
// one subcommand to one request, prints the response, and exits.
package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/iceice666/sunflower/internal/config"
	"github.com/iceice666/sunflower/internal/transport"
	"github.com/iceice666/sunflower/pkg/protocol"
)

var (
	method     = flag.String("method", "", "Transport method: tcp|unix|pipe (defaults to the platform's native one)")
	tcpAddr    = flag.String("tcp-addr", "", "Daemon TCP address")
	socketPath = flag.String("socket", "", "Daemon unix socket path")
	pipeName   = flag.String("pipe", "", "Daemon named pipe")
	configPath = flag.String("config", "", "Path to configuration file")
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: sunflower [flags] <command> [args]

Commands:
  check                         Check if the daemon is alive
  play | pause | stop           Transport controls
  next | prev                   Queue navigation
  repeat [none|track|queue]     Print or set the repeat mode
  volume [0-100]                Print or set the volume
  toggle-shuffle                Toggle shuffle mode
  status                        Print the full playback state
  queue                         Print the queued tracks
  seek <duration>               Jump to a position (e.g. 1m30s)
  track add <provider> <id>     Add a track to the queue
  track remove <index>          Remove a track from the queue
  track clear                   Clear the queue
  provider new <kind> [opts]    Register a provider
  provider remove <name>        Unregister a provider
  provider registered           List registered providers
  provider search [opts] <q>    Search tracks
  terminate                     Stop the daemon
  magic                         Ciallo～(∠・ω< )⌒★

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	if args[0] == "magic" {
		fmt.Println("Ciallo～(∠・ω< )⌒★")
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *method != "" {
		cfg.Daemon.Transport = *method
	}
	if *tcpAddr != "" {
		cfg.Daemon.TCPAddr = *tcpAddr
	}
	if *socketPath != "" {
		cfg.Daemon.SocketPath = *socketPath
	}
	if *pipeName != "" {
		cfg.Daemon.PipeName = *pipeName
	}

	req, err := buildRequest(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	resp, err := roundTrip(cfg, req)
	if err != nil {
		log.Fatalf("request failed: %v", err)
	}

	printResponse(resp)
	if resp.Kind == protocol.RespErr {
		os.Exit(1)
	}
}

func buildRequest(args []string) (protocol.Request, error) {
	req := protocol.Request{ID: uuid.NewString()}

	switch args[0] {
	case "check":
		req.Kind = protocol.KindAreYouAlive

	case "terminate":
		req.Kind = protocol.KindTerminate

	case "play", "pause", "stop", "next", "prev":
		req.Kind = protocol.KindPlayer
		req.Player = &protocol.PlayerRequest{Op: protocol.PlayerOp(args[0])}

	case "repeat":
		req.Kind = protocol.KindState
		if len(args) == 1 {
			req.State = &protocol.StateRequest{Op: protocol.StateGetRepeat}
			break
		}
		mode, err := protocol.ParseRepeat(args[1])
		if err != nil {
			return req, err
		}
		req.State = &protocol.StateRequest{Op: protocol.StateSetRepeat, Repeat: mode}

	case "volume":
		req.Kind = protocol.KindPlayer
		if len(args) == 1 {
			req.Player = &protocol.PlayerRequest{Op: protocol.PlayerGetVolume}
			break
		}
		percent, err := strconv.Atoi(args[1])
		if err != nil || percent < 0 || percent > 100 {
			return req, fmt.Errorf("volume must be an integer in [0, 100]")
		}
		req.Player = &protocol.PlayerRequest{
			Op:     protocol.PlayerSetVolume,
			Volume: float64(percent) / 100,
		}

	case "toggle-shuffle":
		req.Kind = protocol.KindState
		req.State = &protocol.StateRequest{Op: protocol.StateToggleShuffle}

	case "status":
		req.Kind = protocol.KindState
		req.State = &protocol.StateRequest{Op: protocol.StateGetAllState}

	case "queue":
		req.Kind = protocol.KindTrack
		req.Track = &protocol.TrackRequest{Op: protocol.TrackGetQueue}

	case "seek":
		if len(args) < 2 {
			return req, fmt.Errorf("seek needs a position, e.g. 1m30s")
		}
		pos, err := time.ParseDuration(args[1])
		if err != nil {
			return req, fmt.Errorf("invalid position: %w", err)
		}
		req.Kind = protocol.KindPlayer
		req.Player = &protocol.PlayerRequest{Op: protocol.PlayerJumpTo, Position: pos}

	case "track":
		return buildTrackRequest(req, args[1:])

	case "provider":
		return buildProviderRequest(req, args[1:])

	default:
		return req, fmt.Errorf("unknown command: %s", args[0])
	}

	return req, nil
}

func buildTrackRequest(req protocol.Request, args []string) (protocol.Request, error) {
	req.Kind = protocol.KindTrack
	if len(args) == 0 {
		return req, fmt.Errorf("track needs a subcommand: add|remove|clear")
	}

	switch args[0] {
	case "add":
		if len(args) < 3 {
			return req, fmt.Errorf("track add needs a provider and a track id")
		}
		req.Track = &protocol.TrackRequest{
			Op:       protocol.TrackAdd,
			Provider: args[1],
			TrackID:  args[2],
		}

	case "remove":
		if len(args) < 2 {
			return req, fmt.Errorf("track remove needs an index")
		}
		idx, err := strconv.Atoi(args[1])
		if err != nil {
			return req, fmt.Errorf("invalid index: %w", err)
		}
		req.Track = &protocol.TrackRequest{Op: protocol.TrackRemove, Index: idx}

	case "clear":
		req.Track = &protocol.TrackRequest{Op: protocol.TrackClear}

	default:
		return req, fmt.Errorf("unknown track subcommand: %s", args[0])
	}

	return req, nil
}

func buildProviderRequest(req protocol.Request, args []string) (protocol.Request, error) {
	req.Kind = protocol.KindProvider
	if len(args) == 0 {
		return req, fmt.Errorf("provider needs a subcommand: new|remove|registered|search")
	}

	switch args[0] {
	case "new":
		fs := flag.NewFlagSet("provider new", flag.ContinueOnError)
		folder := fs.String("folder", "", "Music folder (local_file)")
		recursive := fs.Bool("recursive", false, "Scan the folder recursively (local_file)")
		binary := fs.String("binary", "", "Downloader tool path (downloader)")
		if len(args) < 2 {
			return req, fmt.Errorf("provider new needs a kind: sinewave|local_file|downloader")
		}
		if err := fs.Parse(args[2:]); err != nil {
			return req, err
		}

		cfg := protocol.ProviderConfig{Kind: protocol.ProviderConfigKind(args[1])}
		switch cfg.Kind {
		case protocol.ProviderConfigSinewave:
		case protocol.ProviderConfigLocalFile:
			cfg.MusicFolder = *folder
			cfg.Recursive = *recursive
		case protocol.ProviderConfigDownloader:
			cfg.BinaryPath = *binary
			cfg.ExtraArgs = fs.Args()
		default:
			return req, fmt.Errorf("unknown provider kind: %s", args[1])
		}
		req.Provider = &protocol.ProviderRequest{Op: protocol.ProviderRegister, Config: &cfg}

	case "remove":
		if len(args) < 2 {
			return req, fmt.Errorf("provider remove needs a name")
		}
		req.Provider = &protocol.ProviderRequest{Op: protocol.ProviderUnregister, Name: args[1]}

	case "registered":
		req.Provider = &protocol.ProviderRequest{Op: protocol.ProviderGetRegistered}

	case "search":
		fs := flag.NewFlagSet("provider search", flag.ContinueOnError)
		max := fs.Int("n", 0, "Maximum results per provider (0 = provider default)")
		var providers stringList
		fs.Var(&providers, "p", "Provider to search (repeatable; empty = all)")
		if err := fs.Parse(args[1:]); err != nil {
			return req, err
		}
		if fs.NArg() == 0 {
			return req, fmt.Errorf("provider search needs a keyword")
		}

		pr := &protocol.ProviderRequest{
			Op:        protocol.ProviderSearchTracks,
			Query:     fs.Arg(0),
			Providers: providers,
		}
		if *max > 0 {
			pr.MaxResults = max
		}
		req.Provider = pr

	default:
		return req, fmt.Errorf("unknown provider subcommand: %s", args[0])
	}

	return req, nil
}

type stringList []string

func (l *stringList) String() string { return fmt.Sprint([]string(*l)) }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func roundTrip(cfg *config.Config, req protocol.Request) (protocol.Response, error) {
	var resp protocol.Response

	conn, err := transport.Dial(cfg.Daemon.Transport, cfg.Daemon.TCPAddr, cfg.Daemon.SocketPath, cfg.Daemon.PipeName)
	if err != nil {
		return resp, fmt.Errorf("connect to daemon: %w", err)
	}
	defer func(conn net.Conn) {
		_ = conn.Close()
	}(conn)

	if err := transport.WriteMessage(conn, req); err != nil {
		return resp, err
	}
	if err := transport.ReadMessage(conn, &resp); err != nil {
		return resp, err
	}
	return resp, nil
}

func printResponse(resp protocol.Response) {
	switch resp.Kind {
	case protocol.RespImAlive:
		fmt.Println("daemon is alive")

	case protocol.RespOk:
		if resp.Message != "" {
			fmt.Println(resp.Message)
		} else {
			fmt.Println("ok")
		}

	case protocol.RespErr:
		fmt.Fprintf(os.Stderr, "error: %s\n", resp.Message)

	case protocol.RespVolume:
		fmt.Printf("volume: %.0f%%\n", resp.Volume*100)

	case protocol.RespPosition:
		fmt.Printf("position: %v\n", resp.Position.Round(time.Second))

	case protocol.RespTotal:
		if resp.Total == nil {
			fmt.Println("total: unknown")
		} else {
			fmt.Printf("total: %v\n", resp.Total.Round(time.Second))
		}

	case protocol.RespRepeat:
		fmt.Printf("repeat: %s\n", resp.Repeat)

	case protocol.RespShuffled:
		fmt.Printf("shuffled: %v\n", resp.Shuffled)

	case protocol.RespCurrentState:
		st := resp.State
		total := "unknown"
		if st.Total != nil {
			total = st.Total.Round(time.Second).String()
		}
		fmt.Printf("volume:   %.0f%%\n", st.Volume*100)
		fmt.Printf("position: %v / %s\n", st.Position.Round(time.Second), total)
		fmt.Printf("repeat:   %s\n", st.Repeat)
		fmt.Printf("shuffled: %v\n", st.Shuffled)

	case protocol.RespCurrentQueue:
		if len(resp.Queue) == 0 {
			fmt.Println("queue is empty")
			return
		}
		for i, title := range resp.Queue {
			fmt.Printf("%3d  %s\n", i, title)
		}

	case protocol.RespTrackSearchResult:
		names := make([]string, 0, len(resp.SearchResults))
		for name := range resp.SearchResults {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("%s:\n", name)
			for id, display := range resp.SearchResults[name] {
				fmt.Printf("  %-30s %s\n", id, display)
			}
		}

	case protocol.RespRegisters:
		for _, name := range resp.Registered {
			fmt.Println(name)
		}

	default:
		fmt.Printf("%+v\n", resp)
	}
}
