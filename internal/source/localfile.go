package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// LocalFileTrack plays an audio file from the local filesystem. The codec is
// picked by extension: mp3, wav, flac, ogg.
type LocalFileTrack struct {
	Path string
}

func NewLocalFileTrack(path string) *LocalFileTrack {
	return &LocalFileTrack{Path: path}
}

func (t *LocalFileTrack) Kind() string { return KindLocalFile }

func (t *LocalFileTrack) UniqueID() string { return t.Path }

func (t *LocalFileTrack) DisplayTitle() string { return filepath.Base(t.Path) }

func (t *LocalFileTrack) Info() (map[string]string, error) {
	return nil, fmt.Errorf("%s: %w", t.Path, ErrInfoUnavailable)
}

func (t *LocalFileTrack) BuildSource() (*Audio, error) {
	return decodeFile(t.Path)
}

// DownloadedTrack is a file materialized by the downloader provider. It
// decodes like a local file but remembers the origin URL and catalog title.
type DownloadedTrack struct {
	Path  string
	URL   string
	Title string
}

func NewDownloadedTrack(path, url, title string) *DownloadedTrack {
	return &DownloadedTrack{Path: path, URL: url, Title: title}
}

func (t *DownloadedTrack) Kind() string { return KindDownloaded }

func (t *DownloadedTrack) UniqueID() string { return t.URL }

func (t *DownloadedTrack) DisplayTitle() string {
	if t.Title != "" {
		return t.Title
	}
	return t.URL
}

func (t *DownloadedTrack) Info() (map[string]string, error) {
	return map[string]string{
		"title":      t.Title,
		"url":        t.URL,
		"local_path": t.Path,
	}, nil
}

func (t *DownloadedTrack) BuildSource() (*Audio, error) {
	return decodeFile(t.Path)
}

func decodeFile(path string) (*Audio, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
		decErr   error
		kind     SampleKind
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		streamer, format, decErr = mp3.Decode(f)
		kind = SampleI16
	case ".wav":
		streamer, format, decErr = wav.Decode(f)
		kind = SampleI16
	case ".flac":
		streamer, format, decErr = flac.Decode(f)
		kind = SampleI16
	case ".ogg", ".oga":
		streamer, format, decErr = vorbis.Decode(f)
		kind = SampleF32
	default:
		_ = f.Close()
		return nil, &DecodeError{Path: path, Err: fmt.Errorf("unsupported file extension %q", filepath.Ext(path))}
	}

	if decErr != nil {
		_ = f.Close()
		return nil, &DecodeError{Path: path, Err: decErr}
	}

	// 8-bit wav decodes to unsigned samples.
	if kind == SampleI16 && format.Precision == 1 {
		kind = SampleU16
	}

	audio := &Audio{
		Kind:     kind,
		Streamer: streamer,
		Format:   format,
		closer:   streamer,
	}

	if n := streamer.Len(); n > 0 {
		audio.total = format.SampleRate.D(n)
		audio.hasTotal = true
	}

	return audio, nil
}
