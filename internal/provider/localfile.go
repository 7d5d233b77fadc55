package provider

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/iceice666/sunflower/internal/source"
)

// LocalFileProvider serves audio files under a music folder. Search walks
// the folder matching filenames against a case-insensitive regex and caches
// the name→path mapping; GetTrack resolves against the last search's cache.
type LocalFileProvider struct {
	musicFolder string
	recursive   bool

	searchCache map[string]string
}

func NewLocalFileProvider(musicFolder string, recursive bool) *LocalFileProvider {
	return &LocalFileProvider{
		musicFolder: musicFolder,
		recursive:   recursive,
		searchCache: make(map[string]string),
	}
}

func (p *LocalFileProvider) Name() string { return "LocalFileProvider" }

func (p *LocalFileProvider) Search(pattern string, maxResults int) (map[string]string, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, &InvalidQueryError{Query: pattern, Err: err}
	}

	result, err := p.searchFolder(re, maxResults)
	if err != nil {
		return nil, err
	}

	p.searchCache = result

	// GetTrack wants names, not paths.
	out := make(map[string]string, len(result))
	for name := range result {
		out[name] = name
	}
	return out, nil
}

func (p *LocalFileProvider) searchFolder(re *regexp.Regexp, maxResults int) (map[string]string, error) {
	result := make(map[string]string)

	walk := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !p.recursive && path != p.musicFolder {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		if maxResults >= 0 && len(result) >= maxResults {
			return fs.SkipAll
		}

		name := d.Name()
		if re.MatchString(name) {
			result[name] = path
		}
		return nil
	}

	if err := filepath.WalkDir(p.musicFolder, walk); err != nil {
		return nil, err
	}
	return result, nil
}

func (p *LocalFileProvider) GetTrack(name string) (source.Track, error) {
	path, ok := p.searchCache[name]
	if !ok {
		return nil, &TrackNotFoundError{ID: name}
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		delete(p.searchCache, name)
		return nil, &TrackNotFoundError{ID: name}
	}

	return source.NewLocalFileTrack(path), nil
}
