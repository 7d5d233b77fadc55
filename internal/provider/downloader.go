package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/url"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/time/rate"

	"github.com/iceice666/sunflower/internal/config"
	"github.com/iceice666/sunflower/internal/source"
	"github.com/iceice666/sunflower/internal/storage"
)

var (
	// "{engine}{N}:{keyword}" search terms pass through to the tool as-is;
	// the keyword alone is used against the cache.
	enginePattern = regexp.MustCompile(`^\w+\d+:(.+)$`)

	cachedPattern = regexp.MustCompile(`^cached_(\d+)$`)
)

const cachedSearchLimit = 50

// DownloaderProvider wraps an external downloader tool (yt-dlp compatible).
// Materialized tracks are remembered in a sqlite cache keyed by source URL;
// plain audio URLs are fetched directly over HTTP instead of through the
// tool.
type DownloaderProvider struct {
	binaryPath string
	extraArgs  []string

	store       *storage.Store
	downloadDir string

	httpClient *retryablehttp.Client
	limiter    *rate.Limiter

	debug bool
}

type debugLogger struct{}

func (d *debugLogger) Printf(format string, args ...interface{}) {
	log.Printf("[HTTP] "+format, args...)
}

// NewDownloaderProvider verifies the tool is runnable and opens the cache.
func NewDownloaderProvider(cfg *config.Config, binaryPath string, extraArgs []string) (*DownloaderProvider, error) {
	out, err := exec.Command(binaryPath, "--version").Output()
	if err != nil {
		return nil, fmt.Errorf("verify downloader tool %q: %w", binaryPath, err)
	}
	if cfg.Debug {
		log.Printf("[PROVIDER] downloader tool version: %s", strings.TrimSpace(string(out)))
	}

	store, err := storage.Open(cfg.Storage.DatabasePath, cfg.Storage.EnableWAL, cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("open download cache: %w", err)
	}

	downloadDir := filepath.Join(cfg.Storage.CacheDir, "downloads")
	if err := os.MkdirAll(downloadDir, 0755); err != nil {
		if closeErr := store.Close(); closeErr != nil {
			log.Printf("Failed to close store after mkdir error: %v", closeErr)
		}
		return nil, fmt.Errorf("create download directory: %w", err)
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.Download.Retries
	retryClient.HTTPClient.Timeout = time.Duration(cfg.Download.Timeout) * time.Second
	retryClient.Logger = nil
	if cfg.Debug {
		retryClient.Logger = &debugLogger{}
	}

	return &DownloaderProvider{
		binaryPath:  binaryPath,
		extraArgs:   extraArgs,
		store:       store,
		downloadDir: downloadDir,
		httpClient:  retryClient,
		limiter: rate.NewLimiter(
			rate.Limit(cfg.Download.RequestsPerSecond),
			cfg.Download.BurstSize,
		),
		debug: cfg.Debug,
	}, nil
}

func (p *DownloaderProvider) debugLog(format string, args ...interface{}) {
	if !p.debug {
		return
	}
	log.Printf("[PROVIDER] "+format, args...)
}

// Close releases the cache database.
func (p *DownloaderProvider) Close() error {
	return p.store.Close()
}

func (p *DownloaderProvider) Name() string { return "DownloaderProvider" }

// Search returns cached hits for the term first, then augments them with
// fresh results from the tool. maxResults of zero returns cached hits only.
func (p *DownloaderProvider) Search(query string, maxResults int) (map[string]string, error) {
	query = strings.TrimSpace(query)

	cacheTerm := query
	toolTerm := query
	if m := enginePattern.FindStringSubmatch(query); m != nil {
		cacheTerm = m[1]
	} else if maxResults > 0 {
		toolTerm = fmt.Sprintf("ytsearch%d:%s", maxResults, query)
	}

	result, err := p.searchCache(cacheTerm, maxResults)
	if err != nil {
		return nil, err
	}

	if maxResults == 0 {
		p.debugLog("max results is 0, returning %d cached hits only", len(result))
		return result, nil
	}

	args := []string{
		"--no-playlist",
		"--print", "id",
		"--print", "fulltitle",
		toolTerm,
	}
	args = append(args, p.extraArgs...)

	out, err := exec.Command(p.binaryPath, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("downloader search: %w", err)
	}

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	fresh := 0
	for i := 0; i+1 < len(lines); i += 2 {
		result[strings.TrimSpace(lines[i])] = strings.TrimSpace(lines[i+1])
		fresh++
	}
	p.debugLog("found %d fresh results from tool", fresh)

	return result, nil
}

// searchCache pulls LIKE matches from the store and keeps the fuzzy-closest
// maxResults of them.
func (p *DownloaderProvider) searchCache(term string, maxResults int) (map[string]string, error) {
	cached, err := p.store.SearchTitles(context.Background(), term, cachedSearchLimit)
	if err != nil {
		return nil, fmt.Errorf("search cache: %w", err)
	}

	sort.SliceStable(cached, func(i, j int) bool {
		ri := fuzzy.RankMatchNormalizedFold(term, cached[i].Title)
		rj := fuzzy.RankMatchNormalizedFold(term, cached[j].Title)
		if ri < 0 {
			return false
		}
		if rj < 0 {
			return true
		}
		return ri < rj
	})

	if maxResults > 0 && len(cached) > maxResults {
		cached = cached[:maxResults]
	}

	result := make(map[string]string, len(cached))
	for _, t := range cached {
		result[fmt.Sprintf("cached_%d", t.ID)] = fmt.Sprintf("%s: %s", t.URL, t.Title)
	}

	p.debugLog("found %d cached results", len(result))
	return result, nil
}

// GetTrack returns the cached local file when present and still on disk;
// otherwise it downloads, inserts into the cache, and returns the new file.
func (p *DownloaderProvider) GetTrack(id string) (source.Track, error) {
	ctx := context.Background()

	if m := cachedPattern.FindStringSubmatch(id); m != nil {
		rowID, _ := strconv.ParseInt(m[1], 10, 64)
		entry, err := p.store.LookupByID(ctx, rowID)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			return nil, &TrackNotFoundError{ID: id}
		}
		return p.materialize(ctx, entry, entry.URL)
	}

	entry, err := p.store.LookupByURL(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry != nil {
		return p.materialize(ctx, entry, id)
	}

	return p.download(ctx, id)
}

// materialize turns a cache entry into a track, re-downloading when the
// backing file vanished.
func (p *DownloaderProvider) materialize(ctx context.Context, entry *storage.CachedTrack, downloadID string) (source.Track, error) {
	if _, err := os.Stat(entry.LocalPath); err == nil {
		p.debugLog("cache hit: %s -> %s", entry.URL, entry.LocalPath)
		return source.NewDownloadedTrack(entry.LocalPath, entry.URL, entry.Title), nil
	}

	log.Printf("[PROVIDER] cached file missing, re-downloading %s", entry.URL)
	if err := p.store.Delete(ctx, entry.ID); err != nil {
		p.debugLog("failed to drop stale cache entry: %v", err)
	}
	return p.download(ctx, downloadID)
}

func (p *DownloaderProvider) download(ctx context.Context, id string) (source.Track, error) {
	if isDirectAudioURL(id) {
		return p.downloadDirect(ctx, id)
	}
	return p.downloadWithTool(ctx, id)
}

func (p *DownloaderProvider) downloadWithTool(ctx context.Context, id string) (source.Track, error) {
	outputTemplate := filepath.Join(p.downloadDir, "%(extractor_key)s", "%(fulltitle)s.%(ext)s")

	args := []string{
		"--no-keep-video",
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", "0",
		"--print", "webpage_url",
		"--print", "fulltitle",
		"--print", "after_move:filepath",
		"--output", outputTemplate,
		id,
	}
	args = append(args, p.extraArgs...)

	p.debugLog("downloading %q with tool", id)
	out, err := exec.Command(p.binaryPath, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("downloader fetch %q: %w", id, err)
	}

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) < 3 {
		return nil, fmt.Errorf("unexpected downloader output for %q: got %d lines, want 3", id, len(lines))
	}
	trackURL := strings.TrimSpace(lines[0])
	title := strings.TrimSpace(lines[1])
	localPath := strings.TrimSpace(lines[2])

	if err := p.store.Insert(ctx, trackURL, title, localPath); err != nil {
		log.Printf("[PROVIDER] failed to update download cache: %v", err)
	}

	return source.NewDownloadedTrack(localPath, trackURL, title), nil
}

// downloadDirect fetches a plain audio URL over HTTP, writing through a temp
// file so a failed transfer leaves nothing behind.
func (p *DownloaderProvider) downloadDirect(ctx context.Context, rawURL string) (source.Track, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	p.debugLog("direct download %s", rawURL)
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			p.debugLog("failed to close response body: %v", closeErr)
		}
	}()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	title := urlBasename(rawURL)
	destination := filepath.Join(p.downloadDir, "direct", title)
	if err := os.MkdirAll(filepath.Dir(destination), 0755); err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}

	tempFile := destination + ".tmp"
	file, err := os.Create(tempFile)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	if _, err := io.Copy(file, resp.Body); err != nil {
		_ = file.Close()
		if removeErr := os.Remove(tempFile); removeErr != nil && !errors.Is(removeErr, fs.ErrNotExist) {
			p.debugLog("failed to remove temp file: %v", removeErr)
		}
		return nil, fmt.Errorf("write file: %w", err)
	}
	if err := file.Close(); err != nil {
		if removeErr := os.Remove(tempFile); removeErr != nil && !errors.Is(removeErr, fs.ErrNotExist) {
			p.debugLog("failed to remove temp file: %v", removeErr)
		}
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tempFile, destination); err != nil {
		if removeErr := os.Remove(tempFile); removeErr != nil {
			p.debugLog("failed to remove temp file after rename error: %v", removeErr)
		}
		return nil, fmt.Errorf("move file to destination: %w", err)
	}

	if err := p.store.Insert(ctx, rawURL, title, destination); err != nil {
		log.Printf("[PROVIDER] failed to update download cache: %v", err)
	}

	p.debugLog("direct download completed: %s", destination)
	return source.NewDownloadedTrack(destination, rawURL, title), nil
}

func isDirectAudioURL(id string) bool {
	u, err := url.Parse(id)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	switch strings.ToLower(path.Ext(u.Path)) {
	case ".mp3", ".wav", ".flac", ".ogg", ".oga":
		return true
	}
	return false
}

func urlBasename(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "download"
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" || base == "" {
		return "download"
	}
	return base
}
