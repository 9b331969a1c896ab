package update

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"
	"time"

	"github.com/minio/selfupdate"

	"ytm-desktop/internal/procutil"
)

const (
	defaultHTTPTimeout     = 30 * time.Second
	installDownloadTimeout = 10 * time.Minute
	maxReleaseBodyBytes    = 1 << 20 // 1MB
	userAgent              = "ytm-desktop-updater"
)

// GitHubOptions configures a GitHubService. Zero values use defaults.
type GitHubOptions struct {
	Client   *http.Client
	CacheDir string
	GOOS     string
	GOARCH   string
	// Quit is called after the new binary has been applied and started.
	// Defaults to os.Exit(0).
	Quit func()
}

// GitHubService implements Service against the GitHub releases API.
type GitHubService struct {
	feed     FeedConfig
	client   *http.Client
	cacheDir string
	goos     string
	goarch   string
	quit     func()

	applyFn   func(io.Reader, selfupdate.Options) error
	restartFn func(exe string, args []string) error

	mu          sync.Mutex
	latest      *githubRelease
	downloading bool
	downloaded  string
	// checksum is the SHA-256 published for downloaded, nil when the release
	// publishes none.
	checksum []byte
}

type githubRelease struct {
	TagName    string        `json:"tag_name"`
	Name       string        `json:"name"`
	Draft      bool          `json:"draft"`
	Prerelease bool          `json:"prerelease"`
	Assets     []githubAsset `json:"assets"`
}

type githubAsset struct {
	Name        string `json:"name"`
	DownloadURL string `json:"browser_download_url"`
	Size        int64  `json:"size"`
}

// NewGitHubService returns a service for feed.
func NewGitHubService(feed FeedConfig, opts GitHubOptions) *GitHubService {
	s := &GitHubService{
		feed:      feed,
		client:    opts.Client,
		cacheDir:  opts.CacheDir,
		goos:      opts.GOOS,
		goarch:    opts.GOARCH,
		quit:      opts.Quit,
		applyFn:   selfupdate.Apply,
		restartFn: startDetached,
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if s.cacheDir == "" {
		s.cacheDir = filepath.Join(os.TempDir(), feed.UpdaterCacheDirName)
	}
	if s.goos == "" {
		s.goos = goruntime.GOOS
	}
	if s.goarch == "" {
		s.goarch = goruntime.GOARCH
	}
	if s.quit == nil {
		s.quit = func() { os.Exit(0) }
	}
	return s
}

// Check fetches the latest published release.
func (s *GitHubService) Check(ctx context.Context) (Result, error) {
	rel, err := s.fetchLatest(ctx)
	if err != nil {
		return Result{}, err
	}
	s.mu.Lock()
	s.latest = rel
	downloading := s.downloading
	s.mu.Unlock()
	return Result{Info: Info{Version: rel.TagName}, Downloading: downloading}, nil
}

// Download fetches the platform asset of the last checked release into the
// updater cache directory and returns its path.
func (s *GitHubService) Download(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.downloading {
		s.mu.Unlock()
		return "", errors.New("download already in progress")
	}
	if s.downloaded != "" {
		done := s.downloaded
		s.mu.Unlock()
		return done, nil
	}
	rel := s.latest
	s.downloading = true
	s.mu.Unlock()

	target, sum, err := s.download(ctx, rel)

	s.mu.Lock()
	s.downloading = false
	if err == nil {
		s.downloaded = target
		s.checksum = sum
	}
	s.mu.Unlock()
	return target, err
}

// QuitAndInstall replaces the running executable with the downloaded build,
// starts it and quits this process.
func (s *GitHubService) QuitAndInstall() error {
	ctx, cancel := context.WithTimeout(context.Background(), installDownloadTimeout)
	defer cancel()

	s.mu.Lock()
	needCheck := s.latest == nil
	s.mu.Unlock()
	if needCheck {
		if _, err := s.Check(ctx); err != nil {
			return fmt.Errorf("install: %w", err)
		}
	}

	binPath, err := s.Download(ctx)
	if err != nil {
		return fmt.Errorf("install: %w", err)
	}
	s.mu.Lock()
	sum := s.checksum
	s.mu.Unlock()
	file, err := os.Open(binPath)
	if err != nil {
		return fmt.Errorf("install: open download: %w", err)
	}
	defer file.Close()

	if err := s.applyFn(file, selfupdate.Options{Checksum: sum}); err != nil {
		return fmt.Errorf("install: apply: %w", err)
	}
	exe, err := executablePathFn()
	if err != nil {
		return fmt.Errorf("install: resolve executable: %w", err)
	}
	if err := s.restartFn(exe, RelaunchArgs(os.Args[1:])); err != nil {
		return fmt.Errorf("install: restart: %w", err)
	}
	slog.Info("[update] update applied, quitting", "path", exe)
	s.quit()
	return nil
}

func (s *GitHubService) fetchLatest(ctx context.Context) (*githubRelease, error) {
	endpoint, err := url.JoinPath(s.feed.APIBaseURL, "repos", s.feed.Owner, s.feed.Repo, "releases", "latest")
	if err != nil {
		return nil, fmt.Errorf("build release url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch latest release: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch latest release: unexpected status %s", resp.Status)
	}

	var rel githubRelease
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxReleaseBodyBytes)).Decode(&rel); err != nil {
		return nil, fmt.Errorf("decode latest release: %w", err)
	}
	if strings.TrimSpace(rel.TagName) == "" {
		return nil, errors.New("latest release has no tag")
	}
	return &rel, nil
}

func (s *GitHubService) download(ctx context.Context, rel *githubRelease) (string, []byte, error) {
	if rel == nil {
		return "", nil, errors.New("no release checked yet")
	}
	asset, ok := selectAsset(rel.Assets, s.goos, s.goarch)
	if !ok {
		return "", nil, fmt.Errorf("%w: %s %s/%s", ErrNoAsset, rel.TagName, s.goos, s.goarch)
	}
	want, err := s.fetchChecksum(ctx, rel, asset)
	if err != nil {
		return "", nil, err
	}
	if err := os.MkdirAll(s.cacheDir, 0o700); err != nil {
		return "", nil, fmt.Errorf("create cache dir: %w", err)
	}

	resp, err := s.get(ctx, asset.DownloadURL)
	if err != nil {
		return "", nil, fmt.Errorf("download %s: %w", asset.Name, err)
	}
	defer resp.Body.Close()

	target := filepath.Join(s.cacheDir, path.Base(asset.Name))
	tmp, err := os.CreateTemp(s.cacheDir, ".download.*")
	if err != nil {
		return "", nil, fmt.Errorf("create download file: %w", err)
	}
	tmpPath := tmp.Name()
	hash := sha256.New()
	written, copyErr := io.Copy(io.MultiWriter(tmp, hash), resp.Body)
	closeErr := tmp.Close()
	if copyErr == nil && closeErr != nil {
		copyErr = closeErr
	}
	if copyErr == nil && asset.Size > 0 && written != asset.Size {
		copyErr = fmt.Errorf("size mismatch: got %d bytes, want %d", written, asset.Size)
	}
	if copyErr == nil && want != nil && !bytes.Equal(hash.Sum(nil), want) {
		copyErr = fmt.Errorf("%w: %s", ErrChecksum, asset.Name)
	}
	if copyErr != nil {
		if removeErr := os.Remove(tmpPath); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			slog.Warn("[update] failed to remove partial download", "path", tmpPath, "error", removeErr)
		}
		return "", nil, fmt.Errorf("download %s: %w", asset.Name, copyErr)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		return "", nil, fmt.Errorf("download %s: rename: %w", asset.Name, err)
	}
	slog.Info("[update] downloaded", "version", rel.TagName, "path", target, "bytes", written, "verified", want != nil)
	return target, want, nil
}

// fetchChecksum returns the published SHA-256 of asset, or nil when the
// release carries no checksum file.
func (s *GitHubService) fetchChecksum(ctx context.Context, rel *githubRelease, asset githubAsset) ([]byte, error) {
	sumAsset, ok := checksumAssetFor(rel.Assets, asset)
	if !ok {
		slog.Warn("[update] release publishes no checksum, installing unverified", "version", rel.TagName, "asset", asset.Name)
		return nil, nil
	}
	resp, err := s.get(ctx, sumAsset.DownloadURL)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", sumAsset.Name, err)
	}
	defer resp.Body.Close()
	return parseChecksum(resp.Body, asset.Name)
}

func (s *GitHubService) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return resp, nil
}

// RelaunchFlag marks a process started by QuitAndInstall. It waits for the
// previous instance to release the single-instance lock.
const RelaunchFlag = "--relaunched"

// RelaunchArgs returns args with RelaunchFlag appended exactly once.
func RelaunchArgs(args []string) []string {
	out := make([]string, 0, len(args)+1)
	for _, arg := range args {
		if arg != RelaunchFlag {
			out = append(out, arg)
		}
	}
	return append(out, RelaunchFlag)
}

func startDetached(exe string, args []string) error {
	cmd := exec.Command(exe, args...)
	procutil.Detach(cmd)
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}
