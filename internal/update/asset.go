package update

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"unicode"
)

// ErrChecksum is returned when a download does not match the checksum
// published with its release, or the published list omits it.
var ErrChecksum = errors.New("update checksum mismatch")

const maxChecksumBodyBytes = 1 << 20 // 1MB

var osAliases = map[string][]string{
	"darwin":  {"darwin", "macos", "mac", "osx"},
	"windows": {"windows", "win"},
	"linux":   {"linux"},
}

var archAliases = map[string][]string{
	"amd64": {"amd64", "x64"},
	"arm64": {"arm64", "aarch64"},
	"386":   {"386", "i386", "x86"},
	"arm":   {"arm", "armv7", "armv6", "armhf"},
}

// Assets that are never a bare executable.
var nonBinarySuffixes = []string{
	".zip", ".tar", ".gz", ".tgz", ".xz", ".bz2", ".7z",
	".dmg", ".pkg", ".msi", ".deb", ".rpm",
	".sha256", ".sha512", ".sig", ".asc", ".minisig", ".pem",
	".txt", ".json", ".yml", ".yaml", ".blockmap",
}

// selectAsset picks the first downloadable executable whose name carries the
// platform's OS and architecture as whole tokens, so "arm" never matches
// "arm64". Archives, packages, checksums and signatures are skipped; on
// Windows only ".exe" files qualify.
func selectAsset(assets []githubAsset, goos string, goarch string) (githubAsset, bool) {
	osNames := aliasesFor(osAliases, goos)
	archNames := aliasesFor(archAliases, goarch)
	for _, asset := range assets {
		if asset.DownloadURL == "" || !isExecutableAsset(asset.Name, goos) {
			continue
		}
		tokens := nameTokens(asset.Name)
		if containsAny(tokens, osNames) && containsAny(tokens, archNames) {
			return asset, true
		}
	}
	return githubAsset{}, false
}

func aliasesFor(table map[string][]string, key string) []string {
	key = strings.ToLower(key)
	if names, ok := table[key]; ok {
		return names
	}
	return []string{key}
}

func isExecutableAsset(name string, goos string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range nonBinarySuffixes {
		if strings.HasSuffix(lower, suffix) {
			return false
		}
	}
	if isChecksumList(lower) {
		return false
	}
	return strings.HasSuffix(lower, ".exe") == (goos == "windows")
}

// nameTokens splits an asset name on punctuation. "x86_64" and "x86-64" are
// folded into "amd64" first so they do not read as the 386 alias "x86".
func nameTokens(name string) []string {
	lower := strings.ToLower(name)
	lower = strings.NewReplacer("x86_64", "amd64", "x86-64", "amd64").Replace(lower)
	return strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func containsAny(tokens []string, want []string) bool {
	for _, w := range want {
		if slices.Contains(tokens, w) {
			return true
		}
	}
	return false
}

func isChecksumList(lowerName string) bool {
	return strings.Contains(lowerName, "checksums") || strings.Contains(lowerName, "sha256sums")
}

// checksumAssetFor returns the asset publishing target's SHA-256: a
// "<name>.sha256" file when present, else a release-wide checksums list.
func checksumAssetFor(assets []githubAsset, target githubAsset) (githubAsset, bool) {
	for _, asset := range assets {
		if strings.EqualFold(asset.Name, target.Name+".sha256") && asset.DownloadURL != "" {
			return asset, true
		}
	}
	for _, asset := range assets {
		if isChecksumList(strings.ToLower(asset.Name)) && asset.DownloadURL != "" {
			return asset, true
		}
	}
	return githubAsset{}, false
}

// parseChecksum finds the SHA-256 of name in sha256sum-style output
// ("<hex>  <name>", optionally "*<name>"). A single bare digest is accepted
// for per-file checksum assets.
func parseChecksum(r io.Reader, name string) ([]byte, error) {
	scanner := bufio.NewScanner(io.LimitReader(r, maxChecksumBodyBytes))
	var bare []string
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		switch len(fields) {
		case 0:
			continue
		case 1:
			bare = append(bare, fields[0])
		default:
			listed := strings.TrimPrefix(fields[len(fields)-1], "*")
			if listed == name {
				return decodeSHA256(fields[0])
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read checksums: %w", err)
	}
	if len(bare) == 1 {
		return decodeSHA256(bare[0])
	}
	return nil, fmt.Errorf("%w: %s is not listed", ErrChecksum, name)
}

func decodeSHA256(value string) ([]byte, error) {
	sum, err := hex.DecodeString(value)
	if err != nil || len(sum) != 32 {
		return nil, fmt.Errorf("%w: malformed digest %q", ErrChecksum, value)
	}
	return sum, nil
}
