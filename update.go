package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fectp/hordeimg/internal/cache"
)

// releaseURL serves a small JSON document describing the latest release.
const releaseURL = "https://raw.githubusercontent.com/fectp/hordeimg/main/version.json"

const updateCheckInterval = 24 * time.Hour

type releaseInfo struct {
	Version string `json:"version"`
	URL     string `json:"url"`
	Message string `json:"message"`
}

// checkForUpdate returns a newer release than the running version, if one
// exists. The remote document is fetched at most once per day, cached
// answers are reused in between. Failures are silent: an update hint is
// never worth breaking a generation run over.
func checkForUpdate(ctx context.Context, cachePath, current string) (releaseInfo, bool) {
	releases, err := cache.NewExpiring[releaseInfo](cachePath)
	if err != nil {
		return releaseInfo{}, false
	}

	info, err := releases.Load("release")
	if err != nil {
		info, err = fetchRelease(ctx)
		if err != nil {
			return releaseInfo{}, false
		}
		_ = releases.Store("release", time.Now().Add(updateCheckInterval), info)
	}

	if info.Version == "" || !versionLess(current, info.Version) {
		return releaseInfo{}, false
	}
	return info, true
}

func fetchRelease(ctx context.Context) (releaseInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, releaseURL, nil)
	if err != nil {
		return releaseInfo{}, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return releaseInfo{}, err
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		return releaseInfo{}, fmt.Errorf("fetch release info: %s", resp.Status)
	}
	var info releaseInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return releaseInfo{}, err
	}
	return info, nil
}

// versionLess compares two dotted version strings numerically. Leading
// "v" prefixes and pre-release suffixes are ignored. Unparseable versions
// (like "dev" builds) never count as older.
func versionLess(a, b string) bool {
	av, aok := parseVersion(a)
	bv, bok := parseVersion(b)
	if !aok || !bok {
		return false
	}
	for i := range max(len(av), len(bv)) {
		var x, y int
		if i < len(av) {
			x = av[i]
		}
		if i < len(bv) {
			y = bv[i]
		}
		if x != y {
			return x < y
		}
	}
	return false
}

func parseVersion(v string) ([]int, bool) {
	v = strings.TrimPrefix(v, "v")
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		v = v[:i]
	}
	parts := strings.Split(v, ".")
	nums := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, false
		}
		nums = append(nums, n)
	}
	return nums, len(nums) > 0
}
