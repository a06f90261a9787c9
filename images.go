package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/fectp/hordeimg/internal/horde"
)

// supportedImageFormats maps file extensions to MIME types.
var supportedImageFormats = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// maxSourceImageSize caps the img2img source upload (5MB).
const maxSourceImageSize = 5 * 1024 * 1024

// readSourceImage reads a source image for img2img or inpainting and
// returns it base64-encoded, the way the generate endpoint expects it.
func readSourceImage(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := supportedImageFormats[ext]; !ok {
		return "", newUserErrorf("unsupported image format %q, use one of: jpg, png, gif, webp", ext)
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("could not read source image: %w", err)
	}
	if info.Size() > maxSourceImageSize {
		return "", newUserErrorf("source image too big: %d bytes, maximum is %d", info.Size(), maxSourceImageSize)
	}

	bts, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("could not read source image: %w", err)
	}
	return base64.StdEncoding.EncodeToString(bts), nil
}

// savedImage is one downloaded generation on disk.
type savedImage struct {
	Path  string
	Seed  string
	Model string
}

// saveImages downloads every uncensored generation into dir, named
// after the prompt slug and the worker's seed. Downloads run
// concurrently since R2 URLs are independent.
func saveImages(ctx context.Context, dir, slug string, gens []horde.Generation) ([]savedImage, int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:mnd
		return nil, 0, fmt.Errorf("could not create output directory: %w", err)
	}

	var censored int
	keep := make([]horde.Generation, 0, len(gens))
	for _, gen := range gens {
		if gen.Censored {
			censored++
			continue
		}
		keep = append(keep, gen)
	}

	saved := make([]savedImage, len(keep))
	g, ctx := errgroup.WithContext(ctx)
	for i, gen := range keep {
		g.Go(func() error {
			name := fmt.Sprintf("%s-%s.webp", slug, gen.Seed)
			if len(keep) > 1 {
				name = fmt.Sprintf("%s-%s-%d.webp", slug, gen.Seed, i+1)
			}
			path := filepath.Join(dir, name)
			if err := fetchImage(ctx, path, gen.Img); err != nil {
				return err
			}
			saved[i] = savedImage{Path: path, Seed: gen.Seed, Model: gen.Model}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, censored, err //nolint:wrapcheck
	}
	return saved, censored, nil
}

// fetchImage stores a single generation: a download when the horde
// handed out an R2 URL, a base64 decode otherwise.
func fetchImage(ctx context.Context, path, img string) error {
	if !strings.HasPrefix(img, "https://") && !strings.HasPrefix(img, "http://") {
		bts, err := base64.StdEncoding.DecodeString(img)
		if err != nil {
			return fmt.Errorf("could not decode embedded image: %w", err)
		}
		if err := os.WriteFile(path, bts, 0o644); err != nil { //nolint:mnd
			return fmt.Errorf("could not write image: %w", err)
		}
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, img, nil)
	if err != nil {
		return fmt.Errorf("could not build image request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not download image: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		return newUserErrorf("image download returned status %d", resp.StatusCode)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create image file: %w", err)
	}
	defer f.Close() //nolint:errcheck
	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("could not write image: %w", err)
	}
	return nil
}

var slugReg = regexp.MustCompile(`[^a-z0-9]+`)

const maxSlugLen = 48

// slugify builds a filesystem-friendly name out of a prompt.
func slugify(prompt string) string {
	slug := slugReg.ReplaceAllString(strings.ToLower(prompt), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxSlugLen {
		slug = strings.Trim(slug[:maxSlugLen], "-")
	}
	if slug == "" {
		slug = "untitled"
	}
	return slug
}
