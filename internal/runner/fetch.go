package runner

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const fetchTimeout = 5 * time.Minute

// Fetcher downloads remote unit archives and unpacks them under a caller
// supplied base directory. An archive is fetched once per repository and
// ref; later steps pointing at the same archive reuse the unpacked tree.
// Not safe for concurrent use.
type Fetcher struct {
	client *resty.Client
	cache  map[string]string
	seq    int
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		client: resty.New().SetTimeout(fetchTimeout),
		cache:  make(map[string]string),
	}
}

// Fetch returns a local directory holding the unit at loc, downloading and
// unpacking the repository archive under baseDir on first use.
func (f *Fetcher) Fetch(ctx context.Context, loc Location, baseDir string) (string, error) {
	key := loc.Repo + "@" + loc.Ref

	root, ok := f.cache[key]
	if ok {
		// A cached tree is gone once the run workspace it was unpacked
		// into has been removed.
		if _, err := os.Stat(root); err != nil {
			delete(f.cache, key)
			ok = false
		}
	}
	if !ok {
		dest := filepath.Join(baseDir, fmt.Sprintf("archive-%d", f.seq))
		if err := f.download(ctx, loc.Repo, loc.Ref, dest); err != nil {
			return "", err
		}
		f.seq++
		f.cache[key] = dest
		root = dest
	}

	if loc.Subdir == "" {
		return root, nil
	}

	dir := filepath.Join(root, filepath.FromSlash(loc.Subdir))
	if err := ensureWithin(root, dir); err != nil {
		return "", err
	}
	fi, err := os.Stat(dir)
	if err != nil || !fi.IsDir() {
		return "", fmt.Errorf("unit directory %q not found in archive of %s@%s", loc.Subdir, loc.Repo, loc.Ref)
	}
	return dir, nil
}

func (f *Fetcher) download(ctx context.Context, repo, ref, dest string) error {
	url := archiveURL(repo, ref)

	resp, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return fmt.Errorf("failed to download unit archive %q: %w", url, err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.IsError() {
		return fmt.Errorf("unit archive %q returned status %s", url, resp.Status())
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory %q: %w", dest, err)
	}
	if err := extractArchive(body, dest); err != nil {
		return fmt.Errorf("failed to unpack unit archive %q: %w", url, err)
	}
	return nil
}

// archiveURL builds the tarball endpoint for a repository ref, following
// the GitHub archive URL layout.
func archiveURL(repo, ref string) string {
	base := strings.TrimSuffix(strings.TrimSuffix(repo, "/"), ".git")
	return fmt.Sprintf("%s/archive/%s.tar.gz", base, ref)
}

// extractArchive unpacks a gzipped tarball into dest, dropping the single
// top-level directory the archive wraps its contents in. Entries other
// than plain files and directories are skipped.
func extractArchive(r io.Reader, dest string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("failed to open gzip stream: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read archive entry: %w", err)
		}

		rel := stripTopDir(hdr.Name)
		if rel == "" {
			continue
		}

		target := filepath.Join(dest, filepath.FromSlash(rel))
		if err := ensureWithin(dest, target); err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %q: %w", target, err)
			}
		case tar.TypeReg:
			if err := writeEntry(tr, target, hdr.FileInfo().Mode()); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeEntry(r io.Reader, target string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %q: %w", target, err)
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return fmt.Errorf("failed to create file %q: %w", target, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, r); err != nil {
		return fmt.Errorf("failed to write file %q: %w", target, err)
	}
	return nil
}

// stripTopDir removes the leading path element of an archive entry name.
// The top-level directory entry itself maps to the empty string.
func stripTopDir(name string) string {
	name = strings.TrimPrefix(path.Clean(name), "./")
	if i := strings.Index(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return ""
}

// ensureWithin rejects targets that escape root through "..". Archive
// entry names and configured subdirectories are both untrusted input.
func ensureWithin(root, target string) error {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return fmt.Errorf("invalid path relationship between %q and %q: %w", root, target, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path traversal detected: %q escapes %q", target, root)
	}
	return nil
}
