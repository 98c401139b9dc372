package vocab

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"bioterms/internal/logging"
	"bioterms/internal/model"
)

// httpClient is shared across loaders, grounded on the teacher's
// internal/embedding/ollama.go request construction: a single client with
// an explicit timeout, context-scoped requests, no implicit defaults.
var httpClient = &http.Client{Timeout: 10 * time.Minute}

// DownloadSource is one file this vocabulary needs fetched.
type DownloadSource struct {
	URL      string
	FileName string // relative path under the vocabulary's data directory
	Unpack   UnpackKind
}

// UnpackKind names an archive format to extract after download.
type UnpackKind int

const (
	UnpackNone UnpackKind = iota
	UnpackZip
	UnpackTarGz
	UnpackGzip
)

// downloadAll fetches every source for prefix into <dataDir>/<prefix>/,
// skipping files that already exist unless redownload is set.
func downloadAll(ctx context.Context, dataDir string, prefix model.Prefix, sources []DownloadSource, redownload bool) error {
	dir := filepath.Join(dataDir, string(prefix))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return model.NewError(model.ErrIndexCreation, "failed to create vocabulary data directory", err)
	}

	for _, src := range sources {
		dest := filepath.Join(dir, src.FileName)
		if !redownload {
			if _, err := os.Stat(dest); err == nil {
				logging.VocabDebug("%s: %s already downloaded, skipping", prefix, src.FileName)
				continue
			}
		}
		if err := downloadOne(ctx, dest, src); err != nil {
			return err
		}
	}
	return nil
}

func downloadOne(ctx context.Context, dest string, src DownloadSource) error {
	logging.Vocab("downloading %s -> %s", src.URL, dest)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return model.NewError(model.ErrFilesNotFound, "failed to build download request for "+src.URL, err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return model.NewError(model.ErrTransientStore, "failed to download "+src.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return model.NewError(model.ErrFilesNotFound, "unexpected status downloading "+src.URL, nil)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return model.NewError(model.ErrIndexCreation, "failed to create destination directory", err)
	}

	switch src.Unpack {
	case UnpackNone:
		return writeFile(dest, resp.Body)
	case UnpackZip:
		return unpackZipStream(dest, resp.Body)
	case UnpackTarGz:
		return unpackTarGz(filepath.Dir(dest), resp.Body)
	case UnpackGzip:
		return unpackGzip(dest, resp.Body)
	default:
		return writeFile(dest, resp.Body)
	}
}

func writeFile(dest string, r io.Reader) error {
	f, err := os.Create(dest)
	if err != nil {
		return model.NewError(model.ErrIndexCreation, "failed to create "+dest, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return model.NewError(model.ErrTransientStore, "failed writing "+dest, err)
	}
	return nil
}

// unpackZipStream buffers the response to a temp file (zip.Reader needs
// io.ReaderAt) then extracts every entry into dest's parent directory.
func unpackZipStream(dest string, r io.Reader) error {
	tmp, err := os.CreateTemp("", "bioterms-download-*.zip")
	if err != nil {
		return model.NewError(model.ErrIndexCreation, "failed to create temp download file", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := io.Copy(tmp, r); err != nil {
		return model.NewError(model.ErrTransientStore, "failed buffering zip download", err)
	}

	zr, err := zip.OpenReader(tmp.Name())
	if err != nil {
		return model.NewParseError(dest, 0, "failed to open downloaded zip", err)
	}
	defer zr.Close()

	dir := filepath.Dir(dest)
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if err := extractZipEntry(dir, f); err != nil {
			return err
		}
	}
	return nil
}

func extractZipEntry(dir string, f *zip.File) error {
	rc, err := f.Open()
	if err != nil {
		return model.NewParseError(f.Name, 0, "failed to open zip entry", err)
	}
	defer rc.Close()

	target := filepath.Join(dir, filepath.Base(f.Name))
	return writeFile(target, rc)
}

func unpackGzip(dest string, r io.Reader) error {
	gr, err := gzip.NewReader(r)
	if err != nil {
		return model.NewParseError(dest, 0, "failed to open gzip stream", err)
	}
	defer gr.Close()
	return writeFile(dest, gr)
}

func unpackTarGz(dir string, r io.Reader) error {
	gr, err := gzip.NewReader(r)
	if err != nil {
		return model.NewParseError(dir, 0, "failed to open tar.gz stream", err)
	}
	defer gr.Close()

	tr := tar.NewReader(gr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return model.NewParseError(dir, 0, "failed reading tar stream", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		target := filepath.Join(dir, filepath.Base(hdr.Name))
		if err := writeFile(target, tr); err != nil {
			return err
		}
	}
}
