package annotation

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"bioterms/internal/logging"
	"bioterms/internal/model"
)

var httpClient = &http.Client{Timeout: 10 * time.Minute}

// DownloadSource is one file an annotation pair needs fetched. Headers
// supports the BioPortal/UMLS/TRUD api-key-in-header convention some
// sources (HOOM, ORDO alignment) require.
type DownloadSource struct {
	URL      string
	FileName string
	Headers  map[string]string
}

func downloadAnnotationFiles(ctx context.Context, dataDir string, sources []DownloadSource, redownload bool) error {
	dir := filepath.Join(dataDir, "annotations")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return model.NewError(model.ErrIndexCreation, "failed to create annotations data directory", err)
	}

	for _, src := range sources {
		dest := filepath.Join(dir, src.FileName)
		if !redownload {
			if _, err := os.Stat(dest); err == nil {
				logging.AnnotationDebug("%s already downloaded, skipping", src.FileName)
				continue
			}
		}
		if err := downloadAnnotationFile(ctx, dest, src); err != nil {
			return err
		}
	}
	return nil
}

func downloadAnnotationFile(ctx context.Context, dest string, src DownloadSource) error {
	logging.Annotation("downloading %s -> %s", src.URL, dest)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return model.NewError(model.ErrFilesNotFound, "failed to build download request for "+src.URL, err)
	}
	for k, v := range src.Headers {
		req.Header.Set(k, v)
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
	f, err := os.Create(dest)
	if err != nil {
		return model.NewError(model.ErrIndexCreation, "failed to create "+dest, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return model.NewError(model.ErrTransientStore, "failed writing "+dest, err)
	}
	return nil
}
