package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/Strexas/kath/internal/failure"
	"github.com/Strexas/kath/internal/gnomad"
)

// DefaultLOVDURL is the LOVD shared full-data download endpoint; the gene
// symbol is appended.
const DefaultLOVDURL = "https://databases.lovd.nl/shared/download/all/gene/"

// ProgressFunc wraps a download body, typically with a progress bar, and
// returns a function called when the transfer ends. total is -1 when the
// size is unknown.
type ProgressFunc func(r io.Reader, total int64) (io.Reader, func())

// Downloader fetches source data into files.
type Downloader struct {
	HTTP     *http.Client
	LOVDURL  string
	GnomAD   *gnomad.Client
	Progress ProgressFunc
	Logger   *zap.Logger
}

// NewDownloader creates a Downloader with the public endpoints.
func NewDownloader(logger *zap.Logger) *Downloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Downloader{
		HTTP:    &http.Client{Timeout: 30 * time.Minute},
		LOVDURL: DefaultLOVDURL,
		GnomAD:  gnomad.NewClient(gnomad.DefaultAPIURL, 0, 3),
		Logger:  logger,
	}
}

// DownloadFunc fetches gene data for one source into dest.
type DownloadFunc func(ctx context.Context, d *Downloader, gene, dest string) error

// Downloaders dispatches each downloadable source. The gnomAD CSV and
// ClinVar exports are only produced through their web interfaces.
var Downloaders = map[Source]DownloadFunc{
	SourceLOVD:          downloadLOVD,
	SourceGnomADGraphQL: downloadGnomAD,
}

// Download fetches gene data for src into dest. An existing file is kept
// unless override is set; skipped reports that case.
func (d *Downloader) Download(ctx context.Context, src Source, gene, dest string, override bool) (skipped bool, err error) {
	fetch, ok := Downloaders[src]
	if !ok {
		return false, failure.New(failure.Precondition, src.String(), "source cannot be downloaded")
	}
	if info, err := os.Stat(dest); err == nil {
		if info.IsDir() {
			return false, failure.New(failure.Write, dest, "destination is a directory, specify a file name")
		}
		if !override {
			d.Logger.Info("file exists, skipping download", zap.String("path", dest))
			return true, nil
		}
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return false, failure.Wrap(failure.Write, dest, err)
	}
	if err := fetch(ctx, d, gene, dest); err != nil {
		return false, err
	}
	d.Logger.Info("downloaded", zap.Stringer("source", src), zap.String("gene", gene), zap.String("path", dest))
	return false, nil
}

func downloadLOVD(ctx context.Context, d *Downloader, gene, dest string) error {
	return d.File(ctx, d.LOVDURL+gene, dest)
}

func downloadGnomAD(ctx context.Context, d *Downloader, gene, dest string) error {
	body, err := d.GnomAD.Fetch(ctx, gene)
	if err != nil {
		return err
	}
	tmp := dest + ".tmp"
	if err := os.WriteFile(tmp, body, 0644); err != nil {
		return failure.Wrap(failure.Write, dest, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return failure.Wrap(failure.Write, dest, err)
	}
	return nil
}

// File downloads url into dest through a temporary file so an interrupted
// transfer never leaves a partial dest behind.
func (d *Downloader) File(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := d.HTTP.Do(req)
	if err != nil {
		return failure.Wrap(failure.Collaborator, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return failure.New(failure.Collaborator, url, "HTTP error: %s", resp.Status)
	}

	tmpPath := dest + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return failure.Wrap(failure.Write, dest, err)
	}

	var body io.Reader = resp.Body
	if d.Progress != nil {
		var done func()
		body, done = d.Progress(resp.Body, resp.ContentLength)
		defer done()
	}
	_, err = io.Copy(f, body)
	f.Close()
	if err != nil {
		os.Remove(tmpPath)
		return failure.Wrap(failure.Collaborator, url, fmt.Errorf("download failed: %w", err))
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return failure.Wrap(failure.Write, dest, fmt.Errorf("rename file: %w", err))
	}
	return nil
}
