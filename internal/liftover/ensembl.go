package liftover

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/Strexas/kath/internal/failure"
	"github.com/Strexas/kath/internal/variant"
)

// DefaultEnsemblURL is the public Ensembl REST endpoint.
const DefaultEnsemblURL = "https://rest.ensembl.org"

// EnsemblOptions configures the Ensembl REST converter.
type EnsemblOptions struct {
	Timeout time.Duration
	// Retries is the number of additional attempts after a transient failure.
	Retries uint64
	Client  *http.Client
}

// Ensembl converts positions with the Ensembl REST assembly mapping endpoint
// (/map/human/GRCh37/<region>/GRCh38).
type Ensembl struct {
	baseURL    string
	retries    uint64
	httpClient *http.Client
}

// NewEnsembl creates an Ensembl REST converter.
func NewEnsembl(baseURL string, opts EnsemblOptions) *Ensembl {
	if baseURL == "" {
		baseURL = DefaultEnsemblURL
	}
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Ensembl{baseURL: baseURL, retries: opts.Retries, httpClient: client}
}

type mapResponse struct {
	Mappings []struct {
		Mapped struct {
			SeqRegionName string `json:"seq_region_name"`
			Start         int64  `json:"start"`
			End           int64  `json:"end"`
			Strand        int    `json:"strand"`
			Assembly      string `json:"assembly"`
		} `json:"mapped"`
	} `json:"mappings"`
}

// Convert maps a single 1-based position. Mappings onto other chromosomes or
// alt contigs count as unmapped. Transport failures and non-200 responses
// surface as collaborator failures.
func (e *Ensembl) Convert(ctx context.Context, chrom string, pos int64) (int64, error) {
	chrom = variant.NormalizeChrom(chrom)
	url := fmt.Sprintf("%s/map/human/GRCh37/%s:%d..%d:1/GRCh38?content-type=application/json",
		e.baseURL, chrom, pos, pos)
	subject := fmt.Sprintf("ensembl %s:%d", chrom, pos)

	var mapped int64
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := e.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("REST API error %d: %s", resp.StatusCode, string(body))
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return backoff.Permanent(fmt.Errorf("REST API error %d: %s", resp.StatusCode, string(body)))
		}

		var mr mapResponse
		if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
			return backoff.Permanent(fmt.Errorf("decode REST response: %w", err))
		}
		mapped = 0
		for _, m := range mr.Mappings {
			if variant.NormalizeChrom(m.Mapped.SeqRegionName) == chrom {
				mapped = m.Mapped.Start
				break
			}
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), e.retries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return 0, failure.Wrap(failure.Collaborator, subject, err)
	}
	if mapped == 0 {
		return 0, ErrUnmapped
	}
	return mapped, nil
}
