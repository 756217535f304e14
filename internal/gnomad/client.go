package gnomad

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Jeffail/gabs"
	"github.com/cenkalti/backoff"

	"github.com/Strexas/kath/internal/failure"
)

// DefaultAPIURL is the public gnomAD GraphQL endpoint.
const DefaultAPIURL = "https://gnomad.broadinstitute.org/api"

const variantsQuery = `query {
  gene(gene_symbol: %q, reference_genome: GRCh38) {
    variants(dataset: %s) {
      variant_id
      chrom
      pos
      ref
      alt
      hgvsc
      hgvsp
      exome { ac an ac_hom populations { id ac an } }
      genome { ac an ac_hom populations { id ac an } }
    }
  }
}`

// Client fetches gene variants from the gnomAD GraphQL API.
type Client struct {
	URL     string
	Dataset string
	Retries uint64
	HTTP    *http.Client
}

// NewClient creates a client for url with a request timeout.
func NewClient(url string, timeout time.Duration, retries uint64) *Client {
	if url == "" {
		url = DefaultAPIURL
	}
	if timeout == 0 {
		timeout = 5 * time.Minute
	}
	return &Client{
		URL:     url,
		Dataset: "gnomad_r4",
		Retries: retries,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Fetch returns the raw API response for gene. The body can be cached on
// disk and read later with FromGraphQL.
func (c *Client) Fetch(ctx context.Context, gene string) ([]byte, error) {
	req := gabs.New()
	if _, err := req.Set(fmt.Sprintf(variantsQuery, gene, c.Dataset), "query"); err != nil {
		return nil, fmt.Errorf("build gnomad query: %w", err)
	}
	payload := req.Bytes()

	var body []byte
	op := func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.HTTP.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("gnomad api status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("gnomad api status %d: %s", resp.StatusCode, truncate(b, 512)))
		}
		body = b
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.Retries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, failure.Wrap(failure.Collaborator, "gnomad api "+gene, err)
	}

	parsed, err := gabs.ParseJSON(body)
	if err != nil {
		return nil, failure.Wrap(failure.Collaborator, "gnomad api "+gene, fmt.Errorf("decode response: %w", err))
	}
	if err := responseError(parsed); err != nil {
		return nil, err
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
