package stats

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/anrid/covid-scope/pkg/logger"
)

const (
	downloadRetryDelay = 250 * time.Millisecond
	downloadRetries    = 10
)

// Download fetches url, retrying transport failures and non-200 answers.
func Download(ctx context.Context, url string) ([]byte, error) {
	logger.Infof(ctx, "download %s", url)

	var data []byte
	err := backoff.Retry(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return backoff.Permanent(fmt.Errorf("new request: %w", err))
			}

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return fmt.Errorf("http get: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("status code error: %d %s", resp.StatusCode, resp.Status)
			}

			data, err = io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("read body: %w", err)
			}
			return nil
		},
		backoff.WithContext(
			backoff.WithMaxRetries(backoff.NewConstantBackOff(downloadRetryDelay), downloadRetries),
			ctx,
		),
	)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	return data, nil
}

// FetchTables downloads the cases and deaths tables concurrently.
func FetchTables(ctx context.Context, casesURL, deathsURL string) (cases, deaths *File, err error) {
	cases = &File{URL: casesURL}
	deaths = &File{URL: deathsURL}

	eg, egCtx := errgroup.WithContext(ctx)
	for _, f := range []*File{cases, deaths} {
		f := f
		eg.Go(func() error {
			if err := f.DownloadContent(egCtx); err != nil {
				return fmt.Errorf("fetch %s: %w", f.URL, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}
	return cases, deaths, nil
}
