// Package dataloaders reads experiment data: the raw per-round export and
// the cleaned record files derived from it.
package dataloaders

import (
	"compress/gzip"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"

	"github.com/healthgame/hcdp/config"
)

const ExperimentDir = "experiments"

func ExperimentPath(cfg *config.Config) string {
	return filepath.Join(cfg.GetString(config.ConfigDataPath), ExperimentDir)
}

type gzipFile struct {
	*gzip.Reader
	f *os.File
}

func (g gzipFile) Close() error {
	return errors.Join(g.Reader.Close(), g.f.Close())
}

// Open opens a data file. A relative name that does not exist is looked up
// in the experiment directory. Files ending in .gz are decompressed. Opens
// that fail for any reason but a missing file are retried a few times,
// since the data directory is often a network mount.
func Open(cfg *config.Config, name string) (io.ReadCloser, error) {
	candidates := []string{name}
	if !filepath.IsAbs(name) {
		candidates = append(candidates, filepath.Join(ExperimentPath(cfg), name))
	}
	var err error
	for _, path := range candidates {
		var rc io.ReadCloser
		rc, err = openRetrying(path)
		if err == nil {
			return rc, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return nil, err
}

func openRetrying(path string) (io.ReadCloser, error) {
	f, err := retry.DoWithData(
		func() (*os.File, error) {
			return os.Open(path)
		},
		retry.Attempts(3),
		retry.Delay(50*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, fs.ErrPermission)
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Warn().Err(err).Uint("attempt", n).Str("path", path).Msg("retrying-open")
		}),
	)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return gzipFile{Reader: gz, f: f}, nil
}
