package cache

import (
	"errors"
	"testing"

	"github.com/matryer/is"

	"github.com/healthgame/hcdp/config"
)

func TestLoadAndPurge(t *testing.T) {
	is := is.New(t)
	t.Cleanup(Purge)
	cfg := config.DefaultConfig()

	builds := 0
	build := func(cfg *config.Config, key string) (any, error) {
		builds++
		return key + "!", nil
	}
	obj, err := Load(cfg, "thing", build)
	is.NoErr(err)
	is.Equal(obj, "thing!")
	obj, err = Load(cfg, "thing", build)
	is.NoErr(err)
	is.Equal(obj, "thing!")
	is.Equal(builds, 1)

	Purge()
	_, err = Load(cfg, "thing", build)
	is.NoErr(err)
	is.Equal(builds, 2)

	boom := errors.New("boom")
	_, err = Load(cfg, "broken", func(*config.Config, string) (any, error) { return nil, boom })
	is.True(errors.Is(err, boom))
	// failures are not cached
	obj, err = Load(cfg, "broken", build)
	is.NoErr(err)
	is.Equal(obj, "broken!")
}
