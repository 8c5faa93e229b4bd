package main

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/davinci-dao/storage"
	"github.com/vocdoni/davinci-dao/zk"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
)

func TestDBType(t *testing.T) {
	c := qt.New(t)

	typ, err := dbType("pebble")
	c.Assert(err, qt.IsNil)
	c.Assert(typ, qt.Equals, db.TypePebble)
	typ, err = dbType("leveldb")
	c.Assert(err, qt.IsNil)
	c.Assert(typ, qt.Equals, db.TypeLevelDB)
	_, err = dbType("memory")
	c.Assert(err, qt.ErrorMatches, `unknown db.type "memory" \(pebble or leveldb\)`)

	// every accepted backend opens
	for _, name := range []string{"pebble", "leveldb"} {
		typ, err := dbType(name)
		c.Assert(err, qt.IsNil)
		database, err := metadb.New(typ, t.TempDir())
		c.Assert(err, qt.IsNil, qt.Commentf(name))
		storage.New(database).Close()
	}
}

func TestValidateConfig(t *testing.T) {
	c := qt.New(t)
	valid := func() *Config {
		return &Config{
			API: APIConfig{Port: defaultAPIPort},
			DB:  DBConfig{Type: "leveldb"},
			ZK:  ZKConfig{Curve: defaultCurve, CacheSize: zk.DefaultCacheSize},
		}
	}
	c.Assert(validateConfig(valid()), qt.IsNil)

	cfg := valid()
	cfg.DB.Type = "memory"
	c.Assert(validateConfig(cfg), qt.ErrorMatches, `unknown db.type.*`)

	cfg = valid()
	cfg.API.Port = 0
	c.Assert(validateConfig(cfg), qt.ErrorMatches, `invalid api.port 0`)

	cfg = valid()
	cfg.ZK.CacheSize = 0
	c.Assert(validateConfig(cfg), qt.ErrorMatches, `zk.cacheSize must be positive.*`)
}
