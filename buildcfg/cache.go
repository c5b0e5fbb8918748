package buildcfg

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("buildcfg: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// probeCacheEntry records one interpreter's probe result keyed by the
// executable's identity. A changed mtime or size invalidates the entry.
type probeCacheEntry struct {
	Executable string `cbor:"1,keyasint"`
	ModTime    int64  `cbor:"2,keyasint"`
	Size       int64  `cbor:"3,keyasint"`
	Config     []byte `cbor:"4,keyasint"` // serialized InterpreterConfig
}

// DisableProbeCache skips the probe cache entirely (cmd flag -no-cache).
var DisableProbeCache bool

// probeCachePath returns the cache file location for an interpreter path.
func probeCachePath(interpreter string) (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	sum := uuid.NewSHA1(uuid.NameSpaceURL, []byte("pylink:"+interpreter))
	return filepath.Join(dir, "pylink", sum.String()+".probe"), nil
}

// loadCachedProbe returns a previously cached config for the interpreter,
// or nil when there is no valid entry.
func loadCachedProbe(interpreter string) *InterpreterConfig {
	path, err := probeCachePath(interpreter)
	if err != nil {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var entry probeCacheEntry
	if err := cbor.Unmarshal(raw, &entry); err != nil {
		log.Warningf("discarding corrupt probe cache at %s: %v", path, err)
		return nil
	}
	info, err := os.Stat(interpreter)
	if err != nil || info.ModTime().Unix() != entry.ModTime || info.Size() != entry.Size {
		return nil
	}
	cfg, err := FromEnvValue(string(entry.Config))
	if err != nil {
		return nil
	}
	return cfg
}

// storeCachedProbe persists a probe result. Failures are logged and
// otherwise ignored: the cache is an optimization, never a requirement.
func storeCachedProbe(interpreter string, cfg *InterpreterConfig) {
	path, err := probeCachePath(interpreter)
	if err != nil {
		return
	}
	info, err := os.Stat(interpreter)
	if err != nil {
		return
	}
	encoded, err := cfg.ToEnvValue()
	if err != nil {
		return
	}
	entry := probeCacheEntry{
		Executable: interpreter,
		ModTime:    info.ModTime().Unix(),
		Size:       info.Size(),
		Config:     []byte(encoded),
	}
	raw, err := cborEncMode.Marshal(&entry)
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return
	}
	// Write-then-rename so a concurrent build never reads a torn entry.
	tmp := path + "." + uuid.NewString() + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		log.Warningf("failed to store probe cache at %s: %v", path, err)
	}
}

// fromInterpreterCached probes through the cache. Only absolute executable
// paths are cacheable; bare PATH lookups are probed every time.
func fromInterpreterCached(interpreter string) (*InterpreterConfig, error) {
	cacheable := !DisableProbeCache && filepath.IsAbs(interpreter)
	if cacheable {
		if cfg := loadCachedProbe(interpreter); cfg != nil {
			return cfg, nil
		}
	}
	cfg, err := FromInterpreter(interpreter)
	if err != nil {
		return nil, err
	}
	if cacheable {
		storeCachedProbe(interpreter, cfg)
	}
	return cfg, nil
}
