// Package config loads classlens.toml: where classes come from, how the
// index filters them and how long the reflector keeps members around.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/tliron/commonlog"

	"github.com/dhamidi/classlens/java/reflector"
	"github.com/dhamidi/classlens/java/scanner"
)

var log = commonlog.GetLogger("classlens.config")

// FileName is the configuration file looked up in a workspace root.
const FileName = "classlens.toml"

const DefaultDebounce = 500 * time.Millisecond

var (
	ErrNotFound = errors.New("config not found")
	ErrInvalid  = errors.New("invalid config")
)

type Config struct {
	Index     Index     `toml:"index"`
	Reflector Reflector `toml:"reflector"`
	Watch     Watch     `toml:"watch"`
	Log       Log       `toml:"log"`

	// Root is the directory relative paths are resolved against: the
	// directory of the file, or the workspace root without one.
	Root string `toml:"-"`
}

type Index struct {
	// Classpath lists class directories, archives and jmods. Empty means
	// the layout found under Root.
	Classpath []string `toml:"classpath"`
	// Runtime is a JDK home or a lib/modules image.
	Runtime               string   `toml:"runtime"`
	Allow                 []string `toml:"allow"`
	Deny                  []string `toml:"deny"`
	IncludePackagePrivate bool     `toml:"include_package_private"`
	Workers               int      `toml:"workers"`
}

type Reflector struct {
	CacheSize      int  `toml:"cache_size"`
	IncludePrivate bool `toml:"include_private"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
}

type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns the configuration used when no file exists.
func Default(root string) *Config {
	return &Config{
		Reflector: Reflector{CacheSize: reflector.DefaultCacheSize},
		Watch:     Watch{Debounce: DefaultDebounce},
		Root:      root,
	}
}

// Load reads the file at path over the defaults. A missing file is
// ErrNotFound.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	cfg := Default(filepath.Dir(path))
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	for _, key := range md.Undecoded() {
		log.Warningf("%s: unknown key %s", path, key)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Find loads the classlens.toml of dir, or the defaults when there is
// none.
func Find(dir string) (*Config, error) {
	cfg, err := Load(filepath.Join(dir, FileName))
	if errors.Is(err, ErrNotFound) {
		log.Debugf("no %s in %s, using defaults", FileName, dir)
		return Default(dir), nil
	}
	return cfg, err
}

func (c *Config) Validate() error {
	if c.Index.Workers < 0 {
		return fmt.Errorf("index.workers is %d: %w", c.Index.Workers, ErrInvalid)
	}
	if c.Reflector.CacheSize <= 0 {
		return fmt.Errorf("reflector.cache_size is %d: %w", c.Reflector.CacheSize, ErrInvalid)
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce is %s: %w", c.Watch.Debounce, ErrInvalid)
	}
	if _, err := c.Filter(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Filter compiles the allow and deny patterns.
func (c *Config) Filter() (*scanner.Filter, error) {
	f, err := scanner.NewFilter(c.Index.Allow, c.Index.Deny)
	if err != nil {
		return nil, err
	}
	f.IncludePackagePrivate = c.Index.IncludePackagePrivate
	return f, nil
}

// Paths lists the artifacts to index, relative entries resolved against
// Root, the runtime last.
func (c *Config) Paths() []string {
	var out []string
	if len(c.Index.Classpath) > 0 {
		for _, p := range c.Index.Classpath {
			out = append(out, c.abs(p))
		}
	} else if l, err := DetectLayout(c.Root); err == nil {
		out = append(out, l.Paths()...)
	} else {
		log.Debugf("no classpath configured: %s", err)
	}
	if c.Index.Runtime != "" {
		out = append(out, c.abs(c.Index.Runtime))
	}
	return out
}

func (c *Config) abs(p string) string {
	if strings.HasPrefix(p, "~"+string(filepath.Separator)) {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	if filepath.IsAbs(p) || c.Root == "" {
		return p
	}
	return filepath.Join(c.Root, p)
}

// ReflectorOptions returns the reflector settings.
func (c *Config) ReflectorOptions() reflector.Options {
	return reflector.Options{
		CacheSize:      c.Reflector.CacheSize,
		IncludePrivate: c.Reflector.IncludePrivate,
	}
}
