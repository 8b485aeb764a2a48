package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/bnema/rotorpool/internal/ports"
)

const (
	configName      = "config"
	configType      = "toml"
	poolPathKey     = "pool.path"
	poolFileMode    = 0o600
	poolDirMode     = 0o700
	poolConfigDir   = ".rotor"
	poolConfigFile  = "pool.toml"
	tempFilePattern = ".pool-*.toml.tmp"
)

// Store persists the pool snapshot as a single TOML file with atomic
// temp-file replacement.
type Store struct {
	poolPath string
	mu       *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.PoolStore = (*Store)(nil)

func NewStore(cfg *viper.Viper) (*Store, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	defaultPath := filepath.Join(homeDir, poolConfigDir, poolConfigFile)

	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(filepath.Join(homeDir, poolConfigDir))
	cfg.SetDefault(poolPathKey, defaultPath)

	err = cfg.ReadInConfig()
	if err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	poolPath := cfg.GetString(poolPathKey)
	if poolPath == "" {
		return nil, errors.New("pool path is empty")
	}
	poolPath, err = normalizePoolPath(poolPath)
	if err != nil {
		return nil, err
	}

	return &Store{poolPath: poolPath, mu: lockForPath(poolPath)}, nil
}

// NewStoreAt bypasses config resolution; used by tests and the daemon's
// --pool flag.
func NewStoreAt(path string) (*Store, error) {
	normalized, err := normalizePoolPath(path)
	if err != nil {
		return nil, err
	}
	return &Store{poolPath: normalized, mu: lockForPath(normalized)}, nil
}

func (s *Store) LoadPool(ctx context.Context) (ports.PoolSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return ports.PoolSnapshot{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := s.readSchema()
	if err != nil {
		return ports.PoolSnapshot{}, err
	}

	return fromSchema(file), nil
}

func (s *Store) SavePool(ctx context.Context, snapshot ports.PoolSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.writeSchema(toSchema(snapshot))
}

func (s *Store) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(s.poolPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			empty := fileSchema{}
			empty.applyDefaults()
			return empty, nil
		}
		return fileSchema{}, fmt.Errorf("read pool file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode pool file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func (s *Store) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(s.poolPath), poolDirMode); err != nil {
		return fmt.Errorf("create pool directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode pool file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(s.poolPath), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp pool file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp pool file: %w", err)
	}

	if err := tempFile.Chmod(poolFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp pool file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp pool file: %w", err)
	}

	if err := os.Rename(tempName, s.poolPath); err != nil {
		return fmt.Errorf("replace pool file: %w", err)
	}
	cleanup = false

	if err := os.Chmod(s.poolPath, poolFileMode); err != nil {
		return fmt.Errorf("chmod pool file: %w", err)
	}

	return nil
}

func normalizePoolPath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve pool path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}
