// Package era5 reads ERA5 reanalysis fields (e.g. significant wave height,
// swh) from NetCDF into time-indexed grids.
package era5

import (
	"fmt"
	"sync"
	"time"

	"go.ngs.io/waves-api/internal/domain"
	"go.ngs.io/waves-api/internal/logging"
	"go.ngs.io/waves-api/internal/metrics"
)

// Backend selects the NetCDF implementation.
type Backend string

const (
	// BackendCgo reads through libnetcdf (github.com/fhs/go-netcdf).
	BackendCgo Backend = "cgo"
	// BackendNative reads with a pure Go decoder (github.com/batchatco/go-native-netcdf).
	BackendNative Backend = "native"
)

type reader func(path, variable string) (*rawField, error)

// Store loads field stacks and caches them per file and variable.
type Store struct {
	backend Backend
	read    reader
	box     domain.BoundingBox

	cache map[string]*domain.FieldStack
	mu    sync.RWMutex
}

// NewStore creates a store using backend. A non-zero box restricts every
// loaded stack to the cells inside it.
func NewStore(backend Backend, box domain.BoundingBox) (*Store, error) {
	s := &Store{
		backend: backend,
		box:     box,
		cache:   make(map[string]*domain.FieldStack),
	}
	switch backend {
	case BackendCgo, "":
		s.backend, s.read = BackendCgo, readCgo
	case BackendNative:
		s.read = readNative
	default:
		return nil, fmt.Errorf("unknown NetCDF backend %q (use cgo or native)", backend)
	}
	return s, nil
}

// Backend returns the NetCDF implementation in use.
func (s *Store) Backend() Backend { return s.backend }

// Load returns the variable's stack with longitudes in -180..180. Fill values
// are NaN and packed values are unpacked.
func (s *Store) Load(path, variable string) (*domain.FieldStack, error) {
	key := path + "|" + variable

	s.mu.RLock()
	if stack, ok := s.cache[key]; ok {
		s.mu.RUnlock()
		return stack, nil
	}
	s.mu.RUnlock()

	start := time.Now()
	raw, err := s.read(path, variable)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from %s: %w", variable, path, err)
	}
	stack, err := raw.toStack(variable)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if stack, err = subset(stack, s.box); err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	metrics.RecordFieldLoad(string(s.backend), elapsed)

	logging.Info().
		Str("file", path).
		Str("variable", variable).
		Str("backend", string(s.backend)).
		Int("times", len(stack.Times)).
		Int("lat", len(stack.Lat)).
		Int("lon", len(stack.Lon)).
		Dur("elapsed", elapsed).
		Msg("Loaded field stack")

	s.mu.Lock()
	s.cache[key] = stack
	s.mu.Unlock()

	return stack, nil
}
