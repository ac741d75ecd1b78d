package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	mu     sync.Mutex
	loaded = make(map[string]any)

	dotenvOnce sync.Once
)

// Load populates the configuration struct from environment variables based
// on its `env` field tags. Each unique configuration type is parsed only
// once per process; subsequent calls receive the cached value, so packages
// can declare and load their own Config without coordinating with main().
//
// A .env file, if present, is loaded into the process environment on the
// first call. Its absence is not an error.
//
// Example:
//
//	type Config struct {
//	    WorkerPath string `env:"EMAIL_WORKER_PATH"`
//	    TempDir    string `env:"EMAIL_JOB_TEMP_DIR"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil { ... }
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	dotenvOnce.Do(func() {
		// The .env file is a development convenience only.
		_ = godotenv.Load()
	})

	key := typeName[T]()

	mu.Lock()
	defer mu.Unlock()

	if cached, ok := loaded[key]; ok {
		*v = cached.(T)
		return nil
	}

	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	// Store a copy so later mutations of *v do not leak into the cache.
	loaded[key] = *v
	return nil
}

// MustLoad works like Load but panics on failure. Used for configuration
// the process cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}

func typeName[T any]() string {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		return fmt.Sprintf("%T", *new(T))
	}
	return t.String()
}
