// Package configuration reads the runtime configuration of the kernel from
// Unix-type env files and the process environment, and decodes the boot image
// that seeds the filesystem, the script catalog and the boot sequence.
package configuration

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"
)

const (
	KeyTotalMemory   = "FORTHOS_TOTAL_MEMORY"
	KeyKernelMemory  = "FORTHOS_KERNEL_MEMORY"
	KeyVMMemory      = "FORTHOS_VM_MEMORY"
	KeyProcessMemory = "FORTHOS_PROCESS_MEMORY"
	KeyTickMs        = "FORTHOS_TICK_MS"
	KeyBootSpeed     = "FORTHOS_BOOT_SPEED"
	KeySeed          = "FORTHOS_SEED"
	KeyImage         = "FORTHOS_IMAGE"
	KeyTraceFile     = "FORTHOS_TRACE_FILE"
)

const (
	DefaultTotalMemory   = 256
	DefaultKernelMemory  = 32
	DefaultVMMemory      = 32
	DefaultProcessMemory = 8
	DefaultTick          = 50 * time.Millisecond
	DefaultBootSpeed     = 1
)

type genericConfigProvider interface {
	Read(filenames ...string) (envMap map[string]string, err error)
}

// Config is the runtime configuration of the kernel.
type Config struct {
	TotalMemory   uint
	KernelMemory  uint
	VMMemory      uint
	ProcessMemory uint

	// Tick is the wall-clock interval at which the simulated clock is
	// advanced by the runner.
	Tick time.Duration

	// BootSpeed divides every delay of the boot sequence.
	BootSpeed int

	// Seed seeds the generator behind simulated sensor readings. Zero
	// selects a time-based seed.
	Seed int64

	// ImagePath selects a boot image file instead of the embedded one.
	ImagePath string

	// TraceFile enables span export to the named file.
	TraceFile string
}

// Defaults returns a [Config] with every key at its default.
func Defaults() Config {
	return Config{
		TotalMemory:   DefaultTotalMemory,
		KernelMemory:  DefaultKernelMemory,
		VMMemory:      DefaultVMMemory,
		ProcessMemory: DefaultProcessMemory,
		Tick:          DefaultTick,
		BootSpeed:     DefaultBootSpeed,
	}
}

// Validate checks that the memory layout can be booted.
func (c Config) Validate() error {
	if c.TotalMemory == 0 || c.KernelMemory == 0 || c.VMMemory == 0 || c.ProcessMemory == 0 {
		return fmt.Errorf("(config) zero memory size: %w", ErrBadLayout)
	}

	if c.KernelMemory+c.VMMemory > c.TotalMemory {
		return fmt.Errorf("(config) %d+%d > %d: %w", c.KernelMemory, c.VMMemory, c.TotalMemory, ErrBadLayout)
	}

	return nil
}

// Handler is the principal implementation for the configuration services.
type Handler struct {
	GenericHandler genericConfigProvider
	LookupEnv      func(key string) (string, bool)
}

// NewHandler returns a pointer to a new configuration [Handler] that falls
// back to the process environment for keys missing from the env files.
func NewHandler(genericHandler genericConfigProvider) *Handler {
	return &Handler{
		GenericHandler: genericHandler,
		LookupEnv:      os.LookupEnv,
	}
}

// ReadGeneric reads generic Unix-type configuration files into a map.
func (c *Handler) ReadGeneric(filenames ...string) (map[string]string, error) {
	return c.GenericHandler.Read(filenames...)
}

// Load reads the given env file into a [Config]. A missing file is an error
// only if required is set; keys absent from the file are looked up in the
// process environment and fall back to their defaults.
func (c *Handler) Load(filename string, required bool) (Config, error) {
	envMap := make(map[string]string)

	if filename != "" {
		data, err := c.ReadGeneric(filename)
		switch {
		case err == nil:
			envMap = data
		case !required && errors.Is(err, fs.ErrNotExist):
			slog.Debug("No configuration file, using environment and defaults",
				"file", filename,
			)
		default:
			return Config{}, fmt.Errorf("(config) failed to read %s: %w", filename, err)
		}
	}

	if c.LookupEnv != nil {
		for _, key := range []string{
			KeyTotalMemory, KeyKernelMemory, KeyVMMemory, KeyProcessMemory,
			KeyTickMs, KeyBootSpeed, KeySeed, KeyImage, KeyTraceFile,
		} {
			if _, exists := envMap[key]; exists {
				continue
			}
			if value, exists := c.LookupEnv(key); exists {
				envMap[key] = value
			}
		}
	}

	cfg := Defaults()

	if v := c.MapKeyToInt(envMap, KeyTotalMemory); v > 0 {
		cfg.TotalMemory = uint(v)
	}
	if v := c.MapKeyToInt(envMap, KeyKernelMemory); v > 0 {
		cfg.KernelMemory = uint(v)
	}
	if v := c.MapKeyToInt(envMap, KeyVMMemory); v > 0 {
		cfg.VMMemory = uint(v)
	}
	if v := c.MapKeyToInt(envMap, KeyProcessMemory); v > 0 {
		cfg.ProcessMemory = uint(v)
	}
	if v := c.MapKeyToInt(envMap, KeyTickMs); v > 0 {
		cfg.Tick = time.Duration(v) * time.Millisecond
	}
	if v := c.MapKeyToInt(envMap, KeyBootSpeed); v > 0 {
		cfg.BootSpeed = v
	}
	if v := c.MapKeyToInt64(envMap, KeySeed); v > 0 {
		cfg.Seed = v
	}

	cfg.ImagePath = c.MapKeyToString(envMap, KeyImage)
	cfg.TraceFile = c.MapKeyToString(envMap, KeyTraceFile)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// MapKeyToString returns the value of key, or an empty string if missing.
func (c *Handler) MapKeyToString(envMap map[string]string, key string) string {
	if value, exists := envMap[key]; exists {
		return value
	}

	return ""
}

// MapKeyToInt returns the value of key as int, or -1 if missing or invalid.
func (c *Handler) MapKeyToInt(envMap map[string]string, key string) int {
	value := c.MapKeyToString(envMap, key)
	if value == "" {
		return -1
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return -1
	}

	return intValue
}

// MapKeyToInt64 returns the value of key as int64, or -1 if missing or invalid.
func (c *Handler) MapKeyToInt64(envMap map[string]string, key string) int64 {
	value := c.MapKeyToString(envMap, key)
	if value == "" {
		return -1
	}
	intValue, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return -1
	}

	return intValue
}
