// Package bootcfg parses the boot-time configuration a real boot loader
// would otherwise bake into the boot information structure spec.md §6
// describes: the RAM map, pool sizes, CPU count, and the initramfs
// location. Shaped after lazydocker's pkg/config/app_config.go — a typed
// struct with yaml tags and a defaults constructor, parsed with
// github.com/jesseduffield/yaml.
package bootcfg

import (
	"fmt"
	"os"

	yaml "github.com/jesseduffield/yaml"
)

// RAMRegion describes one physical memory region the bootloader memory
// map reports, in frame-granular terms (spec.md §4.1).
type RAMRegion struct {
	BaseFrame uint64 `yaml:"baseFrame"`
	NumFrames uint64 `yaml:"numFrames"`
}

// Config is the full boot-time configuration.
type Config struct {
	// RAM is the set of usable physical memory regions.
	RAM []RAMRegion `yaml:"ram"`

	// CPUCount is the configured CPU count; Validate requires it to be
	// positive. cmd/veridiand logs it but starts a single scheduler CPU.
	CPUCount int `yaml:"cpuCount"`

	// MaxProcesses bounds the process table (spec.md §4.6).
	MaxProcesses int `yaml:"maxProcesses"`

	// MaxTimers is parsed but not read by any subsystem: the timer pool
	// size is the fixed irq.MaxTimers.
	MaxTimers int `yaml:"maxTimers"`

	// TimerWheelSlots is parsed but not read by any subsystem; irq.Wheel
	// has no slot array.
	TimerWheelSlots int `yaml:"timerWheelSlots"`

	// ChannelCapacity must be a power of two (Validate checks it). No
	// subsystem reads it: IpcChannelCreate takes each channel's capacity
	// from its own argument.
	ChannelCapacity int `yaml:"channelCapacity"`

	// InitramfsPath is parsed but not read by any subsystem.
	InitramfsPath string `yaml:"initramfsPath"`

	// MaxStackGrowthPages is parsed but not read: stack growth is bounded
	// only by the guard floor set with vm.AddressSpace.SetStackGuard.
	MaxStackGrowthPages int `yaml:"maxStackGrowthPages"`
}

// Default returns the configuration used when no boot config file is
// supplied, sized for a single-CPU developer boot.
func Default() Config {
	return Config{
		RAM:                  []RAMRegion{{BaseFrame: 256, NumFrames: 1 << 16}},
		CPUCount:             1,
		MaxProcesses:         4096,
		MaxTimers:            1024,
		TimerWheelSlots:      256,
		ChannelCapacity:      256,
		InitramfsPath:        "",
		MaxStackGrowthPages:  256,
	}
}

// Load reads and parses a YAML boot configuration file, filling any
// unset field from Default().
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("bootcfg: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("bootcfg: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects a configuration that would violate an invariant a
// later subsystem assumes (e.g. a non-power-of-two channel capacity).
func (c Config) Validate() error {
	if c.CPUCount <= 0 {
		return fmt.Errorf("bootcfg: cpuCount must be positive")
	}
	if c.MaxProcesses <= 0 {
		return fmt.Errorf("bootcfg: maxProcesses must be positive")
	}
	if c.ChannelCapacity <= 0 || c.ChannelCapacity&(c.ChannelCapacity-1) != 0 {
		return fmt.Errorf("bootcfg: channelCapacity must be a power of two")
	}
	if len(c.RAM) == 0 {
		return fmt.Errorf("bootcfg: at least one RAM region is required")
	}
	return nil
}

// TotalFrames sums the frame count across all RAM regions.
func (c Config) TotalFrames() uint64 {
	var total uint64
	for _, r := range c.RAM {
		total += r.NumFrames
	}
	return total
}
