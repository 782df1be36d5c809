package telemetry

import "fmt"

// Config selects which measurements feed the utility function.
type Config struct {
	// MonitoredSwitches are the ToR switch ids whose ports are sampled.
	MonitoredSwitches []int `yaml:"monitored_switches"`
	// PortMin and PortMax bound the sampled port ids (inclusive).
	PortMin int `yaml:"port_min"`
	PortMax int `yaml:"port_max"`
	// NoiseFloor drops port throughputs (Gbps) at or below it.
	NoiseFloor float64 `yaml:"noise_floor"`
	// PauseCode is the pfc_type value that marks a pause frame.
	PauseCode int `yaml:"pause_code"`
}

// DefaultConfig monitors the eight ToR switches (ids 128-135) of the
// reference fat-tree, ports 1-16.
func DefaultConfig() Config {
	switches := make([]int, 0, 8)
	for id := 128; id <= 135; id++ {
		switches = append(switches, id)
	}
	return Config{
		MonitoredSwitches: switches,
		PortMin:           1,
		PortMax:           16,
		NoiseFloor:        5,
		PauseCode:         20000,
	}
}

// Validate returns an error if the port range or switch list is unusable.
func (c Config) Validate() error {
	if len(c.MonitoredSwitches) == 0 {
		return fmt.Errorf("monitored_switches must not be empty")
	}
	if c.PortMin > c.PortMax {
		return fmt.Errorf("port_min (%d) must not exceed port_max (%d)", c.PortMin, c.PortMax)
	}
	if c.NoiseFloor < 0 {
		return fmt.Errorf("noise_floor must be non-negative, got %v", c.NoiseFloor)
	}
	return nil
}
