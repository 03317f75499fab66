package agent

// Config holds the tunables of one brain.
type Config struct {
	DetectionRange float64 `yaml:"detection_range" json:"detection_range"`
	AttackRange    float64 `yaml:"attack_range" json:"attack_range"`
	Speed          float64 `yaml:"speed" json:"speed"`
	// MaxPathLength caps the number of waypoints of the smoothed route
	// before the brain gives up walking around and targets the blocking wall.
	MaxPathLength int     `yaml:"max_path_length" json:"max_path_length"`
	MaxDetour     float64 `yaml:"max_detour" json:"max_detour"`
}

// DefaultConfig returns the stock tunables.
func DefaultConfig() Config {
	return Config{
		DetectionRange: 100,
		AttackRange:    50,
		Speed:          100,
		MaxPathLength:  50,
		MaxDetour:      5,
	}
}

// Option adjusts a single tunable.
type Option func(*Config)

func WithDetectionRange(v float64) Option { return func(c *Config) { c.DetectionRange = v } }
func WithAttackRange(v float64) Option    { return func(c *Config) { c.AttackRange = v } }
func WithSpeed(v float64) Option          { return func(c *Config) { c.Speed = v } }
func WithMaxPathLength(v int) Option      { return func(c *Config) { c.MaxPathLength = v } }
func WithMaxDetour(v float64) Option      { return func(c *Config) { c.MaxDetour = v } }

// WithConfig replaces every tunable at once.
func WithConfig(cfg Config) Option { return func(c *Config) { *c = cfg } }
