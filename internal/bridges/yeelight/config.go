package yeelight

import "time"

// Protocol defaults.
const (
	// DefaultPort is the LAN control TCP port.
	DefaultPort = 55443

	// DefaultDiscoveryAddr is the multicast group bulbs listen on.
	DefaultDiscoveryAddr = "239.255.255.250:1982"

	defaultConnectTimeout = 2 * time.Second
	defaultCommandTimeout = 5 * time.Second
	defaultEffect         = EffectSmooth
	defaultDuration       = 300 * time.Millisecond

	// minSmoothDuration is the shortest transition a bulb accepts.
	minSmoothDuration = 30 * time.Millisecond
)

// Transition effects.
const (
	EffectSmooth = "smooth"
	EffectSudden = "sudden"
)

// Config holds driver settings.
type Config struct {
	// Port is used for announcements and addresses without a port.
	Port int

	// DiscoveryAddr is where M-SEARCH requests are sent.
	DiscoveryAddr string

	// ConnectTimeout bounds the TCP dial.
	ConnectTimeout time.Duration

	// CommandTimeout bounds one request/reply exchange.
	CommandTimeout time.Duration

	// Effect is "smooth" or "sudden".
	Effect string

	// Duration is the smooth transition length.
	Duration time.Duration
}

func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.DiscoveryAddr == "" {
		c.DiscoveryAddr = DefaultDiscoveryAddr
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = defaultCommandTimeout
	}
	if c.Effect != EffectSmooth && c.Effect != EffectSudden {
		c.Effect = defaultEffect
	}
	if c.Duration <= 0 {
		c.Duration = defaultDuration
	}
	if c.Effect == EffectSmooth && c.Duration < minSmoothDuration {
		c.Duration = minSmoothDuration
	}
	return c
}
