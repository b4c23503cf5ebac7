package main

import (
	"context"
	"fmt"

	_ "github.com/nerrad567/homedash/migrations"

	"github.com/nerrad567/homedash/internal/audit"
	"github.com/nerrad567/homedash/internal/bridges/yeelight"
	"github.com/nerrad567/homedash/internal/device"
	"github.com/nerrad567/homedash/internal/infrastructure/config"
	"github.com/nerrad567/homedash/internal/infrastructure/database"
	"github.com/nerrad567/homedash/internal/infrastructure/influxdb"
	"github.com/nerrad567/homedash/internal/infrastructure/logging"
	"github.com/nerrad567/homedash/internal/infrastructure/mqtt"
	"github.com/nerrad567/homedash/internal/poller"
	"github.com/nerrad567/homedash/internal/state"
	"github.com/nerrad567/homedash/internal/telemetry"
)

// services holds the long-lived components shared by serve and poll.
type services struct {
	cfg *config.Config
	log *logging.Logger

	db       *database.DB // nil unless the sqlite backend or audit log needs it
	store    *state.Store
	registry *device.Registry
	sensors  *telemetry.SensorCache
	mqtt     *mqtt.Client     // nil when disabled
	influx   *influxdb.Client // nil when disabled
	audit    audit.Repository // nil when disabled

	closers []func()
}

// openServices connects every configured backend. On error, anything
// already opened is closed again.
func openServices(ctx context.Context, cfg *config.Config, log *logging.Logger) (svc *services, err error) {
	svc = &services{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			svc.close()
			svc = nil
		}
	}()

	if cfg.State.Backend == config.BackendSQLite || cfg.Audit.Enabled {
		if err = svc.openDatabase(ctx); err != nil {
			return nil, err
		}
	}
	if cfg.Audit.Enabled {
		svc.audit = audit.NewSQLiteRepository(svc.db.DB)
		log.Info("audit log enabled", "path", cfg.Database.Path)
	}

	backend, err := state.OpenBackend(ctx, cfg.State, svc.db)
	if err != nil {
		return nil, fmt.Errorf("opening state backend: %w", err)
	}
	svc.onClose("state backend", backend.Close)
	svc.store = state.NewStore(backend, cfg.State.KeyPrefix)
	svc.store.SetLogger(log.With("component", "state"))
	log.Info("state store ready", "backend", cfg.State.Backend)

	svc.registry, err = buildRegistry(cfg.Lights, log)
	if err != nil {
		return nil, err
	}
	svc.onClose("device registry", svc.registry.Close)
	log.Info("device registry initialised", "devices", svc.registry.Count())

	if cfg.MQTT.Enabled {
		if err = svc.connectMQTT(); err != nil {
			return nil, err
		}
	} else {
		log.Info("MQTT disabled, climate telemetry off")
	}

	if cfg.InfluxDB.Enabled {
		if err = svc.connectInflux(); err != nil {
			return nil, err
		}
	} else {
		log.Info("InfluxDB disabled")
	}

	return svc, nil
}

func (s *services) openDatabase(ctx context.Context) error {
	db, err := database.Open(database.Config{
		Path:        s.cfg.Database.Path,
		WALMode:     s.cfg.Database.WALMode,
		BusyTimeout: s.cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	s.db = db
	s.onClose("database", db.Close)
	s.log.Info("database connected", "path", s.cfg.Database.Path)

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	s.log.Info("database migrations complete")
	return nil
}

func (s *services) connectMQTT() error {
	client, err := mqtt.Connect(s.cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	s.mqtt = client
	s.onClose("MQTT", client.Close)
	client.SetLogger(s.log.With("component", "mqtt"))
	s.log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", s.cfg.MQTT.Broker.Host, s.cfg.MQTT.Broker.Port),
		"client_id", s.cfg.MQTT.Broker.ClientID,
	)

	client.SetOnConnect(func() {
		s.log.Info("MQTT reconnected")
	})
	client.SetOnDisconnect(func(err error) {
		s.log.Warn("MQTT disconnected", "error", err)
	})

	topics := client.Topics()
	s.sensors = telemetry.NewSensorCache(topics.SensorIDFromTopic)

	topic := s.cfg.Climate.SensorTopic
	if topic == "" {
		topic = topics.AllClimateSensorStates()
	}
	if err := client.Subscribe(topic, byte(s.cfg.MQTT.QoS), s.sensors.HandleMessage); err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	s.log.Info("subscribed to climate sensors", "topic", topic)
	return nil
}

func (s *services) connectInflux() error {
	client, err := influxdb.Connect(s.cfg.InfluxDB)
	if err != nil {
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	s.influx = client
	s.onClose("InfluxDB", client.Close)
	s.log.Info("InfluxDB connected",
		"url", s.cfg.InfluxDB.URL,
		"org", s.cfg.InfluxDB.Org,
		"bucket", s.cfg.InfluxDB.Bucket,
	)

	client.SetOnError(func(err error) {
		s.log.Error("InfluxDB write error", "error", err)
	})
	return nil
}

// recorder returns the history sink, or a nil interface when InfluxDB is off.
func (s *services) recorder() telemetry.Recorder {
	if s.influx == nil {
		return nil
	}
	return s.influx
}

// newScheduler builds the telemetry poller. The climate step is only added
// when sensor readings can arrive.
func (s *services) newScheduler() (*poller.Scheduler, error) {
	lights := s.cfg.Lights
	steps := []poller.Step{}

	lightStep := poller.NewLightStep(s.registry, s.recorder(), lights.DiscoveryTimeout, lights.RediscoverEvery)
	lightStep.SetLogger(s.log.With("component", "poller", "step", "light"))
	steps = append(steps, lightStep)

	if s.sensors != nil {
		band := telemetry.ComfortBand{Low: s.cfg.Climate.ComfortLow, High: s.cfg.Climate.ComfortHigh}
		steps = append(steps, poller.NewClimateStep(s.sensors, s.recorder(), band, s.cfg.Climate.StaleAfter))
	}

	sched, err := poller.NewScheduler(s.store, s.cfg.Poller.Interval, s.cfg.Poller.Users, steps...)
	if err != nil {
		return nil, fmt.Errorf("creating poller: %w", err)
	}
	sched.SetLogger(s.log.With("component", "poller"))

	if s.mqtt != nil {
		sched.AddListener(poller.NewMQTTListener(s.mqtt, s.log.With("component", "poller")))
	}
	return sched, nil
}

// healthCheck verifies all infrastructure connections are healthy.
func (s *services) healthCheck(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("state: %w", err)
	}

	if s.db != nil {
		if err := s.db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}

	if s.mqtt != nil {
		if err := s.mqtt.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if s.influx != nil {
		if err := s.influx.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

func (s *services) onClose(name string, fn func() error) {
	s.closers = append(s.closers, func() {
		s.log.Info("closing " + name)
		if err := fn(); err != nil {
			s.log.Error("error closing "+name, "error", err)
		}
	})
}

// close releases everything in reverse order of opening.
func (s *services) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// buildRegistry creates the light registry with the configured devices
// pre-registered.
func buildRegistry(cfg config.LightsConfig, log *logging.Logger) (*device.Registry, error) {
	drv := yeelight.New(yeelight.Config{
		Port:           cfg.Port,
		ConnectTimeout: cfg.ConnectTimeout,
		CommandTimeout: cfg.CommandTimeout,
		Effect:         cfg.Effect,
		Duration:       cfg.EffectDuration,
	})
	drv.SetLogger(log.With("component", "yeelight"))

	reg := device.NewRegistry(drv)
	reg.SetDefaultPort(cfg.Port)
	reg.SetLogger(log.With("component", "devices"))

	for i, d := range cfg.Devices {
		if _, err := reg.Add(d.Addr, device.Meta{Name: d.Name, Room: d.Room, Icon: d.Icon}); err != nil {
			return nil, fmt.Errorf("lights.devices[%d]: %w", i, err)
		}
	}
	return reg, nil
}
