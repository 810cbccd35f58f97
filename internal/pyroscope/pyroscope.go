package pyroscope

import (
	"context"
	"strings"

	"github.com/adforge/adforge/internal/config"
	"github.com/adforge/adforge/internal/logger"
	"github.com/grafana/pyroscope-go"
	"go.uber.org/fx"
)

var profileTypesByName = map[string]pyroscope.ProfileType{
	"cpu":            pyroscope.ProfileCPU,
	"inuse_objects":  pyroscope.ProfileInuseObjects,
	"alloc_objects":  pyroscope.ProfileAllocObjects,
	"inuse_space":    pyroscope.ProfileInuseSpace,
	"alloc_space":    pyroscope.ProfileAllocSpace,
	"goroutines":     pyroscope.ProfileGoroutines,
	"mutex_count":    pyroscope.ProfileMutexCount,
	"mutex_duration": pyroscope.ProfileMutexDuration,
	"block_count":    pyroscope.ProfileBlockCount,
	"block_duration": pyroscope.ProfileBlockDuration,
}

// Service owns the continuous profiler of the process
type Service struct {
	cfg      *config.PyroscopeConfig
	logger   *logger.Logger
	profiler *pyroscope.Profiler
}

// NewPyroscopeService creates a new Pyroscope service
func NewPyroscopeService(cfg *config.Configuration, logger *logger.Logger) *Service {
	return &Service{
		cfg:    &cfg.Pyroscope,
		logger: logger,
	}
}

// RegisterHooks starts profiling with the application and stops it on shutdown
func RegisterHooks(lc fx.Lifecycle, svc *Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return svc.Start()
		},
		OnStop: func(ctx context.Context) error {
			return svc.Stop()
		},
	})
}

// Start begins profiling when enabled
func (s *Service) Start() error {
	if !s.IsEnabled() {
		s.logger.Info("Pyroscope profiling is disabled")
		return nil
	}

	profileTypes := s.profileTypes()
	pc := pyroscope.Config{
		ApplicationName: s.cfg.ApplicationName,
		ServerAddress:   s.cfg.ServerAddress,
		ProfileTypes:    profileTypes,
		SampleRate:      s.cfg.SampleRate,
		DisableGCRuns:   s.cfg.DisableGCRuns,
		Logger:          s,
	}
	if s.cfg.BasicAuthUser != "" {
		pc.BasicAuthUser = s.cfg.BasicAuthUser
		pc.BasicAuthPassword = s.cfg.BasicAuthPass
	}

	profiler, err := pyroscope.Start(pc)
	if err != nil {
		s.logger.Errorw("failed to start Pyroscope", "error", err)
		return err
	}
	s.profiler = profiler

	s.logger.Infow("Pyroscope profiling started",
		"application_name", s.cfg.ApplicationName,
		"server_address", s.cfg.ServerAddress,
		"profile_types", profileTypes,
	)
	return nil
}

// Stop flushes and stops the profiler
func (s *Service) Stop() error {
	if s.profiler == nil {
		return nil
	}
	s.logger.Info("stopping Pyroscope profiling")
	return s.profiler.Stop()
}

// IsEnabled returns whether Pyroscope profiling is enabled
func (s *Service) IsEnabled() bool {
	return s != nil && s.cfg.Enabled
}

// TagWrapper runs fn with profiling labels attached
func (s *Service) TagWrapper(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	if !s.IsEnabled() {
		fn(ctx)
		return
	}

	pairs := make([]string, 0, len(labels)*2)
	for key, value := range labels {
		pairs = append(pairs, key, value)
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// Debugf is silenced, the profiler is chatty at debug level
func (s *Service) Debugf(format string, args ...interface{}) {}

func (s *Service) Infof(format string, args ...interface{}) {
	s.logger.Infof("[Pyroscope] "+format, args...)
}

func (s *Service) Errorf(format string, args ...interface{}) {
	s.logger.Errorf("[Pyroscope] "+format, args...)
}

func (s *Service) profileTypes() []pyroscope.ProfileType {
	if len(s.cfg.ProfileTypes) == 0 {
		return []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileGoroutines,
		}
	}

	var result []pyroscope.ProfileType
	for _, name := range s.cfg.ProfileTypes {
		pt, ok := profileTypesByName[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			s.logger.Warnw("unknown profile type", "type", name)
			continue
		}
		result = append(result, pt)
	}
	return result
}
