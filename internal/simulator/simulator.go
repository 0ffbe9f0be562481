// Package simulator is an in-process stand-in for the world, visual and
// camera services. It listens on the request topics of a bus and answers the
// way the simulator plugins do, which lets the generator run end to end
// without a physics engine.
package simulator

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/specialistvlad/scenegrid/internal/bus"
	"github.com/specialistvlad/scenegrid/internal/ctxlog"
	"github.com/specialistvlad/scenegrid/internal/handlers"
	"github.com/specialistvlad/scenegrid/internal/msgs"
	"github.com/specialistvlad/scenegrid/internal/pose"
	"gonum.org/v1/gonum/spatial/r3"
)

// Config describes the simulated camera.
type Config struct {
	Width  int
	Height int
	// HFOV is the horizontal field of view in radians.
	HFOV float64
}

type entity struct {
	msgs.Entity
	bounds   r3.Box
	material string
}

// Simulator holds the simulated world.
type Simulator struct {
	ctx      context.Context
	bus      bus.Bus
	topics   msgs.Topics
	cfg      Config
	logger   *slog.Logger
	handlers *handlers.Handlers

	mu       sync.Mutex
	entities map[string]*entity
	camera   pose.Pose
	physics  bool
	drops    map[string]int
	received map[string]int
}

// New subscribes the simulator to every request topic on b.
func New(ctx context.Context, b bus.Bus, topics msgs.Topics, cfg Config) (*Simulator, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.HFOV <= 0 || cfg.HFOV >= math.Pi {
		return nil, fmt.Errorf("invalid camera: %dx%d, hfov %v", cfg.Width, cfg.Height, cfg.HFOV)
	}
	s := &Simulator{
		ctx:      ctx,
		bus:      b,
		topics:   topics,
		cfg:      cfg,
		logger:   ctxlog.FromContext(ctx).With("component", "simulator"),
		handlers: handlers.New(),
		entities: make(map[string]*entity),
		camera:   pose.Identity(),
		drops:    make(map[string]int),
		received: make(map[string]int),
	}

	s.handlers.Register(msgs.World, msgs.WorldSpawn, s.spawn)
	s.handlers.Register(msgs.World, msgs.WorldMove, s.move)
	s.handlers.Register(msgs.World, msgs.WorldPhysics, s.setPhysics)
	s.handlers.Register(msgs.World, msgs.WorldRemove, s.remove)
	s.handlers.Register(msgs.Visual, msgs.VisualUpdate, s.updateVisual)
	s.handlers.Register(msgs.Camera, msgs.CameraMove, s.moveCamera)
	s.handlers.Register(msgs.Camera, msgs.CameraCapture, s.capture)
	s.handlers.Register(msgs.Camera, msgs.CameraProjection, s.project)

	for _, ch := range msgs.Channels() {
		if err := b.Subscribe(topics.Request(ch), s.dispatch(ch)); err != nil {
			return nil, fmt.Errorf("subscribing to %s requests: %w", ch, err)
		}
	}
	s.logger.Debug("Simulator ready", "handlers", s.handlers.Names())
	return s, nil
}

// Drop makes the simulator swallow the next n requests of op on ch. A
// negative n swallows them all.
func (s *Simulator) Drop(ch msgs.Channel, op fmt.Stringer, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drops[handlers.Key(ch, op.String())] = n
}

// Received returns how many requests of op on ch arrived, dropped ones
// included.
func (s *Simulator) Received(ch msgs.Channel, op fmt.Stringer) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.received[handlers.Key(ch, op.String())]
}

// Entities returns the names currently in the world.
func (s *Simulator) Entities() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.entities))
	for name := range s.entities {
		names = append(names, name)
	}
	return names
}

// Physics reports whether stepping is enabled.
func (s *Simulator) Physics() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.physics
}

// CameraPose returns the current camera pose.
func (s *Simulator) CameraPose() pose.Pose {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.camera
}

// Material returns the material last applied to name.
func (s *Simulator) Material(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entities[name]; ok {
		return e.material
	}
	return ""
}

func (s *Simulator) dispatch(ch msgs.Channel) bus.Handler {
	return func(topic string, payload []byte) {
		h, err := msgs.DecodeHeader(payload)
		if err != nil {
			s.logger.Warn("Dropping malformed request", "channel", ch, "error", err)
			return
		}
		logger := s.logger.With("channel", ch, "request_id", h.ID, "type", h.Type)

		key := handlers.Key(ch, h.Type)
		if s.shouldDrop(key) {
			logger.Debug("Swallowing request")
			return
		}

		fn, ok := s.handlers.Lookup(ch, h.Type)
		if !ok {
			logger.Warn("No handler for request")
			return
		}
		resp, err := fn(s.ctx, payload)
		if err != nil {
			logger.Warn("Handler failed", "error", err)
			return
		}
		if resp == nil {
			return
		}

		out, err := msgs.Encode(resp)
		if err != nil {
			logger.Error("Encoding response failed", "error", err)
			return
		}
		if err := s.bus.Publish(s.ctx, s.topics.Response(ch), out); err != nil {
			logger.Debug("Publishing response failed", "error", err)
		}
	}
}

func (s *Simulator) shouldDrop(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received[key]++
	n, ok := s.drops[key]
	switch {
	case !ok || n == 0:
		return false
	case n > 0:
		s.drops[key] = n - 1
	}
	return true
}
