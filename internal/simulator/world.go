package simulator

import (
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/scenegrid/internal/msgs"
	"github.com/specialistvlad/scenegrid/internal/template"
)

func worldReply(id uint64, failed []string, reason string) *msgs.WorldResponse {
	if len(failed) == 0 {
		return &msgs.WorldResponse{ID: id, Type: msgs.WorldSuccess}
	}
	return &msgs.WorldResponse{
		ID:      id,
		Type:    msgs.WorldFailure,
		Message: fmt.Sprintf("%s: %s", reason, strings.Join(failed, ", ")),
	}
}

func (s *Simulator) spawn(_ context.Context, payload []byte) (any, error) {
	var req msgs.WorldRequest
	if err := msgs.Decode(payload, &req); err != nil {
		return nil, err
	}

	// Parse outside the lock; descriptions can be large.
	parsed := make([]*entity, 0, len(req.Entities))
	var invalid []string
	for _, e := range req.Entities {
		ent := &entity{Entity: e}
		if e.Source != "" {
			t, err := template.Parse([]byte(e.Source), e.Name+".hcl")
			if err != nil {
				s.logger.Debug("Unreadable description", "entity", e.Name, "error", err)
				invalid = append(invalid, e.Name)
				continue
			}
			ent.bounds = t.Bounds
		}
		parsed = append(parsed, ent)
	}
	if len(invalid) > 0 {
		return worldReply(req.ID, invalid, "invalid description"), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var taken []string
	for _, e := range parsed {
		if _, exists := s.entities[e.Name]; exists {
			taken = append(taken, e.Name)
		}
	}
	if len(taken) > 0 {
		return worldReply(req.ID, taken, "already exists"), nil
	}
	for _, e := range parsed {
		s.entities[e.Name] = e
	}
	return worldReply(req.ID, nil, ""), nil
}

func (s *Simulator) move(_ context.Context, payload []byte) (any, error) {
	var req msgs.WorldRequest
	if err := msgs.Decode(payload, &req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var missing []string
	for _, e := range req.Entities {
		if _, ok := s.entities[e.Name]; !ok {
			missing = append(missing, e.Name)
		}
	}
	if len(missing) > 0 {
		return worldReply(req.ID, missing, "unknown entity"), nil
	}
	for _, e := range req.Entities {
		s.entities[e.Name].Pose = e.Pose
	}
	return worldReply(req.ID, nil, ""), nil
}

func (s *Simulator) setPhysics(_ context.Context, payload []byte) (any, error) {
	var req msgs.WorldRequest
	if err := msgs.Decode(payload, &req); err != nil {
		return nil, err
	}
	if req.Physics == nil {
		return worldReply(req.ID, []string{"physics"}, "missing flag"), nil
	}

	s.mu.Lock()
	s.physics = *req.Physics
	s.mu.Unlock()
	return worldReply(req.ID, nil, ""), nil
}

func (s *Simulator) remove(_ context.Context, payload []byte) (any, error) {
	var req msgs.WorldRequest
	if err := msgs.Decode(payload, &req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var missing []string
	for _, name := range req.Names {
		if _, ok := s.entities[name]; !ok {
			missing = append(missing, name)
			continue
		}
		delete(s.entities, name)
	}
	return worldReply(req.ID, missing, "unknown entity"), nil
}

func (s *Simulator) updateVisual(_ context.Context, payload []byte) (any, error) {
	var req msgs.VisualRequest
	if err := msgs.Decode(payload, &req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	for _, c := range req.Changes {
		if e, ok := s.entities[c.Name]; ok {
			e.material = c.Material
		}
	}
	s.mu.Unlock()
	return &msgs.VisualResponse{ID: req.ID, Type: msgs.VisualUpdated}, nil
}
