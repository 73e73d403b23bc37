package core

import (
	"github.com/aretw0/introspection"
)

// ServiceState exposes internal state for observability.
type ServiceState struct {
	RepositoryType string `json:"repository_type"`
	RemoteEnabled  bool   `json:"remote_enabled"`
	RemotePolicy   string `json:"remote_policy"`
	Subscribers    int    `json:"subscribers"`
	Closed         bool   `json:"closed"`
}

// State implements introspection.Introspectable.
func (s *Service) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	repoType := "unknown"
	if s.repo != nil {
		repoType = "repository"
		if comp, ok := s.repo.(introspection.Component); ok {
			repoType = comp.ComponentType()
		}
	}

	return ServiceState{
		RepositoryType: repoType,
		RemoteEnabled:  s.config.Sink != nil,
		RemotePolicy:   s.config.RemotePolicy.String(),
		Subscribers:    s.events.len(),
		Closed:         s.closed,
	}
}

// ComponentType implements introspection.Component.
func (s *Service) ComponentType() string {
	return "service"
}

var _ introspection.Introspectable = (*Service)(nil)
var _ introspection.Component = (*Service)(nil)
