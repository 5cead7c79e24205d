// Package service defines registry service records and filtering.
package service

import (
	"github.com/samber/lo"
)

// Type identifies a service by GA4GH artifact coordinates.
type Type struct {
	Group    string `json:"group,omitempty"`
	Artifact string `json:"artifact,omitempty"`
	Version  string `json:"version,omitempty"`
}

// Organization is the organization responsible for a service.
type Organization struct {
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Service is a single record from the registry's service list.
// Records are read-only once decoded.
type Service struct {
	ID           string       `json:"id,omitempty"`
	Name         string       `json:"name,omitempty"`
	Type         Type         `json:"type,omitempty"`
	Description  string       `json:"description,omitempty"`
	Organization Organization `json:"organization,omitempty"`
	Version      string       `json:"version,omitempty"`
	Environment  string       `json:"environment,omitempty"`
	URL          string       `json:"url,omitempty"`
}

// Artifact returns the service's artifact type, or "" when absent.
func (s Service) Artifact() string {
	return s.Type.Artifact
}

// FilterByArtifact returns the services whose artifact type equals
// artifact exactly (case-sensitive). Records with no artifact field
// are omitted. An empty artifact returns the input unchanged.
func FilterByArtifact(services []Service, artifact string) []Service {
	if artifact == "" {
		return services
	}
	return lo.Filter(services, func(s Service, _ int) bool {
		return s.Artifact() == artifact
	})
}
