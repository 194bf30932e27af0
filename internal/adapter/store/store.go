package store

import "go.ngs.io/waves-api/internal/domain"

// FieldLoader loads gridded model fields (e.g. ERA5 significant wave height).
type FieldLoader interface {
	// Load reads variable from the file at path.
	Load(path, variable string) (*domain.FieldStack, error)
}

// ObservationLoader loads irregular satellite observations.
type ObservationLoader interface {
	// Load returns the observations inside region; a zero region keeps all.
	Load(region domain.Region) ([]domain.Observation, error)
}
