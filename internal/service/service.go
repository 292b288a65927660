package service

import (
	"github.com/walkconquest/backend/internal/domain"
)

// Repository is re-exported from domain for convenience
type Repository = domain.Repository

// EventBus is re-exported from domain for convenience
type EventBus = domain.EventBus
