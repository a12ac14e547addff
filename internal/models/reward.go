package models

import (
	"time"

	"github.com/google/uuid"
)

type Reward struct {
	ID          uuid.UUID
	Name        string
	Description string
	ImageRef    string
	PointCost   int64
	CreatedAt   time.Time
}
