package domain

import (
	"time"

	"github.com/google/uuid"
)

// Warehouse 表示仓库目录条目，台账侧只读。
type Warehouse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
