package profile

import (
	"time"

	"github.com/EJ-pro/Walky/internal/storage"
)

type Profile struct {
	ID           string    `json:"id"`
	DisplayName  string    `json:"display_name"`
	LocationText string    `json:"location_text"`
	PhotoURL     string    `json:"photo_url"`
	CreatedAt    time.Time `json:"created_at"`
}

// UpdateRequest replaces the name and location. A blank photo_url keeps the current photo.
type UpdateRequest struct {
	DisplayName  string `json:"display_name" validate:"max=40"`
	LocationText string `json:"location_text" validate:"max=80"`
	PhotoURL     string `json:"photo_url" validate:"omitempty,url,max=500"`
}

type PhotoRequest struct {
	FileName string `json:"file_name" validate:"required,max=200"`
}

type PhotoResponse struct {
	Profile Profile        `json:"profile"`
	Upload  storage.Object `json:"upload"`
}
