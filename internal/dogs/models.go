package dogs

import "time"

type Dog struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Breed     string    `json:"breed"`
	Age       int       `json:"age"`
	Neutered  bool      `json:"neutered"`
	ColorHex  string    `json:"color_hex"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateRequest struct {
	Name     string `json:"name" validate:"required,max=40"`
	Breed    string `json:"breed" validate:"max=40"`
	Age      int    `json:"age" validate:"gte=0,lte=40"`
	Neutered bool   `json:"neutered"`
}
