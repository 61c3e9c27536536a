package storage

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/EJ-pro/Walky/internal/db"

	"github.com/google/uuid"
)

const (
	KindProfilePhoto = "profile_photo"
	KindDogPhoto     = "dog_photo"

	uploadTTL = 15 * time.Minute
)

type Object struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Kind      string    `json:"kind"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Service struct {
	db      db.Querier
	baseURL string
}

func NewService(db db.Querier, baseURL string) *Service {
	return &Service{db: db, baseURL: strings.TrimRight(baseURL, "/")}
}

// SaveObject registers an upload slot for the walker and returns the object URL
// the client uploads to. The URL is also where the object is served from.
func (s *Service) SaveObject(ctx context.Context, userID, fileName, kind string) (Object, error) {
	id := uuid.NewString()
	obj := Object{
		ID:        id,
		URL:       s.objectURL(userID, id, fileName, kind),
		Kind:      kind,
		ExpiresAt: time.Now().Add(uploadTTL),
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO storage_objects (id, user_id, url, kind)
		VALUES ($1,$2,$3,$4)
	`, obj.ID, userID, obj.URL, obj.Kind)
	if err != nil {
		return Object{}, err
	}
	return obj, nil
}

func (s *Service) objectURL(userID, id, fileName, kind string) string {
	ext := strings.ToLower(path.Ext(path.Base(fileName)))
	return s.baseURL + "/" + kind + "/" + userID + "/" + id + ext
}
