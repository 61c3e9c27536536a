package profile

import (
	"context"
	"errors"
	"strings"

	"github.com/EJ-pro/Walky/internal/db"
	"github.com/EJ-pro/Walky/internal/storage"

	"github.com/jackc/pgx/v5"
)

var ErrNotFound = errors.New("walker not found")

// Uploads hands out object URLs for photos.
type Uploads interface {
	SaveObject(ctx context.Context, userID, fileName, kind string) (storage.Object, error)
}

type Service struct {
	db      db.Querier
	uploads Uploads
}

func NewService(db db.Querier, uploads Uploads) *Service {
	return &Service{db: db, uploads: uploads}
}

func scanProfile(row pgx.Row) (Profile, error) {
	var p Profile
	err := row.Scan(&p.ID, &p.DisplayName, &p.LocationText, &p.PhotoURL, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	return p, err
}

func (s *Service) Get(ctx context.Context, userID string) (Profile, error) {
	return scanProfile(s.db.QueryRow(ctx, `
		SELECT id, display_name, location_text, photo_url, created_at
		FROM walkers WHERE id=$1
	`, userID))
}

func (s *Service) Update(ctx context.Context, userID string, req UpdateRequest) (Profile, error) {
	return scanProfile(s.db.QueryRow(ctx, `
		UPDATE walkers
		SET display_name=$2, location_text=$3, photo_url=COALESCE(NULLIF($4, ''), photo_url)
		WHERE id=$1
		RETURNING id, display_name, location_text, photo_url, created_at
	`, userID, strings.TrimSpace(req.DisplayName), strings.TrimSpace(req.LocationText), strings.TrimSpace(req.PhotoURL)))
}

// ReplacePhoto reserves an upload slot and points the profile photo at it.
func (s *Service) ReplacePhoto(ctx context.Context, userID, fileName string) (PhotoResponse, error) {
	obj, err := s.uploads.SaveObject(ctx, userID, fileName, storage.KindProfilePhoto)
	if err != nil {
		return PhotoResponse{}, err
	}
	p, err := scanProfile(s.db.QueryRow(ctx, `
		UPDATE walkers SET photo_url=$2
		WHERE id=$1
		RETURNING id, display_name, location_text, photo_url, created_at
	`, userID, obj.URL))
	if err != nil {
		return PhotoResponse{}, err
	}
	return PhotoResponse{Profile: p, Upload: obj}, nil
}
