package dogs

import (
	"context"
	"errors"
	"math/rand"
	"strings"

	"github.com/EJ-pro/Walky/internal/db"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("dog not found")

// Palette is the set of profile badge colors a new dog is given.
var Palette = []string{"#FF8A65", "#F06292", "#BA68C8", "#4DD0E1", "#81C784"}

var pickColorFn = func() string {
	return Palette[rand.Intn(len(Palette))]
}

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

func (s *Service) Create(ctx context.Context, ownerID string, req CreateRequest) (Dog, error) {
	dog := Dog{
		ID:       uuid.NewString(),
		OwnerID:  ownerID,
		Name:     strings.TrimSpace(req.Name),
		Breed:    strings.TrimSpace(req.Breed),
		Age:      req.Age,
		Neutered: req.Neutered,
		ColorHex: pickColorFn(),
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO dogs (id, owner_id, name, breed, age, neutered, color_hex)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at
	`, dog.ID, dog.OwnerID, dog.Name, dog.Breed, dog.Age, dog.Neutered, dog.ColorHex)
	if err := row.Scan(&dog.CreatedAt); err != nil {
		return Dog{}, err
	}
	return dog, nil
}

func (s *Service) List(ctx context.Context, ownerID string) ([]Dog, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, owner_id, name, breed, age, neutered, color_hex, created_at
		FROM dogs WHERE owner_id=$1
		ORDER BY created_at
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dogs := []Dog{}
	for rows.Next() {
		var d Dog
		if err := rows.Scan(&d.ID, &d.OwnerID, &d.Name, &d.Breed, &d.Age, &d.Neutered, &d.ColorHex, &d.CreatedAt); err != nil {
			return nil, err
		}
		dogs = append(dogs, d)
	}
	return dogs, rows.Err()
}

// Delete removes one of the owner's dogs. Other owners' dogs are reported as not found.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM dogs WHERE id=$1 AND owner_id=$2`, id, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
