package complaint

import (
	"context"
	"errors"
	"time"

	"github.com/maroonlid/Tutunovka-HSE/internal/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrComplaintNotFound = errors.New("complaint not found")

type Complaint struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Text      string    `json:"text"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

func (s *Service) Create(ctx context.Context, authorID, text string) (Complaint, error) {
	c := Complaint{
		ID:       uuid.NewString(),
		AuthorID: authorID,
		Text:     text,
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO complaints (id, author_id, text)
		VALUES ($1,$2,$3)
		RETURNING created_at
	`, c.ID, c.AuthorID, c.Text)
	if err := row.Scan(&c.CreatedAt); err != nil {
		return Complaint{}, err
	}
	return c, nil
}

// List shows the author their own complaints; admins see everything,
// newest first.
func (s *Service) List(ctx context.Context, authorID string, isAdmin bool) ([]Complaint, error) {
	sql := `
		SELECT id, author_id, text, answer, created_at
		FROM complaints WHERE author_id=$1
		ORDER BY created_at DESC
	`
	args := []any{authorID}
	if isAdmin {
		sql = `
			SELECT id, author_id, text, answer, created_at
			FROM complaints
			ORDER BY created_at DESC
		`
		args = nil
	}

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Complaint
	for rows.Next() {
		var c Complaint
		if err := rows.Scan(&c.ID, &c.AuthorID, &c.Text, &c.Answer, &c.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func (s *Service) Answer(ctx context.Context, id, answer string) (Complaint, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE complaints SET answer=$2 WHERE id=$1
		RETURNING id, author_id, text, answer, created_at
	`, id, answer)
	var c Complaint
	err := row.Scan(&c.ID, &c.AuthorID, &c.Text, &c.Answer, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Complaint{}, ErrComplaintNotFound
	}
	if err != nil {
		return Complaint{}, err
	}
	return c, nil
}
