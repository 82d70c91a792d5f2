package route

import (
	"context"
	"errors"
	"time"

	"github.com/maroonlid/Tutunovka-HSE/internal/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

// CreateRoute stores a private route with its dots, notes and tags. Dot dates
// must fall inside the route's own date window; nothing is written otherwise.
func (s *Service) CreateRoute(ctx context.Context, authorID string, input RouteInput) (Route, error) {
	for _, dot := range input.Dots {
		if !dotDateInRange(dot.Date, input.DateIn, input.DateOut) {
			return Route{}, ErrDotDateOutOfRange
		}
	}

	route := Route{
		ID:       uuid.NewString(),
		Name:     input.Name,
		AuthorID: authorID,
		DateIn:   input.DateIn,
		DateOut:  input.DateOut,
		Comment:  input.Comment,
		Baggage:  input.Baggage,
		Rate:     input.Rate,
		Tags:     input.Tags,
	}
	route.LengthDays, route.Month, route.Year = deriveCalendar(input.DateIn, input.DateOut)

	row := s.db.QueryRow(ctx, `
		INSERT INTO routes (id, name, author_id, date_in, date_out, comment, baggage, rate, length_days, month, year)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at
	`, route.ID, route.Name, route.AuthorID, route.DateIn, route.DateOut, route.Comment, route.Baggage, route.Rate, route.LengthDays, route.Month, route.Year)
	if err := row.Scan(&route.CreatedAt); err != nil {
		return Route{}, err
	}

	for _, in := range input.Dots {
		dot, err := s.insertDot(ctx, route.ID, in)
		if err != nil {
			return Route{}, err
		}
		route.Dots = append(route.Dots, dot)
	}
	for _, text := range input.Notes {
		note, err := s.insertNote(ctx, route.ID, text)
		if err != nil {
			return Route{}, err
		}
		route.Notes = append(route.Notes, note)
	}
	if err := s.setTags(ctx, `route_tags`, route.ID, input.Tags); err != nil {
		return Route{}, err
	}
	return route, nil
}

func (s *Service) GetRoute(ctx context.Context, id string) (Route, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, author_id, date_in, date_out, comment, baggage, rate, length_days, month, year, created_at
		FROM routes WHERE id=$1
	`, id)
	var r Route
	err := row.Scan(&r.ID, &r.Name, &r.AuthorID, &r.DateIn, &r.DateOut, &r.Comment, &r.Baggage, &r.Rate, &r.LengthDays, &r.Month, &r.Year, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Route{}, ErrRouteNotFound
	}
	if err != nil {
		return Route{}, err
	}

	if r.Dots, err = s.Dots(ctx, id); err != nil {
		return Route{}, err
	}
	if r.Notes, err = s.NotesForRoute(ctx, id); err != nil {
		return Route{}, err
	}
	if r.Tags, err = s.tags(ctx, `route_tags`, `route_id`, id); err != nil {
		return Route{}, err
	}
	return r, nil
}

func (s *Service) UpdateRoute(ctx context.Context, id string, patch RouteInput) (Route, error) {
	route, err := s.GetRoute(ctx, id)
	if err != nil {
		return Route{}, err
	}
	if patch.Name != "" {
		route.Name = patch.Name
	}
	if patch.DateIn != nil {
		route.DateIn = patch.DateIn
	}
	if patch.DateOut != nil {
		route.DateOut = patch.DateOut
	}
	if patch.Comment != "" {
		route.Comment = patch.Comment
	}
	if patch.Baggage != "" {
		route.Baggage = patch.Baggage
	}
	if patch.Rate != 0 {
		route.Rate = patch.Rate
	}
	route.LengthDays, route.Month, route.Year = deriveCalendar(route.DateIn, route.DateOut)

	for _, dot := range route.Dots {
		if !dotDateInRange(dot.Date, route.DateIn, route.DateOut) {
			return Route{}, ErrDotDateOutOfRange
		}
	}

	_, err = s.db.Exec(ctx, `
		UPDATE routes
		SET name=$2, date_in=$3, date_out=$4, comment=$5, baggage=$6, rate=$7, length_days=$8, month=$9, year=$10
		WHERE id=$1
	`, route.ID, route.Name, route.DateIn, route.DateOut, route.Comment, route.Baggage, route.Rate, route.LengthDays, route.Month, route.Year)
	if err != nil {
		return Route{}, err
	}

	if patch.Tags != nil {
		if _, err := s.db.Exec(ctx, `DELETE FROM route_tags WHERE route_id=$1`, route.ID); err != nil {
			return Route{}, err
		}
		if err := s.setTags(ctx, `route_tags`, route.ID, patch.Tags); err != nil {
			return Route{}, err
		}
		route.Tags = patch.Tags
	}
	return route, nil
}

func (s *Service) DeleteRoute(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM routes WHERE id=$1`, id)
	return err
}

func (s *Service) RoutesByAuthor(ctx context.Context, authorID string) ([]Route, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, author_id, date_in, date_out, comment, baggage, rate, length_days, month, year, created_at
		FROM routes WHERE author_id=$1
		ORDER BY date_in NULLS LAST, created_at
	`, authorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var routes []Route
	for rows.Next() {
		var r Route
		if err := rows.Scan(&r.ID, &r.Name, &r.AuthorID, &r.DateIn, &r.DateOut, &r.Comment, &r.Baggage, &r.Rate, &r.LengthDays, &r.Month, &r.Year, &r.CreatedAt); err != nil {
			return nil, err
		}
		routes = append(routes, r)
	}
	return routes, rows.Err()
}

// NearestRoute returns the author's upcoming route with the earliest start
// date on or after today. ErrRouteNotFound is the normal "no trips planned"
// outcome, distinct from a storage failure.
func (s *Service) NearestRoute(ctx context.Context, authorID string, today time.Time) (Route, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, author_id, date_in, date_out, comment, baggage, rate, length_days, month, year, created_at
		FROM routes
		WHERE author_id=$1 AND date_in >= $2
		ORDER BY date_in
		LIMIT 1
	`, authorID, today)
	var r Route
	err := row.Scan(&r.ID, &r.Name, &r.AuthorID, &r.DateIn, &r.DateOut, &r.Comment, &r.Baggage, &r.Rate, &r.LengthDays, &r.Month, &r.Year, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Route{}, ErrRouteNotFound
	}
	if err != nil {
		return Route{}, err
	}
	return r, nil
}

func (s *Service) Dots(ctx context.Context, routeID string) ([]Dot, error) {
	rows, err := s.db.Query(ctx, `
		SELECT d.id, d.name, d.information, d.date, COALESCE(d.note, '')
		FROM dots d
		JOIN route_dots rd ON rd.dot_id = d.id
		WHERE rd.route_id=$1
		ORDER BY d.date NULLS FIRST
	`, routeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dots []Dot
	for rows.Next() {
		var d Dot
		if err := rows.Scan(&d.ID, &d.Name, &d.Information, &d.Date, &d.Note); err != nil {
			return nil, err
		}
		dots = append(dots, d)
	}
	return dots, rows.Err()
}

func (s *Service) AddDot(ctx context.Context, routeID string, input DotInput) (Dot, error) {
	route, err := s.GetRoute(ctx, routeID)
	if err != nil {
		return Dot{}, err
	}
	if !dotDateInRange(input.Date, route.DateIn, route.DateOut) {
		return Dot{}, ErrDotDateOutOfRange
	}
	return s.insertDot(ctx, routeID, input)
}

func (s *Service) UpdateDot(ctx context.Context, routeID, dotID string, input DotInput) (Dot, error) {
	route, err := s.GetRoute(ctx, routeID)
	if err != nil {
		return Dot{}, err
	}
	if !dotDateInRange(input.Date, route.DateIn, route.DateOut) {
		return Dot{}, ErrDotDateOutOfRange
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE dots SET name=$2, information=$3, date=$4, note=$5
		WHERE id=$1 AND id IN (SELECT dot_id FROM route_dots WHERE route_id=$6)
	`, dotID, input.Name, input.Information, input.Date, nullIfEmpty(input.Note), routeID)
	if err != nil {
		return Dot{}, err
	}
	if tag.RowsAffected() == 0 {
		return Dot{}, ErrDotNotFound
	}
	return Dot{ID: dotID, Name: input.Name, Information: input.Information, Date: input.Date, Note: input.Note}, nil
}

func (s *Service) NotesForRoute(ctx context.Context, routeID string) ([]Note, error) {
	rows, err := s.db.Query(ctx, `
		SELECT n.id, n.done, n.text
		FROM notes n
		JOIN route_notes rn ON rn.note_id = n.id
		WHERE rn.route_id=$1
		ORDER BY n.created_at
	`, routeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.Done, &n.Text); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func (s *Service) AddNote(ctx context.Context, routeID, text string) (Note, error) {
	var id string
	err := s.db.QueryRow(ctx, `SELECT id FROM routes WHERE id=$1`, routeID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return Note{}, ErrRouteNotFound
	}
	if err != nil {
		return Note{}, err
	}
	return s.insertNote(ctx, routeID, text)
}

// ToggleNote flips the note's done flag. An unknown id changes nothing and is
// reported as ErrNoteNotFound.
func (s *Service) ToggleNote(ctx context.Context, noteID string) (Note, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE notes SET done = NOT done WHERE id=$1
		RETURNING id, done, text
	`, noteID)
	var n Note
	err := row.Scan(&n.ID, &n.Done, &n.Text)
	if errors.Is(err, pgx.ErrNoRows) {
		return Note{}, ErrNoteNotFound
	}
	if err != nil {
		return Note{}, err
	}
	return n, nil
}

func (s *Service) SetNoteDone(ctx context.Context, noteID string, done bool) error {
	tag, err := s.db.Exec(ctx, `UPDATE notes SET done=$2 WHERE id=$1`, noteID, done)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoteNotFound
	}
	return nil
}

func (s *Service) insertDot(ctx context.Context, routeID string, input DotInput) (Dot, error) {
	dot := Dot{
		ID:          uuid.NewString(),
		Name:        input.Name,
		Information: input.Information,
		Date:        input.Date,
		Note:        input.Note,
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO dots (id, name, information, date, note)
		VALUES ($1,$2,$3,$4,$5)
	`, dot.ID, dot.Name, dot.Information, dot.Date, nullIfEmpty(dot.Note))
	if err != nil {
		return Dot{}, err
	}
	_, err = s.db.Exec(ctx, `INSERT INTO route_dots (route_id, dot_id) VALUES ($1,$2)`, routeID, dot.ID)
	if err != nil {
		return Dot{}, err
	}
	return dot, nil
}

func (s *Service) insertNote(ctx context.Context, routeID, text string) (Note, error) {
	note := Note{ID: uuid.NewString(), Text: text}
	_, err := s.db.Exec(ctx, `INSERT INTO notes (id, text) VALUES ($1,$2)`, note.ID, note.Text)
	if err != nil {
		return Note{}, err
	}
	_, err = s.db.Exec(ctx, `INSERT INTO route_notes (route_id, note_id) VALUES ($1,$2)`, routeID, note.ID)
	if err != nil {
		return Note{}, err
	}
	return note, nil
}

func (s *Service) setTags(ctx context.Context, joinTable, routeID string, tags []string) error {
	for _, name := range tags {
		var tagID string
		row := s.db.QueryRow(ctx, `
			INSERT INTO tags (id, name) VALUES ($1,$2)
			ON CONFLICT (name) DO UPDATE SET name=EXCLUDED.name
			RETURNING id
		`, uuid.NewString(), name)
		if err := row.Scan(&tagID); err != nil {
			return err
		}
		_, err := s.db.Exec(ctx, `INSERT INTO `+joinTable+` (route_id, tag_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`, routeID, tagID)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) tags(ctx context.Context, joinTable, keyColumn, id string) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT t.name
		FROM tags t
		JOIN `+joinTable+` jt ON jt.tag_id = t.id
		WHERE jt.`+keyColumn+`=$1
		ORDER BY t.name
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func dotDateInRange(date, dateIn, dateOut *time.Time) bool {
	if date == nil {
		return true
	}
	if dateIn != nil && date.Before(*dateIn) {
		return false
	}
	if dateOut != nil && date.After(*dateOut) {
		return false
	}
	return true
}

func deriveCalendar(dateIn, dateOut *time.Time) (int, string, int) {
	if dateIn == nil {
		return 0, "", 0
	}
	length := 0
	if dateOut != nil {
		length = int(dateOut.Sub(*dateIn).Hours() / 24)
	}
	return length, dateIn.Month().String(), dateIn.Year()
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
