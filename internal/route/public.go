package route

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PublishRoute copies a private route into the public catalog, dropping the
// private fields (dates, baggage, notes, dot dates and dot notes).
func (s *Service) PublishRoute(ctx context.Context, routeID string) (PublicRoute, error) {
	private, err := s.GetRoute(ctx, routeID)
	if err != nil {
		return PublicRoute{}, err
	}

	pub := PublicRoute{
		ID:         uuid.NewString(),
		Name:       private.Name,
		AuthorID:   private.AuthorID,
		Comment:    private.Comment,
		Rate:       private.Rate,
		LengthDays: private.LengthDays,
		Month:      private.Month,
		Year:       private.Year,
		Tags:       private.Tags,
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO public_routes (id, name, author_id, comment, rate, length_days, month, year)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at
	`, pub.ID, pub.Name, pub.AuthorID, pub.Comment, pub.Rate, pub.LengthDays, pub.Month, pub.Year)
	if err := row.Scan(&pub.CreatedAt); err != nil {
		return PublicRoute{}, err
	}

	for _, dot := range private.Dots {
		pd := PublicDot{ID: uuid.NewString(), Name: dot.Name, Information: dot.Information}
		_, err := s.db.Exec(ctx, `INSERT INTO public_dots (id, name, information) VALUES ($1,$2,$3)`, pd.ID, pd.Name, pd.Information)
		if err != nil {
			return PublicRoute{}, err
		}
		_, err = s.db.Exec(ctx, `INSERT INTO public_route_dots (route_id, dot_id) VALUES ($1,$2)`, pub.ID, pd.ID)
		if err != nil {
			return PublicRoute{}, err
		}
		pub.Dots = append(pub.Dots, pd)
	}
	if err := s.setTags(ctx, `public_route_tags`, pub.ID, private.Tags); err != nil {
		return PublicRoute{}, err
	}
	return pub, nil
}

func (s *Service) GetPublicRoute(ctx context.Context, id string) (PublicRoute, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, author_id, comment, rate, length_days, month, year, created_at
		FROM public_routes WHERE id=$1
	`, id)
	var r PublicRoute
	err := row.Scan(&r.ID, &r.Name, &r.AuthorID, &r.Comment, &r.Rate, &r.LengthDays, &r.Month, &r.Year, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return PublicRoute{}, ErrRouteNotFound
	}
	if err != nil {
		return PublicRoute{}, err
	}

	if r.Dots, err = s.publicDots(ctx, id); err != nil {
		return PublicRoute{}, err
	}
	if r.Tags, err = s.tags(ctx, `public_route_tags`, `route_id`, id); err != nil {
		return PublicRoute{}, err
	}
	return r, nil
}

func (s *Service) PublicRoutes(ctx context.Context) ([]PublicRoute, error) {
	return s.queryPublicRoutes(ctx, `
		SELECT id, name, author_id, comment, rate, length_days, month, year, created_at
		FROM public_routes
		ORDER BY created_at DESC
	`)
}

func (s *Service) PublicRoutesByTag(ctx context.Context, tag string) ([]PublicRoute, error) {
	return s.queryPublicRoutes(ctx, `
		SELECT r.id, r.name, r.author_id, r.comment, r.rate, r.length_days, r.month, r.year, r.created_at
		FROM public_routes r
		JOIN public_route_tags rt ON rt.route_id = r.id
		JOIN tags t ON t.id = rt.tag_id
		WHERE t.name=$1
		ORDER BY r.created_at DESC
	`, tag)
}

func (s *Service) SearchPublicRoutes(ctx context.Context, query string) ([]PublicRoute, error) {
	return s.queryPublicRoutes(ctx, `
		SELECT id, name, author_id, comment, rate, length_days, month, year, created_at
		FROM public_routes
		WHERE name ILIKE '%' || $1 || '%'
		ORDER BY created_at DESC
	`, query)
}

// SavePublicRoute copies a catalog route back into the caller's private
// routes. Dates stay empty until the new owner fills them in.
func (s *Service) SavePublicRoute(ctx context.Context, publicID, authorID string) (Route, error) {
	pub, err := s.GetPublicRoute(ctx, publicID)
	if err != nil {
		return Route{}, err
	}

	input := RouteInput{
		Name:    pub.Name,
		Comment: pub.Comment,
		Rate:    pub.Rate,
		Tags:    pub.Tags,
	}
	for _, dot := range pub.Dots {
		input.Dots = append(input.Dots, DotInput{Name: dot.Name, Information: dot.Information})
	}
	route, err := s.CreateRoute(ctx, authorID, input)
	if err != nil {
		return Route{}, err
	}
	route.LengthDays, route.Month, route.Year = pub.LengthDays, pub.Month, pub.Year
	_, err = s.db.Exec(ctx, `
		UPDATE routes SET length_days=$2, month=$3, year=$4 WHERE id=$1
	`, route.ID, route.LengthDays, route.Month, route.Year)
	if err != nil {
		return Route{}, err
	}
	return route, nil
}

func (s *Service) publicDots(ctx context.Context, routeID string) ([]PublicDot, error) {
	rows, err := s.db.Query(ctx, `
		SELECT d.id, d.name, d.information
		FROM public_dots d
		JOIN public_route_dots rd ON rd.dot_id = d.id
		WHERE rd.route_id=$1
		ORDER BY d.name
	`, routeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dots []PublicDot
	for rows.Next() {
		var d PublicDot
		if err := rows.Scan(&d.ID, &d.Name, &d.Information); err != nil {
			return nil, err
		}
		dots = append(dots, d)
	}
	return dots, rows.Err()
}

func (s *Service) queryPublicRoutes(ctx context.Context, sql string, args ...any) ([]PublicRoute, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var routes []PublicRoute
	for rows.Next() {
		var r PublicRoute
		if err := rows.Scan(&r.ID, &r.Name, &r.AuthorID, &r.Comment, &r.Rate, &r.LengthDays, &r.Month, &r.Year, &r.CreatedAt); err != nil {
			return nil, err
		}
		routes = append(routes, r)
	}
	return routes, rows.Err()
}
