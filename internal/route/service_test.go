package route

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
)

var pgErr = errors.New("db error")

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

var routeCols = []string{"id", "name", "author_id", "date_in", "date_out", "comment", "baggage", "rate", "length_days", "month", "year", "created_at"}

func TestCreateRouteRejectsDotOutsideDates(t *testing.T) {
	svc := NewService(nil)

	input := RouteInput{
		Name:    "Karelia",
		DateIn:  datePtr(2025, 7, 10),
		DateOut: datePtr(2025, 7, 20),
		Dots: []DotInput{
			{Name: "Lake camp", Date: datePtr(2025, 7, 25)},
		},
	}

	// Validation fails before anything touches the database.
	if _, err := svc.CreateRoute(context.Background(), "user-1", input); !errors.Is(err, ErrDotDateOutOfRange) {
		t.Fatalf("expected ErrDotDateOutOfRange, got %v", err)
	}
}

func TestCreateRouteDerivesCalendar(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectQuery(`INSERT INTO routes`).
		WithArgs(pgxmock.AnyArg(), "Karelia", "user-1", pgxmock.AnyArg(), pgxmock.AnyArg(),
			"", "", 0, 10, "July", 2025).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectExec(`INSERT INTO dots`).
		WithArgs(pgxmock.AnyArg(), "Lake camp", "", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO route_dots`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO notes`).
		WithArgs(pgxmock.AnyArg(), "buy tickets").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO route_notes`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`INSERT INTO tags`).
		WithArgs(pgxmock.AnyArg(), "hiking").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("tag-1"))
	mock.ExpectExec(`INSERT INTO route_tags`).
		WithArgs(pgxmock.AnyArg(), "tag-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	svc := NewService(mock)
	route, err := svc.CreateRoute(context.Background(), "user-1", RouteInput{
		Name:    "Karelia",
		DateIn:  datePtr(2025, 7, 10),
		DateOut: datePtr(2025, 7, 20),
		Tags:    []string{"hiking"},
		Dots:    []DotInput{{Name: "Lake camp", Date: datePtr(2025, 7, 12)}},
		Notes:   []string{"buy tickets"},
	})
	if err != nil {
		t.Fatalf("create route: %v", err)
	}
	if route.LengthDays != 10 || route.Month != "July" || route.Year != 2025 {
		t.Fatalf("unexpected calendar fields: %+v", route)
	}
	if len(route.Dots) != 1 || len(route.Notes) != 1 {
		t.Fatalf("expected dot and note attached: %+v", route)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetRouteNotFound(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectQuery(`FROM routes WHERE id`).
		WithArgs("route-404").
		WillReturnRows(pgxmock.NewRows(routeCols))

	svc := NewService(mock)
	if _, err := svc.GetRoute(context.Background(), "route-404"); !errors.Is(err, ErrRouteNotFound) {
		t.Fatalf("expected ErrRouteNotFound, got %v", err)
	}

	mock.ExpectQuery(`FROM routes WHERE id`).
		WithArgs("route-err").
		WillReturnError(pgErr)
	if _, err := svc.GetRoute(context.Background(), "route-err"); !errors.Is(err, pgErr) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestNearestRoute(t *testing.T) {
	mock := newMockPool(t)

	today := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`WHERE author_id=\$1 AND date_in >= \$2`).
		WithArgs("user-1", today).
		WillReturnRows(pgxmock.NewRows(routeCols).
			AddRow("route-1", "Karelia", "user-1", datePtr(2025, 7, 10), datePtr(2025, 7, 20), "", "", 0, 10, "July", 2025, time.Now()))

	svc := NewService(mock)
	r, err := svc.NearestRoute(context.Background(), "user-1", today)
	if err != nil {
		t.Fatalf("nearest route: %v", err)
	}
	if r.ID != "route-1" {
		t.Fatalf("unexpected route: %+v", r)
	}

	mock.ExpectQuery(`WHERE author_id=\$1 AND date_in >= \$2`).
		WithArgs("user-2", today).
		WillReturnRows(pgxmock.NewRows(routeCols))
	if _, err := svc.NearestRoute(context.Background(), "user-2", today); !errors.Is(err, ErrRouteNotFound) {
		t.Fatalf("expected ErrRouteNotFound, got %v", err)
	}
}

func TestToggleNoteTwiceRestoresState(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectQuery(`UPDATE notes SET done = NOT done`).
		WithArgs("note-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "done", "text"}).AddRow("note-1", true, "buy tickets"))
	mock.ExpectQuery(`UPDATE notes SET done = NOT done`).
		WithArgs("note-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "done", "text"}).AddRow("note-1", false, "buy tickets"))

	svc := NewService(mock)
	first, err := svc.ToggleNote(context.Background(), "note-1")
	if err != nil || !first.Done {
		t.Fatalf("first toggle: %+v %v", first, err)
	}
	second, err := svc.ToggleNote(context.Background(), "note-1")
	if err != nil || second.Done {
		t.Fatalf("second toggle should restore: %+v %v", second, err)
	}
}

func TestToggleNoteUnknownID(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectQuery(`UPDATE notes SET done = NOT done`).
		WithArgs("note-404").
		WillReturnRows(pgxmock.NewRows([]string{"id", "done", "text"}))

	svc := NewService(mock)
	if _, err := svc.ToggleNote(context.Background(), "note-404"); !errors.Is(err, ErrNoteNotFound) {
		t.Fatalf("expected ErrNoteNotFound, got %v", err)
	}
}

func TestAddNote(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectQuery(`SELECT id FROM routes WHERE id`).
		WithArgs("route-1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("route-1"))
	mock.ExpectExec(`INSERT INTO notes`).
		WithArgs(pgxmock.AnyArg(), "buy matches").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO route_notes`).
		WithArgs("route-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	svc := NewService(mock)
	note, err := svc.AddNote(context.Background(), "route-1", "buy matches")
	if err != nil || note.Text != "buy matches" {
		t.Fatalf("add note: %+v %v", note, err)
	}
}

func TestAddNoteUnknownRoute(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectQuery(`SELECT id FROM routes WHERE id`).
		WithArgs("route-404").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	svc := NewService(mock)
	if _, err := svc.AddNote(context.Background(), "route-404", "buy matches"); !errors.Is(err, ErrRouteNotFound) {
		t.Fatalf("expected ErrRouteNotFound, got %v", err)
	}
	// No insert may happen for a route that does not exist.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected writes: %v", err)
	}
}

func TestUpdateDotRangeAndMissing(t *testing.T) {
	mock := newMockPool(t)
	svc := NewService(mock)

	expectRouteFetch := func() {
		mock.ExpectQuery(`FROM routes WHERE id`).
			WithArgs("route-1").
			WillReturnRows(pgxmock.NewRows(routeCols).
				AddRow("route-1", "Karelia", "user-1", datePtr(2025, 7, 10), datePtr(2025, 7, 20), "", "", 0, 10, "July", 2025, time.Now()))
		mock.ExpectQuery(`FROM dots d`).
			WithArgs("route-1").
			WillReturnRows(pgxmock.NewRows([]string{"id", "name", "information", "date", "note"}))
		mock.ExpectQuery(`FROM notes n`).
			WithArgs("route-1").
			WillReturnRows(pgxmock.NewRows([]string{"id", "done", "text"}))
		mock.ExpectQuery(`FROM tags t`).
			WithArgs("route-1").
			WillReturnRows(pgxmock.NewRows([]string{"name"}))
	}

	expectRouteFetch()
	_, err := svc.UpdateDot(context.Background(), "route-1", "dot-1", DotInput{Name: "Camp", Date: datePtr(2025, 8, 1)})
	if !errors.Is(err, ErrDotDateOutOfRange) {
		t.Fatalf("expected ErrDotDateOutOfRange, got %v", err)
	}

	expectRouteFetch()
	mock.ExpectExec(`UPDATE dots`).
		WithArgs("dot-404", "Camp", "", pgxmock.AnyArg(), pgxmock.AnyArg(), "route-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	_, err = svc.UpdateDot(context.Background(), "route-1", "dot-404", DotInput{Name: "Camp", Date: datePtr(2025, 7, 11)})
	if !errors.Is(err, ErrDotNotFound) {
		t.Fatalf("expected ErrDotNotFound, got %v", err)
	}
}

func TestUpdateRouteRevalidatesDots(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectQuery(`FROM routes WHERE id`).
		WithArgs("route-1").
		WillReturnRows(pgxmock.NewRows(routeCols).
			AddRow("route-1", "Karelia", "user-1", datePtr(2025, 7, 10), datePtr(2025, 7, 20), "", "", 0, 10, "July", 2025, time.Now()))
	mock.ExpectQuery(`FROM dots d`).
		WithArgs("route-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "information", "date", "note"}).
			AddRow("dot-1", "Lake camp", "", datePtr(2025, 7, 18), ""))
	mock.ExpectQuery(`FROM notes n`).
		WithArgs("route-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "done", "text"}))
	mock.ExpectQuery(`FROM tags t`).
		WithArgs("route-1").
		WillReturnRows(pgxmock.NewRows([]string{"name"}))

	// Shrinking the window below an existing dot's date must fail.
	svc := NewService(mock)
	_, err := svc.UpdateRoute(context.Background(), "route-1", RouteInput{DateOut: datePtr(2025, 7, 15)})
	if !errors.Is(err, ErrDotDateOutOfRange) {
		t.Fatalf("expected ErrDotDateOutOfRange, got %v", err)
	}
}

func TestRoutesByAuthor(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectQuery(`FROM routes WHERE author_id`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows(routeCols).
			AddRow("route-1", "Karelia", "user-1", datePtr(2025, 7, 10), datePtr(2025, 7, 20), "", "", 0, 10, "July", 2025, time.Now()).
			AddRow("route-2", "Altai", "user-1", nil, nil, "", "", 0, 0, "", 0, time.Now()))

	svc := NewService(mock)
	routes, err := svc.RoutesByAuthor(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("routes by author: %v", err)
	}
	if len(routes) != 2 {
		t.Fatalf("expected 2 routes, got %d", len(routes))
	}
}

func TestSetNoteDone(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectExec(`UPDATE notes SET done=\$2`).
		WithArgs("note-1", true).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE notes SET done=\$2`).
		WithArgs("note-404", true).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	svc := NewService(mock)
	if err := svc.SetNoteDone(context.Background(), "note-1", true); err != nil {
		t.Fatalf("set note done: %v", err)
	}
	if err := svc.SetNoteDone(context.Background(), "note-404", true); !errors.Is(err, ErrNoteNotFound) {
		t.Fatalf("expected ErrNoteNotFound, got %v", err)
	}
}
