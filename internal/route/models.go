package route

import (
	"errors"
	"time"
)

var (
	ErrRouteNotFound = errors.New("route not found")
	ErrNoteNotFound  = errors.New("note not found")
	ErrDotNotFound   = errors.New("dot not found")
	// ErrDotDateOutOfRange rejects a waypoint dated outside the route's
	// date_in..date_out window.
	ErrDotDateOutOfRange = errors.New("dot date outside route dates")
)

type Route struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	AuthorID   string     `json:"author_id"`
	DateIn     *time.Time `json:"date_in"`
	DateOut    *time.Time `json:"date_out"`
	Comment    string     `json:"comment"`
	Baggage    string     `json:"baggage"`
	Rate       int        `json:"rate"`
	LengthDays int        `json:"length_days"`
	Month      string     `json:"month"`
	Year       int        `json:"year"`
	Tags       []string   `json:"tags,omitempty"`
	Dots       []Dot      `json:"dots,omitempty"`
	Notes      []Note     `json:"notes,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

type Dot struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Information string     `json:"information"`
	Date        *time.Time `json:"date,omitempty"`
	Note        string     `json:"note,omitempty"`
}

type Note struct {
	ID   string `json:"id"`
	Done bool   `json:"done"`
	Text string `json:"text"`
}

type PublicRoute struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	AuthorID   string      `json:"author_id"`
	Comment    string      `json:"comment"`
	Rate       int         `json:"rate"`
	LengthDays int         `json:"length_days"`
	Month      string      `json:"month"`
	Year       int         `json:"year"`
	Tags       []string    `json:"tags,omitempty"`
	Dots       []PublicDot `json:"dots,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

type PublicDot struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Information string `json:"information"`
}

type RouteInput struct {
	Name    string     `json:"name"`
	DateIn  *time.Time `json:"date_in"`
	DateOut *time.Time `json:"date_out"`
	Comment string     `json:"comment"`
	Baggage string     `json:"baggage"`
	Rate    int        `json:"rate"`
	Tags    []string   `json:"tags"`
	Dots    []DotInput `json:"dots"`
	Notes   []string   `json:"notes"`
}

type DotInput struct {
	Name        string     `json:"name"`
	Information string     `json:"information"`
	Date        *time.Time `json:"date"`
	Note        string     `json:"note"`
}
