package reminder

import (
	"context"
	"log"
	"time"

	"github.com/maroonlid/Tutunovka-HSE/internal/db"

	"github.com/redis/go-redis/v9"
)

const lastRunKey = "reminder:last_run"

// Notifier delivers a departure reminder to a linked chat. The bot is the
// production implementation.
type Notifier interface {
	Notify(chatID int64, routeName string, dateIn time.Time) error
}

// DueTrip is a route departing tomorrow whose author has a linked chat.
type DueTrip struct {
	RouteID   string
	RouteName string
	DateIn    time.Time
	ChatID    int64
}

// Scanner wakes every minute and, once per calendar day at or after Hour,
// notifies every author whose trip starts tomorrow. The last completed day
// is kept in redis so a restart does not repeat or skip a day; without redis
// the marker lives in memory only.
type Scanner struct {
	db       db.Querier
	redis    *redis.Client
	notifier Notifier
	hour     int
	now      func() time.Time

	lastRun string
}

func NewScanner(db db.Querier, rdb *redis.Client, notifier Notifier, hour int) *Scanner {
	return &Scanner{
		db:       db,
		redis:    rdb,
		notifier: notifier,
		hour:     hour,
		now:      time.Now,
	}
}

func (s *Scanner) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil {
				log.Printf("reminder tick: %v", err)
			}
		}
	}
}

// Tick runs the daily scan if it is due and has not run today.
func (s *Scanner) Tick(ctx context.Context) error {
	now := s.now()
	if now.Hour() < s.hour {
		return nil
	}
	today := now.Format("2006-01-02")
	if s.ranToday(ctx, today) {
		return nil
	}

	trips, err := s.DueTrips(ctx, now)
	if err != nil {
		return err
	}
	for _, trip := range trips {
		if err := s.notifier.Notify(trip.ChatID, trip.RouteName, trip.DateIn); err != nil {
			log.Printf("reminder for route %s chat %d: %v", trip.RouteID, trip.ChatID, err)
		}
	}

	s.markRan(ctx, today)
	return nil
}

// DueTrips lists routes whose start date is the calendar day after now,
// restricted to authors with a linked telegram chat.
func (s *Scanner) DueTrips(ctx context.Context, now time.Time) ([]DueTrip, error) {
	tomorrow := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)

	rows, err := s.db.Query(ctx, `
		SELECT r.id, r.name, r.date_in, u.tg_chat_id
		FROM routes r
		JOIN users u ON u.id = r.author_id
		WHERE r.date_in = $1 AND u.tg_chat_id IS NOT NULL
	`, tomorrow)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []DueTrip
	for rows.Next() {
		var t DueTrip
		if err := rows.Scan(&t.RouteID, &t.RouteName, &t.DateIn, &t.ChatID); err != nil {
			return nil, err
		}
		trips = append(trips, t)
	}
	return trips, rows.Err()
}

func (s *Scanner) ranToday(ctx context.Context, today string) bool {
	if s.redis == nil {
		return s.lastRun == today
	}
	val, err := s.redis.Get(ctx, lastRunKey).Result()
	if err != nil {
		return false
	}
	return val == today
}

func (s *Scanner) markRan(ctx context.Context, today string) {
	s.lastRun = today
	if s.redis == nil {
		return
	}
	if err := s.redis.Set(ctx, lastRunKey, today, 48*time.Hour).Err(); err != nil {
		log.Printf("reminder marker: %v", err)
	}
}
