package link

import (
	"context"
	"errors"
	"time"

	"github.com/maroonlid/Tutunovka-HSE/internal/db"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
)

// linkTokenTTL is how long a bot-authorization token stays redeemable after
// the site issues it.
const linkTokenTTL = 5 * time.Minute

var (
	ErrTokenExpired    = errors.New("link token expired")
	ErrTokenInvalid    = errors.New("link token invalid")
	ErrAccountNotFound = errors.New("account not found")
)

// Service issues the short-lived tokens the site shows to a logged-in user
// and redeems them on the bot side, binding the telegram chat id to the
// account. Both processes share the same signing secret.
type Service struct {
	secret []byte
	db     db.Querier
	now    func() time.Time
}

type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type Account struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	TgChatID *int64 `json:"tg_chat_id,omitempty"`
}

func NewService(secret string, db db.Querier) *Service {
	return &Service{
		secret: []byte(secret),
		db:     db,
		now:    time.Now,
	}
}

// Issue signs a token carrying the username with a fixed 5-minute expiry.
func (s *Service) Issue(username string) (string, error) {
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(s.now().Add(linkTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(s.now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate checks signature and expiry of an arbitrary string. The two
// failure modes are distinct because they get different user-facing replies.
func (s *Service) Validate(raw string) (string, error) {
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Username == "" {
		return "", ErrTokenInvalid
	}
	return claims.Username, nil
}

// Redeem validates the token and, on success, overwrites the account's chat
// id with the redeeming chat's id. An unknown username mutates nothing.
// Redeeming twice with the same chat id is a no-op.
func (s *Service) Redeem(ctx context.Context, raw string, chatID int64) (Account, error) {
	username, err := s.Validate(raw)
	if err != nil {
		return Account{}, err
	}

	var account Account
	row := s.db.QueryRow(ctx, `SELECT id, username, full_name FROM users WHERE username=$1`, username)
	err = row.Scan(&account.ID, &account.Username, &account.FullName)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	if err != nil {
		return Account{}, err
	}

	_, err = s.db.Exec(ctx, `UPDATE users SET tg_chat_id=$2 WHERE id=$1`, account.ID, chatID)
	if err != nil {
		return Account{}, err
	}
	account.TgChatID = &chatID
	return account, nil
}

// Logout clears the chat id binding. The returned flag reports whether any
// account was actually linked to this chat.
func (s *Service) Logout(ctx context.Context, chatID int64) (bool, error) {
	tag, err := s.db.Exec(ctx, `UPDATE users SET tg_chat_id=NULL WHERE tg_chat_id=$1`, chatID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// AccountByChatID resolves a chat session to its linked account.
// ErrAccountNotFound means "not linked", a normal state for a fresh chat.
func (s *Service) AccountByChatID(ctx context.Context, chatID int64) (Account, error) {
	var account Account
	row := s.db.QueryRow(ctx, `SELECT id, username, full_name, tg_chat_id FROM users WHERE tg_chat_id=$1`, chatID)
	err := row.Scan(&account.ID, &account.Username, &account.FullName, &account.TgChatID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	if err != nil {
		return Account{}, err
	}
	return account, nil
}
