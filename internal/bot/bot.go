package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/maroonlid/Tutunovka-HSE/internal/link"
	"github.com/maroonlid/Tutunovka-HSE/internal/route"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the slice of tgbotapi.BotAPI the handlers need. Tests swap in a
// fake.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot is the telegram front for linked accounts: token redemption, nearest
// trip, trip notes and logout.
type Bot struct {
	api    Sender
	links  *link.Service
	routes *route.Service
	now    func() time.Time
}

func New(api Sender, links *link.Service, routes *route.Service) *Bot {
	return &Bot{
		api:    api,
		links:  links,
		routes: routes,
		now:    time.Now,
	}
}

func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	if cq := update.CallbackQuery; cq != nil {
		b.api.Request(tgbotapi.NewCallback(cq.ID, ""))
		b.handleCallback(ctx, cq.From.ID, cq.Data)
		return
	}
	if update.Message == nil {
		return
	}

	msg := update.Message
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			b.sendMenu(ctx, chatID, "Hello! I am your travel assistant.")
		default:
			b.send(chatID, "Unknown command. Try /start.")
		}
		return
	}

	// Any free text is treated as a link-token redemption attempt.
	b.redeem(ctx, chatID, strings.TrimSpace(msg.Text))
}

func (b *Bot) handleCallback(ctx context.Context, chatID int64, data string) {
	switch {
	case data == "main":
		b.sendMenu(ctx, chatID, "What would you like to do?")
	case data == "auth":
		b.send(chatID, "Open your profile on the site, press \"Get bot token\" and paste the token here. It is valid for 5 minutes.")
	case data == "trip":
		b.sendNearestTrip(ctx, chatID)
	case data == "notes":
		b.sendNotes(ctx, chatID)
	case strings.HasPrefix(data, "note_"):
		b.toggleNote(ctx, chatID, strings.TrimPrefix(data, "note_"))
	case data == "logout":
		b.logout(ctx, chatID)
	}
}

func (b *Bot) redeem(ctx context.Context, chatID int64, token string) {
	account, err := b.links.Redeem(ctx, token, chatID)
	switch {
	case errors.Is(err, link.ErrTokenExpired):
		b.send(chatID, "That token has expired. Get a fresh one on the site and try again.")
	case errors.Is(err, link.ErrTokenInvalid):
		b.send(chatID, "That does not look like a valid token. Get one on the site via \"Get bot token\".")
	case errors.Is(err, link.ErrAccountNotFound):
		b.send(chatID, "I could not find an account for this token.")
	case err != nil:
		log.Printf("redeem for chat %d: %v", chatID, err)
		b.send(chatID, "Something went wrong, please try again later.")
	default:
		name := account.FullName
		if name == "" {
			name = account.Username
		}
		b.sendMenu(ctx, chatID, fmt.Sprintf("You are authorized, %s!", name))
	}
}

func (b *Bot) sendNearestTrip(ctx context.Context, chatID int64) {
	account, ok := b.requireAccount(ctx, chatID)
	if !ok {
		return
	}

	r, err := b.routes.NearestRoute(ctx, account.ID, b.now())
	if errors.Is(err, route.ErrRouteNotFound) {
		b.send(chatID, "You have no upcoming trips.")
		return
	}
	if err != nil {
		log.Printf("nearest route for chat %d: %v", chatID, err)
		b.send(chatID, "Could not load your trips, please try again later.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Your nearest trip: %s\n", r.Name)
	if r.DateIn != nil && r.DateOut != nil {
		fmt.Fprintf(&sb, "Dates: %s - %s\n", r.DateIn.Format("02.01.2006"), r.DateOut.Format("02.01.2006"))
	}
	if r.Baggage != "" {
		fmt.Fprintf(&sb, "Baggage: %s\n", r.Baggage)
	}
	if r.Comment != "" {
		fmt.Fprintf(&sb, "Comment: %s\n", r.Comment)
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimRight(sb.String(), "\n"))
	msg.ReplyMarkup = backKeyboard()
	b.api.Send(msg)
}

func (b *Bot) sendNotes(ctx context.Context, chatID int64) {
	account, ok := b.requireAccount(ctx, chatID)
	if !ok {
		return
	}

	r, err := b.routes.NearestRoute(ctx, account.ID, b.now())
	if errors.Is(err, route.ErrRouteNotFound) {
		b.send(chatID, "You have no upcoming trips, so no notes either.")
		return
	}
	if err != nil {
		log.Printf("nearest route for chat %d: %v", chatID, err)
		b.send(chatID, "Could not load your trips, please try again later.")
		return
	}

	notes, err := b.routes.NotesForRoute(ctx, r.ID)
	if err != nil {
		log.Printf("notes for route %s: %v", r.ID, err)
		b.send(chatID, "Could not load your notes, please try again later.")
		return
	}
	if len(notes) == 0 {
		b.send(chatID, fmt.Sprintf("No notes for %s yet.", r.Name))
		return
	}

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Notes for %s. Tap one to toggle it.", r.Name))
	msg.ReplyMarkup = notesKeyboard(notes)
	b.api.Send(msg)
}

func (b *Bot) toggleNote(ctx context.Context, chatID int64, noteID string) {
	if _, err := b.routes.ToggleNote(ctx, noteID); err != nil {
		if errors.Is(err, route.ErrNoteNotFound) {
			b.send(chatID, "That note no longer exists.")
			return
		}
		log.Printf("toggle note %s: %v", noteID, err)
		b.send(chatID, "Could not update the note, please try again later.")
		return
	}
	b.sendNotes(ctx, chatID)
}

func (b *Bot) logout(ctx context.Context, chatID int64) {
	unlinked, err := b.links.Logout(ctx, chatID)
	if err != nil {
		log.Printf("logout for chat %d: %v", chatID, err)
		b.send(chatID, "Something went wrong, please try again later.")
		return
	}
	if !unlinked {
		b.send(chatID, "You are not logged in.")
		return
	}
	b.sendMenu(ctx, chatID, "You are logged out.")
}

// Notify sends the day-before-departure reminder.
func (b *Bot) Notify(chatID int64, routeName string, dateIn time.Time) error {
	text := fmt.Sprintf("Your trip %s starts tomorrow, %s. Have a good journey!",
		routeName, dateIn.Format("02.01.2006"))
	_, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (b *Bot) requireAccount(ctx context.Context, chatID int64) (link.Account, bool) {
	account, err := b.links.AccountByChatID(ctx, chatID)
	if errors.Is(err, link.ErrAccountNotFound) {
		b.send(chatID, "You are not authorized yet. Press the button and paste your token.")
		return link.Account{}, false
	}
	if err != nil {
		log.Printf("account for chat %d: %v", chatID, err)
		b.send(chatID, "Something went wrong, please try again later.")
		return link.Account{}, false
	}
	return account, true
}

func (b *Bot) sendMenu(ctx context.Context, chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.links.AccountByChatID(ctx, chatID); err == nil {
		msg.ReplyMarkup = linkedKeyboard()
	} else {
		msg.ReplyMarkup = unlinkedKeyboard()
	}
	b.api.Send(msg)
}

func (b *Bot) send(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Printf("send to chat %d: %v", chatID, err)
	}
}

func linkedKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Nearest trip", "trip"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Trip notes", "notes"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Log out", "logout"),
		),
	)
}

func unlinkedKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Authorize", "auth"),
		),
	)
}

func backKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Back", "main"),
		),
	)
}

func notesKeyboard(notes []route.Note) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(notes)+1)
	for _, n := range notes {
		mark := "❌"
		if n.Done {
			mark = "✅"
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(mark+" "+n.Text, "note_"+n.ID),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Back", "main"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
