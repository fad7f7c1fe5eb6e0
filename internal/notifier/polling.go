package notifier

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"
)

// Command is a chat command with its arguments, e.g. "/status BTCUSDT".
type Command struct {
	Name string
	Args []string
}

// ParseCommand splits a message into a command and its arguments. A "@botname" suffix on the
// command is dropped so commands addressed to the bot in group chats match too.
func ParseCommand(text string) (Command, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Command{}, false
	}
	name := fields[0]
	if strings.HasPrefix(name, "/") {
		if at := strings.IndexByte(name, '@'); at > 0 {
			name = name[:at]
		}
		name = strings.ToLower(name)
	}
	return Command{Name: name, Args: fields[1:]}, true
}

// CommandHandler answers a command; an empty reply sends nothing.
type CommandHandler func(cmd Command) string

type telegramUpdate struct {
	UpdateID int `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

// StartPolling long-polls for commands until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	offset := 0
	for {
		next, err := t.pollOnce(ctx, offset, handler)
		if ctx.Err() != nil {
			log.Println("[INFO] Telegram polling stopped")
			return
		}
		if err != nil {
			log.Printf("[WARN] polling failed: %v", err)
			select {
			case <-ctx.Done():
				log.Println("[INFO] Telegram polling stopped")
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}
		offset = next
	}
}

// pollOnce fetches one batch of updates starting at offset, answers the commands sent from the
// configured chat and returns the offset of the next batch.
func (t *TelegramNotifier) pollOnce(ctx context.Context, offset int, handler CommandHandler) (int, error) {
	var updates []telegramUpdate
	payload := map[string]any{
		"offset":          offset,
		"timeout":         int(t.PollTimeout / time.Second),
		"allowed_updates": []string{"message"},
	}
	if err := t.call(ctx, "getUpdates", payload, &updates); err != nil {
		return offset, err
	}

	for _, update := range updates {
		offset = update.UpdateID + 1
		if update.Message == nil {
			continue
		}
		if chat := strconv.FormatInt(update.Message.Chat.ID, 10); chat != t.ChatID {
			log.Printf("[WARN] ignoring message from chat %s", chat)
			continue
		}
		cmd, ok := ParseCommand(update.Message.Text)
		if !ok {
			continue
		}
		log.Printf("[INFO] received command: %s %v", cmd.Name, cmd.Args)
		if reply := handler(cmd); reply != "" {
			if err := t.Send(ctx, reply); err != nil {
				log.Printf("[ERROR] send reply: %v", err)
			}
		}
	}
	return offset, nil
}
