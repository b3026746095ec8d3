package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"roomreserve/internal/domain"
	"roomreserve/internal/events"
	"roomreserve/internal/metrics"
	"roomreserve/internal/models"
)

// NotifyTask is one admin notification waiting to be delivered.
type NotifyTask struct {
	Event     string                     `json:"event"`
	Booking   events.BookingEventPayload `json:"booking"`
	CreatedAt time.Time                  `json:"created_at"`
}

// NotifyWorker delivers booking events to the admin Telegram chats.
// Tasks go through Redis when a client is set, otherwise through an in-memory queue.
type NotifyWorker struct {
	sender        domain.TelegramSender
	chatIDs       []int64
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan NotifyTask
	redisQueueKey string
	deadLetterKey string
	pollInterval  time.Duration
	logger        *zerolog.Logger
}

func NewNotifyWorker(
	sender domain.TelegramSender,
	chatIDs []int64,
	redisClient *redis.Client,
	keyPrefix string,
	retry RetryPolicy,
	logger *zerolog.Logger,
) *NotifyWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = DefaultRetryPolicy.MaxRetries
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if keyPrefix == "" {
		keyPrefix = models.DefaultRedisKeyPrefix
	}

	return &NotifyWorker{
		sender:        sender,
		chatIDs:       chatIDs,
		redis:         redisClient,
		retryPolicy:   retry,
		queue:         make(chan NotifyTask, models.NotifyQueueSize),
		redisQueueKey: keyPrefix + ":notify:queue",
		deadLetterKey: keyPrefix + ":notify:deadletter",
		pollInterval:  time.Second,
		logger:        logger,
	}
}

// Subscribe wires the worker to booking events on the bus.
func (w *NotifyWorker) Subscribe(bus *events.EventBus) {
	handler := func(event *events.Event) error {
		var payload events.BookingEventPayload
		if err := event.Decode(&payload); err != nil {
			return fmt.Errorf("decode %s: %w", event.Type, err)
		}
		return w.Enqueue(context.Background(), NotifyTask{Event: event.Type, Booking: payload, CreatedAt: event.CreatedAt})
	}
	bus.Subscribe(events.EventBookingCreated, handler)
	bus.Subscribe(events.EventBookingCancelled, handler)
}

// Enqueue schedules a task. It never blocks: a full memory queue drops the task.
func (w *NotifyWorker) Enqueue(ctx context.Context, task NotifyTask) error {
	if task.Event == "" {
		return errors.New("task event is required")
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}

	if w.redis != nil {
		if err := w.push(ctx, w.redisQueueKey, task); err != nil {
			w.logger.Warn().Err(err).Msg("notify_worker: redis push failed, fallback to memory queue")
		} else {
			return nil
		}
	}

	select {
	case w.queue <- task:
		return nil
	default:
		w.logger.Warn().Str("booking_id", task.Booking.BookingID).Msg("notify_worker: queue full, notification dropped")
		return errors.New("notification queue is full")
	}
}

// Start launches main loop; stops when ctx is done.
func (w *NotifyWorker) Start(ctx context.Context) {
	w.logger.Info().Int("chats", len(w.chatIDs)).Msg("notify_worker: started")
	defer w.logger.Info().Msg("notify_worker: stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-w.queue:
			w.processTask(ctx, t)
			continue
		default:
		}

		if t, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, t)
			continue
		}

		if w.redis != nil {
			// BRPOP already waited; loop back to check the memory queue
			continue
		}

		select {
		case <-ctx.Done():
			return
		case t := <-w.queue:
			w.processTask(ctx, t)
		case <-time.After(w.pollInterval):
		}
	}
}

func (w *NotifyWorker) tryRedis(ctx context.Context) (NotifyTask, bool) {
	if w.redis == nil {
		return NotifyTask{}, false
	}
	res, err := w.redis.BRPop(ctx, w.pollInterval, w.redisQueueKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.logger.Warn().Err(err).Msg("notify_worker: redis BRPOP error")
			time.Sleep(w.pollInterval)
		}
		return NotifyTask{}, false
	}
	if len(res) != 2 {
		return NotifyTask{}, false
	}
	var task NotifyTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("notify_worker: decode redis task")
		return NotifyTask{}, false
	}
	return task, true
}

// processTask sends the message to every chat, retrying each chat independently.
func (w *NotifyWorker) processTask(ctx context.Context, task NotifyTask) {
	text := FormatMessage(task)
	failed := false

	for _, chatID := range w.chatIDs {
		if err := w.sendWithRetry(ctx, chatID, text); err != nil {
			failed = true
			metrics.IncNotification("failed")
			w.logger.Error().Err(err).
				Int64("chat_id", chatID).
				Str("booking_id", task.Booking.BookingID).
				Msg("notify_worker: giving up on notification")
			continue
		}
		metrics.IncNotification("sent")
	}

	if failed {
		w.pushDeadLetter(ctx, task)
	}
}

func (w *NotifyWorker) sendWithRetry(ctx context.Context, chatID int64, text string) error {
	var err error
	for attempt := 1; attempt <= w.retryPolicy.MaxRetries; attempt++ {
		if _, err = w.sender.Send(tgbotapi.NewMessage(chatID, text)); err == nil {
			return nil
		}
		if attempt == w.retryPolicy.MaxRetries {
			break
		}
		w.logger.Debug().Err(err).Int("attempt", attempt).Int64("chat_id", chatID).Msg("notify_worker: send failed, retrying")
		if werr := w.retryPolicy.Wait(ctx, attempt); werr != nil {
			return werr
		}
	}
	return err
}

func (w *NotifyWorker) push(ctx context.Context, key string, task NotifyTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, key, data).Err()
}

func (w *NotifyWorker) pushDeadLetter(ctx context.Context, task NotifyTask) {
	if w.redis == nil {
		return
	}
	if err := w.push(ctx, w.deadLetterKey, task); err != nil {
		w.logger.Error().Err(err).Str("booking_id", task.Booking.BookingID).Msg("notify_worker: deadletter push failed")
	}
}

// FormatMessage renders the admin notification text.
func FormatMessage(task NotifyTask) string {
	b := task.Booking
	title := "Booking"
	switch task.Event {
	case events.EventBookingCreated:
		title = "New booking"
	case events.EventBookingCancelled:
		title = "Booking cancelled"
	}
	return fmt.Sprintf("%s\n%s\n%s %s-%s\n%s, %d people\nID: %s",
		title, b.RoomName, b.Date, b.StartTime, b.EndTime, b.RepresentativeName, b.NumberOfPeople, b.BookingID)
}
