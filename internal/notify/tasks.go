package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// TaskWhatsAppMessage is the asynq task type for outbound WhatsApp messages.
const TaskWhatsAppMessage = "notify:whatsapp"

// WhatsAppPayload is the task body for one outbound message.
type WhatsAppPayload struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// Enqueuer pushes notification tasks onto the queue. A nil client disables
// notifications without failing the calling flow.
type Enqueuer struct {
	Client   *asynq.Client
	MaxRetry int
	Logger   zerolog.Logger
}

// EnqueueWhatsApp schedules one WhatsApp message for background delivery.
func (e *Enqueuer) EnqueueWhatsApp(ctx context.Context, phone, message string) error {
	if e == nil || e.Client == nil {
		return nil
	}
	if phone == "" || message == "" {
		return nil
	}
	body, err := json.Marshal(WhatsAppPayload{Phone: phone, Message: message})
	if err != nil {
		return err
	}
	maxRetry := e.MaxRetry
	if maxRetry <= 0 {
		maxRetry = 5
	}
	task := asynq.NewTask(TaskWhatsAppMessage, body)
	if _, err := e.Client.EnqueueContext(ctx, task, asynq.MaxRetry(maxRetry)); err != nil {
		e.Logger.Error().Err(err).Str("phone", phone).Msg("enqueue whatsapp task failed")
		return err
	}
	return nil
}

// Worker consumes notification tasks.
type Worker struct {
	Sender *Sender
	Logger zerolog.Logger
}

// Register attaches the worker's handlers to the asynq mux.
func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskWhatsAppMessage, w.HandleWhatsApp)
}

// HandleWhatsApp delivers one queued message. Errors trigger asynq retries.
func (w *Worker) HandleWhatsApp(ctx context.Context, t *asynq.Task) error {
	var payload WhatsAppPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode whatsapp payload: %w: %w", err, asynq.SkipRetry)
	}
	if err := w.Sender.Send(ctx, payload.Phone, payload.Message); err != nil {
		w.Logger.Warn().Err(err).Msg("whatsapp delivery failed")
		return err
	}
	return nil
}
