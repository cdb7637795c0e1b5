package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"eventbook/internal/app/policies"
	domainbooking "eventbook/internal/domain/booking"
)

const cancelledEventType = "booking.cancelled.v1"

var ErrArchiverNotConfigured = errors.New("audit: archiver missing dependencies")

// Envelope is the CloudEvents wrapper the outbox relay publishes.
type Envelope struct {
	ID     string          `json:"id"`
	Type   string          `json:"type"`
	Source string          `json:"source"`
	Time   time.Time       `json:"time"`
	Data   json.RawMessage `json:"data"`
}

// Receipt is the archived record of a committed cancellation.
type Receipt struct {
	EventID    string                         `json:"event_id"`
	ArchivedAt time.Time                      `json:"archived_at"`
	Settlement domainbooking.BookingCancelled `json:"settlement"`
}

// SettlementArchiver stores every committed cancellation settlement as an
// immutable JSON receipt, once per event.
type SettlementArchiver struct {
	Inbox  policies.Inbox
	Store  policies.ArchiveStore
	Prefix string
	Now    func() time.Time
	Logger *slog.Logger
}

// HandleMessage processes one broker message. Messages other than booking
// cancellations are acknowledged without work.
func (a *SettlementArchiver) HandleMessage(ctx context.Context, value []byte) error {
	if a.Inbox == nil || a.Store == nil {
		return ErrArchiverNotConfigured
	}
	var env Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		a.logger().WarnContext(ctx, "dropping undecodable event", "error", err)
		return nil
	}
	if env.Type != cancelledEventType {
		return nil
	}
	var ev domainbooking.BookingCancelled
	if err := json.Unmarshal(env.Data, &ev); err != nil || ev.BookingID == "" {
		a.logger().WarnContext(ctx, "dropping malformed cancellation", "event_id", env.ID, "error", err)
		return nil
	}

	seen, err := a.Inbox.Seen(ctx, env.ID)
	if err != nil {
		return err
	}
	if seen {
		a.logger().DebugContext(ctx, "cancellation already archived", "event_id", env.ID, "booking_id", string(ev.BookingID))
		return nil
	}

	receipt := Receipt{EventID: env.ID, ArchivedAt: a.now().UTC(), Settlement: ev}
	body, err := json.Marshal(receipt)
	if err != nil {
		return a.abandon(ctx, env.ID, err)
	}
	if err := a.Store.Put(ctx, a.keyFor(ev.BookingID), "application/json", body); err != nil {
		return a.abandon(ctx, env.ID, err)
	}
	a.logger().InfoContext(ctx, "settlement archived",
		"booking_id", string(ev.BookingID), "refund", ev.RefundAmount.Amount, "fee", ev.PlatformFee.Amount, "payout", ev.SupplierPayout.Amount)
	return nil
}

// keyFor is the object key a booking's receipt is stored under.
func (a *SettlementArchiver) keyFor(id domainbooking.BookingID) string {
	prefix := strings.Trim(a.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return fmt.Sprintf("%ssettlements/%s.json", prefix, id)
}

func (a *SettlementArchiver) abandon(ctx context.Context, eventID string, cause error) error {
	if err := a.Inbox.Forget(ctx, eventID); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

func (a *SettlementArchiver) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *SettlementArchiver) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}
