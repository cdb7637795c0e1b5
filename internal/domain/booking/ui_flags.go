package booking

// Flags are the capabilities a viewer has on a booking right now. They are
// recomputed on every read and never stored.
type Flags struct {
	CanCancel        bool `json:"can_cancel"`
	CanPay           bool `json:"can_pay"`
	CanMessage       bool `json:"can_message"`
	CanReview        bool `json:"can_review"`
	CanRequestRefund bool `json:"can_request_refund"`
}

type FlagsInput struct {
	Viewer            Actor
	Now               Moment
	HasReview         bool
	HasPendingDispute bool
}

// ProjectFlags derives Flags from the same guards the transition table
// enforces, so a flag is true exactly when the matching command would pass.
func ProjectFlags(b *Booking, in FlagsInput) Flags {
	if b == nil || b.authorize(in.Viewer) != nil {
		return Flags{}
	}
	isClient := in.Viewer.Role == RoleClient
	pendingDispute := in.HasPendingDispute || b.Status == StatusDisputed
	return Flags{
		CanCancel:        Can(b, in.Viewer, StatusCancelled, in.Now),
		CanPay:           isClient && b.Status == StatusConfirmed && b.PaidAmount.Amount < b.TotalPrice.Amount,
		CanMessage:       in.Viewer.Role != RoleOperator && b.Status != StatusCancelled && b.Status != StatusRefunded,
		CanReview:        isClient && b.Status == StatusCompleted && !in.HasReview,
		CanRequestRefund: !pendingDispute && Can(b, in.Viewer, StatusDisputed, in.Now),
	}
}
