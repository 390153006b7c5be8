package order

// Status is an order lifecycle state.
type Status string

const (
	StatusPendingConfirmation Status = "PENDING_CONFIRMATION"
	StatusPendingPayment      Status = "PENDING_PAYMENT"
	StatusConfirmed           Status = "CONFIRMED"
	StatusInProduction        Status = "IN_PRODUCTION"
	StatusShipped             Status = "SHIPPED"
	StatusCompleted           Status = "COMPLETED"
	StatusCancelled           Status = "CANCELLED"
)

// Statuses lists every order status in lifecycle order.
var Statuses = []Status{
	StatusPendingConfirmation,
	StatusPendingPayment,
	StatusConfirmed,
	StatusInProduction,
	StatusShipped,
	StatusCompleted,
	StatusCancelled,
}

// StatusGroup buckets statuses for the back-office board.
type StatusGroup string

const (
	GroupNew        StatusGroup = "NEW"
	GroupInProgress StatusGroup = "IN_PROGRESS"
	GroupDone       StatusGroup = "DONE"
)

// StatusGroups maps each group to its member statuses.
var StatusGroups = map[StatusGroup][]Status{
	GroupNew:        {StatusPendingConfirmation, StatusPendingPayment},
	GroupInProgress: {StatusConfirmed, StatusInProduction, StatusShipped},
	GroupDone:       {StatusCompleted, StatusCancelled},
}

// ValidStatus reports whether s is a known order status.
func ValidStatus(s Status) bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// GroupOf returns the board group of a status. Unknown statuses land in DONE,
// matching the back-office fallback.
func GroupOf(s Status) StatusGroup {
	for _, member := range StatusGroups[GroupNew] {
		if s == member {
			return GroupNew
		}
	}
	for _, member := range StatusGroups[GroupInProgress] {
		if s == member {
			return GroupInProgress
		}
	}
	return GroupDone
}

// ResolveStatusInput maps an operator-supplied value, either a concrete
// status or a group name, to a concrete status. Groups resolve to a canonical
// member: NEW to PENDING_CONFIRMATION, IN_PROGRESS to IN_PRODUCTION, DONE to
// COMPLETED. The second return is false for unknown input.
func ResolveStatusInput(input string) (Status, bool) {
	switch StatusGroup(input) {
	case GroupNew:
		return StatusPendingConfirmation, true
	case GroupInProgress:
		return StatusInProduction, true
	case GroupDone:
		return StatusCompleted, true
	}
	if ValidStatus(Status(input)) {
		return Status(input), true
	}
	return "", false
}

// ResolveStatusFilter expands a list-endpoint filter value into the statuses
// it covers. Empty or ALL means no filtering (nil). Unknown input returns
// ok=false so handlers can reject it.
func ResolveStatusFilter(input string) ([]Status, bool) {
	if input == "" || input == "ALL" {
		return nil, true
	}
	if members, ok := StatusGroups[StatusGroup(input)]; ok {
		out := make([]Status, len(members))
		copy(out, members)
		return out, true
	}
	if ValidStatus(Status(input)) {
		return []Status{Status(input)}, true
	}
	return nil, false
}
