package customreq

// Status is a custom request review state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusReviewing Status = "reviewing"
	StatusQuoted    Status = "quoted"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
)

// Statuses lists every request status in review order.
var Statuses = []Status{
	StatusPending,
	StatusReviewing,
	StatusQuoted,
	StatusAccepted,
	StatusRejected,
	StatusCompleted,
}

// StatusGroup buckets request statuses for the back-office board.
type StatusGroup string

const (
	GroupNew        StatusGroup = "NEW"
	GroupInProgress StatusGroup = "IN_PROGRESS"
	GroupDone       StatusGroup = "DONE"
)

// StatusGroups maps each group to its member statuses.
var StatusGroups = map[StatusGroup][]Status{
	GroupNew:        {StatusPending},
	GroupInProgress: {StatusReviewing, StatusQuoted, StatusAccepted},
	GroupDone:       {StatusCompleted, StatusRejected},
}

// ValidStatus reports whether s is a known request status.
func ValidStatus(s Status) bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// GroupOf returns the board group of a status. Unknown statuses land in DONE.
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
// status or a group name, to a concrete status. NEW resolves to pending,
// IN_PROGRESS to reviewing, DONE to completed.
func ResolveStatusInput(input string) (Status, bool) {
	switch StatusGroup(input) {
	case GroupNew:
		return StatusPending, true
	case GroupInProgress:
		return StatusReviewing, true
	case GroupDone:
		return StatusCompleted, true
	}
	if ValidStatus(Status(input)) {
		return Status(input), true
	}
	return "", false
}

// ResolveStatusFilter expands a list-endpoint filter value into the statuses
// it covers. Empty or ALL means no filtering.
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
