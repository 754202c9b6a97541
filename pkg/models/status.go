package models

// TaskState represents the lifecycle position of a crawl task in the registry
type TaskState string

const (
	TaskStateUnset   TaskState = ""        // Zero value = unset/unknown
	TaskStatePending TaskState = "pending" // Task created, crawl not finished
	TaskStateReady   TaskState = "ready"   // Results recorded, terminal
)

// String implements fmt.Stringer for logging
func (s TaskState) String() string {
	if s == "" {
		return "unset"
	}
	return string(s)
}

// IsValid returns true if the state is a known operational value
func (s TaskState) IsValid() bool {
	switch s {
	case TaskStatePending, TaskStateReady:
		return true
	}
	return false
}
