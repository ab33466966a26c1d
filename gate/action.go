package gate

// Action describes the kind of operation a user wants to perform.
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionList   Action = "list"

	// ActionRestore rolls a document back to an earlier version.
	ActionRestore Action = "restore"
	// ActionCompare reads two versions of a document side by side.
	ActionCompare Action = "compare"
)

// Mutating reports whether the action changes the resource.
func (a Action) Mutating() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionRestore:
		return true
	}
	return false
}
