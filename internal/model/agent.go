package model

// Agent is a staff member who can be assigned conversations.
type Agent struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Email               string `json:"email"`
	ActiveConversations int    `json:"activeConversations"`
	MaxCapacity         int    `json:"maxCapacity"`
}

// AtCapacity reports whether the agent has reached its ceiling. It is only surfaced to
// admins, assignment is never refused because of it.
func (a *Agent) AtCapacity() bool {
	return a.MaxCapacity > 0 && a.ActiveConversations >= a.MaxCapacity
}
