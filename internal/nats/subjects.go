package nats

import "strings"

const (
	// SubjectPrefix is the prefix for all realtime subjects.
	SubjectPrefix = "realtime"

	// ConversationInsert carries rows inserted into the conversations table.
	ConversationInsert = SubjectPrefix + ".conversations.insert"
	// ConversationUpdate carries rows updated in the conversations table.
	ConversationUpdate = SubjectPrefix + ".conversations.update"
	// ConversationChanges matches every conversations change subject.
	ConversationChanges = SubjectPrefix + ".conversations.*"

	// AdminAlert is the broadcast channel for admin notifications.
	AdminAlert = SubjectPrefix + ".broadcast.admin_alert"
)

// ChangeKind returns the last token of a change subject ("insert" or "update").
func ChangeKind(subject string) string {
	if i := strings.LastIndexByte(subject, '.'); i >= 0 {
		return subject[i+1:]
	}
	return subject
}
