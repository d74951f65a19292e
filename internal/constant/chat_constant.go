package constant

const (
	// ContextWindow is how many of the latest messages go to the completion endpoint.
	ContextWindow = 8
	ReplyFallback = "No response."

	// HistoryKey names the single-history record of a guest.
	HistoryKey = "chatHistory"

	GuestIdHeader   = "X-Guest-Id"
	SessionIdHeader = "X-Session-Id"
)

// Domain events published to the EVENTS stream.
const (
	EventThreadCreated     = "THREAD_CREATED"
	EventThreadRenamed     = "THREAD_RENAMED"
	EventThreadAutoRenamed = "THREAD_AUTO_RENAMED"
	EventThreadDeleted     = "THREAD_DELETED"
	EventMessageAppended   = "MESSAGE_APPENDED"
	EventUserLogin         = "USER_LOGIN"
	EventUserLogout        = "USER_LOGOUT"
)
