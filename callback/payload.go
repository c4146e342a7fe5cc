package callback

// Status is the document state reported by the Document Server.
type Status int

const (
	StatusEditing            Status = 1
	StatusMustSave           Status = 2
	StatusCorrupted          Status = 3
	StatusClosed             Status = 4
	StatusMustForceSave      Status = 6
	StatusCorruptedForceSave Status = 7
)

// Action is a user connecting to or leaving the document.
type Action struct {
	Type   int    `json:"type"`
	UserID string `json:"userid"`
}

// Payload is the body the Document Server posts to the callback URL.
type Payload struct {
	Key     string   `json:"key,omitempty"`
	Status  Status   `json:"status"`
	URL     string   `json:"url,omitempty"`
	Actions []Action `json:"actions,omitempty"`
	Users   []string `json:"users,omitempty"`
	Token   string   `json:"token,omitempty"`
}

// Response is what the Document Server expects back. Error 0 means the
// notification was handled.
type Response struct {
	Error   int    `json:"error"`
	Message string `json:"message,omitempty"`
}

const forceSaveUnsupported = "Force save is not supported"

func ack() Response { return Response{Error: 0} }
