// Package bridge mediates the messages exchanged between the host page and
// the sandboxed editor frame, and keeps the editor session alive.
//
// It is the host-side model of the frame protocol: the state and timers
// the custom UI host keeps around the editor iframe. The relay binary
// does not import it. The relay serves the frame side of the same protocol
// in server/templates/editor.html, and the message types here fix the wire
// shapes both sides agree on.
package bridge

import (
	"encoding/json"

	"github.com/jrsteele09/onlyoffice-confluence/editor"
	"github.com/jrsteele09/onlyoffice-confluence/internal/errors"
)

type MessageType string

// Sent by the editor frame.
const (
	TypePageIsLoaded         MessageType = "PAGE_IS_LOADED"
	TypeDocumentReady        MessageType = "DOCUMENT_READY"
	TypeRequestOpen          MessageType = "REQUEST_OPEN"
	TypeRequestClose         MessageType = "REQUEST_CLOSE"
	TypeRequestUsers         MessageType = "REQUEST_USERS"
	TypeRequestReferenceData MessageType = "REQUEST_REFERENCE_DATA"
	TypeSessionExpired       MessageType = "SESSION_EXPIRED"
	TypeConfigUpdated        MessageType = "CONFIG_UPDATED"
	TypeErrorUpdateConfig    MessageType = "ERROR_UPDATE_CONFIG"
	TypeDocsAPIUndefined     MessageType = "DOCS_API_UNDEFINED"
)

// Sent to the editor frame.
const (
	TypeSetUsers         MessageType = "SET_USERS"
	TypeSetReferenceData MessageType = "SET_REFERENCE_DATA"
	TypeRefreshSession   MessageType = "REFRESH_SESSION"
	TypeShowMessage      MessageType = "SHOW_MESSAGE"
	TypeUpdateConfig     MessageType = "UPDATE_CONFIG"
	TypeStopEditing      MessageType = "STOP_EDITING"
	TypeReloadEditor     MessageType = "RELOAD_EDITOR"
)

// Message is one of the variants declared in this package.
type Message interface {
	Type() MessageType
	sealed()
}

// Inbound is a message from the editor frame.
type Inbound interface {
	Message
	inbound()
}

// Outbound is a message to the editor frame.
type Outbound interface {
	Message
	data() any
}

type inboundMessage struct{}

func (inboundMessage) sealed()  {}
func (inboundMessage) inbound() {}

type outboundMessage struct{}

func (outboundMessage) sealed() {}

type PageIsLoaded struct {
	inboundMessage
	Config editor.Config `json:"config"`
}

type DocumentReady struct {
	inboundMessage
	Demo bool `json:"demo"`
}

type RequestOpen struct {
	inboundMessage
	ReferenceData editor.ReferenceData `json:"referenceData"`
}

type RequestClose struct {
	inboundMessage
	URL string `json:"url"`
}

type RequestUsers struct {
	inboundMessage
	C   string   `json:"c"`
	IDs []string `json:"ids"`
}

type RequestReferenceData struct {
	inboundMessage
	editor.ReferenceRequest
}

type SessionExpired struct{ inboundMessage }

type ConfigUpdated struct{ inboundMessage }

type ErrorUpdateConfig struct{ inboundMessage }

type DocsAPIUndefined struct{ inboundMessage }

func (PageIsLoaded) Type() MessageType         { return TypePageIsLoaded }
func (DocumentReady) Type() MessageType        { return TypeDocumentReady }
func (RequestOpen) Type() MessageType          { return TypeRequestOpen }
func (RequestClose) Type() MessageType         { return TypeRequestClose }
func (RequestUsers) Type() MessageType         { return TypeRequestUsers }
func (RequestReferenceData) Type() MessageType { return TypeRequestReferenceData }
func (SessionExpired) Type() MessageType       { return TypeSessionExpired }
func (ConfigUpdated) Type() MessageType        { return TypeConfigUpdated }
func (ErrorUpdateConfig) Type() MessageType    { return TypeErrorUpdateConfig }
func (DocsAPIUndefined) Type() MessageType     { return TypeDocsAPIUndefined }

// UserImage is an avatar entry of SET_USERS.
type UserImage struct {
	ID    string `json:"id"`
	Image string `json:"image"`
}

type SetUsers struct {
	outboundMessage
	C     string      `json:"c"`
	Users []UserImage `json:"users"`
}

// SetReferenceData carries either a resolved reference or an error text.
type SetReferenceData struct {
	outboundMessage
	Reference *editor.ReferenceResponse
	Error     string
}

// RefreshSession carries the renewed session token so a later reload
// does not start from an expired one.
type RefreshSession struct {
	outboundMessage
	SessionExpires int64  `json:"sessionExpires"`
	Token          string `json:"token,omitempty"`
}

type ShowMessage struct {
	outboundMessage
	Message string `json:"message"`
}

type UpdateConfig struct {
	outboundMessage
	Mode  string `json:"mode"`
	Token string `json:"token"`
}

type StopEditing struct {
	outboundMessage
	Message string `json:"message"`
}

type ReloadEditor struct{ outboundMessage }

func (SetUsers) Type() MessageType         { return TypeSetUsers }
func (SetReferenceData) Type() MessageType { return TypeSetReferenceData }
func (RefreshSession) Type() MessageType   { return TypeRefreshSession }
func (ShowMessage) Type() MessageType      { return TypeShowMessage }
func (UpdateConfig) Type() MessageType     { return TypeUpdateConfig }
func (StopEditing) Type() MessageType      { return TypeStopEditing }
func (ReloadEditor) Type() MessageType     { return TypeReloadEditor }

func (m SetUsers) data() any { return m }

func (m SetReferenceData) data() any {
	if m.Error != "" || m.Reference == nil {
		return map[string]string{"error": m.Error}
	}
	return m.Reference
}

func (m RefreshSession) data() any { return m }
func (m ShowMessage) data() any    { return m }
func (m UpdateConfig) data() any   { return m }
func (m StopEditing) data() any    { return m }
func (ReloadEditor) data() any     { return nil }

// envelope is the postMessage wire shape.
type envelope struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Encode renders an outbound message as {type, data}.
func Encode(msg Outbound) ([]byte, error) {
	data, err := json.Marshal(msg.data())
	if err != nil {
		return nil, errors.Wrapf(err, "encoding %s", msg.Type())
	}
	return json.Marshal(envelope{Type: msg.Type(), Data: data})
}

// Decode parses an inbound {type, data} message. Unknown types and
// outbound types are rejected.
func Decode(raw []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "malformed message")
	}

	var msg Inbound
	var err error
	switch env.Type {
	case TypePageIsLoaded:
		var m PageIsLoaded
		err = unmarshalData(env, &m)
		msg = m
	case TypeDocumentReady:
		var m DocumentReady
		err = unmarshalData(env, &m)
		msg = m
	case TypeRequestOpen:
		var m RequestOpen
		err = unmarshalData(env, &m)
		msg = m
	case TypeRequestClose:
		var m RequestClose
		err = unmarshalData(env, &m)
		msg = m
	case TypeRequestUsers:
		var m RequestUsers
		err = unmarshalData(env, &m)
		msg = m
	case TypeRequestReferenceData:
		var m RequestReferenceData
		err = unmarshalData(env, &m)
		msg = m
	case TypeSessionExpired:
		msg = SessionExpired{}
	case TypeConfigUpdated:
		msg = ConfigUpdated{}
	case TypeErrorUpdateConfig:
		msg = ErrorUpdateConfig{}
	case TypeDocsAPIUndefined:
		msg = DocsAPIUndefined{}
	default:
		return nil, errors.Wrapf(errors.ErrUnsupported, "message type %q", env.Type)
	}
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func unmarshalData(env envelope, target any) error {
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, target); err != nil {
		return errors.Wrapf(errors.ErrInvalidRequest, "malformed %s data", env.Type)
	}
	return nil
}
