package bridge

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/onlyoffice-confluence/editor"
	"github.com/jrsteele09/onlyoffice-confluence/internal/clock"
	"github.com/jrsteele09/onlyoffice-confluence/internal/errors"
)

// Poster delivers messages to the editor frame.
type Poster interface {
	Post(targetOrigin string, msg Outbound) error
}

// View is the host page around the editor frame.
type View interface {
	SetTitle(title string)
	SetLoading(loading bool)
	Open(url string)
}

// ReferenceResolver answers "insert reference" lookups.
type ReferenceResolver interface {
	ResolveReference(ctx context.Context, req editor.ReferenceRequest) (*editor.ReferenceResponse, error)
}

// Texts are the user-facing strings the bridge sends or shows.
type Texts struct {
	DemoServer         string
	SessionStopped     string
	AttachmentNotFound string
	CommonErrorTitle   string
	CommonErrorDesc    string
	DocsAPIErrorTitle  string
	DocsAPIErrorDesc   string
}

func DefaultTexts() Texts {
	return Texts{
		DemoServer:         "You are using public demo ONLYOFFICE Document Server. Please do not store private sensitive data.",
		SessionStopped:     "Editing is stopped because the session has expired.",
		AttachmentNotFound: "Attachment not found",
		CommonErrorTitle:   "Something went wrong",
		CommonErrorDesc:    "Please try again later.",
		DocsAPIErrorTitle:  "ONLYOFFICE cannot be reached",
		DocsAPIErrorDesc:   "Please check the Document Server address in the settings.",
	}
}

// Options configure a Bridge.
type Options struct {
	SiteURL  string // https://<site>.atlassian.net
	Location string // current editor page URL, reused by REQUEST_OPEN
	Mode     string
	Margin   time.Duration
	Texts    Texts
}

// Bridge is the host side of one editor frame.
type Bridge struct {
	poster    Poster
	view      View
	auth      Authorizer
	refs      ReferenceResolver
	opts      Options
	reauth    *Reauthorizer
	countdown *Countdown

	AppError *Store[*AppError]
	Notice   *Store[*SessionNotice]

	mu           sync.Mutex
	remoteAppURL string
	closed       bool
}

func New(ctx context.Context, c clock.Clock, poster Poster, view View, auth Authorizer, refs ReferenceResolver, opts Options) *Bridge {
	if opts.Margin <= 0 {
		opts.Margin = DefaultReauthMargin
	}
	if opts.Texts == (Texts{}) {
		opts.Texts = DefaultTexts()
	}
	b := &Bridge{
		poster:    poster,
		view:      view,
		auth:      auth,
		refs:      refs,
		opts:      opts,
		countdown: NewCountdown(c),
		AppError:  NewStore[*AppError](nil),
		Notice:    NewStore[*SessionNotice](nil),
	}
	b.reauth = NewReauthorizer(ctx, c, opts.Margin, auth, b.refreshed)
	return b
}

// Open authorizes the session, remembers the remote app origin and arms
// the renewal timer. The returned authorization carries the editor token.
func (b *Bridge) Open(ctx context.Context) (*editor.Authorization, error) {
	auth, err := b.auth.Authorize(ctx)
	if err != nil {
		b.AppError.Set(&AppError{Title: b.opts.Texts.CommonErrorTitle, Description: b.opts.Texts.CommonErrorDesc})
		return nil, err
	}
	b.mu.Lock()
	b.remoteAppURL = strings.TrimRight(auth.RemoteAppURL, "/")
	b.mu.Unlock()
	b.reauth.Schedule(auth.SessionExpires)
	return auth, nil
}

// Close stops both timers. Messages are ignored afterwards.
func (b *Bridge) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.reauth.Stop()
	b.countdown.Stop()
}

// RemoteAppURL is the origin messages must come from.
func (b *Bridge) RemoteAppURL() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remoteAppURL
}

// HandleRaw decodes and handles a message received from origin.
func (b *Bridge) HandleRaw(ctx context.Context, origin string, raw []byte) error {
	if err := b.checkOrigin(origin); err != nil {
		return err
	}
	msg, err := Decode(raw)
	if err != nil {
		return err
	}
	return b.Handle(ctx, origin, msg)
}

// Handle dispatches one inbound message received from origin.
func (b *Bridge) Handle(ctx context.Context, origin string, msg Inbound) error {
	if err := b.checkOrigin(origin); err != nil {
		return err
	}

	switch m := msg.(type) {
	case PageIsLoaded:
		b.view.SetTitle(m.Config.Document.Title + " - ONLYOFFICE")
		b.view.SetLoading(false)
	case DocumentReady:
		if m.Demo {
			return b.post(ShowMessage{Message: b.opts.Texts.DemoServer})
		}
	case RequestOpen:
		return b.openReference(m.ReferenceData.FileKey)
	case RequestClose:
		b.view.Open(m.URL)
	case RequestUsers:
		return b.post(b.users(m))
	case RequestReferenceData:
		return b.post(b.reference(ctx, m.ReferenceRequest))
	case SessionExpired:
		return b.extendSession(ctx)
	case ConfigUpdated:
		b.startCountdown(true)
	case ErrorUpdateConfig:
		b.startCountdown(false)
	case DocsAPIUndefined:
		b.AppError.Set(&AppError{Title: b.opts.Texts.DocsAPIErrorTitle, Description: b.opts.Texts.DocsAPIErrorDesc})
	default:
		return errors.Wrapf(errors.ErrUnsupported, "message %s", msg.Type())
	}
	return nil
}

func (b *Bridge) checkOrigin(origin string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errors.Wrapf(errors.ErrBadOrigin, "bridge closed")
	}
	if b.remoteAppURL == "" || strings.TrimRight(origin, "/") != b.remoteAppURL {
		return errors.Wrapf(errors.ErrBadOrigin, "%q", origin)
	}
	return nil
}

// post delivers msg to the editor frame. Once the bridge is closed the
// frame is gone and messages are dropped.
func (b *Bridge) post(msg Outbound) error {
	b.mu.Lock()
	closed, target := b.closed, b.remoteAppURL
	b.mu.Unlock()
	if closed {
		log.Debug().Str("type", string(msg.Type())).Msg("bridge closed, message dropped")
		return nil
	}
	return b.poster.Post(target, msg)
}

func (b *Bridge) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Bridge) refreshed(auth *editor.Authorization) {
	if err := b.post(RefreshSession{SessionExpires: auth.SessionExpires, Token: auth.Token}); err != nil {
		log.Err(err).Msg("could not deliver session refresh")
	}
}

func (b *Bridge) users(m RequestUsers) SetUsers {
	users := make([]UserImage, 0, len(m.IDs))
	for _, id := range m.IDs {
		users = append(users, UserImage{ID: id, Image: strings.TrimRight(b.opts.SiteURL, "/") + "/wiki/aa-avatar/" + id})
	}
	return SetUsers{C: m.C, Users: users}
}

func (b *Bridge) reference(ctx context.Context, req editor.ReferenceRequest) SetReferenceData {
	resp, err := b.refs.ResolveReference(ctx, req)
	if err != nil {
		log.Warn().Err(err).Msg("reference lookup failed")
		return SetReferenceData{Error: b.opts.Texts.AttachmentNotFound}
	}
	return SetReferenceData{Reference: resp}
}

func (b *Bridge) openReference(attachmentID string) error {
	u, err := url.Parse(b.opts.Location)
	if err != nil || attachmentID == "" {
		return errors.Wrapf(errors.ErrInvalidRequest, "cannot open %q", attachmentID)
	}
	q := u.Query()
	q.Set("attachmentId", attachmentID)
	u.RawQuery = q.Encode()
	b.view.Open(u.String())
	return nil
}

// extendSession answers SESSION_EXPIRED with a new token, or starts the
// countdown that stops editing when none can be had.
func (b *Bridge) extendSession(ctx context.Context) error {
	auth, err := b.auth.Authorize(ctx)
	if b.isClosed() {
		return nil
	}
	if err != nil {
		log.Err(err).Msg("could not extend expired session")
		b.startCountdown(false)
		return nil
	}
	return b.post(UpdateConfig{Mode: b.opts.Mode, Token: auth.Token})
}

// startCountdown shows the session banner. After a renewal the editor is
// reloaded at the end, otherwise editing is stopped.
func (b *Bridge) startCountdown(extended bool) {
	if b.isClosed() {
		return
	}
	b.countdown.Start(
		func(remaining int) {
			b.Notice.Set(&SessionNotice{Extended: extended, Remaining: remaining})
		},
		func() {
			b.Notice.Set(nil)
			var final Outbound = StopEditing{Message: b.opts.Texts.SessionStopped}
			if extended {
				final = ReloadEditor{}
			}
			if err := b.post(final); err != nil {
				log.Err(err).Msg("could not deliver countdown result")
			}
		},
	)
}
