package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"arcane-chat-be/internal/constant"
	"arcane-chat-be/internal/dto"
	"arcane-chat-be/internal/entity"
	"arcane-chat-be/internal/pkg/logger"
	"arcane-chat-be/internal/repository/contract"
	"arcane-chat-be/internal/repository/memory"
	"arcane-chat-be/pkg/conversation/banner"
	"arcane-chat-be/pkg/conversation/registry"
	"arcane-chat-be/pkg/conversation/titler"
	"arcane-chat-be/pkg/events"
	"arcane-chat-be/pkg/llm"

	"github.com/google/uuid"
)

const sessionModule = "SESSION"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrEmptyMessage    = errors.New("message must not be empty")
	ErrNoActiveThread  = errors.New("no active thread")
	ErrRequestInFlight = errors.New("a message is already being sent")
)

// BannerError is a failure the client sees only as banner text. Err keeps
// the cause for logging.
type BannerError struct {
	Message   string
	Throttled bool
	Err       error
}

func (e *BannerError) Error() string {
	return e.Message
}

func (e *BannerError) Unwrap() error {
	return e.Err
}

// EventPublisher is satisfied by the NATS publisher.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type ISessionService interface {
	Open(ctx context.Context, key string, identity entity.Identity) (*dto.SessionStateResponse, error)
	State(ctx context.Context, key string) (*dto.SessionStateResponse, error)
	Close(ctx context.Context, key string) error
	UpdatePreferences(ctx context.Context, key string, request *dto.UpdatePreferencesRequest) (*dto.SessionStateResponse, error)

	NewChat(ctx context.Context, key string) (*dto.ThreadResponse, error)
	ListThreads(ctx context.Context, key string) ([]*dto.ThreadResponse, error)
	SelectThread(ctx context.Context, key string, threadId uuid.UUID) (*dto.ThreadResponse, error)
	RenameThread(ctx context.Context, key string, threadId uuid.UUID, name string) (*dto.ThreadResponse, error)
	DeleteThread(ctx context.Context, key string, threadId uuid.UUID) error

	Messages(ctx context.Context, key string, threadId uuid.UUID) ([]*dto.MessageResponse, error)
	SendMessage(ctx context.Context, key string, content string) (*dto.SendMessageResponse, error)
	ClearThread(ctx context.Context, key string) error

	Subscribe(ctx context.Context, key string) (<-chan entity.Change, error)
}

type SessionServiceConfig struct {
	BannerDuration time.Duration
	Clock          func() time.Time
}

type sessionService struct {
	sessions   *memory.SessionRepository
	stores     map[entity.ScopeKind]contract.ConversationStore
	registries map[entity.ScopeKind]*registry.Registry
	guests     *memory.GuestStore
	provider   llm.LLMProvider
	titler     *titler.Titler
	publisher  EventPublisher
	log        logger.ILogger
	cfg        SessionServiceConfig

	locks *keyedLock
}

// NewSessionService wires the conversation session manager. userStore may be
// nil, in which case only guests can hold sessions.
func NewSessionService(
	sessions *memory.SessionRepository,
	userStore contract.ConversationStore,
	guestStore *memory.GuestStore,
	provider llm.LLMProvider,
	publisher EventPublisher,
	log logger.ILogger,
	cfg SessionServiceConfig,
) ISessionService {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.BannerDuration <= 0 {
		cfg.BannerDuration = banner.DefaultDuration
	}

	s := &sessionService{
		sessions:   sessions,
		stores:     map[entity.ScopeKind]contract.ConversationStore{},
		registries: map[entity.ScopeKind]*registry.Registry{},
		guests:     guestStore,
		provider:   provider,
		titler:     titler.New(provider),
		publisher:  publisher,
		log:        log,
		cfg:        cfg,
		locks:      newKeyedLock(),
	}

	s.stores[entity.ScopeGuest] = guestStore
	if userStore != nil {
		s.stores[entity.ScopeUser] = userStore
	}
	for kind, store := range s.stores {
		s.registries[kind] = registry.New(store, registry.WithClock(cfg.Clock))
	}
	return s
}

func (s *sessionService) lock(key string) func() {
	return s.locks.Lock(key)
}

func (s *sessionService) session(key string) (*entity.Session, error) {
	sess, ok := s.sessions.Get(key)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *sessionService) store(scope entity.Scope) (contract.ConversationStore, *registry.Registry, error) {
	store, ok := s.stores[scope.Kind]
	if !ok {
		return nil, nil, contract.ErrUnsupportedScope
	}
	return store, s.registries[scope.Kind], nil
}

// Open loads the session for key, creating it on first use. When the
// identity behind key changes the session starts over with no active thread.
// Threads stay with the scope that owns them.
func (s *sessionService) Open(ctx context.Context, key string, identity entity.Identity) (*dto.SessionStateResponse, error) {
	if identity.Scope.IsZero() {
		return nil, contract.ErrUnsupportedScope
	}
	if _, ok := s.stores[identity.Scope.Kind]; !ok {
		return nil, contract.ErrUnsupportedScope
	}

	unlock := s.lock(key)
	defer unlock()

	sess, ok := s.sessions.Get(key)
	if ok && sess.Identity.Scope != identity.Scope {
		s.log.Info(sessionModule, "Identity changed, resetting session", map[string]interface{}{
			"session": key,
			"from":    sess.Identity.Scope.Key(),
			"to":      identity.Scope.Key(),
		})
		ok = false
	}

	if !ok {
		sess = entity.NewSession(key, identity, banner.New(
			banner.WithDuration(s.cfg.BannerDuration),
			banner.WithClock(s.cfg.Clock),
		))
	} else {
		sess.Identity = identity
	}
	s.sessions.Save(sess)

	return toSessionState(sess), nil
}

func (s *sessionService) forgetGuest(scope entity.Scope) {
	if scope.IsGuest() && s.guests != nil {
		s.guests.Forget(scope)
	}
}

func (s *sessionService) State(ctx context.Context, key string) (*dto.SessionStateResponse, error) {
	unlock := s.lock(key)
	defer unlock()

	sess, err := s.session(key)
	if err != nil {
		return nil, err
	}
	return toSessionState(sess), nil
}

// Close ends the session. A guest's threads go with it.
func (s *sessionService) Close(ctx context.Context, key string) error {
	unlock := s.lock(key)
	defer unlock()

	sess, err := s.session(key)
	if err != nil {
		return err
	}
	s.forgetGuest(sess.Identity.Scope)
	s.sessions.Delete(key)
	return nil
}

func (s *sessionService) UpdatePreferences(ctx context.Context, key string, request *dto.UpdatePreferencesRequest) (*dto.SessionStateResponse, error) {
	unlock := s.lock(key)
	defer unlock()

	sess, err := s.session(key)
	if err != nil {
		return nil, err
	}
	if request.SidebarOpen != nil {
		sess.SidebarOpen = *request.SidebarOpen
	}
	if request.DarkMode != nil {
		sess.DarkMode = *request.DarkMode
	}
	s.sessions.Save(sess)
	return toSessionState(sess), nil
}

func (s *sessionService) NewChat(ctx context.Context, key string) (*dto.ThreadResponse, error) {
	unlock := s.lock(key)
	defer unlock()

	sess, err := s.session(key)
	if err != nil {
		return nil, err
	}
	scope := sess.Identity.Scope
	_, reg, err := s.store(scope)
	if err != nil {
		return nil, err
	}

	thread, err := reg.Create(ctx, scope)
	if err != nil {
		return nil, s.fail(sess, "create thread", err)
	}
	sess.SetActive(thread.Id)
	s.sessions.Save(sess)

	s.publish(ctx, constant.EventThreadCreated, scope, thread.Id, nil)
	return toThreadResponse(thread, sess), nil
}

// ListThreads returns the scope's threads in display order. A session
// without an active thread adopts the first one.
func (s *sessionService) ListThreads(ctx context.Context, key string) ([]*dto.ThreadResponse, error) {
	unlock := s.lock(key)
	defer unlock()

	sess, err := s.session(key)
	if err != nil {
		return nil, err
	}
	scope := sess.Identity.Scope
	_, reg, err := s.store(scope)
	if err != nil {
		return nil, err
	}

	threads, err := reg.List(ctx, scope)
	if err != nil {
		return nil, s.fail(sess, "list threads", err)
	}

	if sess.ActiveThreadId != nil && !containsThread(threads, *sess.ActiveThreadId) {
		sess.ClearActive()
	}
	if sess.ActiveThreadId == nil && len(threads) > 0 {
		sess.SetActive(threads[0].Id)
	}
	s.sessions.Save(sess)

	res := make([]*dto.ThreadResponse, len(threads))
	for i, t := range threads {
		res[i] = toThreadResponse(t, sess)
	}
	return res, nil
}

func (s *sessionService) SelectThread(ctx context.Context, key string, threadId uuid.UUID) (*dto.ThreadResponse, error) {
	unlock := s.lock(key)
	defer unlock()

	sess, err := s.session(key)
	if err != nil {
		return nil, err
	}
	scope := sess.Identity.Scope
	_, reg, err := s.store(scope)
	if err != nil {
		return nil, err
	}

	thread, err := reg.Get(ctx, scope, threadId)
	if err != nil {
		return nil, s.fail(sess, "select thread", err)
	}
	sess.SetActive(thread.Id)
	s.sessions.Save(sess)
	return toThreadResponse(thread, sess), nil
}

func (s *sessionService) RenameThread(ctx context.Context, key string, threadId uuid.UUID, name string) (*dto.ThreadResponse, error) {
	unlock := s.lock(key)
	defer unlock()

	sess, err := s.session(key)
	if err != nil {
		return nil, err
	}
	scope := sess.Identity.Scope
	_, reg, err := s.store(scope)
	if err != nil {
		return nil, err
	}

	thread, err := reg.Rename(ctx, scope, threadId, name)
	if err != nil {
		return nil, s.fail(sess, "rename thread", err)
	}

	s.publish(ctx, constant.EventThreadRenamed, scope, thread.Id, map[string]interface{}{"name": thread.Name})
	return toThreadResponse(thread, sess), nil
}

// DeleteThread removes the thread with its messages and clears the active
// pointer if it pointed there.
func (s *sessionService) DeleteThread(ctx context.Context, key string, threadId uuid.UUID) error {
	unlock := s.lock(key)
	defer unlock()

	sess, err := s.session(key)
	if err != nil {
		return err
	}
	scope := sess.Identity.Scope
	_, reg, err := s.store(scope)
	if err != nil {
		return err
	}

	if err := reg.Delete(ctx, scope, threadId); err != nil {
		return s.fail(sess, "delete thread", err)
	}
	if sess.IsActive(threadId) {
		sess.ClearActive()
	}
	s.sessions.Save(sess)

	s.publish(ctx, constant.EventThreadDeleted, scope, threadId, nil)
	return nil
}

// Messages lists a thread's messages oldest first; uuid.Nil means the active thread.
func (s *sessionService) Messages(ctx context.Context, key string, threadId uuid.UUID) ([]*dto.MessageResponse, error) {
	unlock := s.lock(key)
	defer unlock()

	sess, err := s.session(key)
	if err != nil {
		return nil, err
	}
	if threadId == uuid.Nil {
		if sess.ActiveThreadId == nil {
			return nil, ErrNoActiveThread
		}
		threadId = *sess.ActiveThreadId
	}
	scope := sess.Identity.Scope
	store, _, err := s.store(scope)
	if err != nil {
		return nil, err
	}

	messages, err := store.ListMessages(ctx, scope, threadId)
	if err != nil {
		return nil, s.fail(sess, "list messages", err)
	}
	return toMessageResponses(messages), nil
}

// ClearThread deletes the active thread's messages and keeps the thread.
func (s *sessionService) ClearThread(ctx context.Context, key string) error {
	unlock := s.lock(key)
	defer unlock()

	sess, err := s.session(key)
	if err != nil {
		return err
	}
	if sess.ActiveThreadId == nil {
		return ErrNoActiveThread
	}
	scope := sess.Identity.Scope
	store, _, err := s.store(scope)
	if err != nil {
		return err
	}

	if err := store.ClearMessages(ctx, scope, *sess.ActiveThreadId); err != nil {
		return s.fail(sess, "clear thread", err)
	}
	return nil
}

// SendMessage appends the user's message to the active thread, asks the
// completion endpoint for a reply and appends that too. The user message is
// stored before the call and kept when the call fails.
func (s *sessionService) SendMessage(ctx context.Context, key string, content string) (*dto.SendMessageResponse, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyMessage
	}

	unlock := s.lock(key)
	sess, err := s.session(key)
	if err != nil {
		unlock()
		return nil, err
	}
	if sess.ActiveThreadId == nil {
		unlock()
		return nil, ErrNoActiveThread
	}
	if sess.Loading {
		unlock()
		return nil, ErrRequestInFlight
	}
	sess.Loading = true
	s.sessions.Save(sess)
	threadId := *sess.ActiveThreadId
	scope := sess.Identity.Scope
	unlock()

	defer func() {
		unlock := s.lock(key)
		sess.Loading = false
		unlock()
	}()

	store, reg, err := s.store(scope)
	if err != nil {
		return nil, err
	}

	thread, err := reg.Touch(ctx, scope, threadId)
	if err != nil {
		return nil, s.failLocked(key, sess, "touch thread", err)
	}

	userMessage := entity.NewChatMessage(threadId, entity.MessageRoleUser, content, reg.Now())
	if err := store.AppendMessage(ctx, scope, userMessage); err != nil {
		return nil, s.failLocked(key, sess, "append user message", err)
	}
	s.publish(ctx, constant.EventMessageAppended, scope, threadId, map[string]interface{}{"role": string(userMessage.Role)})

	history, err := store.ListMessages(ctx, scope, threadId)
	if err != nil {
		return nil, s.failLocked(key, sess, "load history", err)
	}

	reply, err := s.provider.Chat(ctx, llm.Recent(toPlain(history), constant.ContextWindow))
	if err != nil {
		return nil, s.failLocked(key, sess, "completion", err)
	}
	if reply == "" {
		reply = constant.ReplyFallback
	}

	assistantMessage := entity.NewChatMessage(threadId, entity.MessageRoleAssistant, reply, replyTime(userMessage.CreatedAt, reg.Now()))
	if err := store.AppendMessage(ctx, scope, assistantMessage); err != nil {
		return nil, s.failLocked(key, sess, "append reply", err)
	}
	s.publish(ctx, constant.EventMessageAppended, scope, threadId, map[string]interface{}{"role": string(assistantMessage.Role)})

	history = append(history, assistantMessage)
	thread = s.autoTitle(ctx, scope, reg, thread, history)

	unlock = s.lock(key)
	threadResponse := toThreadResponse(thread, sess)
	unlock()

	return &dto.SendMessageResponse{
		UserMessage: toMessageResponse(userMessage),
		Reply:       toMessageResponse(assistantMessage),
		Thread:      *threadResponse,
	}, nil
}

// autoTitle names the thread from its opening once enough has been said.
// Failures are logged and never reach the user.
func (s *sessionService) autoTitle(ctx context.Context, scope entity.Scope, reg *registry.Registry, thread *entity.ChatThread, history []*entity.ChatMessage) *entity.ChatThread {
	if !titler.ShouldTitle(thread, history) {
		return thread
	}

	title, err := s.titler.Title(ctx, history)
	if err != nil {
		s.log.Warn(sessionModule, "Title generation failed, using fallback", map[string]interface{}{
			"thread_id": thread.Id,
			"error":     err.Error(),
		})
	}

	renamed, err := reg.AutoRename(ctx, scope, thread.Id, title)
	if err != nil {
		s.log.Error(sessionModule, "Auto-rename failed", map[string]interface{}{
			"thread_id": thread.Id,
			"error":     err.Error(),
		})
		return thread
	}

	s.publish(ctx, constant.EventThreadAutoRenamed, scope, renamed.Id, map[string]interface{}{"name": renamed.Name})
	return renamed
}

func (s *sessionService) Subscribe(ctx context.Context, key string) (<-chan entity.Change, error) {
	unlock := s.lock(key)
	sess, err := s.session(key)
	unlock()
	if err != nil {
		return nil, err
	}

	scope := sess.Identity.Scope
	store, _, err := s.store(scope)
	if err != nil {
		return nil, err
	}
	return store.Subscribe(ctx, scope)
}

// fail turns a store or completion failure into banner text. Caller errors
// pass through untouched. The session lock must be held.
func (s *sessionService) fail(sess *entity.Session, op string, err error) error {
	if errors.Is(err, contract.ErrThreadNotFound) ||
		errors.Is(err, registry.ErrEmptyName) ||
		errors.Is(err, contract.ErrUnsupportedScope) {
		return err
	}

	throttled := llm.IsRateLimited(err)
	message := banner.GenericMessage
	if throttled {
		message = banner.ThrottledMessage
	}
	sess.Banner.Show(message)

	s.log.Error(sessionModule, fmt.Sprintf("%s failed", op), map[string]interface{}{
		"session":   sess.Key,
		"scope":     sess.Identity.Scope.Key(),
		"throttled": throttled,
		"error":     err.Error(),
	})
	return &BannerError{Message: message, Throttled: throttled, Err: err}
}

func (s *sessionService) failLocked(key string, sess *entity.Session, op string, err error) error {
	unlock := s.lock(key)
	defer unlock()
	return s.fail(sess, op, err)
}

func (s *sessionService) publish(ctx context.Context, eventType string, scope entity.Scope, threadId uuid.UUID, extra map[string]interface{}) {
	if s.publisher == nil {
		return
	}

	data := map[string]interface{}{
		"scope":     string(scope.Kind),
		"owner_id":  scope.Id.String(),
		"thread_id": threadId.String(),
	}
	for k, v := range extra {
		data[k] = v
	}

	if err := s.publisher.Publish(ctx, events.New(eventType, data, time.Now())); err != nil {
		s.log.Warn(sessionModule, fmt.Sprintf("Failed to publish %s event", eventType), map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// replyTime keeps a reply strictly after the message it answers, even once
// the store truncates timestamps to microseconds.
func replyTime(asked, now time.Time) time.Time {
	if now.Sub(asked) < time.Microsecond {
		return asked.Add(time.Microsecond)
	}
	return now
}

func containsThread(threads []*entity.ChatThread, id uuid.UUID) bool {
	for _, t := range threads {
		if t.Id == id {
			return true
		}
	}
	return false
}

func toPlain(messages []*entity.ChatMessage) []llm.Message {
	out := make([]llm.Message, len(messages))
	for i, m := range messages {
		out[i] = llm.Message{Role: string(m.Role), Content: m.Content}
	}
	return out
}

func toSessionState(sess *entity.Session) *dto.SessionStateResponse {
	var active *uuid.UUID
	if sess.ActiveThreadId != nil {
		id := *sess.ActiveThreadId
		active = &id
	}
	return &dto.SessionStateResponse{
		Identity:       toIdentityDTO(sess.Identity),
		ActiveThreadId: active,
		Loading:        sess.Loading,
		Banner:         sess.Banner.Text(),
		SidebarOpen:    sess.SidebarOpen,
		DarkMode:       sess.DarkMode,
	}
}

func toIdentityDTO(identity entity.Identity) dto.IdentityDTO {
	return dto.IdentityDTO{
		Kind:          string(identity.Scope.Kind),
		Id:            identity.Scope.Id,
		DisplayName:   identity.DisplayName,
		AvatarURL:     identity.Avatar(),
		Authenticated: identity.Authenticated(),
	}
}

func toThreadResponse(thread *entity.ChatThread, sess *entity.Session) *dto.ThreadResponse {
	return &dto.ThreadResponse{
		Id:           thread.Id,
		Name:         thread.Name,
		CreatedAt:    thread.CreatedAt,
		LastActivity: thread.LastActivity,
		AutoRenamed:  thread.AutoRenamed,
		Active:       sess.IsActive(thread.Id),
	}
}

func toMessageResponse(m *entity.ChatMessage) dto.MessageResponse {
	return dto.MessageResponse{
		Id:        m.Id,
		ThreadId:  m.ThreadId,
		Role:      string(m.Role),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

func toMessageResponses(messages []*entity.ChatMessage) []*dto.MessageResponse {
	res := make([]*dto.MessageResponse, len(messages))
	for i, m := range messages {
		r := toMessageResponse(m)
		res[i] = &r
	}
	return res
}
