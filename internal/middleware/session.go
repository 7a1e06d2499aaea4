package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"plant-shop-platform/internal/models"
)

const (
	sessionName     = "plant_shop_session"
	cartTokenKey    = "cart_token"
	userIDKey       = "user_id"
	orderIDKey      = "order_id"
	ownerContextKey = contextKey("cart_owner")
	orderContextKey = contextKey("session_order")
)

type contextKey string

// SessionManager resolves the cart owner for a request from the signed
// session cookie. Anonymous visitors get a cart token minted on their
// first cart mutation, never on reads.
type SessionManager struct {
	store sessions.Store
}

// NewSessionManager creates a session manager backed by a cookie store
func NewSessionManager(secret string, secure bool) *SessionManager {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionManager{store: store}
}

// WithOwner attaches the request's cart owner and remembered order to the
// context when the session has them. It never creates a session.
func (sm *SessionManager) WithOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if owner, ok := sm.ownerFromSession(r); ok {
			ctx = ContextWithOwner(ctx, owner)
		}
		if orderID, ok := sm.orderFromSession(r); ok {
			ctx = ContextWithOrder(ctx, orderID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// EnsureOwner returns the request's cart owner, minting an anonymous cart
// token if the visitor has none yet. Call this only from handlers that
// mutate the cart; read paths should use Owner instead.
func (sm *SessionManager) EnsureOwner(w http.ResponseWriter, r *http.Request) (models.CartOwner, error) {
	if owner, ok := Owner(r.Context()); ok {
		return owner, nil
	}

	session, err := sm.store.Get(r, sessionName)
	if err != nil {
		// A tampered cookie decodes to a fresh session; start over
		session, _ = sm.store.New(r, sessionName)
	}

	token := strings.ReplaceAll(uuid.New().String(), "-", "")
	session.Values[cartTokenKey] = token
	if err := session.Save(r, w); err != nil {
		return models.CartOwner{}, err
	}

	return models.CartOwner{SessionToken: token}, nil
}

// Owner returns the cart owner previously attached by WithOwner
func Owner(ctx context.Context) (models.CartOwner, bool) {
	owner, ok := ctx.Value(ownerContextKey).(models.CartOwner)
	return owner, ok
}

// ContextWithOwner returns a context carrying the cart owner
func ContextWithOwner(ctx context.Context, owner models.CartOwner) context.Context {
	return context.WithValue(ctx, ownerContextKey, owner)
}

// ContextWithOrder returns a context carrying the session's remembered order
func ContextWithOrder(ctx context.Context, orderID int) context.Context {
	return context.WithValue(ctx, orderContextKey, orderID)
}

// SessionOrder returns the order the session placed most recently, as
// attached by WithOwner
func SessionOrder(ctx context.Context) (int, bool) {
	orderID, ok := ctx.Value(orderContextKey).(int)
	return orderID, ok
}

// RememberOrder records the order the session just placed so the payment
// cancel, retry, and resend paths can be tied back to the customer who owns
// it, signed-in or not
func (sm *SessionManager) RememberOrder(w http.ResponseWriter, r *http.Request, orderID int) error {
	session, err := sm.store.Get(r, sessionName)
	if err != nil {
		session, _ = sm.store.New(r, sessionName)
	}
	session.Values[orderIDKey] = orderID
	return session.Save(r, w)
}

// SignInOwner records the authenticated user in the session and drops any
// anonymous cart token
func (sm *SessionManager) SignInOwner(w http.ResponseWriter, r *http.Request, userID int) error {
	session, err := sm.store.Get(r, sessionName)
	if err != nil {
		session, _ = sm.store.New(r, sessionName)
	}
	session.Values[userIDKey] = userID
	delete(session.Values, cartTokenKey)
	return session.Save(r, w)
}

// ClearOwner removes all owner state from the session
func (sm *SessionManager) ClearOwner(w http.ResponseWriter, r *http.Request) error {
	session, err := sm.store.Get(r, sessionName)
	if err != nil {
		return nil
	}
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

func (sm *SessionManager) ownerFromSession(r *http.Request) (models.CartOwner, bool) {
	session, err := sm.store.Get(r, sessionName)
	if err != nil {
		return models.CartOwner{}, false
	}

	if userID, ok := session.Values[userIDKey].(int); ok && userID > 0 {
		return models.CartOwner{UserID: userID}, true
	}
	if token, ok := session.Values[cartTokenKey].(string); ok && token != "" {
		return models.CartOwner{SessionToken: token}, true
	}

	return models.CartOwner{}, false
}

func (sm *SessionManager) orderFromSession(r *http.Request) (int, bool) {
	session, err := sm.store.Get(r, sessionName)
	if err != nil {
		return 0, false
	}

	orderID, ok := session.Values[orderIDKey].(int)
	return orderID, ok && orderID > 0
}
