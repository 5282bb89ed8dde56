package api

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/papertrade/brokerage/internal/auth"
	"github.com/papertrade/brokerage/internal/database"
	"github.com/papertrade/brokerage/internal/ledger"
	"github.com/papertrade/brokerage/internal/models"
)

// Trader is the ledger engine surface the handlers use
type Trader interface {
	Buy(ctx context.Context, userID int, symbol string, shares int64) error
	Sell(ctx context.Context, userID int, symbol string, shares int64) error
	Quote(ctx context.Context, symbol string) (*models.Quote, error)
	Portfolio(ctx context.Context, userID int) (*ledger.Portfolio, error)
	History(ctx context.Context, userID int) ([]*models.HistoryEntry, error)
}

// Accounts is the credential service surface the handlers use
type Accounts interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (*models.User, error)
	ChangePassword(ctx context.Context, username, newPassword string) error
}

// Sessions is the session gate surface the handlers use
type Sessions interface {
	Create(ctx context.Context, userID int) (string, error)
	UserID(ctx context.Context, token string) (int, error)
	Destroy(ctx context.Context, token string) error
}

// RegistrationPublisher announces new accounts; may be nil
type RegistrationPublisher interface {
	PublishUserRegistered(ctx context.Context, user *models.User) error
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	trader     Trader
	accounts   Accounts
	sessions   Sessions
	events     RegistrationPublisher
	cookieName string
	tmpl       *template.Template
	log        *logrus.Logger
}

// NewHandler creates a new Handler
func NewHandler(trader Trader, accounts Accounts, sessions Sessions, events RegistrationPublisher, cookieName string, log *logrus.Logger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		trader:     trader,
		accounts:   accounts,
		sessions:   sessions,
		events:     events,
		cookieName: cookieName,
		tmpl:       parseTemplates(),
		log:        log,
	}
}

// Index handles GET / and shows holdings and cash
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	portfolio, err := h.trader.Portfolio(r.Context(), userID(r))
	if err != nil {
		h.tradeError(w, err)
		return
	}

	h.render(w, http.StatusOK, "index.html", map[string]any{
		"Portfolio": portfolio,
		"Flash":     popFlash(w, r),
	})
}

// BuyForm handles GET /buy
func (h *Handler) BuyForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "buy.html", nil)
}

// Buy handles POST /buy
func (h *Handler) Buy(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimSpace(r.FormValue("symbol"))
	if symbol == "" {
		h.apology(w, http.StatusBadRequest, "choose a valid stock name")
		return
	}

	shares, err := parseShares(r.FormValue("shares"))
	if err != nil {
		h.apology(w, http.StatusBadRequest, "invalid shares")
		return
	}

	if err := h.trader.Buy(r.Context(), userID(r), symbol, shares); err != nil {
		h.tradeError(w, err)
		return
	}

	h.flash(w, "Bought!")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// SellForm handles GET /sell
func (h *Handler) SellForm(w http.ResponseWriter, r *http.Request) {
	portfolio, err := h.trader.Portfolio(r.Context(), userID(r))
	if err != nil {
		h.tradeError(w, err)
		return
	}

	h.render(w, http.StatusOK, "sell.html", map[string]any{
		"Holdings": portfolio.Holdings,
	})
}

// Sell handles POST /sell
func (h *Handler) Sell(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimSpace(r.FormValue("symbol"))
	if symbol == "" {
		h.apology(w, http.StatusBadRequest, "choose stock name which you want to sell")
		return
	}

	shares, err := parseShares(r.FormValue("shares"))
	if err != nil {
		h.apology(w, http.StatusBadRequest, "invalid shares")
		return
	}

	if err := h.trader.Sell(r.Context(), userID(r), symbol, shares); err != nil {
		h.tradeError(w, err)
		return
	}

	h.flash(w, "Sold!")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// QuoteForm handles GET /quote
func (h *Handler) QuoteForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "quote.html", nil)
}

// Quote handles POST /quote
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	quote, err := h.trader.Quote(r.Context(), r.FormValue("symbol"))
	if err != nil {
		h.tradeError(w, err)
		return
	}

	h.render(w, http.StatusOK, "quoted.html", map[string]any{
		"Quote": quote,
	})
}

// History handles GET /history
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	entries, err := h.trader.History(r.Context(), userID(r))
	if err != nil {
		h.tradeError(w, err)
		return
	}

	h.render(w, http.StatusOK, "history.html", map[string]any{
		"Entries": entries,
	})
}

// LoginForm handles GET /login
func (h *Handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "login.html", nil)
}

// Login handles POST /login. Besides the username/password pair it
// also accepts the password-change pair old_name/n_p.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	h.clearSession(w, r)

	oldName := r.FormValue("old_name")
	newPassword := r.FormValue("n_p")
	if oldName != "" || newPassword != "" {
		h.changePassword(w, r, oldName, newPassword)
		return
	}

	username := r.FormValue("username")
	if username == "" {
		h.apology(w, http.StatusBadRequest, "must provide username")
		return
	}
	password := r.FormValue("password")
	if password == "" {
		h.apology(w, http.StatusBadRequest, "must provide password")
		return
	}

	user, err := h.accounts.Login(r.Context(), username, password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		h.apology(w, http.StatusBadRequest, "invalid username and/or password")
		return
	}
	if err != nil {
		h.internalError(w, err)
		return
	}

	if err := h.openSession(w, r, user.ID); err != nil {
		h.internalError(w, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request, username, newPassword string) {
	if username == "" || newPassword == "" {
		h.apology(w, http.StatusBadRequest, "fill out required fields")
		return
	}

	err := h.accounts.ChangePassword(r.Context(), username, newPassword)
	switch {
	case errors.Is(err, auth.ErrSamePassword):
		h.apology(w, http.StatusBadRequest, "this is your already existing password")
	case errors.Is(err, database.ErrUserNotFound):
		h.apology(w, http.StatusBadRequest, "invalid username")
	case err != nil:
		h.internalError(w, err)
	default:
		h.flash(w, "Password Changed!")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	}
}

// Logout handles GET /logout and clears the session
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearSession(w, r)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// RegisterForm handles GET /register
func (h *Handler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "register.html", nil)
}

// Register handles POST /register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	h.clearSession(w, r)

	username := r.FormValue("username")
	if username == "" {
		h.apology(w, http.StatusBadRequest, "must provide username")
		return
	}
	password := r.FormValue("password")
	if password == "" {
		h.apology(w, http.StatusBadRequest, "must provide password")
		return
	}
	if r.FormValue("confirmation") != password {
		h.apology(w, http.StatusBadRequest, "invalid confirmation password")
		return
	}

	user, err := h.accounts.Register(r.Context(), username, password)
	if errors.Is(err, database.ErrDuplicateUsername) {
		h.apology(w, http.StatusBadRequest, "username already taken")
		return
	}
	if err != nil {
		h.internalError(w, err)
		return
	}

	if h.events != nil {
		if err := h.events.PublishUserRegistered(r.Context(), user); err != nil {
			h.log.WithError(err).Warn("failed to publish registration event")
		}
	}

	if err := h.openSession(w, r, user.ID); err != nil {
		h.internalError(w, err)
		return
	}
	h.flash(w, "Registered!")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

func (h *Handler) openSession(w http.ResponseWriter, r *http.Request, id int) error {
	token, err := h.sessions.Create(r.Context(), id)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (h *Handler) clearSession(w http.ResponseWriter, r *http.Request) {
	if token := h.sessionToken(r); token != "" {
		if err := h.sessions.Destroy(r.Context(), token); err != nil {
			h.log.WithError(err).Warn("failed to destroy session")
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// tradeError maps ledger errors to apology pages
func (h *Handler) tradeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrUnknownSymbol):
		h.apology(w, http.StatusBadRequest, "invalid stock name")
	case errors.Is(err, ledger.ErrInvalidQuantity):
		h.apology(w, http.StatusBadRequest, "invalid shares")
	case errors.Is(err, ledger.ErrInsufficientFunds):
		h.apology(w, http.StatusBadRequest, "you do not have enough money to purchase this")
	case errors.Is(err, ledger.ErrInsufficientShares):
		h.apology(w, http.StatusBadRequest, "trying to sell too many shares")
	case errors.Is(err, ledger.ErrNoPosition):
		h.apology(w, http.StatusBadRequest, "you do not own this stock")
	default:
		h.internalError(w, err)
	}
}

func (h *Handler) internalError(w http.ResponseWriter, err error) {
	h.log.WithError(err).Error("request failed")
	h.apology(w, http.StatusInternalServerError, "something went wrong")
}

// parseShares enforces the positive-integer contract for share
// quantities. Zero is rejected: a plain digit check would let it
// through and produce a no-op trade with a history entry.
func parseShares(raw string) (int64, error) {
	shares, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, err
	}
	if shares <= 0 {
		return 0, ledger.ErrInvalidQuantity
	}
	return shares, nil
}
