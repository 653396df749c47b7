package handlers

import (
	"errors"
	"net/http"
	"time"

	"my-trips/internal/middleware"
	"my-trips/internal/services"
	"my-trips/internal/views"

	"github.com/rs/zerolog/log"
)

// UserHandler handles login, registration and logout
type UserHandler struct {
	userService *services.UserService
	views       *views.Renderer
	cookieName  string
	secure      bool
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService, renderer *views.Renderer, cookieName string, secure bool) *UserHandler {
	return &UserHandler{
		userService: userService,
		views:       renderer,
		cookieName:  cookieName,
		secure:      secure,
	}
}

// LoginForm handles GET /login
func (h *UserHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	render(h.views, w, http.StatusOK, views.Login, views.AuthView{})
}

// Login handles POST /login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		respondError(h.views, w, "", http.StatusBadRequest, messageOf(http.StatusBadRequest))
		return
	}
	form := services.RegisterForm{Username: r.PostFormValue("username")}

	user, err := h.userService.Authenticate(ctx, form.Username, r.PostFormValue("password"))
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			log.Info().Str("username", form.Username).Msg("Login failed")
			render(h.views, w, http.StatusUnauthorized, views.Login, views.AuthView{
				Form:    form,
				Message: "Invalid username or password",
			})
			return
		}
		log.Error().Err(err).Str("username", form.Username).Msg("Failed to authenticate user")
		respondError(h.views, w, "", http.StatusInternalServerError, messageOf(http.StatusInternalServerError))
		return
	}

	if !h.startSession(w, user.Username) {
		respondError(h.views, w, "", http.StatusInternalServerError, messageOf(http.StatusInternalServerError))
		return
	}

	log.Info().Str("username", user.Username).Msg("User logged in")
	http.Redirect(w, r, TripsPagePath, http.StatusSeeOther)
}

// RegisterForm handles GET /register
func (h *UserHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	render(h.views, w, http.StatusOK, views.Register, views.AuthView{})
}

// Register handles POST /register
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		respondError(h.views, w, "", http.StatusBadRequest, messageOf(http.StatusBadRequest))
		return
	}
	form := services.RegisterForm{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
		Confirm:  r.PostFormValue("confirm"),
	}

	user, err := h.userService.Register(ctx, form)
	if err != nil {
		view := views.AuthView{Form: services.RegisterForm{Username: form.Username}}
		if errors.Is(err, services.ErrUsernameTaken) {
			view.Errors = map[string]string{"username": "Username already taken"}
			render(h.views, w, http.StatusConflict, views.Register, view)
			return
		}
		if verr, ok := services.AsValidationError(err); ok {
			view.Errors = verr.Fields
			render(h.views, w, http.StatusUnprocessableEntity, views.Register, view)
			return
		}
		log.Error().Err(err).Str("username", form.Username).Msg("Failed to register user")
		respondError(h.views, w, "", http.StatusInternalServerError, messageOf(http.StatusInternalServerError))
		return
	}

	if !h.startSession(w, user.Username) {
		respondError(h.views, w, "", http.StatusInternalServerError, messageOf(http.StatusInternalServerError))
		return
	}

	log.Info().Str("username", user.Username).Int64("user_id", user.ID).Msg("User registered")
	http.Redirect(w, r, TripsPagePath, http.StatusSeeOther)
}

// Logout handles POST /logout
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	if username := middleware.GetUsername(r.Context()); username != "" {
		log.Info().Str("username", username).Msg("User logged out")
	}
	http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
}

func (h *UserHandler) startSession(w http.ResponseWriter, username string) bool {
	token, err := h.userService.GenerateJWT(username)
	if err != nil {
		log.Error().Err(err).Str("username", username).Msg("Failed to generate token")
		return false
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.userService.TokenTTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return true
}
