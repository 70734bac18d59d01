package httpserver

import (
	"errors"
	"net/http"

	"taskassign/taskboard/internal/audit"
	"taskassign/taskboard/internal/auth"
)

const (
	msgBadCredentials = "Incorrect Username or Password"
	msgLoginFailed    = "An error occurred during login. Please try again."
	msgSignupFailed   = "Error occurred during signup. Please try again."
)

type credentialsForm struct {
	Username string `validate:"required,max=255"`
	Password string `validate:"required,max=72"`
}

func readCredentials(r *http.Request) credentialsForm {
	return credentialsForm{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}
}

func (h *handler) loginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "login", nil)
}

func (h *handler) signupPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "signup", nil)
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	form := readCredentials(r)
	if err := h.validate.Struct(form); err != nil {
		h.audit(r, form.Username, audit.ActionLogin, "", audit.OutcomeFailed, "invalid form")
		http.Error(w, msgBadCredentials, http.StatusUnauthorized)
		return
	}

	session, err := h.deps.Auth.Login(r.Context(), form.Username, form.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.audit(r, form.Username, audit.ActionLogin, "", audit.OutcomeFailed, "invalid credentials")
			http.Error(w, msgBadCredentials, http.StatusUnauthorized)
			return
		}
		h.storeError(r, "login", err)
		h.audit(r, form.Username, audit.ActionLogin, "", audit.OutcomeFailed, err.Error())
		http.Error(w, msgLoginFailed, http.StatusInternalServerError)
		return
	}

	value, err := h.deps.Cookies.Encode(session.Token, session.ExpiresAt)
	if err != nil {
		h.storeError(r, "encode session cookie", err)
		http.Error(w, msgLoginFailed, http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.deps.CookieName,
		Value:    value,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.deps.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	h.audit(r, session.Username, audit.ActionLogin, "", audit.OutcomeSuccess, "")
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func (h *handler) signup(w http.ResponseWriter, r *http.Request) {
	form := readCredentials(r)
	if err := h.validate.Struct(form); err != nil {
		h.audit(r, form.Username, audit.ActionSignup, "", audit.OutcomeFailed, "invalid form")
		http.Error(w, msgSignupFailed, http.StatusBadRequest)
		return
	}

	u, err := h.deps.Auth.SignUp(r.Context(), form.Username, form.Password)
	if err != nil {
		if !errors.Is(err, auth.ErrDuplicateUsername) && !errors.Is(err, auth.ErrInvalidUser) {
			h.storeError(r, "signup", err)
		}
		h.audit(r, form.Username, audit.ActionSignup, "", audit.OutcomeFailed, err.Error())
		http.Error(w, msgSignupFailed, http.StatusBadRequest)
		return
	}
	h.audit(r, u.Username, audit.ActionSignup, "", audit.OutcomeSuccess, "")
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.SessionFromContext(r.Context())
	if token, ok := h.cookieToken(r); ok {
		if err := h.deps.Auth.Logout(r.Context(), token); err != nil && !errors.Is(err, auth.ErrInvalidToken) {
			h.storeError(r, "logout", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.deps.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.deps.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	h.audit(r, session.Username, audit.ActionLogout, "", audit.OutcomeSuccess, "")
	http.Redirect(w, r, "/login", http.StatusFound)
}
