package server

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-session-client/apiclient"
	"github.com/jrsteele09/go-session-client/internal/errors"
	"github.com/jrsteele09/go-session-client/internal/httpserver"
	"github.com/jrsteele09/go-session-client/roles"
)

// LoginPageData contains data for rendering the login page
type LoginPageData struct {
	Role  roles.Role
	Title string
	Error string
	Email string // Preserve email on error
}

type DashboardPageData struct {
	Role  roles.Role
	Title string
	User  *apiclient.User
}

func title(role roles.Role) string {
	s := role.String()
	return strings.ToUpper(s[:1]) + s[1:]
}

func dashboardRoute(role roles.Role) string {
	return "/" + role.String() + "/dashboard"
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, tmpl *template.Template, status int, data any) {
	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	if err := tmpl.Execute(w, data); err != nil {
		log.Ctx(r.Context()).Err(err).Str("template", tmpl.Name()).Msg("Failed to render template")
	}
}

func (s *Server) renderLoginError(w http.ResponseWriter, r *http.Request, status int, role roles.Role, msg, email string) {
	s.render(w, r, s.loginTmpl, status, LoginPageData{
		Role:  role,
		Title: title(role),
		Error: msg,
		Email: email,
	})
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpserver.WriteMessage(w, http.StatusOK, "ok")
	}
}

// LoginPageHandler displays the login page (GET /{role}/login)
func (s *Server) LoginPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := roles.FromContext(r.Context())
		s.render(w, r, s.loginTmpl, http.StatusOK, LoginPageData{
			Role:  role,
			Title: title(role),
			Error: r.URL.Query().Get("error"),
			Email: r.URL.Query().Get("email"),
		})
	}
}

// LoginSubmissionHandler exchanges the form's password for tokens, stores
// them in the credential cookies and redirects to the dashboard.
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := roles.FromContext(r.Context())
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		email := strings.TrimSpace(r.FormValue("email"))
		password := r.FormValue("password")
		if email == "" || password == "" {
			s.renderLoginError(w, r, http.StatusBadRequest, role, "Email and password are required", email)
			return
		}

		res, err := s.publicAPI.Login(r.Context(), email, password)
		if err != nil {
			var apiErr *apiclient.APIError
			if errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError && apiErr.Message != "" {
				s.renderLoginError(w, r, apiErr.Status, role, apiErr.Message, email)
				return
			}
			log.Ctx(r.Context()).Err(err).Msg("backend login failed")
			s.renderLoginError(w, r, http.StatusBadGateway, role, "Sign in is unavailable, please try again", email)
			return
		}
		if res.User.Role != role {
			s.renderLoginError(w, r, http.StatusForbidden, role, "This account cannot sign in to the "+role.String()+" portal", email)
			return
		}

		sess, err := s.sessionFor(w, r)
		if err != nil {
			log.Ctx(r.Context()).Err(err).Msg("session setup failed")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if err := sess.manager.Login(sess.ctx, res.AccessToken, res.RefreshToken); err != nil {
			log.Ctx(r.Context()).Err(err).Msg("storing credentials failed")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		log.Ctx(r.Context()).Info().Str("user_id", res.User.ID).Str("role", role.String()).Msg("signed in")
		http.Redirect(w, r, dashboardRoute(role), http.StatusSeeOther)
	}
}

// DashboardHandler renders the signed-in account. Auth failures the session
// cannot recover from have already redirected to the login page.
func (s *Server) DashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := roles.FromContext(r.Context())
		sess, err := s.sessionFor(w, r)
		if err != nil {
			log.Ctx(r.Context()).Err(err).Msg("session setup failed")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		me, err := sess.api.Me(sess.ctx)
		if sess.redirected() {
			return
		}
		if err != nil {
			switch apiclient.StatusCode(err) {
			case http.StatusUnauthorized, http.StatusForbidden:
				http.Redirect(w, r, role.LoginRoute(), http.StatusSeeOther)
			default:
				log.Ctx(r.Context()).Err(err).Msg("loading account failed")
				http.Error(w, "Backend unavailable", http.StatusBadGateway)
			}
			return
		}

		if me.Role.Valid() && me.Role != role {
			http.Redirect(w, r, dashboardRoute(me.Role), http.StatusSeeOther)
			return
		}
		s.render(w, r, s.dashboardTmpl, http.StatusOK, DashboardPageData{
			Role:  role,
			Title: title(role),
			User:  me,
		})
	}
}

// LogoutHandler revokes the session on the backend, clears the cookies and
// redirects to the role's login page.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := roles.FromContext(r.Context())
		sess, err := s.sessionFor(w, r)
		if err != nil {
			log.Ctx(r.Context()).Err(err).Msg("session setup failed")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		creds, _ := sess.store.Read(sess.ctx)
		if err := sess.api.Logout(sess.ctx, creds.RefreshToken); err != nil && apiclient.StatusCode(err) != http.StatusUnauthorized {
			log.Ctx(r.Context()).Warn().Err(err).Msg("backend logout failed")
		}

		if err := sess.manager.Logout(sess.ctx); err != nil {
			log.Ctx(r.Context()).Warn().Err(err).Msg("clearing credentials failed")
		}
		if !sess.redirected() {
			http.Redirect(w, r, role.LoginRoute(), http.StatusSeeOther)
		}
	}
}
