// Package site serves the server-rendered pages: marketing, signup and login,
// and the two dashboards.
package site

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/vivaran/internal/adapters/auth"
	"github.com/okian/vivaran/internal/adapters/http/api"
	"github.com/okian/vivaran/internal/adapters/http/websession"
	"github.com/okian/vivaran/internal/domain/matching"
	"github.com/okian/vivaran/internal/domain/model"
	"github.com/okian/vivaran/internal/domain/profile"
	"github.com/okian/vivaran/internal/domain/session"
	"github.com/okian/vivaran/pkg/logger"
)

// Database is what the pages read and write.
type Database interface {
	session.Database
	Snapshot(ctx context.Context, collection string) (model.Snapshot, error)
}

// Site renders every page.
type Site struct {
	db           Database
	sessions     *websession.Registry
	pages        *renderer
	enforceRoles bool
	log          logger.Logger
	now          func() time.Time
}

// New parses the templates and returns a Site.
func New(db Database, sessions *websession.Registry, opts ...Option) (*Site, error) {
	pages, err := newRenderer()
	if err != nil {
		return nil, err
	}
	s := &Site{
		db:       db,
		sessions: sessions,
		pages:    pages,
		log:      logger.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register attaches the page routes to mux. Unknown paths redirect home.
func (s *Site) Register(mux *http.ServeMux) {
	page := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.Handle(pattern, s.sessions.Middleware(api.MetricsMiddleware(h, endpoint)))
	}
	guarded := func(pattern, endpoint string, role model.Role, h http.HandlerFunc) {
		mux.Handle(pattern, s.sessions.Middleware(Guard(role, s.enforceRoles, api.MetricsMiddleware(h, endpoint))))
	}

	page("GET /{$}", "home", s.static(pageHome, "Home", s.homeContent))
	page("GET /services", "services", s.static(pageServices, "Services", func(*http.Request) any { return services }))
	page("GET /portfolio", "portfolio", s.static(pagePortfolio, "Portfolio", func(*http.Request) any { return projects }))
	page("GET /collaborations", "collaborations", s.static(pageCollaborations, "Collaborations", func(*http.Request) any { return partners }))
	page("GET /assets", "assets", s.static(pageAssets, "Assets", assetsContent))
	page("GET /about", "about", s.static(pageAbout, "About", aboutContent))
	page("GET /access-denied", "access_denied", s.static(pageAccessDenied, "Access denied", nil))
	page("GET /contact", "contact", s.static(pageContact, "Contact", nil))
	page("POST /contact", "contact", s.handleContact)
	page("GET /selection", "selection", s.static(pageSelection, "Get started", nil))
	page("POST /selection", "selection", s.handleSelection)
	page("GET /auth", "auth", s.handleAuthPage)
	page("POST /auth", "auth", s.handleAuth)
	page("POST /logout", "logout", s.handleLogout)

	guarded("GET /startup-dashboard", "startup_dashboard", model.RoleStartup, s.handleStartupDashboard)
	guarded("POST /startup-dashboard", "startup_dashboard", model.RoleStartup, s.handleStartupSubmit)
	guarded("GET /investor-dashboard", "investor_dashboard", model.RoleInvestor, s.handleInvestorDashboard)

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(staticFiles())))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusFound)
	})
}

func (s *Site) static(name, title string, content func(*http.Request) any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := s.data(r, title, name)
		if content != nil {
			data.Content = content(r)
		}
		s.render(w, r, http.StatusOK, name, data)
	}
}

type homeView struct {
	Features []feature
	Services []feature
	Plans    []plan
	Partners []partner
	Annual   bool
}

func (s *Site) homeContent(r *http.Request) any {
	return homeView{
		Features: features,
		Services: services,
		Plans:    plans,
		Partners: partners,
		Annual:   r.URL.Query().Get("billing") != "monthly",
	}
}

type assetsView struct {
	Holdings []asset
	Total    float64
}

func assetsContent(*http.Request) any {
	return assetsView{Holdings: holdings, Total: totalHoldings()}
}

type aboutView struct {
	Values []feature
	Stats  []stat
}

func aboutContent(*http.Request) any {
	return aboutView{Values: values, Stats: stats}
}

type contactForm struct {
	Name    string
	Email   string
	Subject string
	Message string
}

func (s *Site) handleContact(w http.ResponseWriter, r *http.Request) {
	data := s.data(r, "Contact", pageContact)
	form := contactForm{
		Name:    strings.TrimSpace(r.PostFormValue("name")),
		Email:   strings.TrimSpace(r.PostFormValue("email")),
		Subject: strings.TrimSpace(r.PostFormValue("subject")),
		Message: strings.TrimSpace(r.PostFormValue("message")),
	}
	data.Content = form

	msg := model.ContactMessage{Name: form.Name, Email: form.Email, Subject: form.Subject, Message: form.Message, CreatedAt: s.now().UTC()}
	if err := msg.Validate(); err != nil {
		data.Error = "Please fill in your name, email and message."
		s.render(w, r, http.StatusBadRequest, pageContact, data)
		return
	}
	if err := s.db.WriteRecord(r.Context(), model.Path(model.CollectionMessages, uuid.NewString()), msg); err != nil {
		s.log.Error(r.Context(), "error saving contact message", logger.Error(err))
		data.Error = "Your message could not be sent. Please try again."
		s.render(w, r, http.StatusBadGateway, pageContact, data)
		return
	}
	data.Content = contactForm{}
	data.Notice = "Thanks! We will get back to you soon."
	s.render(w, r, http.StatusOK, pageContact, data)
}

func (s *Site) handleSelection(w http.ResponseWriter, r *http.Request) {
	e := entry(r)
	role, err := model.ParseRole(r.PostFormValue("role"))
	if err == nil {
		err = e.Session.SelectRole(r.Context(), role)
	}
	if err != nil {
		data := s.data(r, "Get started", pageSelection)
		data.Error = "Choose whether you are a startup or an investor."
		s.render(w, r, http.StatusBadRequest, pageSelection, data)
		return
	}
	http.Redirect(w, r, "/auth?mode=signup", http.StatusSeeOther)
}

type authView struct {
	Signup bool
	Role   string
	Email  string
	Name   string
}

func (s *Site) handleAuthPage(w http.ResponseWriter, r *http.Request) {
	data := s.data(r, "Sign in", pageAuth)
	data.Content = s.authView(r, r.URL.Query().Get("mode") == "signup")
	s.render(w, r, http.StatusOK, pageAuth, data)
}

func (s *Site) authView(r *http.Request, signup bool) authView {
	v := authView{Signup: signup}
	if role, ok := entry(r).Session.Role(); ok {
		v.Role = string(role)
	}
	return v
}

func (s *Site) handleAuth(w http.ResponseWriter, r *http.Request) {
	e := entry(r)
	ctx := r.Context()
	signup := r.PostFormValue("mode") == "signup"
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")

	var err error
	if signup {
		err = s.signup(ctx, e, r, email, password)
	} else {
		_, err = e.Session.Authenticate(ctx, email, password)
	}
	if err != nil {
		data := s.data(r, "Sign in", pageAuth)
		v := s.authView(r, signup)
		v.Email = email
		v.Name = strings.TrimSpace(r.PostFormValue("name"))
		data.Content = v
		data.Error = authMessage(err)
		s.render(w, r, authStatus(err), pageAuth, data)
		return
	}

	s.sessions.SyncToken(w, e)
	target := "/"
	if role, ok := e.Session.Role(); ok {
		target = dashboardPath(role)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Site) signup(ctx context.Context, e *websession.Entry, r *http.Request, email, password string) error {
	role, ok := e.Session.Role()
	if v := r.PostFormValue("role"); v != "" {
		parsed, err := model.ParseRole(v)
		if err != nil {
			return err
		}
		role, ok = parsed, true
	}
	if !ok {
		return model.ErrInvalidRole
	}
	fields := map[string]any{"name": strings.TrimSpace(r.PostFormValue("name"))}
	if role == model.RoleInvestor {
		fields["interestedDomains"] = r.PostForm["interestedDomains"]
	}
	_, err := e.Session.Register(ctx, email, password, role, fields)
	return err
}

func authStatus(err error) int {
	switch {
	case errors.Is(err, auth.ErrEmailInUse):
		return http.StatusConflict
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusBadRequest
	}
}

func authMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrEmailInUse):
		return "An account with this email already exists."
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Incorrect email or password."
	case errors.Is(err, auth.ErrWeakPassword):
		return "Password should be at least 6 characters."
	case errors.Is(err, auth.ErrInvalidEmail):
		return "Enter a valid email address."
	case errors.Is(err, model.ErrInvalidRole):
		return "Choose whether you are a startup or an investor first."
	default:
		return "Something went wrong. Please try again."
	}
}

func (s *Site) handleLogout(w http.ResponseWriter, r *http.Request) {
	e := entry(r)
	if err := e.Session.EndSession(r.Context()); err != nil {
		s.log.Error(r.Context(), "error during logout", logger.Error(err))
	}
	s.sessions.SyncToken(w, e)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type startupView struct {
	Submitted bool
	Profile   model.StartupProfile
	Investors []model.InvestorProfile
}

func (s *Site) handleStartupDashboard(w http.ResponseWriter, r *http.Request) {
	id, _ := entry(r).Session.Current()
	flow := profile.New(s.db, id, profile.WithLogger(s.log), profile.WithClock(s.now))
	data := s.data(r, "Startup dashboard", pageStartupDashboard)
	if err := flow.Load(r.Context()); err != nil {
		s.log.Error(r.Context(), "error loading startup profile", logger.String("uid", id.ID), logger.Error(err))
		data.Error = "Your profile could not be loaded."
	}
	data.Content = s.startupView(r.Context(), flow)
	s.render(w, r, http.StatusOK, pageStartupDashboard, data)
}

func (s *Site) handleStartupSubmit(w http.ResponseWriter, r *http.Request) {
	id, _ := entry(r).Session.Current()
	flow := profile.New(s.db, id, profile.WithLogger(s.log), profile.WithClock(s.now))
	form := model.StartupProfile{
		StartupName:   strings.TrimSpace(r.PostFormValue("startupName")),
		Domain:        model.Domain(r.PostFormValue("domain")),
		Description:   strings.TrimSpace(r.PostFormValue("description")),
		FundingNeeded: strings.TrimSpace(r.PostFormValue("fundingNeeded")),
		TeamSize:      strings.TrimSpace(r.PostFormValue("teamSize")),
		Stage:         model.Stage(r.PostFormValue("stage")),
		Location:      strings.TrimSpace(r.PostFormValue("location")),
		Website:       strings.TrimSpace(r.PostFormValue("website")),
	}
	if err := flow.Submit(r.Context(), form); err != nil {
		data := s.data(r, "Startup dashboard", pageStartupDashboard)
		data.Content = startupView{Profile: form}
		status := http.StatusBadRequest
		data.Error = "Please fill in all required fields: " + err.Error()
		if !isValidation(err) {
			status = http.StatusBadGateway
			data.Error = "Your profile could not be saved. Please try again."
		}
		s.render(w, r, status, pageStartupDashboard, data)
		return
	}
	http.Redirect(w, r, "/startup-dashboard", http.StatusSeeOther)
}

func (s *Site) startupView(ctx context.Context, flow *profile.Flow) startupView {
	v := startupView{Submitted: flow.State() == profile.Submitted, Profile: flow.Profile()}
	if !v.Submitted {
		return v
	}
	snap, err := s.db.Snapshot(ctx, model.CollectionInvestors)
	if err != nil {
		s.log.Error(ctx, "error fetching investors", logger.Error(err))
		return v
	}
	investors, bad := matching.DecodeInvestors(snap)
	for _, err := range bad {
		s.log.Warn(ctx, "skipping unreadable investor record", logger.Error(err))
	}
	v.Investors = matching.ComputeMatches(v.Profile.Domain, investors)
	return v
}

type investorView struct {
	Investor model.InvestorProfile
	Known    bool
	Startups []model.StartupProfile
}

func (s *Site) handleInvestorDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, _ := entry(r).Session.Current()
	data := s.data(r, "Investor dashboard", pageInvestorDashboard)

	var v investorView
	found, err := s.db.ReadRecord(ctx, model.Path(model.CollectionInvestors, id.ID), &v.Investor)
	if err != nil {
		s.log.Error(ctx, "error loading investor profile", logger.String("uid", id.ID), logger.Error(err))
		data.Error = "Your investor profile could not be loaded."
	}
	v.Known = found
	if found {
		snap, err := s.db.Snapshot(ctx, model.CollectionStartups)
		if err != nil {
			s.log.Error(ctx, "error fetching startups", logger.Error(err))
			data.Error = "Startups could not be loaded."
		} else {
			startups, bad := matching.DecodeStartups(snap)
			for _, err := range bad {
				s.log.Warn(ctx, "skipping unreadable startup record", logger.Error(err))
			}
			v.Startups = matching.ComputeStartupMatches(v.Investor.InterestedDomains, startups)
		}
	}
	data.Content = v
	s.render(w, r, http.StatusOK, pageInvestorDashboard, data)
}

func (s *Site) data(r *http.Request, title, active string) pageData {
	d := pageData{Title: title, Active: active}
	e, ok := websession.FromContext(r.Context())
	if !ok {
		return d
	}
	if id, signedIn := e.Session.Current(); signedIn {
		d.Viewer.SignedIn = true
		d.Viewer.Email = id.Email
	}
	if role, ok := e.Session.Role(); ok {
		d.Viewer.Role = string(role)
		if d.Viewer.SignedIn {
			d.Viewer.Dashboard = dashboardPath(role)
		}
	}
	return d
}

func (s *Site) render(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	if err := s.pages.render(w, status, name, data); err != nil {
		s.log.Error(r.Context(), "page render failed", logger.String("page", name), logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func entry(r *http.Request) *websession.Entry {
	e, _ := websession.FromContext(r.Context())
	return e
}

func dashboardPath(role model.Role) string {
	if role == model.RoleInvestor {
		return "/investor-dashboard"
	}
	return "/startup-dashboard"
}

func isValidation(err error) bool {
	for _, target := range []error{
		model.ErrMissingField, model.ErrInvalidDomain, model.ErrInvalidStage, model.ErrInvalidTeamSize,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
