package api_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/okian/vivaran/internal/adapters/auth"
	"github.com/okian/vivaran/internal/adapters/http/api"
	"github.com/okian/vivaran/internal/adapters/http/websession"
	"github.com/okian/vivaran/internal/adapters/realtime"
	"github.com/okian/vivaran/internal/adapters/repository"
	"github.com/okian/vivaran/internal/adapters/storage"
	"github.com/okian/vivaran/internal/domain/model"
	"github.com/okian/vivaran/internal/domain/session"
	. "github.com/smartystreets/goconvey/convey"
)

var _ api.Database = (*realtime.Database)(nil)

type staticStats map[string]any

func (s staticStats) GetStats() map[string]any { return s }

type env struct {
	db     *realtime.Database
	server *httptest.Server
	close  func()
}

func newEnv() *env {
	ctx := context.Background()
	store, err := repository.Open(ctx, repository.MemoryPath)
	if err != nil {
		panic(err)
	}
	db := realtime.New(store)
	db.Start(ctx)

	dir, err := auth.NewDirectory(auth.WithBcryptCost(bcrypt.MinCost), auth.WithSecret([]byte("api-test")))
	if err != nil {
		panic(err)
	}
	reg := websession.New(dir, db, func(string) (session.LocalStorage, error) { return storage.NewMemory(), nil })

	mux := http.NewServeMux()
	api.NewServer(db, reg, staticStats{"status": "ok"}).Register(mux)
	server := httptest.NewServer(mux)
	return &env{db: db, server: server, close: func() {
		server.Close()
		reg.Close(ctx)
		_ = db.Close(ctx)
		_ = store.Close()
	}}
}

type client struct {
	base string
	http *http.Client
}

func (e *env) client() *client {
	jar, err := cookiejar.New(nil)
	if err != nil {
		panic(err)
	}
	return &client{base: e.server.URL, http: &http.Client{Jar: jar, Timeout: 5 * time.Second}}
}

func (c *client) call(method, path string, body any) (int, map[string]any) {
	var rd io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			panic(err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, c.base+path, rd)
	if err != nil {
		panic(err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()
	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func validProfile() map[string]any {
	return map[string]any{
		"startupName":   "Acme",
		"domain":        "Technology",
		"description":   "Rockets",
		"fundingNeeded": "$500,000",
		"teamSize":      "4",
		"stage":         "MVP",
		"location":      "Pune",
	}
}

func names(body map[string]any) []string {
	list, _ := body["investors"].([]any)
	out := make([]string, 0, len(list))
	for _, v := range list {
		if m, ok := v.(map[string]any); ok {
			out = append(out, m["name"].(string))
		}
	}
	return out
}

func TestAPI_Accounts(t *testing.T) {
	Convey("Given the API", t, func() {
		e := newEnv()
		defer e.close()
		c := e.client()

		Convey("When a startup registers", func() {
			status, body := c.call(http.MethodPost, "/api/auth/register", map[string]any{
				"email": "a@example.com", "password": "secret1", "role": "startup", "name": "Asha",
			})

			Convey("Then the browser is signed in with the startup role", func() {
				So(status, ShouldEqual, http.StatusCreated)
				So(body["signedIn"], ShouldEqual, true)
				So(body["role"], ShouldEqual, "startup")

				status, body = c.call(http.MethodGet, "/api/session", nil)
				So(status, ShouldEqual, http.StatusOK)
				So(body["email"], ShouldEqual, "a@example.com")
			})

			Convey("And the same email is refused with a conflict", func() {
				status, body := e.client().call(http.MethodPost, "/api/auth/register", map[string]any{
					"email": "a@example.com", "password": "secret1", "role": "startup",
				})
				So(status, ShouldEqual, http.StatusConflict)
				So(body["code"], ShouldEqual, "email_in_use")
			})

			Convey("And a wrong password fails login", func() {
				status, body := e.client().call(http.MethodPost, "/api/auth/login", map[string]any{
					"email": "a@example.com", "password": "wrong-one",
				})
				So(status, ShouldEqual, http.StatusUnauthorized)
				So(body["code"], ShouldEqual, "invalid_credentials")
			})

			Convey("And the right password signs in another browser", func() {
				status, body := e.client().call(http.MethodPost, "/api/auth/login", map[string]any{
					"email": "a@example.com", "password": "secret1",
				})
				So(status, ShouldEqual, http.StatusOK)
				So(body["role"], ShouldEqual, "startup")
			})

			Convey("And logging out ends the session", func() {
				status, _ := c.call(http.MethodPost, "/api/auth/logout", nil)
				So(status, ShouldEqual, http.StatusNoContent)
				_, body := c.call(http.MethodGet, "/api/session", nil)
				So(body["signedIn"], ShouldEqual, false)
			})

			Convey("And logging out everywhere ends every browser of the account", func() {
				other := e.client()
				status, _ := other.call(http.MethodPost, "/api/auth/login", map[string]any{
					"email": "a@example.com", "password": "secret1",
				})
				So(status, ShouldEqual, http.StatusOK)

				status, body := c.call(http.MethodPost, "/api/auth/logout-all", nil)
				So(status, ShouldEqual, http.StatusOK)
				So(body["revoked"], ShouldEqual, 2)

				_, body = c.call(http.MethodGet, "/api/session", nil)
				So(body["signedIn"], ShouldEqual, false)
				_, body = other.call(http.MethodGet, "/api/session", nil)
				So(body["signedIn"], ShouldEqual, false)

				status, body = c.call(http.MethodPost, "/api/auth/logout-all", nil)
				So(status, ShouldEqual, http.StatusUnauthorized)
				So(body["code"], ShouldEqual, "unauthenticated")
			})
		})

		Convey("When the role is unknown", func() {
			status, body := c.call(http.MethodPost, "/api/auth/register", map[string]any{
				"email": "a@example.com", "password": "secret1", "role": "admin",
			})
			So(status, ShouldEqual, http.StatusBadRequest)
			So(body["code"], ShouldEqual, "invalid_request")
		})

		Convey("When the password is too short", func() {
			status, _ := c.call(http.MethodPost, "/api/auth/register", map[string]any{
				"email": "a@example.com", "password": "123", "role": "startup",
			})
			So(status, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the body has unknown fields", func() {
			status, _ := c.call(http.MethodPost, "/api/auth/login", map[string]any{"user": "x"})
			So(status, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestAPI_StartupProfile(t *testing.T) {
	Convey("Given investors and a signed-in startup", t, func() {
		ctx := context.Background()
		e := newEnv()
		defer e.close()
		So(e.db.WriteRecord(ctx, "investors/i1", model.InvestorProfile{Name: "Tech Fund", InterestedDomains: []string{"Technology"}}), ShouldBeNil)
		So(e.db.WriteRecord(ctx, "investors/i2", model.InvestorProfile{Name: "Med Fund", InterestedDomains: []string{"Healthcare"}}), ShouldBeNil)
		So(e.db.WriteRecord(ctx, "investors/i3", model.InvestorProfile{Name: "Both Fund", InterestedDomains: []string{"Healthcare", "Technology"}}), ShouldBeNil)

		c := e.client()
		status, _ := c.call(http.MethodPost, "/api/auth/register", map[string]any{
			"email": "s@example.com", "password": "secret1", "role": "startup",
		})
		So(status, ShouldEqual, http.StatusCreated)

		Convey("When nobody is signed in", func() {
			status, body := e.client().call(http.MethodGet, "/api/startup/profile", nil)
			So(status, ShouldEqual, http.StatusUnauthorized)
			So(body["code"], ShouldEqual, "unauthenticated")
		})

		Convey("When no profile was submitted yet", func() {
			status, body := c.call(http.MethodGet, "/api/startup/profile", nil)
			So(status, ShouldEqual, http.StatusOK)
			So(body["state"], ShouldEqual, "unsubmitted")

			status, _ = c.call(http.MethodGet, "/api/startup/matches", nil)
			So(status, ShouldEqual, http.StatusNotFound)
		})

		Convey("When an incomplete profile is submitted", func() {
			p := validProfile()
			delete(p, "location")
			status, body := c.call(http.MethodPut, "/api/startup/profile", p)

			Convey("Then it is rejected and nothing is stored", func() {
				So(status, ShouldEqual, http.StatusBadRequest)
				So(body["message"], ShouldContainSubstring, "location")
				snap, err := e.db.Snapshot(ctx, model.CollectionStartups)
				So(err, ShouldBeNil)
				So(snap, ShouldBeEmpty)
			})
		})

		Convey("When a complete profile is submitted", func() {
			status, body := c.call(http.MethodPut, "/api/startup/profile", validProfile())
			So(status, ShouldEqual, http.StatusOK)
			So(body["state"], ShouldEqual, "submitted")

			Convey("Then matches keep arrival order and skip other domains", func() {
				status, body := c.call(http.MethodGet, "/api/startup/matches", nil)
				So(status, ShouldEqual, http.StatusOK)
				So(names(body), ShouldResemble, []string{"Tech Fund", "Both Fund"})
			})

			Convey("And every investor is listed", func() {
				_, body := c.call(http.MethodGet, "/api/investors", nil)
				So(names(body), ShouldResemble, []string{"Tech Fund", "Med Fund", "Both Fund"})
			})
		})
	})
}

func TestAPI_MatchStream(t *testing.T) {
	Convey("Given a startup with a submitted profile", t, func() {
		ctx := context.Background()
		e := newEnv()
		defer e.close()
		c := e.client()
		c.call(http.MethodPost, "/api/auth/register", map[string]any{
			"email": "s@example.com", "password": "secret1", "role": "startup",
		})
		status, _ := c.call(http.MethodPut, "/api/startup/profile", validProfile())
		So(status, ShouldEqual, http.StatusOK)

		Convey("When the match stream is open and an investor arrives", func() {
			sctx, cancel := context.WithCancel(ctx)
			defer cancel()
			req, err := http.NewRequestWithContext(sctx, http.MethodGet, e.server.URL+"/api/startup/matches/stream", http.NoBody)
			So(err, ShouldBeNil)
			stream := &http.Client{Jar: c.http.Jar}
			resp, err := stream.Do(req)
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.Header.Get("Content-Type"), ShouldEqual, "text/event-stream")

			events := make(chan []string, 4)
			go func() {
				sc := bufio.NewScanner(resp.Body)
				for sc.Scan() {
					line := sc.Text()
					if !strings.HasPrefix(line, "data: ") {
						continue
					}
					var body map[string]any
					if json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &body) == nil {
						events <- names(body)
					}
				}
				close(events)
			}()
			next := func() []string {
				select {
				case got := <-events:
					return got
				case <-time.After(3 * time.Second):
					return nil
				}
			}

			So(next(), ShouldResemble, []string{})
			So(e.db.WriteRecord(ctx, "investors/i1", model.InvestorProfile{Name: "Tech Fund", InterestedDomains: []string{"Technology"}}), ShouldBeNil)
			So(next(), ShouldResemble, []string{"Tech Fund"})

			Convey("And the startup then moves to another domain", func() {
				So(e.db.WriteRecord(ctx, "investors/i2", model.InvestorProfile{Name: "Med Fund", InterestedDomains: []string{"Healthcare"}}), ShouldBeNil)
				So(next(), ShouldResemble, []string{"Tech Fund"})

				changed := validProfile()
				changed["domain"] = "Healthcare"
				status, _ := c.call(http.MethodPut, "/api/startup/profile", changed)
				So(status, ShouldEqual, http.StatusOK)

				Convey("Then the open stream switches to the new domain's investors", func() {
					So(next(), ShouldResemble, []string{"Med Fund"})
				})
			})
			cancel()
		})
	})
}

func TestAPI_ContactAndOps(t *testing.T) {
	Convey("Given the API", t, func() {
		e := newEnv()
		defer e.close()
		c := e.client()

		Convey("When a contact message is complete", func() {
			status, body := c.call(http.MethodPost, "/api/contact", map[string]any{"name": "Ana", "email": "ana@example.com", "message": "Hi"})
			So(status, ShouldEqual, http.StatusAccepted)
			So(body["id"], ShouldNotBeEmpty)
		})

		Convey("When a contact message has no text", func() {
			status, _ := c.call(http.MethodPost, "/api/contact", map[string]any{"name": "Ana", "email": "ana@example.com"})
			So(status, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When stats are requested", func() {
			status, body := c.call(http.MethodGet, "/stats", nil)
			So(status, ShouldEqual, http.StatusOK)
			So(body["status"], ShouldEqual, "ok")
		})

		Convey("When metrics are scraped", func() {
			resp, err := c.http.Get(e.server.URL + "/healthz")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			raw, _ := io.ReadAll(resp.Body)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(string(raw), ShouldContainSubstring, "vivaran_site_active_sessions")
		})
	})
}
