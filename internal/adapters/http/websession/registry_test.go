package websession

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/okian/vivaran/internal/adapters/auth"
	"github.com/okian/vivaran/internal/adapters/storage"
	"github.com/okian/vivaran/internal/domain/model"
	"github.com/okian/vivaran/internal/domain/session"
	. "github.com/smartystreets/goconvey/convey"
)

type mapDB struct {
	mu      sync.Mutex
	records map[string][]byte
}

func (d *mapDB) WriteRecord(_ context.Context, path string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.records[path] = raw
	return nil
}

func (d *mapDB) ReadRecord(_ context.Context, path string, out any) (bool, error) {
	d.mu.Lock()
	raw, ok := d.records[path]
	d.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, out)
}

type fixture struct {
	dir      *auth.Directory
	reg      *Registry
	now      time.Time
	mu       sync.Mutex
	storages map[string]*storage.Memory
	released []string
}

func newFixture() *fixture {
	f := &fixture{now: time.Unix(1_700_000_000, 0), storages: map[string]*storage.Memory{}}
	clock := func() time.Time {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.now
	}
	dir, err := auth.NewDirectory(
		auth.WithBcryptCost(bcrypt.MinCost),
		auth.WithSecret([]byte("k")),
		auth.WithTokenTTL(time.Hour),
		auth.WithClock(clock),
	)
	if err != nil {
		panic(err)
	}
	f.dir = dir
	factory := func(sid string) (session.LocalStorage, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		s, ok := f.storages[sid]
		if !ok {
			s = storage.NewMemory()
			f.storages[sid] = s
		}
		return s, nil
	}
	release := func(sid string) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.released = append(f.released, sid)
	}
	f.reg = New(dir, &mapDB{records: map[string][]byte{}}, factory,
		WithIdleTimeout(time.Minute), WithClock(clock), WithRelease(release))
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func cookieValue(rec *httptest.ResponseRecorder, name string) string {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func TestRegistry_Resolve(t *testing.T) {
	Convey("Given an empty registry", t, func() {
		f := newFixture()

		Convey("When a browser without a cookie arrives", func() {
			rec := httptest.NewRecorder()
			e, err := f.reg.Resolve(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

			Convey("Then a session cookie is issued", func() {
				So(err, ShouldBeNil)
				So(cookieValue(rec, CookieSession), ShouldEqual, e.ID)
				So(f.reg.Len(), ShouldEqual, 1)
			})

			Convey("And the same cookie resolves to the same entry", func() {
				req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
				req.AddCookie(&http.Cookie{Name: CookieSession, Value: e.ID})
				again, err := f.reg.Resolve(httptest.NewRecorder(), req)
				So(err, ShouldBeNil)
				So(again, ShouldEqual, e)
			})
		})

		Convey("When the cookie is not a valid id", func() {
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			req.AddCookie(&http.Cookie{Name: CookieSession, Value: "../../etc"})
			rec := httptest.NewRecorder()
			e, err := f.reg.Resolve(rec, req)

			Convey("Then a fresh id replaces it", func() {
				So(err, ShouldBeNil)
				So(e.ID, ShouldNotEqual, "../../etc")
				So(cookieValue(rec, CookieSession), ShouldEqual, e.ID)
			})
		})
	})
}

func TestRegistry_SweepAndRestore(t *testing.T) {
	Convey("Given a signed-in startup browser", t, func() {
		ctx := context.Background()
		f := newFixture()
		rec := httptest.NewRecorder()
		e, err := f.reg.Resolve(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
		So(err, ShouldBeNil)
		_, err = e.Session.Register(ctx, "a@example.com", "secret1", model.RoleStartup, nil)
		So(err, ShouldBeNil)
		tokenRec := httptest.NewRecorder()
		f.reg.SyncToken(tokenRec, e)
		token := cookieValue(tokenRec, CookieToken)
		So(token, ShouldNotBeEmpty)

		Convey("When it stays idle past the timeout", func() {
			f.advance(2 * time.Minute)
			So(f.reg.Sweep(ctx), ShouldEqual, 1)

			Convey("Then the session is gone and signed out", func() {
				So(f.reg.Len(), ShouldEqual, 0)
				So(e.Auth.Token(), ShouldBeEmpty)
				So(f.released, ShouldResemble, []string{e.ID})
			})

			Convey("And the browser comes back with role and identity restored", func() {
				req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
				req.AddCookie(&http.Cookie{Name: CookieSession, Value: e.ID})
				req.AddCookie(&http.Cookie{Name: CookieToken, Value: token})
				back, err := f.reg.Resolve(httptest.NewRecorder(), req)
				So(err, ShouldBeNil)
				So(back, ShouldNotEqual, e)

				id, ok := back.Session.Current()
				So(ok, ShouldBeTrue)
				So(id.Email, ShouldEqual, "a@example.com")
				role, ok := back.Session.Role()
				So(ok, ShouldBeTrue)
				So(role, ShouldEqual, model.RoleStartup)
			})
		})

		Convey("When it was seen recently", func() {
			f.advance(30 * time.Second)
			So(f.reg.Sweep(ctx), ShouldEqual, 0)
			So(f.reg.Len(), ShouldEqual, 1)
			So(f.released, ShouldBeEmpty)
		})

		Convey("When it returns after its ID token expired", func() {
			f.advance(2 * time.Hour)
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			req.AddCookie(&http.Cookie{Name: CookieSession, Value: e.ID})
			req.AddCookie(&http.Cookie{Name: CookieToken, Value: token})
			out := httptest.NewRecorder()
			same, err := f.reg.Resolve(out, req)

			Convey("Then it is signed out and the token cookie is cleared", func() {
				So(err, ShouldBeNil)
				So(same, ShouldEqual, e)
				So(e.Auth.Token(), ShouldBeEmpty)
				_, ok := e.Session.Current()
				So(ok, ShouldBeFalse)
				var cleared bool
				for _, c := range out.Result().Cookies() {
					if c.Name == CookieToken && c.MaxAge < 0 {
						cleared = true
					}
				}
				So(cleared, ShouldBeTrue)
			})
		})

		Convey("When it returns with a live ID token", func() {
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			req.AddCookie(&http.Cookie{Name: CookieSession, Value: e.ID})
			req.AddCookie(&http.Cookie{Name: CookieToken, Value: token})
			out := httptest.NewRecorder()
			_, err := f.reg.Resolve(out, req)
			So(err, ShouldBeNil)
			So(e.Auth.Token(), ShouldEqual, token)
			So(out.Result().Cookies(), ShouldBeEmpty)
		})

		Convey("When a tampered token cookie is presented", func() {
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			req.AddCookie(&http.Cookie{Name: CookieToken, Value: token + "x"})
			out := httptest.NewRecorder()
			fresh, err := f.reg.Resolve(out, req)

			Convey("Then the browser stays signed out and the cookie is cleared", func() {
				So(err, ShouldBeNil)
				_, ok := fresh.Session.Current()
				So(ok, ShouldBeFalse)
				var cleared bool
				for _, c := range out.Result().Cookies() {
					if c.Name == CookieToken && c.MaxAge < 0 {
						cleared = true
					}
				}
				So(cleared, ShouldBeTrue)
			})
		})

		Convey("When the registry is closed", func() {
			f.reg.Close(ctx)
			So(f.reg.Len(), ShouldEqual, 0)
			So(e.Auth.Token(), ShouldBeEmpty)
			So(f.released, ShouldResemble, []string{e.ID})
		})
	})
}

func TestRegistry_Middleware(t *testing.T) {
	Convey("Given a handler behind the middleware", t, func() {
		f := newFixture()
		var got *Entry
		h := f.reg.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, _ = FromContext(r.Context())
		}))

		Convey("When a request passes through", func() {
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", http.NoBody))
			So(got, ShouldNotBeNil)
		})

		Convey("When no entry is in the context", func() {
			_, ok := FromContext(context.Background())
			So(ok, ShouldBeFalse)
		})
	})
}
