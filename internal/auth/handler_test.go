package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/frahmantamala/workforce-console/internal"
	"github.com/frahmantamala/workforce-console/internal/core/profile"
	"github.com/frahmantamala/workforce-console/internal/session"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

type stubLogin struct {
	result *LoginResult
	err    error
}

func (s *stubLogin) Login(context.Context, string, string) (*LoginResult, error) {
	return s.result, s.err
}

type stubSessions struct {
	validate   map[string]*session.Session
	validateEr error
	revoked    []string
	refreshErr error
}

func (s *stubSessions) Create(context.Context, int64, session.Kind) (*session.Session, error) {
	return nil, errors.New("not used")
}

func (s *stubSessions) Validate(_ context.Context, token string) (*session.Session, error) {
	if s.validateEr != nil {
		return nil, s.validateEr
	}
	if sess, ok := s.validate[token]; ok {
		cp := *sess
		return &cp, nil
	}
	return nil, session.ErrSessionNotFound
}

func (s *stubSessions) Refresh(_ context.Context, token string) (*session.Session, error) {
	if s.refreshErr != nil {
		return nil, s.refreshErr
	}
	return s.Validate(context.Background(), token)
}

func (s *stubSessions) Revoke(_ context.Context, token string) error {
	s.revoked = append(s.revoked, token)
	return nil
}

func decodeError(rec *httptest.ResponseRecorder) string {
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(gomega.Succeed())
	return body.Error.Code
}

var _ = ginkgo.Describe("Handler", func() {
	var (
		login    *stubLogin
		sessions *stubSessions
		store    *memoryStore
		h        *Handler
		dave     *profile.Profile
	)

	ginkgo.BeforeEach(func() {
		login = &stubLogin{}
		store = newMemoryStore()
		dave = store.addProfile(&profile.Profile{
			Username:       "dave",
			Role:           profile.RoleEmployee,
			OrganizationID: profile.Int64Ptr(1),
			IsActive:       true,
		})
		now := time.Now()
		sessions = &stubSessions{validate: map[string]*session.Session{
			"good": {ID: "s1", ProfileID: dave.ID, Kind: session.KindLocal, IssuedAt: now, ExpiresAt: now.Add(time.Hour)},
		}}
		h = NewHandler(login, sessions, store, nil)
	})

	postLogin := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		h.Login(rec, req)
		return rec
	}

	ginkgo.Describe("Login", func() {
		ginkgo.It("returns the session token and profile", func() {
			login.result = &LoginResult{
				Session: &session.Session{ID: "s1", Token: "tok", Kind: session.KindLocal, ExpiresAt: time.Now().Add(time.Hour)},
				Profile: dave,
			}

			rec := postLogin(`{"credential":"dave","secret":"correct-horse"}`)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))

			var resp LoginResponse
			gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(gomega.Succeed())
			gomega.Expect(resp.Session.Token).To(gomega.Equal("tok"))
			gomega.Expect(resp.Profile.Username).To(gomega.Equal("dave"))
		})

		ginkgo.DescribeTable("maps failures to a generic envelope",
			func(err error, status int, code string) {
				login.err = err
				rec := postLogin(`{"credential":"dave","secret":"x"}`)
				gomega.Expect(rec.Code).To(gomega.Equal(status))
				gomega.Expect(decodeError(rec)).To(gomega.Equal(code))
			},
			ginkgo.Entry("invalid credentials", ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"),
			ginkgo.Entry("no profile", ErrNoProfile, http.StatusForbidden, "NO_PROFILE"),
			ginkgo.Entry("unavailable", ErrServiceUnavailable, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"),
			ginkgo.Entry("anything else", errors.New("boom"), http.StatusUnauthorized, "INVALID_CREDENTIALS"),
		)

		ginkgo.It("rejects an empty secret", func() {
			rec := postLogin(`{"credential":"dave","secret":""}`)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
		})

		ginkgo.It("rejects unknown fields", func() {
			rec := postLogin(`{"email":"dave","password":"x"}`)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
		})
	})

	ginkgo.Describe("AuthMiddleware", func() {
		var seen *profile.Profile

		serve := func(authz string) *httptest.ResponseRecorder {
			seen = nil
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen, _ = internal.ProfileFromContext(r.Context())
				w.WriteHeader(http.StatusNoContent)
			})
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if authz != "" {
				req.Header.Set("Authorization", authz)
			}
			rec := httptest.NewRecorder()
			h.AuthMiddleware(next).ServeHTTP(rec, req)
			return rec
		}

		ginkgo.It("attaches the profile for a live session", func() {
			rec := serve("Bearer good")
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusNoContent))
			gomega.Expect(seen).NotTo(gomega.BeNil())
			gomega.Expect(seen.ID).To(gomega.Equal(dave.ID))
		})

		ginkgo.It("rejects a missing token", func() {
			rec := serve("")
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(decodeError(rec)).To(gomega.Equal("SESSION_NOT_FOUND"))
		})

		ginkgo.It("distinguishes an expired session", func() {
			sessions.validateEr = session.ErrSessionExpired
			rec := serve("Bearer good")
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(decodeError(rec)).To(gomega.Equal("SESSION_EXPIRED"))
		})

		ginkgo.It("reports store failures as unavailable", func() {
			sessions.validateEr = errors.New("db down")
			rec := serve("Bearer good")
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusServiceUnavailable))
		})
	})

	ginkgo.Describe("Logout", func() {
		ginkgo.It("revokes the bearer token and returns no content", func() {
			req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
			req.Header.Set("Authorization", "Bearer good")
			rec := httptest.NewRecorder()
			h.Logout(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusNoContent))
			gomega.Expect(sessions.revoked).To(gomega.Equal([]string{"good"}))
		})
	})

	ginkgo.Describe("Refresh", func() {
		ginkgo.It("maps a dead session to 401", func() {
			sessions.refreshErr = session.ErrSessionNotFound
			req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
			req.Header.Set("Authorization", "Bearer good")
			rec := httptest.NewRecorder()
			h.Refresh(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(decodeError(rec)).To(gomega.Equal("SESSION_NOT_FOUND"))
		})
	})

	ginkgo.Describe("Me", func() {
		ginkgo.It("returns the caller with grants and no token", func() {
			req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
			req.Header.Set("Authorization", "Bearer good")
			rec := httptest.NewRecorder()
			h.AuthMiddleware(http.HandlerFunc(h.Me)).ServeHTTP(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			var resp MeResponse
			gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(gomega.Succeed())
			gomega.Expect(resp.Profile.ID).To(gomega.Equal(dave.ID))
			gomega.Expect(resp.Session.Token).To(gomega.BeEmpty())
			gomega.Expect(resp.Grants).NotTo(gomega.BeEmpty())
		})
	})
})
