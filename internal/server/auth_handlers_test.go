package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"chitchat/internal/config"
	"chitchat/internal/models"
	"chitchat/internal/repository"
	"chitchat/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// stubUserRepo covers the handful of methods the auth flows touch.
type stubUserRepo struct {
	repository.UserRepository

	findByEmailFn func(email string) (*models.User, error)
	insertFn      func(u *models.User) (primitive.ObjectID, error)
}

func (s *stubUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return s.findByEmailFn(email)
}

func (s *stubUserRepo) Insert(_ context.Context, u *models.User) (primitive.ObjectID, error) {
	if s.insertFn != nil {
		return s.insertFn(u)
	}
	return primitive.NewObjectID(), nil
}

type noopMailer struct{}

func (noopMailer) Send(_, _, _ string) error { return nil }

func newAuthTestServer(users repository.UserRepository) (*Server, *fiber.App) {
	cfg := &config.Config{JWTSecret: "test_secret", Env: "test"}
	s := &Server{config: cfg}
	s.userService = service.NewUserService(users, nil, nil, noopMailer{}, cfg.JWTSecret)

	app := fiber.New()
	app.Post("/signup", s.Signup)
	app.Post("/login", s.Login)
	app.Post("/verify-otp", s.VerifyOTP)
	return s, app
}

func postJSON(t *testing.T, app *fiber.App, path string, body map[string]string) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestSignupHandler(t *testing.T) {
	t.Parallel()

	t.Run("created with refresh cookie", func(t *testing.T) {
		t.Parallel()
		users := &stubUserRepo{
			findByEmailFn: func(string) (*models.User, error) { return nil, repository.ErrNotFound },
		}
		_, app := newAuthTestServer(users)

		resp := postJSON(t, app, "/signup", map[string]string{
			"firstName": "Ada",
			"lastName":  "Lovelace",
			"email":     "ada@example.com",
			"password":  "password1",
		})
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var hasRefresh bool
		for _, cookie := range resp.Cookies() {
			if cookie.Name == refreshCookieName {
				hasRefresh = true
				assert.True(t, cookie.HttpOnly)
				assert.NotEmpty(t, cookie.Value)
			}
		}
		assert.True(t, hasRefresh)

		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.NotEmpty(t, body["accessToken"])
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		t.Parallel()
		users := &stubUserRepo{
			findByEmailFn: func(email string) (*models.User, error) {
				return &models.User{Email: email}, nil
			},
		}
		_, app := newAuthTestServer(users)

		resp := postJSON(t, app, "/signup", map[string]string{
			"firstName": "Ada",
			"lastName":  "Lovelace",
			"email":     "ada@example.com",
			"password":  "password1",
		})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("invalid body rejected", func(t *testing.T) {
		t.Parallel()
		_, app := newAuthTestServer(&stubUserRepo{})

		req := httptest.NewRequest("POST", "/signup", bytes.NewReader([]byte("{broken")))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestLoginHandler(t *testing.T) {
	t.Parallel()

	hash, err := bcrypt.GenerateFromPassword([]byte("password1"), bcrypt.MinCost)
	require.NoError(t, err)
	users := &stubUserRepo{
		findByEmailFn: func(email string) (*models.User, error) {
			if email != "ada@example.com" {
				return nil, repository.ErrNotFound
			}
			return &models.User{Email: email, Password: string(hash)}, nil
		},
	}
	_, app := newAuthTestServer(users)

	t.Run("success", func(t *testing.T) {
		resp := postJSON(t, app, "/login", map[string]string{
			"email": "ada@example.com", "password": "password1",
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("wrong password", func(t *testing.T) {
		resp := postJSON(t, app, "/login", map[string]string{
			"email": "ada@example.com", "password": "nope-nope",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
