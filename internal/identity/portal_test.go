package identity

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const loginPage = `<html><body>
<form method="post" action="/login">
  <input type="hidden" name="token3" value="abc">
  <input id="user" name="user" type="text">
  <input id="pass" name="pass" type="password">
  <input id="submit" type="submit">
</form>
</body></html>`

const profilePage = `<html><body>
<div class="profilephoto"><img src="/images/students/novak.jpg"></div>
<table class="userprofile">
  <tr><th>Name</th><td><span class="value">Jan Novák</span></td></tr>
  <tr><th>Username</th><td><span class="value">novak</span></td></tr>
  <tr><th>Age</th><td><span class="value">17</span></td></tr>
  <tr><th>Born</th><td><span class="value">1. 1. 2009</span></td></tr>
  <tr><th>Phone</th><td><span class="value">+420 123</span></td></tr>
  <tr><th>Address</th><td><span class="value">Praha</span></td></tr>
  <tr><th>Class</th><td><span class="value">C3b, class teacher X</span></td></tr>
  <tr><th>Empty</th><td></td></tr>
  <tr><th>ID</th><td><span class="value">12345</span></td></tr>
  <tr><th>Email</th><td><a href="mailto:jan@example.com">jan@example.com</a></td></tr>
  <tr><th>School email</th><td><a href="mailto:novak@school.cz">novak@school.cz</a></td></tr>
</table>
</body></html>`

func newPortal(t *testing.T, password string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/student/{username}", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("session"); err == nil && c.Value == "ok" {
			fmt.Fprint(w, profilePage)
			return
		}
		fmt.Fprint(w, loginPage)
	})
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("token3") != "abc" || r.PostForm.Get("pass") != password {
			fmt.Fprint(w, loginPage)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "ok", Path: "/"})
		http.Redirect(w, r, "/", http.StatusFound)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>home</body></html>")
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestPortalVerifierSuccess(t *testing.T) {
	srv := newPortal(t, "secret")
	v, err := NewPortalVerifier(srv.URL, time.Second, zap.NewNop())
	require.NoError(t, err)

	profile, err := v.Verify(context.Background(), "novak", "secret")
	require.NoError(t, err)
	assert.Equal(t, "Jan Novák", profile.Name)
	assert.Equal(t, "novak", profile.Username)
	assert.Equal(t, "C3b", profile.Class)
	assert.Equal(t, "12345", profile.StudentID)
	assert.Equal(t, "jan@example.com", profile.Email)
	assert.Equal(t, "novak@school.cz", profile.SchoolEmail)
	assert.Equal(t, srv.URL+"/images/students/novak.jpg", profile.ImageURL)
}

func TestPortalVerifierWrongPassword(t *testing.T) {
	srv := newPortal(t, "secret")
	v, err := NewPortalVerifier(srv.URL, time.Second, zap.NewNop())
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), "novak", "wrong")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = v.Verify(context.Background(), "novak", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPortalVerifierUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	v, err := NewPortalVerifier(srv.URL, time.Second, zap.NewNop())
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), "novak", "secret")
	assert.ErrorIs(t, err, ErrUnavailable)

	srv.Close()
	_, err = v.Verify(context.Background(), "novak", "secret")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestPortalVerifierUnexpectedPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>maintenance</body></html>")
	}))
	defer srv.Close()

	v, err := NewPortalVerifier(srv.URL, time.Second, zap.NewNop())
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), "novak", "secret")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestPortalVerifierProfileWithoutLoginForm(t *testing.T) {
	var posted atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			posted.Store(true)
		}
		fmt.Fprint(w, profilePage)
	}))
	defer srv.Close()

	v, err := NewPortalVerifier(srv.URL, time.Second, zap.NewNop())
	require.NoError(t, err)

	profile, err := v.Verify(context.Background(), "novak", "wrong-password")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Nil(t, profile)
	assert.False(t, posted.Load())
}

func TestNewPortalVerifierRejectsBadURL(t *testing.T) {
	_, err := NewPortalVerifier("not a url", time.Second, zap.NewNop())
	assert.Error(t, err)
}
