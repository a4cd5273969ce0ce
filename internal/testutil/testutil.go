// Package testutil holds fixtures and request helpers shared by tests.
package testutil

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"booklibrary/internal/auth"
	"booklibrary/internal/book"
	"booklibrary/internal/store"

	"github.com/golang-jwt/jwt/v5"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// TestSecret is long enough to pass config validation.
const TestSecret = "test-secret-test-secret-test-secret"

// Fixture books, not yet persisted.
var (
	TheHobbit = book.MustNew(book.Fields{
		Title: "The Hobbit", Author: "J. R. R. Tolkien", ISBN: "9780261102217",
		Genre: "Fantasy", Rating: 5, ReadingState: "read",
	})
	Beloved = book.MustNew(book.Fields{
		Title: "Beloved", Author: "Toni Morrison", ISBN: "9781400033416",
		Genre: "Literary fiction", Rating: 4, ReadingState: "reading",
	})
	Kindred = book.MustNew(book.Fields{
		Title: "Kindred", Author: "Octavia E. Butler", ISBN: "9780807083697",
		Genre: "Science fiction", Rating: 0, ReadingState: "to-read",
	})
)

// NewSQLiteRepo returns a repository over a fresh, migrated in-memory
// database that is closed when the test ends.
func NewSQLiteRepo(t testing.TB) *book.SQLiteRepo {
	t.Helper()
	db, err := store.OpenSQLite(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return book.NewSQLiteRepo(db, 2*time.Second)
}

// GenerateTestToken mints a valid editor token for secret.
func GenerateTestToken(secret string) string {
	token, _, _ := auth.GenerateToken(secret, "test-editor", auth.RoleEditor, time.Hour)
	return token
}

// GenerateExpiredToken mints a token that expired an hour ago.
func GenerateExpiredToken(secret string) string {
	c := auth.Claims{
		Sub:  "test-editor",
		Role: auth.RoleEditor,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	token, _ := t.SignedString([]byte(secret))
	return token
}

// NewRequest creates a request with body encoded as JSON when non-nil.
func NewRequest(method, path string, body any) *http.Request {
	if body == nil {
		return httptest.NewRequest(method, path, nil)
	}
	bodyBytes, _ := json.Marshal(body)
	r := httptest.NewRequest(method, path, bytes.NewReader(bodyBytes))
	r.Header.Set("Content-Type", "application/json")
	return r
}

// NewRequestWithAuth is NewRequest plus a bearer token.
func NewRequestWithAuth(method, path string, body any, token string) *http.Request {
	r := NewRequest(method, path, body)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return r
}

// RecordResponse is a decoded JSON envelope.
type RecordResponse struct {
	Code   int
	Header http.Header
	Body   map[string]any
}

// Data returns the envelope's data object, or nil when it is not an object.
func (r RecordResponse) Data() map[string]any {
	d, _ := r.Body["data"].(map[string]any)
	return d
}

// ErrorCode returns error.code from an error envelope.
func (r RecordResponse) ErrorCode() string {
	e, _ := r.Body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func RecordHTTPResponse(w *httptest.ResponseRecorder) RecordResponse {
	result := w.Result()
	defer result.Body.Close()

	bodyBytes, _ := io.ReadAll(result.Body)

	var bodyMap map[string]any
	if len(bodyBytes) > 0 {
		_ = json.Unmarshal(bodyBytes, &bodyMap)
	}

	return RecordResponse{
		Code:   result.StatusCode,
		Header: result.Header,
		Body:   bodyMap,
	}
}
