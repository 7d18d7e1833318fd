package webserver_test

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/zsprackett/timestream/internal/db"
	"github.com/zsprackett/timestream/internal/forecast"
	"github.com/zsprackett/timestream/internal/stream"
	"github.com/zsprackett/timestream/internal/webserver"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T, secret string) (*webserver.Server, *db.DB) {
	t.Helper()
	return newLoggedTestServer(t, secret, io.Discard)
}

func newLoggedTestServer(t *testing.T, secret string, logOut io.Writer) (*webserver.Server, *db.DB) {
	t.Helper()
	store, err := db.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(logOut, nil))
	srv := webserver.New(store, stream.New(20*time.Millisecond), webserver.Config{
		Port: 0,
		Host: "127.0.0.1",
		Auth: webserver.AuthConfig{JWTSecret: secret},
	}, logger)
	return srv, store
}

func TestListBooksEndpoint(t *testing.T) {
	srv, store := newTestServer(t, "")
	store.AddBook("Snow", 2002, db.Author{Name: "Orhan Pamuk", Country: "Turkey"})
	store.AddBook("Beloved", 1987, db.Author{Name: "Toni Morrison", Country: "USA"})

	req := httptest.NewRequest("GET", "/api/books", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Header().Get("X-Catalog-Modified") == "0" {
		t.Error("expected catalog modification time after writes")
	}
	if w.Header().Get("X-Request-Id") == "" {
		t.Error("expected X-Request-Id header")
	}
	var resp struct {
		Books []db.Book `json:"books"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Books) != 2 {
		t.Fatalf("expected 2 books, got %d", len(resp.Books))
	}
}

func TestListBooksEndpoint_Empty(t *testing.T) {
	srv, _ := newTestServer(t, "")

	req := httptest.NewRequest("GET", "/api/books", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if !strings.Contains(w.Body.String(), `"books":[]`) {
		t.Errorf("expected empty array, got %s", w.Body.String())
	}
}

func TestListBooksEndpoint_ByCountry(t *testing.T) {
	srv, store := newTestServer(t, "")
	store.AddBook("Snow", 2002, db.Author{Name: "Orhan Pamuk", Country: "Turkey"})
	store.AddBook("Beloved", 1987, db.Author{Name: "Toni Morrison", Country: "USA"})

	req := httptest.NewRequest("GET", "/api/books?country=USA", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	var resp struct {
		Books []db.Book `json:"books"`
	}
	json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Books) != 1 || resp.Books[0].Title != "Beloved" {
		t.Fatalf("unexpected books: %+v", resp.Books)
	}
}

func TestGetBookEndpoint(t *testing.T) {
	srv, store := newTestServer(t, "")
	b, _ := store.AddBook("Snow", 2002, db.Author{Name: "Orhan Pamuk"})

	cases := []struct {
		path string
		code int
	}{
		{fmt.Sprintf("/api/books/%d", b.ID), 200},
		{"/api/books/999", 404},
		{"/api/books/abc", 400},
	}
	for _, tc := range cases {
		req := httptest.NewRequest("GET", tc.path, nil)
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)
		if w.Code != tc.code {
			t.Errorf("%s: expected %d, got %d: %s", tc.path, tc.code, w.Code, w.Body.String())
		}
	}
}

func TestAddBookEndpoint_NoSecret(t *testing.T) {
	srv, store := newTestServer(t, "")

	body := `{"title":"Snow","published_year":2002,"author":{"name":"Orhan Pamuk","email":"op@example.com","country":"Turkey"}}`
	req := httptest.NewRequest("POST", "/api/books", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != 201 {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var got db.Book
	json.NewDecoder(w.Body).Decode(&got)
	if got.ID == 0 || got.Author.Country != "Turkey" {
		t.Errorf("unexpected book: %+v", got)
	}
	stored, err := store.GetBook(got.ID)
	if err != nil {
		t.Fatalf("book not stored: %v", err)
	}
	if stored.Title != "Snow" {
		t.Errorf("got %q want Snow", stored.Title)
	}
}

func TestAddBookEndpoint_Validation(t *testing.T) {
	srv, _ := newTestServer(t, "")

	for _, body := range []string{`{"published_year":2002}`, `{not json`} {
		req := httptest.NewRequest("POST", "/api/books", strings.NewReader(body))
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)
		if w.Code != 400 {
			t.Errorf("%s: expected 400, got %d", body, w.Code)
		}
	}
}

func TestAddBookEndpoint_RequiresToken(t *testing.T) {
	srv, _ := newTestServer(t, testSecret)
	body := `{"title":"Snow"}`

	req := httptest.NewRequest("POST", "/api/books", strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != 401 {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	bad, _ := webserver.IssueAccessToken("other-secret", "alice", time.Hour)
	req = httptest.NewRequest("POST", "/api/books", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+bad)
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != 401 {
		t.Fatalf("expected 401 with foreign token, got %d", w.Code)
	}

	good, _ := webserver.IssueAccessToken(testSecret, "alice", time.Hour)
	req = httptest.NewRequest("POST", "/api/books", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+good)
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != 201 {
		t.Fatalf("expected 201 with token, got %d: %s", w.Code, w.Body.String())
	}
}

func TestReadsDoNotRequireToken(t *testing.T) {
	srv, _ := newTestServer(t, testSecret)

	for _, path := range []string{"/api/books", "/api/weatherforecast"} {
		req := httptest.NewRequest("GET", path, nil)
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)
		if w.Code != 200 {
			t.Errorf("%s: expected 200, got %d", path, w.Code)
		}
	}
}

func TestForecastEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, "")

	req := httptest.NewRequest("GET", "/api/weatherforecast", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got []forecast.Forecast
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got) != forecast.Days {
		t.Fatalf("expected %d forecasts, got %d", forecast.Days, len(got))
	}
}

func TestIndexPage(t *testing.T) {
	srv, _ := newTestServer(t, "")

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "/api/sse/time") {
		t.Error("index page should subscribe to the time stream")
	}
}
