package mockapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/nao1215/acprobe/internal/model"
)

func TestServer_Suggest(t *testing.T) {
	t.Parallel()

	s := New([]string{"bob", "alice", "alicia", "al", "", "bob"})

	tests := []struct {
		name   string
		prefix string
		limit  int
		want   []string
	}{
		{name: "sorted subtree", prefix: "al", limit: 10, want: []string{"al", "alice", "alicia"}},
		{name: "limit applied after sorting", prefix: "al", limit: 2, want: []string{"al", "alice"}},
		{name: "no match", prefix: "z", limit: 10, want: []string{}},
		{name: "empty prefix lists all", prefix: "", limit: 10, want: []string{"al", "alice", "alicia", "bob"}},
		{name: "zero limit", prefix: "a", limit: 0, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := s.Suggest(tt.prefix, tt.limit); !slices.Equal(got, tt.want) {
				t.Errorf("Suggest(%q, %d) = %v, want %v", tt.prefix, tt.limit, got, tt.want)
			}
		})
	}

	if s.Len() != 4 {
		t.Errorf("Len() = %d, want 4 (duplicates and blanks ignored)", s.Len())
	}
}

func TestServer_Handler(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(New([]string{"anna", "a b", "abe"}, WithLimitCap(2), WithVersions(model.APIVersionV1)).Handler())
	defer srv.Close()

	get := func(t *testing.T, path string) (*http.Response, Response) {
		t.Helper()
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		defer resp.Body.Close()
		var body Response
		if resp.StatusCode == http.StatusOK {
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
		}
		return resp, body
	}

	t.Run("decodes percent-encoded space", func(t *testing.T) {
		t.Parallel()
		resp, body := get(t, "/v1/autocomplete?query=a%20&max_results=5")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if !slices.Equal(body.Results, []string{"a b"}) || body.Count != 1 || body.Version != "v1" {
			t.Errorf("unexpected body %+v", body)
		}
	})

	t.Run("clamps max_results", func(t *testing.T) {
		t.Parallel()
		_, body := get(t, "/v1/autocomplete?query=a&max_results=50")
		if len(body.Results) != 2 {
			t.Errorf("expected clamp to 2, got %v", body.Results)
		}
	})

	t.Run("unknown version", func(t *testing.T) {
		t.Parallel()
		resp, _ := get(t, "/v2/autocomplete?query=a")
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want 404", resp.StatusCode)
		}
	})

	t.Run("bad max_results", func(t *testing.T) {
		t.Parallel()
		resp, _ := get(t, "/v1/autocomplete?query=a&max_results=lots")
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})
}

func TestServer_RateLimit(t *testing.T) {
	t.Parallel()

	s := New([]string{"x"}, WithRateLimitEvery(2))
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	var statuses []int
	for range 4 {
		resp, err := http.Get(srv.URL + "/v1/autocomplete?query=x")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		statuses = append(statuses, resp.StatusCode)
	}

	want := []int{200, 429, 200, 429}
	if !slices.Equal(statuses, want) {
		t.Errorf("statuses = %v, want %v", statuses, want)
	}
	if s.Requests() != 4 || s.RateLimited() != 2 {
		t.Errorf("Requests() = %d, RateLimited() = %d", s.Requests(), s.RateLimited())
	}
}

func TestLoadWords(t *testing.T) {
	t.Parallel()

	input := "# names\nalice\n\n  bob  \nmary ann\n"
	words, err := LoadWords(strings.NewReader(input))
	if err != nil {
		t.Fatalf("LoadWords() error = %v", err)
	}
	if want := []string{"alice", "bob", "mary ann"}; !slices.Equal(words, want) {
		t.Errorf("LoadWords() = %v, want %v", words, want)
	}
}
