package httputil

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewClientSetsUserAgent(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	resp, err := NewClient().Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got != "npsenrich/1.0" {
		t.Errorf("User-Agent = %q, want npsenrich/1.0", got)
	}
}
