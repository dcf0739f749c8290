package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestWebRepository(t *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "secret" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		w.Write([]byte(testData))
	}))
	defer testServer.Close()

	u, err := url.Parse(testServer.URL + "/base")
	if err != nil {
		t.Fatal(err)
	}

	testCases := []struct {
		name    string
		apiKey  string
		wantErr bool
	}{
		{name: "authorized", apiKey: "secret"},
		{name: "missing key", wantErr: true},
		{name: "wrong key", apiKey: "nope", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &WebRepository{Name: "base", URL: u, APIKey: tc.apiKey}
			err := repo.Refresh(context.Background())
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				if repo.GetRawData() != nil {
					t.Error("expected no data after a failed refresh")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if string(repo.GetRawData()) != testData {
				t.Errorf("expected %q, got %q", testData, repo.GetRawData())
			}
			if trainer, _ := repo.GetData("trainer"); trainer.(map[string]interface{})["lr"] != 0.001 {
				t.Errorf("expected lr 0.001, got %v", trainer)
			}
		})
	}
}

func TestWebRepositoryCanceledContext(t *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testData))
	}))
	defer testServer.Close()

	u, _ := url.Parse(testServer.URL)
	repo := &WebRepository{Name: "base", URL: u}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := repo.Refresh(ctx); err == nil {
		t.Fatal("expected canceled context to fail the refresh")
	}
}
