package canonical

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newOracleServer(t *testing.T, reply string, status int, capture *oracleChatRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("path = %s, want /chat/completions suffix", r.URL.Path)
		}
		if capture != nil {
			if err := json.NewDecoder(r.Body).Decode(capture); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		if status != http.StatusOK {
			http.Error(w, "upstream unavailable", status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": reply}},
			},
		})
	}))
}

func TestChatOracleSameProgramme(t *testing.T) {
	var captured oracleChatRequest
	srv := newOracleServer(t, "yes", http.StatusOK, &captured)
	defer srv.Close()

	oracle := NewChatOracle(srv.URL, "test-model", "secret", time.Second)
	same, err := oracle.SameProgramme(context.Background(), "MSc Computer Science", "Computer Science")
	if err != nil {
		t.Fatalf("SameProgramme: %v", err)
	}
	if !same {
		t.Fatal("expected yes reply to report a match")
	}
	if captured.Model != "test-model" {
		t.Errorf("request model = %q, want test-model", captured.Model)
	}
	if captured.Temperature != 0 {
		t.Errorf("request temperature = %v, want 0", captured.Temperature)
	}
	if len(captured.Messages) != 1 || !strings.Contains(captured.Messages[0].Content, "MSc Computer Science") {
		t.Errorf("request messages = %+v, want one message naming both programmes", captured.Messages)
	}
}

func TestChatOracleNegativeReply(t *testing.T) {
	srv := newOracleServer(t, "No", http.StatusOK, nil)
	defer srv.Close()

	oracle := NewChatOracle(srv.URL, "", "", 0)
	same, err := oracle.SameProgramme(context.Background(), "Data Science", "Fine Art")
	if err != nil {
		t.Fatalf("SameProgramme: %v", err)
	}
	if same {
		t.Fatal("expected no reply to report a non-match")
	}
}

func TestChatOracleBlankNames(t *testing.T) {
	srv := newOracleServer(t, "yes", http.StatusOK, nil)
	defer srv.Close()

	oracle := NewChatOracle(srv.URL, "", "", 0)
	same, err := oracle.SameProgramme(context.Background(), "  ", "Computer Science")
	if err != nil {
		t.Fatalf("SameProgramme: %v", err)
	}
	if same {
		t.Fatal("blank name must not match")
	}
}

func TestChatOracleServerError(t *testing.T) {
	srv := newOracleServer(t, "", http.StatusInternalServerError, nil)
	defer srv.Close()

	oracle := NewChatOracle(srv.URL, "", "", 0)
	if _, err := oracle.SameProgramme(context.Background(), "a", "b"); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}

func TestChatOracleDefaults(t *testing.T) {
	oracle := NewChatOracle("", "", "key", 0)
	if got := oracle.ModelName(); got != DefaultOracleModel {
		t.Errorf("ModelName() = %q, want %q", got, DefaultOracleModel)
	}
	if oracle.endpointURL != "https://api.openai.com/v1/chat/completions" {
		t.Errorf("endpointURL = %q", oracle.endpointURL)
	}
}
