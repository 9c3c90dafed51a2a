package payloadschema

import (
	"encoding/json"
	"testing"
)

func TestValidateRunRequestDefaults(t *testing.T) {
	t.Parallel()

	for _, body := range []string{"", "   ", "{}"} {
		request, err := ValidateRunRequest(json.RawMessage(body))
		if err != nil {
			t.Fatalf("ValidateRunRequest(%q): %v", body, err)
		}
		if request.ClearExisting != nil || request.OnlyUnmatched != nil ||
			request.ResumeFromID != nil || request.ResumeFromKind != nil {
			t.Fatalf("ValidateRunRequest(%q) = %+v, want all fields omitted", body, request)
		}
	}
}

func TestValidateRunRequestFullBody(t *testing.T) {
	t.Parallel()

	body := json.RawMessage(`{
		"clear_existing": true,
		"only_unmatched": false,
		"resume_from_id": 42,
		"resume_from_kind": "program_stats"
	}`)
	request, err := ValidateRunRequest(body)
	if err != nil {
		t.Fatalf("ValidateRunRequest: %v", err)
	}
	if request.ClearExisting == nil || !*request.ClearExisting {
		t.Error("clear_existing not decoded")
	}
	if request.OnlyUnmatched == nil || *request.OnlyUnmatched {
		t.Error("only_unmatched not decoded")
	}
	if request.ResumeFromID == nil || *request.ResumeFromID != 42 {
		t.Errorf("resume_from_id = %v, want 42", request.ResumeFromID)
	}
	if request.ResumeFromKind == nil || *request.ResumeFromKind != "program_stats" {
		t.Errorf("resume_from_kind = %v, want program_stats", request.ResumeFromKind)
	}
}

func TestValidateRunRequestRejectsInvalidBodies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed JSON", body: `{"clear_existing":`},
		{name: "trailing content", body: `{} {}`},
		{name: "unknown field", body: `{"purge": true}`},
		{name: "wrong type", body: `{"clear_existing": "yes"}`},
		{name: "unknown kind", body: `{"resume_from_id": 1, "resume_from_kind": "universities"}`},
		{name: "resume id without kind", body: `{"resume_from_id": 7}`},
		{name: "resume kind without id", body: `{"resume_from_kind": "cases"}`},
		{name: "zero resume id", body: `{"resume_from_id": 0, "resume_from_kind": "cases"}`},
		{name: "array body", body: `[1, 2]`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := ValidateRunRequest(json.RawMessage(tt.body)); err == nil {
				t.Fatalf("ValidateRunRequest(%s) succeeded, want error", tt.body)
			}
		})
	}
}
