package dto

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestCreateEntryRequest(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		id         int
		wantCode   ErrorCode
		wantValues string
		wantExtra  string
	}{
		{"values", `{"values":{"a":1}}`, 1, "", `{"a":1}`, `{}`},
		{"extra kept", `{"note":"x","values":{},"tag":[1]}`, 1, "", `{}`, `{"note":"x","tag":[1]}`},
		{"upload shaped values", `{"values":{"file_data":"aGk=","file_name":"a"}}`, 1, "", `{"file_data":"aGk=","file_name":"a"}`, `{}`},
		{"missing values", `{"other":1}`, 1, ErrorCodeMissingField, "", ""},
		{"values not object", `{"values":[1]}`, 1, ErrorCodeValidationFailed, "", ""},
		{"body not object", `[1,2]`, 1, ErrorCodeValidationFailed, "", ""},
		{"bad id", `{"values":{}}`, 0, ErrorCodeValidationFailed, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := CreateEntryRequest{DatabaseID: tt.id}
			err := json.Unmarshal([]byte(tt.body), &r)
			if err == nil {
				err = r.Validate()
			}
			if tt.wantCode != "" {
				var ews ErrorWithStatus
				if !errors.As(err, &ews) {
					t.Fatalf("error = %v, want %s", err, tt.wantCode)
				}
				if ews.Code() != tt.wantCode {
					t.Errorf("code = %s, want %s", ews.Code(), tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := mustJSON(t, r.Values); got != tt.wantValues {
				t.Errorf("Values = %s, want %s", got, tt.wantValues)
			}
			if got := mustJSON(t, r.Extra); got != tt.wantExtra {
				t.Errorf("Extra = %s, want %s", got, tt.wantExtra)
			}
		})
	}
}

func TestCreateDatabaseRequest(t *testing.T) {
	var r CreateDatabaseRequest
	if err := r.Validate(); err == nil {
		t.Error("Validate() on empty body should fail")
	}
	if err := json.Unmarshal([]byte(`"name"`), &r); err == nil {
		t.Error("string body should fail")
	}
	if err := json.Unmarshal([]byte(`{"name":"Books","fields":[{"n":"t"}]}`), &r); err != nil {
		t.Fatal(err)
	}
	if err := r.Validate(); err != nil {
		t.Fatal(err)
	}
	if got := mustJSON(t, r.Fields); got != `{"name":"Books","fields":[{"n":"t"}]}` {
		t.Errorf("Fields = %s", got)
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}
