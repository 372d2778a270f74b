package tests

import (
	"net/http"
	"testing"

	aisvc "github.com/chatgpa/backend/services/ai"
)

// The chat relay keeps its legacy `{error, detail}` envelope; these tests
// run without an API key, so a valid request stops at the provider check.
func Test_chat(t *testing.T) {
	app, _ := setup(t)

	tests := []httpTest{
		{
			name: "Invalid JSON", body: []byte("{not json"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"error": "invalid_json", "detail": "request body is not valid JSON"}),
		},
		{
			name: "Messages required", body: marchallObj(t, map[string]interface{}{"messages": []interface{}{}}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"error": "validation_error", "detail": "messages are required, each with a valid role and content"}),
		},
		{
			name: "Invalid role", body: marchallObj(t, map[string]interface{}{
				"messages": []aisvc.Message{{Role: "wizard", Content: "hi"}},
			}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"error": "validation_error", "detail": "messages are required, each with a valid role and content"}),
		},
		{
			name: "Unconfigured provider", body: marchallObj(t, map[string]interface{}{
				"messages": []aisvc.Message{{Role: "user", Content: "What is osmosis?"}},
			}),
			wantCode: http.StatusInternalServerError,
			wantData: marchallObj(t, map[string]string{"error": "config_error", "detail": "AI provider is not configured"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// no auth: the relay predates the v1 gateway
			req, rec := newRequest(http.MethodPost, "/api/chat", tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
