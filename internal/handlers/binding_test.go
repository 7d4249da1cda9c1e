package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type bindTestPayload struct {
	Amount float64 `json:"amount"`
	Notes  string  `json:"notes"`
}

func newBindContext(t *testing.T, body string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	req, err := http.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	assert.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c
}

func TestBindNestedOrFlat(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		key        string
		wantErr    bool
		wantAmount float64
		wantNotes  string
	}{
		{
			name:       "nested structure",
			body:       `{"loan": {"amount": 1500.50, "notes": "first disbursement"}}`,
			key:        "loan",
			wantAmount: 1500.50,
			wantNotes:  "first disbursement",
		},
		{
			name:       "flat structure",
			body:       `{"amount": 200, "notes": "cash"}`,
			key:        "loan",
			wantAmount: 200,
			wantNotes:  "cash",
		},
		{
			name:       "nested key missing falls back to flat",
			body:       `{"amount": 75.25}`,
			key:        "repayment",
			wantAmount: 75.25,
		},
		{
			name:       "different nested key is ignored",
			body:       `{"repayment": {"amount": 300}}`,
			key:        "loan",
			wantAmount: 0,
		},
		{
			name:    "invalid json",
			body:    `{"loan": `,
			key:     "loan",
			wantErr: true,
		},
		{
			name:    "nested value with wrong types",
			body:    `{"loan": {"amount": "not-a-number"}}`,
			key:     "loan",
			wantErr: true,
		},
		{
			name:    "nested key holds a scalar",
			body:    `{"loan": 42}`,
			key:     "loan",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newBindContext(t, tt.body)

			var payload bindTestPayload
			err := BindNestedOrFlat(c, tt.key, &payload)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantAmount, payload.Amount)
			assert.Equal(t, tt.wantNotes, payload.Notes)
		})
	}
}

func TestBindNestedOrFlat_BodyCanBeReadAgain(t *testing.T) {
	c := newBindContext(t, `{"loan": {"amount": 10}}`)

	var first, second bindTestPayload
	assert.NoError(t, BindNestedOrFlat(c, "loan", &first))
	assert.NoError(t, BindNestedOrFlat(c, "loan", &second))
	assert.Equal(t, first.Amount, second.Amount)
}
