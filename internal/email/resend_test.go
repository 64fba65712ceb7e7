package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"finsight/internal/testutil"
)

func TestResendClientSend(t *testing.T) {
	t.Run("posts_message_to_api", func(t *testing.T) {
		var got resendRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/emails" {
				t.Errorf("expected path /emails, got %s", r.URL.Path)
			}
			if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
				t.Errorf("unexpected authorization header: %s", auth)
			}
			if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
				t.Fatalf("failed to decode request body: %v", err)
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := NewResendClient("test-key", "Finsight <noreply@finsight.app>")
		client.baseURL = server.URL

		err := client.Send(context.Background(), Message{
			To:      "user@test.com",
			Subject: "Hello",
			HTML:    "<p>Hi</p>",
		})
		testutil.AssertNoError(t, err)

		if len(got.To) != 1 || got.To[0] != "user@test.com" {
			t.Errorf("unexpected recipients: %v", got.To)
		}
		if got.From != "Finsight <noreply@finsight.app>" {
			t.Errorf("unexpected from: %s", got.From)
		}
		if got.Subject != "Hello" {
			t.Errorf("unexpected subject: %s", got.Subject)
		}
	})

	t.Run("non_2xx_is_a_delivery_error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
		}))
		defer server.Close()

		client := NewResendClient("test-key", "noreply@finsight.app")
		client.baseURL = server.URL

		err := client.Send(context.Background(), Message{To: "user@test.com"})
		testutil.AssertAppError(t, err, "EMAIL_DELIVERY_FAILED")
	})

	t.Run("unreachable_server_is_a_delivery_error", func(t *testing.T) {
		client := NewResendClient("test-key", "noreply@finsight.app")
		client.baseURL = "http://127.0.0.1:1"

		err := client.Send(context.Background(), Message{To: "user@test.com"})
		testutil.AssertAppError(t, err, "EMAIL_DELIVERY_FAILED")
	})
}
