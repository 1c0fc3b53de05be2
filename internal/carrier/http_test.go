package carrier

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weddingringring/wrr-sub001/internal/config"
)

func newTestClient(serverURL string) Client {
	return NewHTTPClient(config.CarrierConfig{
		AccountSID: "AC000",
		AuthToken:  "secret",
		BaseURL:    serverURL,
		BundleSID:  "BU42",
	}, nil)
}

func TestSearchAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2010-04-01/Accounts/AC000/AvailablePhoneNumbers/GB/Local.json", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("VoiceEnabled"))
		assert.Equal(t, "20", r.URL.Query().Get("AreaCode"))

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "AC000", user)
		assert.Equal(t, "secret", pass)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"available_phone_numbers": []map[string]string{
				{"phone_number": "+442080001111", "locality": "London"},
				{"phone_number": "+442080002222", "locality": "London"},
			},
		})
	}))
	defer srv.Close()

	numbers, err := newTestClient(srv.URL).SearchAvailable(context.Background(), "GB", "20")
	require.NoError(t, err)
	require.Len(t, numbers, 2)
	assert.Equal(t, "+442080001111", numbers[0].PhoneNumber)
}

func TestSearchAvailableEmptyInventory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"available_phone_numbers": []interface{}{}})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).SearchAvailable(context.Background(), "GB", "")
	assert.ErrorIs(t, err, ErrNoInventory)
}

func TestPurchaseSendsFormAndCallbacks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/2010-04-01/Accounts/AC000/IncomingPhoneNumbers.json", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "+442080001111", r.PostForm.Get("PhoneNumber"))
		assert.Equal(t, "https://app.example.com/webhooks/voice", r.PostForm.Get("VoiceUrl"))
		assert.Equal(t, "POST", r.PostForm.Get("VoiceMethod"))
		assert.Equal(t, "https://app.example.com/webhooks/call-status", r.PostForm.Get("StatusCallback"))
		assert.Equal(t, "BU42", r.PostForm.Get("BundleSid"))

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"sid": "PN123", "phone_number": "+442080001111"})
	}))
	defer srv.Close()

	purchased, err := newTestClient(srv.URL).Purchase(context.Background(), "+442080001111", CallbackConfig{
		VoiceURL:          "https://app.example.com/webhooks/voice",
		StatusCallbackURL: "https://app.example.com/webhooks/call-status",
	})
	require.NoError(t, err)
	assert.Equal(t, "PN123", purchased.SID)
	assert.Equal(t, "+442080001111", purchased.PhoneNumber)
}

func TestPurchaseRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"message":"regulatory bundle required"}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Purchase(context.Background(), "+442080001111", CallbackConfig{})
	assert.ErrorIs(t, err, ErrPurchaseRejected)
	assert.False(t, IsTransient(err))
}

func TestServerErrorsAreTransient(t *testing.T) {
	for _, status := range []int{http.StatusInternalServerError, http.StatusBadGateway, http.StatusTooManyRequests} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		_, err := newTestClient(srv.URL).Purchase(context.Background(), "+442080001111", CallbackConfig{})
		assert.True(t, IsTransient(err), "status %d should classify as transient", status)
		srv.Close()
	}
}

func TestReleaseTreatsNotFoundAsSuccess(t *testing.T) {
	var deleted string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		deleted = r.URL.Path
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).Release(context.Background(), "PN123")
	assert.NoError(t, err)
	assert.Equal(t, "/2010-04-01/Accounts/AC000/IncomingPhoneNumbers/PN123.json", deleted)
}

func TestFetchRecordingAuthenticates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "secret", pass)
		w.Header().Set("Content-Type", "audio/mpeg")
		io.WriteString(w, "mp3 bytes")
	}))
	defer srv.Close()

	body, contentType, err := newTestClient(srv.URL).FetchRecording(context.Background(), srv.URL+"/recordings/RE1")
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "mp3 bytes", string(data))
	assert.Equal(t, "audio/mpeg", contentType)
}
