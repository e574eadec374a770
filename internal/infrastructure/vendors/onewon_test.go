package vendors

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kailospay.backend/internal/config"
)

func testOneWonConfig(base string) config.OneWonConfig {
	return config.OneWonConfig{
		BaseURL:      base,
		SecretHeader: "X-EKYC-SECRET",
		Secret:       "s3cret",
		APIKey:       "gw-key",
		VerifyPath:   "/account/verify",
		ConfirmPath:  "/account/confirm",
		DefaultText:  "KP",
		Timeout:      2 * time.Second,
	}
}

var oneWonRequestID = regexp.MustCompile(`^onewon_\d+_[0-9a-z]{6}$`)

func TestOneWonClient_Start(t *testing.T) {
	var got oneWonVerifyBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/account/verify", r.URL.Path)
		assert.Equal(t, "s3cret", r.Header.Get("X-EKYC-SECRET"))
		assert.Equal(t, "gw-key", r.Header.Get("X-NCP-APIGW-API-KEY"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"result":"SUCCESS"}`))
	}))
	defer srv.Close()

	c := NewOneWonClient(testOneWonConfig(srv.URL), nil)
	res, err := c.Start(context.Background(), OneWonStart{BankCode: "004", AccountNo: "123-45", Name: "홍길동"})
	require.NoError(t, err)

	assert.Regexp(t, oneWonRequestID, res.RequestID)
	assert.Equal(t, "KP", res.Code)
	assert.Equal(t, res.RequestID, got.RequestID)
	assert.Equal(t, "TEXT", got.VerifyType)
	assert.Equal(t, "KP", got.Text)
	assert.Equal(t, "004", got.BankCode)
	assert.Equal(t, "홍길동", got.Name)
}

func TestOneWonClient_StartRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":"FAIL","message":"bank closed"}`))
	}))
	defer srv.Close()

	_, err := NewOneWonClient(testOneWonConfig(srv.URL), nil).Start(context.Background(), OneWonStart{BankCode: "004", AccountNo: "1", Name: "a"})
	assert.True(t, IsKind(err, KindRejected))
}

func TestOneWonClient_Confirm(t *testing.T) {
	cases := []struct {
		name string
		body string
		want bool
	}{
		{"result success", `{"result":"SUCCESS"}`, true},
		{"success flag", `{"success":true}`, true},
		{"mismatch", `{"result":"FAIL"}`, false},
		{"success false", `{"success":false}`, false},
		{"not json", `oops`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got oneWonConfirmBody
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/account/confirm", r.URL.Path)
				_ = json.NewDecoder(r.Body).Decode(&got)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			res, err := NewOneWonClient(testOneWonConfig(srv.URL), nil).Confirm(context.Background(), "onewon_1_abcdef", "KP")
			require.NoError(t, err)
			assert.Equal(t, tc.want, res.Success)
			assert.Equal(t, "onewon_1_abcdef", got.RequestID)
			assert.Equal(t, "KP", got.VerifyValue)
		})
	}
}

func TestOneWonClient_TestMode(t *testing.T) {
	cfg := testOneWonConfig("")
	cfg.TestMode = true
	c := NewOneWonClient(cfg, nil)

	started, err := c.Start(context.Background(), OneWonStart{BankCode: "004", AccountNo: "1", Name: "a"})
	require.NoError(t, err)
	assert.Regexp(t, `^KP-\d{6}$`, started.Code)
	assert.Regexp(t, oneWonRequestID, started.RequestID)

	confirmed, err := c.Confirm(context.Background(), started.RequestID, "anything")
	require.NoError(t, err)
	assert.True(t, confirmed.Success)
	assert.Contains(t, string(confirmed.Raw), `"testMode":true`)
}

func TestOneWonClient_NotConfigured(t *testing.T) {
	c := NewOneWonClient(testOneWonConfig(""), nil)
	_, err := c.Start(context.Background(), OneWonStart{})
	assert.True(t, IsKind(err, KindConfig))
	_, err = c.Confirm(context.Background(), "x", "y")
	assert.True(t, IsKind(err, KindConfig))
}
