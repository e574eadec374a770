package vendors

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"kailospay.backend/internal/config"
	"kailospay.backend/pkg/crypto"
	"kailospay.backend/pkg/metrics"
)

const VendorOneWon = "clova_1won"

const requestIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// OneWonStart is the deposit request for an account.
type OneWonStart struct {
	BankCode  string
	AccountNo string
	Name      string
	Text      string
}

// OneWonStarted carries the vendor job id. Code is the deposit memo the
// account holder has to read back.
type OneWonStarted struct {
	RequestID string
	Code      string
	Raw       json.RawMessage
}

// OneWonConfirmed is the vendor verdict on a read-back code.
type OneWonConfirmed struct {
	Success bool
	Raw     json.RawMessage
}

// OneWonClient drives the 1-won micro-deposit verification.
type OneWonClient struct {
	cfg    config.OneWonConfig
	caller *caller
	now    func() time.Time
}

// NewOneWonClient creates a new 1-won adapter.
func NewOneWonClient(cfg config.OneWonConfig, m *metrics.Metrics) *OneWonClient {
	if cfg.DefaultText == "" {
		cfg.DefaultText = "KP"
	}
	return &OneWonClient{
		cfg:    cfg,
		caller: newCaller(VendorOneWon, cfg.BaseURL, cfg.Timeout, m),
		now:    time.Now,
	}
}

// TestMode reports whether calls are simulated.
func (c *OneWonClient) TestMode() bool {
	return c.cfg.TestMode
}

type oneWonVerifyBody struct {
	RequestID  string `json:"requestId"`
	VerifyType string `json:"verifyType"`
	Text       string `json:"text"`
	BankCode   string `json:"bankCode"`
	AccountNo  string `json:"accountNo"`
	Name       string `json:"name"`
}

type oneWonConfirmBody struct {
	RequestID   string `json:"requestId"`
	VerifyValue string `json:"verifyValue"`
}

type oneWonAnswer struct {
	Result  string `json:"result"`
	Success *bool  `json:"success"`
}

func (a oneWonAnswer) ok() bool {
	return a.Result == clovaSuccess || (a.Success != nil && *a.Success)
}

// Start asks the vendor to send the deposit.
func (c *OneWonClient) Start(ctx context.Context, in OneWonStart) (*OneWonStarted, error) {
	const op = "start"

	requestID, err := c.newRequestID()
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		text = c.cfg.DefaultText
	}

	if c.cfg.TestMode {
		digits, err := crypto.GenerateDigits(6)
		if err != nil {
			return nil, err
		}
		code := "KP-" + digits
		return &OneWonStarted{
			RequestID: requestID,
			Code:      code,
			Raw:       testModeRaw(map[string]interface{}{"result": clovaSuccess, "requestId": requestID, "text": code}),
		}, nil
	}
	if c.cfg.BaseURL == "" {
		return nil, &Error{Vendor: VendorOneWon, Op: op, Kind: KindConfig, Err: errors.New("base url not configured")}
	}

	resp, err := c.caller.do(ctx, op, func(r *resty.Request) (*resty.Response, error) {
		return c.headers(r).
			SetBody(oneWonVerifyBody{
				RequestID:  requestID,
				VerifyType: "TEXT",
				Text:       text,
				BankCode:   in.BankCode,
				AccountNo:  in.AccountNo,
				Name:       in.Name,
			}).
			Post(c.cfg.VerifyPath)
	})
	if err != nil {
		return nil, err
	}

	var answer oneWonAnswer
	if err := json.Unmarshal(resp.Body(), &answer); err != nil {
		return nil, c.caller.fail(ctx, op, KindParse, resp, err)
	}
	if !answer.ok() {
		return nil, c.caller.fail(ctx, op, KindRejected, resp, errors.New("deposit request not accepted"))
	}

	return &OneWonStarted{
		RequestID: requestID,
		Code:      text,
		Raw:       json.RawMessage(append([]byte(nil), resp.Body()...)),
	}, nil
}

// Confirm submits the code read back by the user. A vendor answer that is
// neither success shape counts as a failed confirmation.
func (c *OneWonClient) Confirm(ctx context.Context, requestID, code string) (*OneWonConfirmed, error) {
	const op = "confirm"

	if c.cfg.TestMode {
		return &OneWonConfirmed{
			Success: true,
			Raw:     testModeRaw(map[string]interface{}{"result": clovaSuccess, "requestId": requestID}),
		}, nil
	}
	if c.cfg.BaseURL == "" {
		return nil, &Error{Vendor: VendorOneWon, Op: op, Kind: KindConfig, Err: errors.New("base url not configured")}
	}

	resp, err := c.caller.do(ctx, op, func(r *resty.Request) (*resty.Response, error) {
		return c.headers(r).
			SetBody(oneWonConfirmBody{RequestID: requestID, VerifyValue: code}).
			Post(c.cfg.ConfirmPath)
	})
	if err != nil {
		return nil, err
	}

	raw := json.RawMessage(append([]byte(nil), resp.Body()...))
	var answer oneWonAnswer
	if err := json.Unmarshal(resp.Body(), &answer); err != nil {
		return &OneWonConfirmed{Success: false, Raw: raw}, nil
	}
	return &OneWonConfirmed{Success: answer.ok(), Raw: raw}, nil
}

func (c *OneWonClient) headers(r *resty.Request) *resty.Request {
	r.SetHeader("Content-Type", "application/json")
	if c.cfg.Secret != "" {
		r.SetHeader(c.cfg.SecretHeader, c.cfg.Secret)
	}
	if c.cfg.APIKey != "" {
		r.SetHeader("X-NCP-APIGW-API-KEY", c.cfg.APIKey)
	}
	return r
}

// newRequestID returns onewon_<unix ms>_<6 base36 chars>.
func (c *OneWonClient) newRequestID() (string, error) {
	suffix := make([]byte, 6)
	max := big.NewInt(int64(len(requestIDAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate request id: %w", err)
		}
		suffix[i] = requestIDAlphabet[n.Int64()]
	}
	return fmt.Sprintf("onewon_%d_%s", c.now().UnixMilli(), suffix), nil
}
