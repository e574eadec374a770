package vendors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"kailospay.backend/internal/config"
	"kailospay.backend/pkg/metrics"
	"kailospay.backend/pkg/utils"
)

const VendorBizm = "bizm"

// AlimtalkButton is a web-link button attached to a template message.
type AlimtalkButton struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	URLMobile string `json:"url_mobile,omitempty"`
	URLPC     string `json:"url_pc,omitempty"`
}

// AlimtalkMessage is one template message to one phone number.
type AlimtalkMessage struct {
	Phone      string
	Message    string
	TemplateID string
	Buttons    []AlimtalkButton
}

// AlimtalkResult is the vendor acknowledgement.
type AlimtalkResult struct {
	Code    string
	Message string
	Raw     json.RawMessage
}

// BizmClient sends Kakao Alimtalk messages through Bizm.
type BizmClient struct {
	cfg    config.BizmConfig
	caller *caller
}

// NewBizmClient creates a new Bizm adapter.
func NewBizmClient(cfg config.BizmConfig, m *metrics.Metrics) *BizmClient {
	return &BizmClient{
		cfg:    cfg,
		caller: newCaller(VendorBizm, cfg.BaseURL, cfg.Timeout, m),
	}
}

// Enabled reports whether notifications should be attempted at all.
func (c *BizmClient) Enabled() bool {
	return c.cfg.Enabled
}

// TestMode reports whether sends are simulated.
func (c *BizmClient) TestMode() bool {
	return c.cfg.TestMode
}

// ToInternational converts a Korean phone number to the 82-prefixed digits
// the vendor expects.
func ToInternational(phone string) string {
	d := utils.DigitsOnly(phone)
	if strings.HasPrefix(d, "82") {
		return d
	}
	return "82" + strings.TrimPrefix(d, "0")
}

type bizmAnswer struct {
	Code          string `json:"code"`
	Message       string `json:"message"`
	OriginMessage string `json:"originMessage"`
	Data          struct {
		Type string `json:"type"`
	} `json:"data"`
}

// Send delivers one message. Only "success" with data.type AT counts as sent.
func (c *BizmClient) Send(ctx context.Context, msg AlimtalkMessage) (*AlimtalkResult, error) {
	const op = "send"

	if strings.TrimSpace(msg.Message) == "" || utils.DigitsOnly(msg.Phone) == "" {
		return nil, &Error{Vendor: VendorBizm, Op: op, Kind: KindConfig, Err: errors.New("phone and message are required")}
	}
	if c.cfg.TestMode {
		return &AlimtalkResult{Code: "success", Message: "OK", Raw: testModeRaw(map[string]interface{}{"phn": ToInternational(msg.Phone)})}, nil
	}
	if c.cfg.UserID == "" || c.cfg.SenderKey == "" {
		return nil, &Error{Vendor: VendorBizm, Op: op, Kind: KindConfig, Err: errors.New("user id or sender key not configured")}
	}

	templateID := msg.TemplateID
	if templateID == "" {
		templateID = c.cfg.TemplateID
	}
	item := map[string]interface{}{
		"message_type": "at",
		"phn":          ToInternational(msg.Phone),
		"profile":      c.cfg.SenderKey,
		"tmplId":       templateID,
		"msg":          msg.Message,
		"reserveDt":    "00000000000000",
	}
	for i, b := range msg.Buttons {
		item[fmt.Sprintf("button%d", i+1)] = b
	}

	resp, err := c.caller.do(ctx, op, func(r *resty.Request) (*resty.Response, error) {
		return r.SetHeader("Content-Type", "application/json; charset=UTF-8").
			SetHeader("userid", c.cfg.UserID).
			SetBody([]map[string]interface{}{item}).
			Post("/v2/sender/send")
	})
	if err != nil {
		return nil, err
	}

	answer, err := decodeBizm(resp.Body())
	if err != nil {
		return nil, c.caller.fail(ctx, op, KindParse, resp, err)
	}
	raw := json.RawMessage(append([]byte(nil), resp.Body()...))

	if answer.Code == "success" && answer.Data.Type == "AT" {
		return &AlimtalkResult{Code: answer.Code, Message: "OK", Raw: raw}, nil
	}
	reason := answer.Message
	if answer.OriginMessage != "" {
		reason = fmt.Sprintf("%s (%s)", reason, answer.OriginMessage)
	}
	if reason == "" {
		reason = "not delivered"
	}
	return nil, c.caller.fail(ctx, op, KindRejected, resp, errors.New(reason))
}

// decodeBizm reads the first element of the array answer. A bare object is
// accepted as well.
func decodeBizm(body []byte) (*bizmAnswer, error) {
	var list []bizmAnswer
	if err := json.Unmarshal(body, &list); err == nil {
		if len(list) == 0 {
			return nil, errors.New("empty response")
		}
		return &list[0], nil
	}
	var one bizmAnswer
	if err := json.Unmarshal(body, &one); err != nil {
		return nil, err
	}
	return &one, nil
}
