package vendors

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"kailospay.backend/internal/config"
	"kailospay.backend/internal/domain/entities"
	"kailospay.backend/pkg/metrics"
)

const (
	VendorEzPG = "ezpg"

	// EzPGApprovedCode is the result code of an approved authorization.
	EzPGApprovedCode = "0000"

	ediDateLayout = "20060102150405"
)

var (
	approvedFormPattern = regexp.MustCompile(`(?:^|[&\s])resultCd=0000(?:$|[&\s])`)
	approvedJSONPattern = regexp.MustCompile(`"resultCd"\s*:\s*"0000"`)
)

// GatewayApproval is the result of the server-side approval call.
type GatewayApproval struct {
	Approved      bool
	HTTPStatus    int
	ResultCode    string
	ResultMessage string
	Raw           string
}

// AuthOrder is everything needed to open the hosted payment page.
type AuthOrder struct {
	OrderID    string
	Amount     int64
	Title      string
	Method     entities.PaymentMethod
	BuyerName  string
	BuyerTel   string
	BuyerEmail string
	ClientIP   string
	Reserved   string
	ReturnURL  string
}

// EzPGClient signs hosted-payment forms and approves authorizations.
type EzPGClient struct {
	cfg      config.EzPGConfig
	caller   *caller
	location *time.Location
	now      func() time.Time
}

// NewEzPGClient creates a new EzPG adapter.
func NewEzPGClient(cfg config.EzPGConfig, m *metrics.Metrics) *EzPGClient {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		loc = time.FixedZone("KST", 9*60*60)
	}
	return &EzPGClient{
		cfg:      cfg,
		caller:   newCaller(VendorEzPG, "", cfg.Timeout, m),
		location: loc,
		now:      time.Now,
	}
}

// TestMode reports whether approvals are simulated.
func (c *EzPGClient) TestMode() bool {
	return c.cfg.TestMode
}

func sha256hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func (c *EzPGClient) requestURL() string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + c.cfg.RequestPath
}

func (c *EzPGClient) approvalURL() string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + c.cfg.ApprovalPath
}

// BuildAuthForm returns the signed form the browser posts to the gateway.
func (c *EzPGClient) BuildAuthForm(order AuthOrder) (*entities.GatewayAuthForm, error) {
	if c.cfg.MID == "" || c.cfg.MerchantKey == "" {
		return nil, &Error{Vendor: VendorEzPG, Op: "auth_form", Kind: KindConfig, Err: errors.New("mid or merchant key not configured")}
	}

	ediDate := c.now().In(c.location).Format(ediDateLayout)
	goodsAmt := strconv.FormatInt(order.Amount, 10)

	payMethod := "CARD"
	if order.Method == entities.PaymentMethodVacnt {
		payMethod = "VACNT"
	}

	returnURL := c.cfg.ReturnURL
	if order.ReturnURL != "" {
		returnURL = order.ReturnURL
	}

	fields := map[string]string{
		"payMethod":   payMethod,
		"mid":         c.cfg.MID,
		"goodsNm":     order.Title,
		"ordNo":       order.OrderID,
		"goodsAmt":    goodsAmt,
		"ordNm":       order.BuyerName,
		"ordTel":      order.BuyerTel,
		"ordEmail":    order.BuyerEmail,
		"ordIp":       order.ClientIP,
		"mbsReserved": order.Reserved,
		"returnUrl":   returnURL,
		"ediDate":     ediDate,
		"hashString":  sha256hex(c.cfg.MID + ediDate + goodsAmt + c.cfg.MerchantKey),
	}

	return &entities.GatewayAuthForm{
		ActionURL: c.requestURL(),
		Method:    "POST",
		Fields:    fields,
	}, nil
}

// VerifyCallbackSignature checks signData = sha256(tid+mid+ediDate+goodsAmt+ordNo+key).
func (c *EzPGClient) VerifyCallbackSignature(p entities.GatewayReturn) bool {
	if p.SignData == "" || c.cfg.MerchantKey == "" {
		return false
	}
	want := sha256hex(p.TID + p.MID + p.EdiDate + p.GoodsAmt + p.OrdNo + c.cfg.MerchantKey)
	got := strings.ToLower(strings.TrimSpace(p.SignData))
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}

// Approve asks the gateway to capture an authorized payment.
func (c *EzPGClient) Approve(ctx context.Context, p entities.GatewayReturn) (*GatewayApproval, error) {
	const op = "approve"

	if c.cfg.TestMode {
		return &GatewayApproval{
			Approved:   true,
			ResultCode: EzPGApprovedCode,
			Raw:        string(testModeRaw(map[string]interface{}{"resultCd": EzPGApprovedCode, "tid": p.TID})),
		}, nil
	}

	target, err := c.resolveApprovalURL(p.ApprovalURL)
	if err != nil {
		return nil, &Error{Vendor: VendorEzPG, Op: op, Kind: KindRejected, Err: err}
	}

	form := map[string]string{
		"nonce":      p.Nonce,
		"tid":        p.TID,
		"ediDate":    p.EdiDate,
		"mid":        c.cfg.MID,
		"goodsAmt":   p.GoodsAmt,
		"hashString": sha256hex(c.cfg.MID + p.EdiDate + p.GoodsAmt + c.cfg.MerchantKey),
		"payData":    p.PayData,
	}
	if p.MbsReserved != "" {
		form["mbsReserved"] = p.MbsReserved
	}

	resp, err := c.caller.do(ctx, op, func(r *resty.Request) (*resty.Response, error) {
		return r.SetFormData(form).Post(target)
	})
	if err != nil {
		var ve *Error
		if errors.As(err, &ve) && ve.HTTPStatus != 0 && resp != nil {
			return &GatewayApproval{HTTPStatus: resp.StatusCode(), Raw: resp.String()}, nil
		}
		return nil, err
	}

	body := resp.String()
	approval := &GatewayApproval{
		HTTPStatus: resp.StatusCode(),
		Raw:        body,
		Approved:   approvedFormPattern.MatchString(body) || approvedJSONPattern.MatchString(body),
	}
	approval.ResultCode, approval.ResultMessage = approvalResult(body)
	return approval, nil
}

// resolveApprovalURL accepts the callback-supplied URL only when it points
// at the configured gateway host.
func (c *EzPGClient) resolveApprovalURL(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return c.approvalURL(), nil
	}
	base, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid gateway base url: %w", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid approval url: %w", err)
	}
	if !strings.EqualFold(u.Host, base.Host) || !strings.EqualFold(u.Scheme, base.Scheme) {
		return "", fmt.Errorf("approval url host %q is not the gateway host", u.Host)
	}
	return u.String(), nil
}

func approvalResult(body string) (code, message string) {
	var js struct {
		ResultCd  string `json:"resultCd"`
		ResultMsg string `json:"resultMsg"`
	}
	if json.Unmarshal([]byte(body), &js) == nil && js.ResultCd != "" {
		return js.ResultCd, js.ResultMsg
	}
	if values, err := url.ParseQuery(strings.TrimSpace(body)); err == nil {
		return values.Get("resultCd"), values.Get("resultMsg")
	}
	return "", ""
}
