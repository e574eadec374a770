package vendors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/volatiletech/null/v8"

	"kailospay.backend/internal/config"
	"kailospay.backend/internal/domain/entities"
	"kailospay.backend/pkg/metrics"
)

const VendorApick = "apick"

// Realname answer codes in data.success.
const (
	apickRealnameFailed  = 0
	apickRealnameOK      = 1
	apickRealnameTimeout = 3
)

// RealnameResult is the registered holder of a bank account.
type RealnameResult struct {
	HolderName string
	Success    bool
	Cost       null.Int64
	Raw        json.RawMessage
}

// RegistryJob is an accepted registry issuance.
type RegistryJob struct {
	JobID string
	Cost  null.Int64
	Raw   json.RawMessage
}

// RegistryDownload is one poll of an issuance job. PDF is set only when
// State is ready.
type RegistryDownload struct {
	State entities.RegistryStatus
	PDF   []byte
}

// ApickClient calls the APICK realname and IROS registry endpoints.
type ApickClient struct {
	cfg    config.ApickConfig
	caller *caller
}

// NewApickClient creates a new APICK adapter.
func NewApickClient(cfg config.ApickConfig, m *metrics.Metrics) *ApickClient {
	return &ApickClient{
		cfg:    cfg,
		caller: newCaller(VendorApick, cfg.BaseURL, cfg.Timeout, m),
	}
}

// TestMode reports whether calls are simulated.
func (c *ApickClient) TestMode() bool {
	return c.cfg.TestMode
}

// PollAttempts is the number of download polls a caller should make.
func (c *ApickClient) PollAttempts() int {
	if c.cfg.PollAttempts <= 0 {
		return 1
	}
	return c.cfg.PollAttempts
}

type apickCost struct {
	Cost *int64 `json:"cost"`
}

func (a *apickCost) value() null.Int64 {
	if a == nil || a.Cost == nil {
		return null.Int64{}
	}
	return null.Int64From(*a.Cost)
}

type apickRealnameResponse struct {
	Data struct {
		Holder  string `json:"계좌실명"`
		Success int    `json:"success"`
	} `json:"data"`
	API *apickCost `json:"api"`
}

// Realname looks up the registered holder name of an account.
func (c *ApickClient) Realname(ctx context.Context, bankCode, accountNo string) (*RealnameResult, error) {
	const op = "realname"

	if c.cfg.TestMode {
		return &RealnameResult{Success: true, Raw: testModeRaw(nil)}, nil
	}
	if err := c.configured(op); err != nil {
		return nil, err
	}

	resp, err := c.caller.do(ctx, op, func(r *resty.Request) (*resty.Response, error) {
		return r.SetHeader("CL_AUTH_KEY", c.cfg.AuthKey).
			SetMultipartFormData(map[string]string{
				"account_num": cleanAccountNumber(accountNo),
				"bank_code":   strings.TrimSpace(bankCode),
			}).
			Post(c.cfg.RealnamePath)
	})
	if err != nil {
		return nil, err
	}

	var parsed apickRealnameResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, c.caller.fail(ctx, op, KindParse, resp, err)
	}
	if parsed.Data.Success == apickRealnameTimeout {
		return nil, c.caller.fail(ctx, op, KindTimeout, resp, errors.New("vendor lookup timed out"))
	}

	return &RealnameResult{
		HolderName: strings.TrimSpace(parsed.Data.Holder),
		Success:    parsed.Data.Success == apickRealnameOK,
		Cost:       parsed.API.value(),
		Raw:        json.RawMessage(append([]byte(nil), resp.Body()...)),
	}, nil
}

// apickID accepts ic_id as a JSON string or number.
type apickID string

func (id *apickID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = apickID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = apickID(n.String())
	return nil
}

type apickIssueResponse struct {
	ICID apickID `json:"ic_id"`
	Data struct {
		ICID apickID `json:"ic_id"`
	} `json:"data"`
	API *apickCost `json:"api"`
}

// IssueRegistry starts a billable registry issuance.
func (c *ApickClient) IssueRegistry(ctx context.Context, criteria entities.RegistryCriteria) (*RegistryJob, error) {
	const op = "issue_registry"

	if criteria.Empty() {
		return nil, &Error{Vendor: VendorApick, Op: op, Kind: KindConfig, Err: errors.New("no search criteria")}
	}
	if c.cfg.TestMode {
		return &RegistryJob{JobID: "test-" + criteria.UniqueKey(), Raw: testModeRaw(nil)}, nil
	}
	if err := c.configured(op); err != nil {
		return nil, err
	}

	form := map[string]string{}
	if criteria.Address != "" {
		form["addr"] = criteria.Address
	}
	if criteria.RegNum != "" {
		form["reg_num"] = criteria.RegNum
	}
	if criteria.BizNum != "" {
		form["biz_num"] = criteria.BizNum
	}

	resp, err := c.caller.do(ctx, op, func(r *resty.Request) (*resty.Response, error) {
		return r.SetHeader("CL_AUTH_KEY", c.cfg.AuthKey).
			SetMultipartFormData(form).
			Post(c.cfg.IssuePath)
	})
	if err != nil {
		return nil, err
	}

	var parsed apickIssueResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, c.caller.fail(ctx, op, KindParse, resp, err)
	}
	jobID := string(parsed.ICID)
	if jobID == "" {
		jobID = string(parsed.Data.ICID)
	}
	if jobID == "" {
		return nil, c.caller.fail(ctx, op, KindParse, resp, errors.New("missing ic_id"))
	}

	return &RegistryJob{
		JobID: jobID,
		Cost:  parsed.API.value(),
		Raw:   json.RawMessage(append([]byte(nil), resp.Body()...)),
	}, nil
}

// DownloadRegistry polls a job once. "result: 2" means still processing.
func (c *ApickClient) DownloadRegistry(ctx context.Context, jobID string) (*RegistryDownload, error) {
	const op = "download_registry"

	if c.cfg.TestMode {
		return &RegistryDownload{State: entities.RegistryReady, PDF: testRegistryPDF(jobID)}, nil
	}
	if err := c.configured(op); err != nil {
		return nil, err
	}

	resp, err := c.caller.do(ctx, op, func(r *resty.Request) (*resty.Response, error) {
		return r.SetHeader("CL_AUTH_KEY", c.cfg.AuthKey).
			SetMultipartFormData(map[string]string{"ic_id": jobID}).
			Post(c.cfg.DownloadPath)
	})
	if err != nil {
		return nil, err
	}

	switch strings.TrimSpace(resp.Header().Get("result")) {
	case "2":
		return &RegistryDownload{State: entities.RegistryPending}, nil
	case "1":
		return &RegistryDownload{State: entities.RegistryReady, PDF: resp.Body()}, nil
	}
	if isPDF(resp) {
		return &RegistryDownload{State: entities.RegistryReady, PDF: resp.Body()}, nil
	}
	return &RegistryDownload{State: entities.RegistryFailed}, nil
}

func (c *ApickClient) configured(op string) error {
	if c.cfg.BaseURL == "" || c.cfg.AuthKey == "" {
		return &Error{Vendor: VendorApick, Op: op, Kind: KindConfig, Err: errors.New("base url or auth key not configured")}
	}
	return nil
}

func isPDF(resp *resty.Response) bool {
	if strings.Contains(resp.Header().Get("Content-Type"), "application/pdf") {
		return true
	}
	body := resp.Body()
	return http.DetectContentType(body) == "application/pdf"
}

// cleanAccountNumber keeps digits and dashes only.
func cleanAccountNumber(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func testRegistryPDF(jobID string) []byte {
	return []byte(fmt.Sprintf("%%PDF-1.4\n%% test registry %s\n%%%%EOF\n", jobID))
}
