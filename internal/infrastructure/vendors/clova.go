package vendors

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/volatiletech/null/v8"

	"kailospay.backend/internal/config"
	"kailospay.backend/internal/domain/entities"
	"kailospay.backend/pkg/metrics"
)

const (
	VendorClova = "clova"

	clovaSuccess = "SUCCESS"
)

// IdentityResult is the normalized outcome of an id-card check.
type IdentityResult struct {
	Verified       bool
	Score          null.Float64
	State          string
	Name           string
	Raw            json.RawMessage
	QualityReasons []string
}

// ClovaClient calls the CLOVA eKYC id-card endpoint.
type ClovaClient struct {
	cfg    config.ClovaConfig
	url    string
	caller *caller
	now    func() time.Time
}

// NewClovaClient creates a new CLOVA adapter.
func NewClovaClient(cfg config.ClovaConfig, m *metrics.Metrics) *ClovaClient {
	if cfg.FileField == "" {
		cfg.FileField = "file"
	}
	return &ClovaClient{
		cfg:    cfg,
		url:    NormalizeIDCardURL(cfg.IDCardURL),
		caller: newCaller(VendorClova, "", cfg.Timeout, m),
		now:    time.Now,
	}
}

// TestMode reports whether calls are simulated.
func (c *ClovaClient) TestMode() bool {
	return c.cfg.TestMode
}

// NormalizeIDCardURL fixes the common misconfigurations of the id-card URL:
// a legacy /document/id-card path, a trailing slash and a missing /ocr suffix.
func NormalizeIDCardURL(raw string) string {
	u := strings.TrimSpace(raw)
	u = strings.Replace(u, "/document/id-card", "/id-card", 1)
	u = strings.TrimRight(u, "/")
	if strings.HasSuffix(u, "/id-card") {
		u += "/ocr"
	}
	return u
}

type clovaEnvelope struct {
	Version   string              `json:"version"`
	RequestID string              `json:"requestId"`
	Timestamp int64               `json:"timestamp"`
	Images    []clovaEnvelopeItem `json:"images"`
}

type clovaEnvelopeItem struct {
	Format string `json:"format"`
	Name   string `json:"name"`
}

// VerifyIDCard submits the image and evaluates the vendor answer.
func (c *ClovaClient) VerifyIDCard(ctx context.Context, doc entities.IdentityDocument) (*IdentityResult, error) {
	const op = "verify_idcard"

	if c.cfg.TestMode {
		return &IdentityResult{
			Verified: true,
			Score:    null.Float64From(1.0),
			State:    clovaSuccess,
			Raw:      testModeRaw(nil),
		}, nil
	}
	if c.url == "" {
		return nil, &Error{Vendor: VendorClova, Op: op, Kind: KindConfig, Err: errors.New("id-card url not configured")}
	}
	if len(doc.Content) == 0 {
		return nil, &Error{Vendor: VendorClova, Op: op, Kind: KindConfig, Err: errors.New("empty image")}
	}

	now := c.now()
	envelope, err := json.Marshal(clovaEnvelope{
		Version:   "V2",
		RequestID: fmt.Sprintf("req-%d", now.UnixMilli()),
		Timestamp: now.UnixMilli(),
		Images:    []clovaEnvelopeItem{{Format: imageFormat(doc.ContentType), Name: "idcard"}},
	})
	if err != nil {
		return nil, err
	}

	filename := doc.Filename
	if filename == "" {
		filename = "idcard." + imageFormat(doc.ContentType)
	}

	resp, err := c.caller.do(ctx, op, func(r *resty.Request) (*resty.Response, error) {
		r.SetHeader("Accept", "application/json").
			SetMultipartFormData(map[string]string{"message": string(envelope)}).
			SetMultipartField(c.cfg.FileField, filename, doc.ContentType, bytes.NewReader(doc.Content))
		if c.cfg.Secret != "" {
			r.SetHeader(c.cfg.SecretHeader, c.cfg.Secret)
		}
		if c.cfg.APIKey != "" {
			r.SetHeader("x-ncp-apigw-api-key", c.cfg.APIKey)
		}
		return r.Post(c.url)
	})
	if err != nil {
		return nil, err
	}

	parsed, err := parseClova(resp.Body())
	if err != nil {
		return nil, c.caller.fail(ctx, op, KindParse, resp, err)
	}

	result := c.evaluate(parsed)
	result.Raw = json.RawMessage(append([]byte(nil), resp.Body()...))
	return result, nil
}

func imageFormat(contentType string) string {
	if i := strings.LastIndex(contentType, "/"); i >= 0 && i < len(contentType)-1 {
		return strings.ToLower(contentType[i+1:])
	}
	return "jpg"
}

// clovaText accepts both a plain string and the OCR field shape
// [{"text": "..."}] used by the id-card API.
type clovaText string

func (t *clovaText) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = clovaText(s)
		return nil
	}
	var parts []struct {
		Text      string `json:"text"`
		Formatted struct {
			Value string `json:"value"`
		} `json:"formatted"`
	}
	if err := json.Unmarshal(b, &parts); err != nil {
		return err
	}
	var sb strings.Builder
	for _, p := range parts {
		if p.Formatted.Value != "" {
			sb.WriteString(p.Formatted.Value)
			continue
		}
		sb.WriteString(p.Text)
	}
	*t = clovaText(sb.String())
	return nil
}

type clovaPerson struct {
	Name        clovaText `json:"name"`
	PersonalNum clovaText `json:"personalNum"`
	AlienRegNum clovaText `json:"alienRegNum"`
}

func (p *clovaPerson) idNumber() string {
	if p.PersonalNum != "" {
		return string(p.PersonalNum)
	}
	return string(p.AlienRegNum)
}

type clovaQuality struct {
	Face *struct {
		Confidence *float64 `json:"confidence"`
	} `json:"face"`
	Document *struct {
		Angle *struct {
			Roll  float64 `json:"roll"`
			Pitch float64 `json:"pitch"`
			Yaw   float64 `json:"yaw"`
		} `json:"angle"`
		Coverage *float64 `json:"coverage"`
		Multiple bool     `json:"multiple"`
		Detected *bool    `json:"detected"`
	} `json:"document"`
	Quality *struct {
		GlareScore *float64 `json:"glareScore"`
		Sharpness  *float64 `json:"sharpness"`
		Brightness *float64 `json:"brightness"`
	} `json:"quality"`
}

type clovaIDCardResult struct {
	IsConfident *bool        `json:"isConfident"`
	Confidence  *float64     `json:"confidence"`
	IC          *clovaPerson `json:"ic"`
	DL          *clovaPerson `json:"dl"`
	AC          *clovaPerson `json:"ac"`
	clovaQuality
}

type clovaIDCard struct {
	Result *clovaIDCardResult `json:"result"`
}

type clovaImage struct {
	InferResult string       `json:"inferResult"`
	Message     string       `json:"message"`
	IDCard      *clovaIDCard `json:"idCard"`
}

type clovaResponse struct {
	Result json.RawMessage `json:"result"`
	IDCard *clovaIDCard    `json:"idCard"`
	Images []clovaImage    `json:"images"`
}

// clovaParsed is the single shape every vendor variant is reduced to.
type clovaParsed struct {
	Code   string
	Card   *clovaIDCardResult
	Person *clovaPerson
}

func parseClova(body []byte) (*clovaParsed, error) {
	var resp clovaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	out := &clovaParsed{}
	var topCode string
	if len(resp.Result) > 0 {
		_ = json.Unmarshal(resp.Result, &topCode)
	}

	switch {
	case len(resp.Images) > 0:
		img := resp.Images[0]
		out.Code = img.InferResult
		if out.Code == "" {
			out.Code = topCode
		}
		if img.IDCard != nil {
			out.Card = img.IDCard.Result
		}
	case resp.IDCard != nil || topCode != "":
		out.Code = topCode
		if resp.IDCard != nil {
			out.Card = resp.IDCard.Result
		}
	default:
		return nil, errors.New("unrecognized response shape")
	}

	if out.Card != nil {
		for _, p := range []*clovaPerson{out.Card.IC, out.Card.DL, out.Card.AC} {
			if p != nil {
				out.Person = p
				break
			}
		}
	}
	return out, nil
}

func (c *ClovaClient) evaluate(p *clovaParsed) *IdentityResult {
	res := &IdentityResult{State: p.Code}
	if p.Card != nil && p.Card.Confidence != nil {
		res.Score = null.Float64From(*p.Card.Confidence)
	}
	if p.Person != nil {
		res.Name = strings.TrimSpace(string(p.Person.Name))
	}

	if p.Code != clovaSuccess || p.Card == nil || p.Person == nil {
		return res
	}
	if p.Card.IsConfident == nil || !*p.Card.IsConfident {
		return res
	}
	if res.Name == "" || strings.TrimSpace(p.Person.idNumber()) == "" {
		return res
	}
	if res.Score.Valid && res.Score.Float64 < c.cfg.MinConfidence {
		return res
	}
	if c.cfg.QualityGuard {
		res.QualityReasons = qualityReasons(&p.Card.clovaQuality, c.cfg.Quality)
		if len(res.QualityReasons) > 0 {
			return res
		}
	}

	res.Verified = true
	return res
}

// qualityReasons lists every threshold the image misses. A response without
// quality metrics cannot pass the guard.
func qualityReasons(q *clovaQuality, t config.QualityThresholds) []string {
	if q.Face == nil && q.Document == nil && q.Quality == nil {
		return []string{"quality_unavailable"}
	}

	var reasons []string
	if q.Face != nil && q.Face.Confidence != nil && *q.Face.Confidence < t.MinFaceConfidence {
		reasons = append(reasons, fmt.Sprintf("faceConf<%.2f", t.MinFaceConfidence))
	}
	if d := q.Document; d != nil {
		if d.Detected != nil && !*d.Detected {
			reasons = append(reasons, "document_not_detected")
		}
		if d.Multiple {
			reasons = append(reasons, "multiple_documents")
		}
		if a := d.Angle; a != nil {
			worst := math.Max(math.Abs(a.Roll), math.Max(math.Abs(a.Pitch), math.Abs(a.Yaw)))
			if worst > t.MaxAngleDeg {
				reasons = append(reasons, fmt.Sprintf("angle>±%.0f", t.MaxAngleDeg))
			}
		}
		if d.Coverage != nil && *d.Coverage < t.MinDocCoverage {
			reasons = append(reasons, fmt.Sprintf("docCover<%.2f", t.MinDocCoverage))
		}
	}
	if ql := q.Quality; ql != nil {
		if ql.GlareScore != nil && *ql.GlareScore > t.MaxGlare {
			reasons = append(reasons, fmt.Sprintf("glare>%.2f", t.MaxGlare))
		}
		if ql.Sharpness != nil && *ql.Sharpness < t.MinSharpness {
			reasons = append(reasons, fmt.Sprintf("sharp<%.2f", t.MinSharpness))
		}
		if ql.Brightness != nil && (*ql.Brightness < t.MinBrightness || *ql.Brightness > t.MaxBrightness) {
			reasons = append(reasons, fmt.Sprintf("brightness∉[%.2f,%.2f]", t.MinBrightness, t.MaxBrightness))
		}
	}
	return reasons
}
