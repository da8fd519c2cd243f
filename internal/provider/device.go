package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/jbonatakis/reshai/internal/errs"
)

const (
	DeviceCodeURL     = "https://github.com/login/device/code"
	AccessTokenURL    = "https://github.com/login/oauth/access_token"
	deviceGrantType   = "urn:ietf:params:oauth:grant-type:device_code"
	deviceScope       = "read:user"
	slowDownIncrement = 5 * time.Second
)

// DeviceCode is the first leg of the device authorization flow. The user
// enters UserCode at VerificationURI.
type DeviceCode struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURI string `json:"verification_uri"`
	ExpiresIn       int    `json:"expires_in"`
	Interval        int    `json:"interval"`
}

type PollStatus int

const (
	PollAuthorized PollStatus = iota
	PollPending
	PollSlowDown
)

// DeviceFlowError is a terminal authorization failure such as
// access_denied or expired_token.
type DeviceFlowError struct {
	Code        string
	Description string
}

func (e *DeviceFlowError) Error() string {
	return fmt.Sprintf("Auth error: %s - %s", e.Code, e.Description)
}

// DeviceFlow talks to the GitHub OAuth device endpoints.
type DeviceFlow struct {
	Client         *http.Client
	ClientID       string
	DeviceCodeURL  string
	AccessTokenURL string

	sleep func(ctx context.Context, d time.Duration) error
}

func NewDeviceFlow(client *http.Client) *DeviceFlow {
	return &DeviceFlow{
		Client:         client,
		ClientID:       CopilotClientID,
		DeviceCodeURL:  DeviceCodeURL,
		AccessTokenURL: AccessTokenURL,
	}
}

func (f *DeviceFlow) Start(ctx context.Context) (DeviceCode, error) {
	body, err := f.post(ctx, f.DeviceCodeURL, map[string]string{
		"client_id": f.ClientID,
		"scope":     deviceScope,
	})
	if err != nil {
		return DeviceCode{}, err
	}

	var code DeviceCode
	if err := json.Unmarshal(body, &code); err != nil {
		return DeviceCode{}, errs.UpstreamCause("decode device code response", err)
	}
	if code.DeviceCode == "" || code.UserCode == "" {
		return DeviceCode{}, errs.Upstream(0, "device code response missing device_code or user_code")
	}
	return code, nil
}

// Poll asks once whether the user has approved the device code. The token is
// set only for PollAuthorized; terminal failures are *DeviceFlowError.
func (f *DeviceFlow) Poll(ctx context.Context, deviceCode string) (string, PollStatus, error) {
	body, err := f.post(ctx, f.AccessTokenURL, map[string]string{
		"client_id":   f.ClientID,
		"device_code": deviceCode,
		"grant_type":  deviceGrantType,
	})
	if err != nil {
		return "", 0, err
	}

	switch code := gjson.GetBytes(body, "error").String(); code {
	case "":
	case "authorization_pending":
		return "", PollPending, nil
	case "slow_down":
		return "", PollSlowDown, nil
	default:
		return "", 0, &DeviceFlowError{
			Code:        code,
			Description: gjson.GetBytes(body, "error_description").String(),
		}
	}

	token := gjson.GetBytes(body, "access_token").String()
	if token == "" {
		return "", 0, errs.Upstream(0, "No access token in response")
	}
	return token, PollAuthorized, nil
}

// Wait polls at the server-provided interval, backing off on slow_down, until
// the user approves, the code expires, a terminal error occurs or ctx ends.
func (f *DeviceFlow) Wait(ctx context.Context, code DeviceCode) (string, error) {
	interval := time.Duration(code.Interval) * time.Second
	if interval <= 0 {
		interval = slowDownIncrement
	}
	var deadline time.Time
	if code.ExpiresIn > 0 {
		deadline = time.Now().Add(time.Duration(code.ExpiresIn) * time.Second)
	}

	sleep := f.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	for {
		if err := sleep(ctx, interval); err != nil {
			return "", err
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return "", &DeviceFlowError{Code: "expired_token", Description: "the device code expired before authorization"}
		}

		token, status, err := f.Poll(ctx, code.DeviceCode)
		if err != nil {
			var transient *errs.Error
			if errors.As(err, &transient) && transient.Kind == errs.KindTransport && ctx.Err() == nil {
				log.Warnf("provider: device poll failed, retrying: %v", err)
				continue
			}
			return "", err
		}
		switch status {
		case PollAuthorized:
			return token, nil
		case PollSlowDown:
			interval += slowDownIncrement
		}
	}
}

func (f *DeviceFlow) post(ctx context.Context, url string, payload map[string]string) ([]byte, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, errs.Configuration("build request for %s: %v", url, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	return doJSON(client, req)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
