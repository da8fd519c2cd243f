package provider

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jbonatakis/reshai/internal/config"
	"github.com/jbonatakis/reshai/internal/errs"
)

const maxErrorBody = 64 * 1024

// NewHTTPClient builds the client for a channel: connect and overall request
// timeouts from the channel, an optional http or socks5 proxy, and the fixed
// user agent.
func NewHTTPClient(channel config.Channel, proxy *config.Proxy) (*http.Client, error) {
	connect := time.Duration(channel.ConnectTimeoutSeconds) * time.Second
	if connect <= 0 {
		connect = config.DefaultConnectTimeoutSeconds * time.Second
	}
	request := time.Duration(channel.RequestTimeoutSeconds) * time.Second
	if request <= 0 {
		request = config.DefaultRequestTimeoutSeconds * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: connect, KeepAlive: 30 * time.Second}).DialContext
	transport.TLSHandshakeTimeout = connect

	if proxy != nil {
		proxyURL, err := ProxyURL(*proxy)
		if err != nil {
			return nil, err
		}
		transport.Proxy = http.ProxyURL(proxyURL)
		if proxy.IgnoreSSL {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in per proxy
		}
	}

	return &http.Client{
		Timeout:   request,
		Transport: userAgentTransport{base: transport},
	}, nil
}

// ProxyURL renders a proxy entry as a URL understood by net/http, which
// dials socks5 proxies natively.
func ProxyURL(proxy config.Proxy) (*url.URL, error) {
	scheme := strings.ToLower(strings.TrimSpace(proxy.Type))
	switch scheme {
	case "", config.ProxyTypeHTTP:
		scheme = "http"
	case config.ProxyTypeSOCKS5:
	default:
		return nil, errs.Configuration("proxy %q has unsupported type %q", proxy.ID, proxy.Type)
	}
	if strings.TrimSpace(proxy.Host) == "" || proxy.Port <= 0 || proxy.Port > 65535 {
		return nil, errs.Configuration("proxy %q needs a host and a port between 1 and 65535", proxy.ID)
	}

	u := &url.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(proxy.Host, strconv.Itoa(proxy.Port)),
	}
	if proxy.Username != "" {
		u.User = url.UserPassword(proxy.Username, proxy.Password)
	}
	return u, nil
}

type userAgentTransport struct {
	base http.RoundTripper
}

func (t userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.base.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", UserAgent)
	return t.base.RoundTrip(clone)
}

func getJSON(ctx context.Context, target Target, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errs.Configuration("build request for %s: %v", rawURL, err)
	}
	for name, values := range target.Headers {
		req.Header[name] = append([]string(nil), values...)
	}
	req.Header.Del("Content-Type")
	req.Header.Set("Accept", "application/json")

	client := target.Client
	if client == nil {
		client = http.DefaultClient
	}
	return doJSON(client, req)
}

// doJSON performs req and returns the body of a 2xx response.
func doJSON(client *http.Client, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, errs.Transport(err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Transport(fmt.Errorf("read response: %w", err))
	}
	return body, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return errs.Upstream(resp.StatusCode, strings.TrimSpace(string(body)))
}
