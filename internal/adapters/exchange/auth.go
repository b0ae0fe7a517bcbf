package exchange

// auth.go: firma de requests privadas.
//
// Cada request firmada lleva timestamp y recvWindow en la query; la firma es
// HMAC-SHA256(secret, query) en hex, añadida como parámetro `signature`.
// La API key va en la cabecera X-MBX-APIKEY (ver doWithRetry).

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/time/rate"
)

var errNoCredentials = errors.New("exchange: api key/secret not configured")

// sign devuelve la query firmada.
func (c *Client) sign(params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	params.Set("timestamp", strconv.FormatInt(c.now().UnixMilli(), 10))
	params.Set("recvWindow", strconv.FormatInt(c.cfg.RecvWindow.Milliseconds(), 10))

	query := params.Encode()
	mac := hmac.New(sha256.New, []byte(c.cfg.APISecret))
	mac.Write([]byte(query))
	return query + "&signature=" + hex.EncodeToString(mac.Sum(nil))
}

// doSigned hace una request firmada. La firma se recalcula en cada intento
// porque el timestamp caduca tras recvWindow.
func (c *Client) doSigned(ctx context.Context, limiter *rate.Limiter, retries int, method, path string, params url.Values, out any) error {
	if !c.HasCredentials() {
		return errNoCredentials
	}
	return c.doWithRetry(ctx, limiter, retries, func() (*http.Request, error) {
		p := url.Values{}
		for k, v := range params {
			p[k] = append([]string(nil), v...)
		}
		return http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path+"?"+c.sign(p), nil)
	}, out)
}
