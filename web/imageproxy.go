package web

import (
	"io"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/machimap/machimap/venue"
)

// DefaultAllowedHosts are the upstream hosts the proxy will fetch from when
// given a raw URL instead of a file identifier.
var DefaultAllowedHosts = []string{
	"drive.google.com",
	"lh3.googleusercontent.com",
}

const proxyCacheControl = "public, max-age=604800" // 7 days

type imageProxy struct {
	client  *http.Client
	allowed map[string]struct{}
	log     *zap.Logger
}

func newImageProxy(client *http.Client, hosts []string, log *zap.Logger) *imageProxy {
	if len(hosts) == 0 {
		hosts = DefaultAllowedHosts
	}

	allowed := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		allowed[h] = struct{}{}
	}

	return &imageProxy{client: client, allowed: allowed, log: log}
}

// handle serves GET /images/proxy?id=<file-id> or ?url=<external-url>,
// streaming the upstream binary with its content type and a long-lived cache
// header. Disallowed hosts and unparseable URLs get structured JSON errors.
func (p *imageProxy) handle(c echo.Context) error {
	id := c.QueryParam("id")
	rawURL := c.QueryParam("url")

	var target string

	switch {
	case id != "":
		target = "https://drive.google.com/uc?id=" + url.QueryEscape(id)
	case rawURL != "":
		if driveID := venue.ExtractDriveID(rawURL); driveID != "" {
			target = "https://drive.google.com/uc?id=" + url.QueryEscape(driveID)

			break
		}

		u, err := url.Parse(rawURL)
		if err != nil || u.Hostname() == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_url"})
		}

		if _, ok := p.allowed[u.Hostname()]; !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "host_not_allowed"})
		}

		target = rawURL
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing_id_or_url"})
	}

	req, err := http.NewRequestWithContext(c.Request().Context(), http.MethodGet, target, nil)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_url"})
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Warn("image proxy upstream fetch failed", zap.Error(err))

		return c.JSON(http.StatusBadGateway, map[string]string{"error": "fetch_failed"})
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.JSON(resp.StatusCode, map[string]any{
			"error":  "fetch_failed",
			"status": resp.StatusCode,
		})
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	c.Response().Header().Set("Cache-Control", proxyCacheControl)
	c.Response().Header().Set(echo.HeaderContentType, contentType)
	c.Response().WriteHeader(http.StatusOK)

	_, err = io.Copy(c.Response(), resp.Body)

	return err
}
