package impl

import (
	"net/url"

	"zonewatch/config"
)

// buildActionURL assembles an absolute action link against a site hostname.
func buildActionURL(cfg *config.Config, hostname, path string, params map[string]string) string {
	if hostname == "" {
		hostname = cfg.Site.DefaultHostname
	}

	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}

	u := url.URL{
		Scheme:   cfg.Site.Scheme,
		Host:     hostname,
		Path:     "/" + path,
		RawQuery: values.Encode(),
	}

	return u.String()
}
