package infra

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"
)

// NewHTTPClient returns a client with the given timeout. When the PROXY_*
// environment variables are set, requests are routed through that
// authenticated HTTPS proxy; with none set the client dials directly.
// Partially configured proxy settings fail fast rather than silently
// bypassing the proxy.
func NewHTTPClient(timeout time.Duration) (*http.Client, error) {
	proxyURL, err := proxyFromEnv()
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: timeout}
	if proxyURL != nil {
		client.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	}
	return client, nil
}

func proxyFromEnv() (*url.URL, error) {
	username := os.Getenv("PROXY_USERNAME")
	password := os.Getenv("PROXY_PASSWORD")
	host := os.Getenv("PROXY_HOST")
	port := os.Getenv("PROXY_PORT")

	if username == "" && password == "" && host == "" && port == "" {
		return nil, nil
	}
	if username == "" || password == "" || host == "" || port == "" {
		return nil, fmt.Errorf("incomplete proxy config: PROXY_USERNAME, PROXY_PASSWORD, PROXY_HOST and PROXY_PORT must all be set")
	}

	return &url.URL{
		Scheme: "http",
		User:   url.UserPassword(username, password),
		Host:   host + ":" + port,
	}, nil
}
