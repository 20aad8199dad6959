package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/burntcarrot/slatepad/commons"
	"github.com/burntcarrot/slatepad/merge"
	"github.com/gorilla/websocket"
)

// apiClient talks to a slatepad server.
type apiClient struct {
	base   url.URL
	ws     url.URL
	http   *http.Client
	dialer websocket.Dialer
}

func newAPIClient(flags Flags) *apiClient {
	httpScheme, wsScheme := "http", "ws"
	if flags.Secure {
		httpScheme, wsScheme = "https", "wss"
	}
	return &apiClient{
		base:   url.URL{Scheme: httpScheme, Host: flags.Server},
		ws:     url.URL{Scheme: wsScheme, Host: flags.Server, Path: "/ws"},
		http:   &http.Client{Timeout: 10 * time.Second},
		dialer: websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

func (c *apiClient) endpoint(path string) string {
	u := c.base
	u.Path = path
	return u.String()
}

// Login asks the server's login stub for an identity.
func (c *apiClient) Login(ctx context.Context, name string) (commons.Identity, error) {
	var id commons.Identity
	err := c.do(ctx, http.MethodPost, "/login", map[string]string{"name": name}, &id)
	return id, err
}

// GetData fetches the canonical document.
func (c *apiClient) GetData(ctx context.Context) (merge.Document, error) {
	var doc merge.Document
	err := c.do(ctx, http.MethodGet, "/getData", nil, &doc)
	return doc, err
}

// SendData submits a snapshot. Data is only set when this request drained the server's queue.
func (c *apiClient) SendData(ctx context.Context, doc merge.Document) (commons.Response, error) {
	var resp commons.Response
	err := c.do(ctx, http.MethodPost, "/sendData", doc, &resp)
	return resp, err
}

func (c *apiClient) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return fmt.Errorf("%s %s: %s: %s", method, path, res.Status, bytes.TrimSpace(msg))
	}
	return json.NewDecoder(res.Body).Decode(out)
}

// Subscribe opens the WebSocket feed and delivers every document the server pushes.
// The channel is closed when the connection ends or ctx is done.
func (c *apiClient) Subscribe(ctx context.Context) (<-chan merge.Document, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.ws.String(), nil)
	if err != nil {
		return nil, err
	}

	docs := make(chan merge.Document)
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	go func() {
		defer close(docs)
		for {
			var msg commons.Message
			if err := conn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logger.Errorf("websocket error: %v", err)
				}
				return
			}
			if msg.Type != commons.DocSyncMessage {
				continue
			}
			select {
			case docs <- msg.Document:
			case <-ctx.Done():
				return
			}
		}
	}()
	return docs, nil
}
